package testutil

import (
	"bytes"
	"cmp"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// volatileKeys change from run to run and are dropped from golden documents.
var volatileKeys = map[string]bool{
	"runId":      true,
	"startedAt":  true,
	"finishedAt": true,
	"durationMs": true,
	"generated":  true,
	"version":    true,
	"checksum":   true,
	"cached":     true,
	"cacheHits":  true,
}

// orderKeys sort slices of objects; the first key that differs decides.
var orderKeys = []string{"path", "from", "module", "to", "line", "name"}

// Normalize converts data to its generic JSON form with volatile keys
// removed, the fixture root replaced by <fixture> and object slices sorted.
func Normalize(t *testing.T, fixture *FixtureContext, data any) any {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal for normalization: %v", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal for normalization: %v", err)
	}
	return scrub(v, fixture.Root)
}

func scrub(v any, root string) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			if volatileKeys[k] {
				delete(val, k)
				continue
			}
			val[k] = scrub(item, root)
		}
		return val
	case []any:
		for i := range val {
			val[i] = scrub(val[i], root)
		}
		sort.SliceStable(val, func(i, j int) bool { return objectLess(val[i], val[j]) })
		return val
	case string:
		if root != "" {
			val = strings.ReplaceAll(val, root, "<fixture>")
		}
		return filepath.ToSlash(val)
	}
	return v
}

// objectLess orders two JSON objects by orderKeys. An object holding a key
// sorts before one lacking it. Non-objects keep their order.
func objectLess(a, b any) bool {
	ma, oka := a.(map[string]any)
	mb, okb := b.(map[string]any)
	if !oka || !okb {
		return false
	}
	for _, key := range orderKeys {
		va, hasA := ma[key]
		vb, hasB := mb[key]
		switch {
		case !hasA && !hasB:
			continue
		case hasA != hasB:
			return hasA
		}
		if c := compareScalar(va, vb); c != 0 {
			return c < 0
		}
	}
	return false
}

func compareScalar(a, b any) int {
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb)
		}
	case float64:
		if vb, ok := b.(float64); ok {
			return cmp.Compare(va, vb)
		}
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return bytes.Compare(ja, jb)
}

// MarshalNormalized normalizes data and encodes it as indented JSON with a
// trailing newline. encoding/json sorts map keys. HTML escaping is off so
// <fixture> stays readable.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, data any) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Normalize(t, fixture, data)); err != nil {
		t.Fatalf("marshal normalized: %v", err)
	}
	return buf.Bytes()
}

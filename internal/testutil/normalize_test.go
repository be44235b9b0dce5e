package testutil

import (
	"strings"
	"testing"
)

func TestNormalizeDropsVolatileFields(t *testing.T) {
	fixture := &FixtureContext{Name: "demo", Root: "/work/fixtures/demo/src"}
	got := Normalize(t, fixture, map[string]any{
		"runId":      "8d5e2b2c",
		"durationMs": 12,
		"root":       "/work/fixtures/demo/src",
		"files": []map[string]any{
			{"path": "b.f90", "checksum": "x"},
			{"path": "a.f90", "cached": true},
		},
	})

	m := got.(map[string]any)
	if _, ok := m["runId"]; ok {
		t.Error("runId survived normalization")
	}
	if m["root"] != "<fixture>" {
		t.Errorf("root = %v", m["root"])
	}
	files := m["files"].([]any)
	first := files[0].(map[string]any)
	if first["path"] != "a.f90" || len(first) != 1 {
		t.Errorf("files[0] = %v, want sorted by path without volatile keys", first)
	}
}

func TestNormalizeOrdersEdges(t *testing.T) {
	type edge struct {
		From string `json:"from"`
		To   string `json:"to"`
		Line int    `json:"line"`
	}
	got := Normalize(t, &FixtureContext{}, []edge{
		{From: "b.f90", To: "kinds", Line: 3},
		{From: "a.f90", To: "mesh", Line: 9},
		{From: "a.f90", To: "mesh", Line: 2},
		{From: "a.f90", To: "kinds", Line: 5},
	}).([]any)

	var order []string
	for _, e := range got {
		m := e.(map[string]any)
		order = append(order, m["from"].(string)+":"+m["to"].(string))
	}
	want := "a.f90:kinds a.f90:mesh a.f90:mesh b.f90:kinds"
	if strings.Join(order, " ") != want {
		t.Errorf("order = %v, want %s", order, want)
	}
	if got[1].(map[string]any)["line"] != float64(2) {
		t.Errorf("line tie-break lost: %v", got[1])
	}
}

func TestNormalizeKeepsStringSliceOrder(t *testing.T) {
	got := Normalize(t, &FixtureContext{}, []string{"mesh.f90", "kinds.f90"}).([]any)
	if got[0] != "mesh.f90" || got[1] != "kinds.f90" {
		t.Errorf("build order reordered: %v", got)
	}
}

func TestMarshalNormalizedKeepsAngleBrackets(t *testing.T) {
	fixture := &FixtureContext{Root: "/r"}
	out := string(MarshalNormalized(t, fixture, map[string]string{"root": "/r/x"}))
	if !strings.Contains(out, `"<fixture>/x"`) {
		t.Errorf("output = %s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("output lacks trailing newline: %q", out)
	}
}

package modules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"fortdeps/internal/config"
	"fortdeps/internal/fortran"
	"fortdeps/internal/storage"
)

// memCache is an in-memory ResultCache and Pruner.
type memCache struct {
	mu      sync.Mutex
	records map[string]storage.FileRecord
	stores  int
	pruned  []string
}

func newMemCache() *memCache {
	return &memCache{records: make(map[string]storage.FileRecord)}
}

func (c *memCache) Lookup(path, checksum, options string) (storage.FileRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[path]
	if !ok || rec.Checksum != checksum || rec.Options != options {
		return storage.FileRecord{}, false, nil
	}
	return rec, true, nil
}

func (c *memCache) Store(rec storage.FileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.Path] = rec
	c.stores++
	return nil
}

func (c *memCache) Prune(live []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keep := make(map[string]bool, len(live))
	for _, p := range live {
		keep[p] = true
	}
	removed := 0
	for p := range c.records {
		if !keep[p] {
			delete(c.records, p)
			c.pruned = append(c.pruned, p)
			removed++
		}
	}
	return removed, nil
}

// writeTree creates files under root from a path -> content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func scanConfig() *config.ScanConfig {
	cfg := config.DefaultConfig().Scan
	cfg.Workers = 2
	return &cfg
}

func filePaths(files []*SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestImportScannerScanFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/mesh.f90":   "module mesh\n  use kinds\nend module mesh\n",
		"src/legacy.f":   "      MODULE OLD\n      USE\n     &KINDS\n      END MODULE\n",
		"src/broken.f90": "module half\nuse kinds",
	})
	s := NewImportScanner(scanConfig(), nil, nil, nil)

	t.Run("free form", func(t *testing.T) {
		f, err := s.ScanFile(filepath.Join(root, "src", "mesh.f90"), root)
		if err != nil {
			t.Fatal(err)
		}
		if f.Path != "src/mesh.f90" || f.Format != "free" || !f.OK {
			t.Errorf("file = %+v", f)
		}
		if !reflect.DeepEqual(f.Provides, []ModuleRef{{Name: "mesh", Line: 1}}) {
			t.Errorf("Provides = %+v", f.Provides)
		}
		if !reflect.DeepEqual(f.Uses, []ModuleRef{{Name: "kinds", Line: 2}}) {
			t.Errorf("Uses = %+v", f.Uses)
		}
		if len(f.Checksum) != 64 {
			t.Errorf("Checksum = %q, want hex sha256", f.Checksum)
		}
	})

	t.Run("fixed form continuation", func(t *testing.T) {
		f, err := s.ScanFile(filepath.Join(root, "src", "legacy.f"), root)
		if err != nil {
			t.Fatal(err)
		}
		if f.Format != "fixed" || !reflect.DeepEqual(f.Uses, []ModuleRef{{Name: "KINDS", Line: 2}}) {
			t.Errorf("file = %+v", f)
		}
	})

	t.Run("truncated fails soft", func(t *testing.T) {
		f, err := s.ScanFile(filepath.Join(root, "src", "broken.f90"), root)
		if err != nil {
			t.Fatal(err)
		}
		if f.OK || !strings.Contains(f.Failure, "unexpected end of input") {
			t.Errorf("OK = %v, Failure = %q", f.OK, f.Failure)
		}
		if len(f.Provides) != 0 || len(f.Uses) != 0 {
			t.Errorf("failed file should carry no entries: %+v", f)
		}
	})

	t.Run("missing fails soft", func(t *testing.T) {
		f, err := s.ScanFile(filepath.Join(root, "src", "gone.f90"), root)
		if err != nil {
			t.Fatal(err)
		}
		if f.OK || f.Failure != fortran.ErrSourceNotFound.Error() {
			t.Errorf("OK = %v, Failure = %q", f.OK, f.Failure)
		}
	})
}

func TestImportScannerDeclarationOptions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"free_in_fixed.f": "use &\n  shared\n",
	})
	decl := &Declaration{Version: 1, Sources: []SourceRule{{Pattern: "*.f", Options: "-free"}}}
	s := NewImportScanner(scanConfig(), decl, nil, nil)

	f, err := s.ScanFile(filepath.Join(root, "free_in_fixed.f"), root)
	if err != nil {
		t.Fatal(err)
	}
	if f.Format != "free" || f.Options != "-free" {
		t.Errorf("Format = %q, Options = %q", f.Format, f.Options)
	}
	if !reflect.DeepEqual(f.Uses, []ModuleRef{{Name: "shared", Line: 1}}) {
		t.Errorf("Uses = %+v", f.Uses)
	}
}

func TestImportScannerCache(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.f90": "module a\nend module\n",
		"b.f90": "use a\n",
	})
	cache := newMemCache()
	s := NewImportScanner(scanConfig(), nil, cache, nil)

	first, err := s.ScanDirectory(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHits != 0 || cache.stores != 2 {
		t.Fatalf("first scan: hits = %d, stores = %d", first.CacheHits, cache.stores)
	}

	second, err := s.ScanDirectory(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if second.CacheHits != 2 {
		t.Errorf("second scan hits = %d, want 2", second.CacheHits)
	}
	for _, f := range second.Files {
		if !f.Cached {
			t.Errorf("%s not served from cache", f.Path)
		}
	}
	if !reflect.DeepEqual(first.Files[1].Uses, second.Files[1].Uses) {
		t.Errorf("cached uses = %+v, want %+v", second.Files[1].Uses, first.Files[1].Uses)
	}

	writeTree(t, root, map[string]string{"b.f90": "use a\nuse c\n"})
	third, err := s.ScanDirectory(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHits != 1 {
		t.Errorf("after edit hits = %d, want 1", third.CacheHits)
	}
	if len(third.Files[1].Uses) != 2 {
		t.Errorf("edited file uses = %+v", third.Files[1].Uses)
	}
}

func TestImportScannerScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/b.f90":         "module b\nend module\n",
		"src/a.F90":         "use b\n",
		"src/sub/c.f":       "      USE B\n",
		"src/notes.txt":     "use b\n",
		"src/main.c":        "int main(void) { return 0; }\n",
		"build/gen.f90":     "module gen\nend module\n",
		".git/hooks/x.f90":  "module hook\nend module\n",
		"vendor/third.f90":  "module third\nend module\n",
		"vendor/keep/k.f90": "module k\nend module\n",
		"src/big.f90":       "module big\n" + strings.Repeat("! padding\n", 20) + "end module\n",
	})
	cfg := scanConfig()
	cfg.MaxFileSizeBytes = 100
	decl := &Declaration{Version: 1, Ignore: []string{"vendor/third.f90"}}
	s := NewImportScanner(cfg, decl, nil, nil)

	scan, err := s.ScanDirectory(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"src/a.F90", "src/b.f90", "src/sub/c.f", "vendor/keep/k.f90"}
	if got := filePaths(scan.Files); !reflect.DeepEqual(got, want) {
		t.Errorf("files = %q, want %q", got, want)
	}
	if !reflect.DeepEqual(scan.Skipped, []string{"src/big.f90"}) {
		t.Errorf("Skipped = %q, want [src/big.f90]", scan.Skipped)
	}
	if !scan.Files[0].Preprocess {
		t.Error("src/a.F90 should be marked for preprocessing")
	}
}

func TestImportScannerCanceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.f90": "use b\n"})
	s := NewImportScanner(scanConfig(), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ScanDirectory(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestImportScannerMissingRoot(t *testing.T) {
	s := NewImportScanner(scanConfig(), nil, nil, nil)
	if _, err := s.ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing root")
	}
}

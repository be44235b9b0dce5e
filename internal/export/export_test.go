package export

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"fortdeps/internal/modules"
	"fortdeps/internal/storage"
)

func sampleResult() *modules.ScanResult {
	return &modules.ScanResult{
		RunID:      "4b4f5d1e-2b1c-4f3e-9a55-0c8e5b8b2a10",
		Root:       "/src/model",
		StartedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationMs: 42,
		Status:     storage.RunPartial,
		Files: []*modules.SourceFile{
			{
				Path:     "lib/kinds.f90",
				Format:   "free",
				Provides: []modules.ModuleRef{{Name: "kinds", Line: 1}},
				Uses:     []modules.ModuleRef{},
				Checksum: "aa",
				OK:       true,
			},
			{
				Path:     "app/main.f",
				Format:   "fixed",
				Options:  "-e",
				Provides: []modules.ModuleRef{},
				Uses:     []modules.ModuleRef{{Name: "KINDS", Line: 3}, {Name: "netcdf", Line: 4}},
				Checksum: "bb",
				OK:       true,
			},
			{
				Path:     "app/cut.f90",
				Format:   "free",
				Provides: []modules.ModuleRef{},
				Uses:     []modules.ModuleRef{},
				Failure:  "unexpected end of input",
			},
		},
		Edges: []*modules.ImportEdge{
			{From: "app/main.f", To: "kinds", RawImport: "KINDS", Kind: modules.LocalModule, Provider: "lib/kinds.f90", Confidence: 1, Line: 3},
			{From: "app/main.f", To: "netcdf", RawImport: "netcdf", Kind: modules.External, Confidence: 0.95, Line: 4},
		},
		Modules:    map[string]string{"kinds": "lib/kinds.f90"},
		Duplicates: []modules.Duplicate{},
		Unresolved: []string{},
		BuildOrder: []string{"app/cut.f90", "lib/kinds.f90", "app/main.f"},
		Cycles:     []modules.Cycle{},
		Blocked:    []string{},
		Failed:     []modules.FailedFile{{Path: "app/cut.f90", Reason: "unexpected end of input"}},
		Skipped:    []string{"big.f90"},
	}
}

func fixedExporter() *Exporter {
	e := NewExporter(nil)
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC) }
	return e
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" toml ", FormatTOML, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path       string
		want       Format
		compressed bool
	}{
		{"deps.json", FormatJSON, false},
		{"out/deps.yaml", FormatYAML, false},
		{"deps.YML", FormatYAML, false},
		{"deps.toml.zst", FormatTOML, true},
		{"deps.zst", FormatJSON, true},
		{"deps", FormatJSON, false},
	}
	for _, tt := range tests {
		got, compressed := FormatForPath(tt.path)
		if got != tt.want || compressed != tt.compressed {
			t.Errorf("FormatForPath(%q) = %q, %v; want %q, %v", tt.path, got, compressed, tt.want, tt.compressed)
		}
	}
}

func TestBuild(t *testing.T) {
	doc := fixedExporter().Build(sampleResult())
	want := Metadata{
		Tool:        "fortdeps",
		Version:     doc.Metadata.Version,
		Generated:   time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		Root:        "/src/model",
		FileCount:   3,
		ModuleCount: 1,
		EdgeCount:   2,
		FailedCount: 1,
	}
	if doc.Metadata != want {
		t.Errorf("Metadata = %+v, want %+v", doc.Metadata, want)
	}
	if doc.Metadata.Version == "" {
		t.Error("Version should be set")
	}
}

func TestWriteAndReadFile(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter()
	doc := e.Build(sampleResult())

	for _, name := range []string{"deps.json", "deps.yaml", "deps.toml", "deps.json.zst", "deps.yaml.zst", "deps.toml.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := e.WriteFile(path, doc, Options{}); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			gm, wm := got.Metadata, doc.Metadata
			if !gm.Generated.Equal(wm.Generated) {
				t.Errorf("Generated = %v, want %v", gm.Generated, wm.Generated)
			}
			gm.Generated, wm.Generated = time.Time{}, time.Time{}
			if gm != wm {
				t.Errorf("Metadata = %+v, want %+v", gm, wm)
			}
			r := got.Result
			if r == nil {
				t.Fatal("Result missing")
			}
			if r.RunID != doc.Result.RunID || !r.StartedAt.Equal(doc.Result.StartedAt) || r.Status != doc.Result.Status {
				t.Errorf("header = %s %v %s", r.RunID, r.StartedAt, r.Status)
			}
			if !reflect.DeepEqual(r.BuildOrder, doc.Result.BuildOrder) {
				t.Errorf("BuildOrder = %q", r.BuildOrder)
			}
			if !reflect.DeepEqual(r.Edges, doc.Result.Edges) {
				t.Errorf("Edges = %+v", r.Edges)
			}
			if !reflect.DeepEqual(r.Files[1].Uses, doc.Result.Files[1].Uses) || r.Files[1].Options != "-e" {
				t.Errorf("Files[1] = %+v", r.Files[1])
			}
			if !reflect.DeepEqual(r.Failed, doc.Result.Failed) || !reflect.DeepEqual(r.Modules, doc.Result.Modules) {
				t.Errorf("Failed = %+v, Modules = %v", r.Failed, r.Modules)
			}
		})
	}
}

func TestWriteFileCompressed(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter()
	doc := e.Build(sampleResult())

	path := filepath.Join(dir, "deps.json.zst")
	if err := e.WriteFile(path, doc, Options{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// zstd frame magic
	if !bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Errorf("file does not start with a zstd frame: % x", data[:4])
	}
}

func TestWriteFileFormatOverride(t *testing.T) {
	dir := t.TempDir()
	e := fixedExporter()
	path := filepath.Join(dir, "deps.out")
	if err := e.WriteFile(path, e.Build(sampleResult()), Options{Format: FormatYAML}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "metadata:\n") {
		t.Errorf("expected YAML document, got:\n%s", data)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Document{}, Format("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := Decode(&buf, Format("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestOrganize(t *testing.T) {
	org := NewOrganizer(sampleResult()).Organize()

	wantDirs := []DirectorySummary{
		{Dir: "app", FileCount: 2, Failed: 1},
		{Dir: "lib", FileCount: 1, Provides: []string{"kinds"}},
	}
	if !reflect.DeepEqual(org.Directories, wantDirs) {
		t.Errorf("Directories = %+v, want %+v", org.Directories, wantDirs)
	}
	wantBridges := []Bridge{{FromDir: "app", ToDir: "lib", EdgeCount: 1, Modules: []string{"kinds"}}}
	if !reflect.DeepEqual(org.Bridges, wantBridges) {
		t.Errorf("Bridges = %+v, want %+v", org.Bridges, wantBridges)
	}
	if org.TotalFiles != 3 || org.TotalModules != 1 || org.TotalEdges != 2 {
		t.Errorf("totals = %d/%d/%d", org.TotalFiles, org.TotalModules, org.TotalEdges)
	}

	text := FormatOrganizedText(org)
	for _, want := range []string{"| app | 2 | 1 | - |", "| lib | 1 | 0 | kinds |", "- app → lib (1: kinds)", "Total: 3 files, 1 modules, 2 uses"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestOrganizeNil(t *testing.T) {
	org := NewOrganizer(nil).Organize()
	if org.TotalFiles != 0 || len(org.Directories) != 0 {
		t.Errorf("org = %+v", org)
	}
}

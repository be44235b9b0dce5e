package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatePaths(t *testing.T) {
	root := filepath.Join("/work", "proj")
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"state", StateDir(root), filepath.Join(root, ".fortdeps")},
		{"config", ConfigPath(root), filepath.Join(root, ".fortdeps", "config.json")},
		{"database", DatabasePath(root), filepath.Join(root, ".fortdeps", "fortdeps.db")},
		{"log", LogPath(root), filepath.Join(root, ".fortdeps", "logs", "fortdeps.log")},
		{"declaration", DeclarationPath(root), filepath.Join(root, "FORTRAN.toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureStateDir(root)
	if err != nil {
		t.Fatalf("EnsureStateDir: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("state dir not created: %v", err)
	}

	logs, err := EnsureLogsDir(root)
	if err != nil {
		t.Fatalf("EnsureLogsDir: %v", err)
	}
	if filepath.Dir(LogPath(root)) != logs {
		t.Errorf("logs dir = %s, want parent of %s", logs, LogPath(root))
	}

	// Idempotent.
	if _, err := EnsureLogsDir(root); err != nil {
		t.Errorf("second EnsureLogsDir: %v", err)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "mod.f90")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("module m\nend module\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath: %v", err)
	}
	if got != "src/mod.f90" {
		t.Errorf("got %s, want src/mod.f90", got)
	}

	// Missing files are still made relative.
	got, err = CanonicalizePath(filepath.Join(root, "gone.f"), root)
	if err != nil || got != "gone.f" {
		t.Errorf("missing file = %q, %v", got, err)
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "a.f")
	if err := os.WriteFile(inside, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsWithinRoot(inside, root) {
		t.Error("file under root reported outside")
	}
	if IsWithinRoot(filepath.Join(filepath.Dir(root), "elsewhere.f"), root) {
		t.Error("sibling file reported inside")
	}
	if !IsWithinRoot(filepath.Join(root, "..hidden.f"), root) {
		t.Error("dot-dot prefixed name reported outside")
	}
}

func TestJoinRootPath(t *testing.T) {
	got := JoinRootPath("/repo", "src/geo/mesh.f90")
	if want := filepath.Join("/repo", "src", "geo", "mesh.f90"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

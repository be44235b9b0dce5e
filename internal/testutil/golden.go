package testutil

import (
	"bytes"
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	// updateGolden controls whether golden files should be updated.
	// Use: go test ./... -run TestGolden -update
	updateGolden = flag.Bool("update", false, "update golden files")

	// goldenFixture filters which fixtures to test.
	// Use: go test ./... -run TestGolden -goldenFixture=fortran
	goldenFixture = flag.String("goldenFixture", "", "filter fixtures (comma-separated)")
)

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// ShouldTestFixture returns true if the given fixture should be tested.
func ShouldTestFixture(name string) bool {
	if *goldenFixture == "" {
		return true
	}
	for _, f := range strings.Split(*goldenFixture, ",") {
		if strings.TrimSpace(f) == name {
			return true
		}
	}
	return false
}

// CompareGolden compares got against the golden JSON file, failing with a diff on mismatch.
// Automatically normalizes the data before comparison.
// If -update flag is set, updates the golden file instead of comparing.
func CompareGolden(t *testing.T, fixture *FixtureContext, name string, got any) {
	t.Helper()
	CompareGoldenBytes(t, fixture, name, MarshalNormalized(t, fixture, got))
}

// CompareGoldenText compares text output against a golden file.
// A trailing newline is added when missing.
func CompareGoldenText(t *testing.T, fixture *FixtureContext, name string, got string) {
	t.Helper()
	if !strings.HasSuffix(got, "\n") {
		got += "\n"
	}
	CompareGoldenBytes(t, fixture, name, []byte(got))
}

// CompareGoldenBytes compares raw bytes against a golden file.
func CompareGoldenBytes(t *testing.T, fixture *FixtureContext, name string, got []byte) {
	t.Helper()

	goldenPath := fixture.ExpectedPath(name)

	if *updateGolden {
		UpdateGolden(t, fixture, name, got)
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, string(got), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(got, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, unifiedDiff(string(expected), string(got), goldenPath), t.Name())
	}
}

// UpdateGolden writes data to the golden file.
// Creates parent directories if they don't exist.
func UpdateGolden(t *testing.T, fixture *FixtureContext, name string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(fixture.ExpectedDir, 0o755); err != nil {
		t.Fatalf("Failed to create expected directory: %v", err)
	}
	if err := os.WriteFile(fixture.ExpectedPath(name), data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

func unifiedDiff(expected, got, path string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(got),
		FromFile: path + " (expected)",
		ToFile:   path + " (got)",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

// ForEachFixture runs a test function for each available fixture.
// Respects the -goldenFixture flag.
func ForEachFixture(t *testing.T, fn func(t *testing.T, fixture *FixtureContext)) {
	t.Helper()

	names := AvailableFixtures(t)
	if len(names) == 0 {
		t.Skip("No fixtures available")
	}

	for _, name := range names {
		if !ShouldTestFixture(name) {
			continue
		}
		t.Run(name, func(t *testing.T) {
			fn(t, LoadFixture(t, name))
		})
	}
}

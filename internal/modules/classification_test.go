package modules

import (
	"testing"
)

func TestImportEdgePredicates(t *testing.T) {
	testCases := []struct {
		kind     ImportEdgeKind
		local    bool
		resolved bool
	}{
		{LocalModule, true, true},
		{SelfReference, true, true},
		{Intrinsic, false, true},
		{External, false, true},
		{Unknown, false, false},
	}

	for _, tc := range testCases {
		edge := &ImportEdge{Kind: tc.kind}
		if edge.IsLocal() != tc.local {
			t.Errorf("kind %s: IsLocal() = %v, expected %v", tc.kind, edge.IsLocal(), tc.local)
		}
		if edge.IsResolved() != tc.resolved {
			t.Errorf("kind %s: IsResolved() = %v, expected %v", tc.kind, edge.IsResolved(), tc.resolved)
		}
	}
}

func TestClassifyEdge(t *testing.T) {
	ctx := NewModuleContext(
		map[string]string{
			"kinds": "src/kinds.f90",
			"mesh":  "src/mesh.f90",
			// A local module named like an intrinsic wins.
			"omp_lib": "stubs/omp_stub.f90",
		},
		map[string]bool{"mesh": true},
		[]string{" MPI "},
		[]string{"netcdf"},
	)
	classifier := NewImportClassifier(ctx)

	testCases := []struct {
		name           string
		from           string
		to             string
		wantKind       ImportEdgeKind
		wantProvider   string
		wantConfidence float64
	}{
		{"local", "src/solver.f90", "kinds", LocalModule, "src/kinds.f90", 1.0},
		{"self", "src/kinds.f90", "kinds", SelfReference, "src/kinds.f90", 1.0},
		{"duplicate definition", "src/solver.f90", "mesh", LocalModule, "src/mesh.f90", 0.6},
		{"intrinsic", "src/solver.f90", "iso_fortran_env", Intrinsic, "", 1.0},
		{"configured intrinsic", "src/solver.f90", "mpi", Intrinsic, "", 1.0},
		{"local shadows intrinsic", "src/solver.f90", "omp_lib", LocalModule, "stubs/omp_stub.f90", 1.0},
		{"external", "src/io.f90", "netcdf", External, "", 0.95},
		{"unresolved", "src/io.f90", "hdf5", Unknown, "", 0.5},
		{"unnamed", "src/io.f90", "", Unknown, "", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			edge := &ImportEdge{From: tc.from, To: tc.to, RawImport: tc.to}
			classifier.ClassifyEdge(edge)

			if edge.Kind != tc.wantKind {
				t.Errorf("Kind = %s, want %s", edge.Kind, tc.wantKind)
			}
			if edge.Provider != tc.wantProvider {
				t.Errorf("Provider = %q, want %q", edge.Provider, tc.wantProvider)
			}
			if edge.Confidence != tc.wantConfidence {
				t.Errorf("Confidence = %v, want %v", edge.Confidence, tc.wantConfidence)
			}
		})
	}
}

func TestDefaultIntrinsicModules(t *testing.T) {
	ctx := NewModuleContext(nil, nil, nil, nil)
	for _, name := range DefaultIntrinsicModules {
		if !ctx.Intrinsic[name] {
			t.Errorf("%s missing from intrinsic set", name)
		}
	}
	if len(ctx.Intrinsic) != 8 {
		t.Errorf("intrinsic set has %d names, want 8", len(ctx.Intrinsic))
	}
}

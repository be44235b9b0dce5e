package fortran

import (
	"reflect"
	"testing"
)

func TestOptionsForPath(t *testing.T) {
	tests := []struct {
		path string
		want Options
	}{
		{"a.f", Options{Format: Fixed, KnownExtension: true}},
		{"dir/b.for", Options{Format: Fixed, KnownExtension: true}},
		{"c.F", Options{Format: Fixed, Preprocess: true, KnownExtension: true}},
		{"d.f90", Options{Format: Free, KnownExtension: true}},
		{"e.f95", Options{Format: Free, KnownExtension: true}},
		{"f.F90", Options{Format: Free, Preprocess: true, KnownExtension: true}},
		{"g.F95", Options{Format: Free, Preprocess: true, KnownExtension: true}},
		// Unrecognized extensions keep the fixed default.
		{"h.f03", Options{Format: Fixed}},
		{"i.f08", Options{Format: Fixed}},
		{"Makefile", Options{Format: Fixed}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := OptionsForPath(tt.path); got != tt.want {
				t.Errorf("OptionsForPath(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name        string
		base        Options
		options     string
		want        Options
		wantUnknown []string
	}{
		{"empty", Options{Format: Free}, "", Options{Format: Free}, nil},
		{"free", Options{Format: Fixed}, "-free", Options{Format: Free}, nil},
		{"fixed", Options{Format: Free}, "-fixed", Options{Format: Fixed}, nil},
		{"last wins", Options{}, "-free -fixed", Options{Format: Fixed}, nil},
		{"long lines", Options{}, "  -e  ", Options{LongLines: true}, nil},
		{"preprocess", Options{Format: Free}, "-fpp", Options{Format: Free, Preprocess: true}, nil},
		{"unknown", Options{}, "-O2 -e -g", Options{LongLines: true}, []string{"-O2", "-g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown := ParseOptions(tt.base, tt.options)
			if got != tt.want {
				t.Errorf("options = %+v, want %+v", got, tt.want)
			}
			if !reflect.DeepEqual(unknown, tt.wantUnknown) {
				t.Errorf("unknown = %q, want %q", unknown, tt.wantUnknown)
			}
		})
	}
}

func TestLineLimit(t *testing.T) {
	if got := (Options{Format: Fixed}).LineLimit(); got != 72 {
		t.Errorf("fixed limit = %d", got)
	}
	if got := (Options{Format: Fixed, LongLines: true}).LineLimit(); got != 132 {
		t.Errorf("fixed -e limit = %d", got)
	}
	if got := (Options{Format: Free}).LineLimit(); got != 132 {
		t.Errorf("free limit = %d", got)
	}
}

func TestIsSourceExtension(t *testing.T) {
	for _, ext := range []string{".f", ".for", ".F", ".f90", ".F90", ".f95", ".F95"} {
		if !IsSourceExtension(ext) {
			t.Errorf("IsSourceExtension(%q) = false", ext)
		}
	}
	for _, ext := range []string{".c", ".FOR", ".f03", ""} {
		if IsSourceExtension(ext) {
			t.Errorf("IsSourceExtension(%q) = true", ext)
		}
	}
}

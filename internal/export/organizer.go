package export

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"fortdeps/internal/modules"
)

// Organizer groups a scan result by directory.
// It adds:
// 1. Directory map (files and modules per directory)
// 2. Cross-directory bridges (USE edges between directories)
type Organizer struct {
	result *modules.ScanResult
}

// NewOrganizer creates a new organizer.
func NewOrganizer(result *modules.ScanResult) *Organizer {
	return &Organizer{result: result}
}

// DirectorySummary is a high-level view of one directory.
type DirectorySummary struct {
	Dir       string   `json:"dir"`
	FileCount int      `json:"fileCount"`
	Provides  []string `json:"provides,omitempty"`
	Failed    int      `json:"failed,omitempty"`
}

// Bridge counts local USE edges from one directory into another.
type Bridge struct {
	FromDir   string   `json:"fromDir"`
	ToDir     string   `json:"toDir"`
	EdgeCount int      `json:"edgeCount"`
	Modules   []string `json:"modules"`
}

// OrganizedResult contains the structured output.
type OrganizedResult struct {
	Directories []DirectorySummary `json:"directories"`
	Bridges     []Bridge           `json:"bridges,omitempty"`

	TotalFiles   int `json:"totalFiles"`
	TotalModules int `json:"totalModules"`
	TotalEdges   int `json:"totalEdges"`
}

// Organize summarizes directories, largest first, then bridges by weight.
func (o *Organizer) Organize() *OrganizedResult {
	if o.result == nil {
		return &OrganizedResult{}
	}

	out := &OrganizedResult{
		TotalFiles:   len(o.result.Files),
		TotalModules: len(o.result.Modules),
		TotalEdges:   len(o.result.Edges),
	}

	byDir := make(map[string]*DirectorySummary)
	for _, f := range o.result.Files {
		dir := path.Dir(f.Path)
		s, ok := byDir[dir]
		if !ok {
			s = &DirectorySummary{Dir: dir}
			byDir[dir] = s
		}
		s.FileCount++
		if !f.OK {
			s.Failed++
		}
		for _, ref := range f.Provides {
			s.Provides = append(s.Provides, ref.Key())
		}
	}
	for _, s := range byDir {
		sort.Strings(s.Provides)
		out.Directories = append(out.Directories, *s)
	}
	sort.Slice(out.Directories, func(i, j int) bool {
		a, b := out.Directories[i], out.Directories[j]
		if a.FileCount != b.FileCount {
			return a.FileCount > b.FileCount
		}
		return a.Dir < b.Dir
	})

	out.Bridges = o.bridges()
	return out
}

func (o *Organizer) bridges() []Bridge {
	type key struct{ from, to string }
	found := make(map[key]*Bridge)
	for _, e := range o.result.Edges {
		if !e.IsLocal() {
			continue
		}
		k := key{path.Dir(e.From), path.Dir(e.Provider)}
		if k.from == k.to {
			continue
		}
		b, ok := found[k]
		if !ok {
			b = &Bridge{FromDir: k.from, ToDir: k.to}
			found[k] = b
		}
		b.EdgeCount++
		if i := sort.SearchStrings(b.Modules, e.To); i == len(b.Modules) || b.Modules[i] != e.To {
			b.Modules = append(b.Modules, "")
			copy(b.Modules[i+1:], b.Modules[i:])
			b.Modules[i] = e.To
		}
	}

	bridges := make([]Bridge, 0, len(found))
	for _, b := range found {
		bridges = append(bridges, *b)
	}
	sort.Slice(bridges, func(i, j int) bool {
		a, b := bridges[i], bridges[j]
		if a.EdgeCount != b.EdgeCount {
			return a.EdgeCount > b.EdgeCount
		}
		if a.FromDir != b.FromDir {
			return a.FromDir < b.FromDir
		}
		return a.ToDir < b.ToDir
	})
	return bridges
}

// FormatOrganizedText renders an organized result as Markdown.
func FormatOrganizedText(org *OrganizedResult) string {
	var sb strings.Builder

	sb.WriteString("# Fortran Sources\n\n")

	sb.WriteString("## Directory Map\n\n")
	sb.WriteString("| Directory | Files | Failed | Modules |\n")
	sb.WriteString("|-----------|-------|--------|---------|\n")
	for _, d := range org.Directories {
		mods := strings.Join(d.Provides, ", ")
		if mods == "" {
			mods = "-"
		}
		fmt.Fprintf(&sb, "| %s | %d | %d | %s |\n", d.Dir, d.FileCount, d.Failed, mods)
	}
	sb.WriteString("\n")

	if len(org.Bridges) > 0 {
		sb.WriteString("## Cross-Directory Uses\n\n")
		for _, b := range org.Bridges {
			fmt.Fprintf(&sb, "- %s → %s (%d: %s)\n", b.FromDir, b.ToDir, b.EdgeCount, strings.Join(b.Modules, ", "))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "---\n")
	fmt.Fprintf(&sb, "Total: %d files, %d modules, %d uses\n", org.TotalFiles, org.TotalModules, org.TotalEdges)
	return sb.String()
}

package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"fortdeps/internal/export"
	"fortdeps/internal/modules"
	"fortdeps/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatHuman, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s (want human, json or yaml)", s)
}

// StatementCLI is one logical statement.
type StatementCLI struct {
	Line int    `json:"line" yaml:"line"`
	Text string `json:"text" yaml:"text"`
}

// StatementsResponseCLI is the output of fortdeps statements.
type StatementsResponseCLI struct {
	File       string         `json:"file" yaml:"file"`
	Format     string         `json:"format" yaml:"format"`
	Statements []StatementCLI `json:"statements" yaml:"statements"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// EntryCLI is one classified MODULE or USE statement.
type EntryCLI struct {
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name" yaml:"name"`
	Line int    `json:"line" yaml:"line"`
	Code string `json:"code" yaml:"code"`
}

// ScanResponseCLI is the output of fortdeps scan.
type ScanResponseCLI struct {
	File    string     `json:"file" yaml:"file"`
	OK      bool       `json:"ok" yaml:"ok"`
	Entries []EntryCLI `json:"entries" yaml:"entries"`
}

// DepsResponseCLI is the output of fortdeps deps.
type DepsResponseCLI struct {
	Result    *modules.ScanResult     `json:"result" yaml:"result"`
	Organized *export.OrganizedResult `json:"-" yaml:"-"`
	Stats     map[string]int          `json:"edgeKinds" yaml:"edgeKinds"`
}

// ExportResponseCLI is the output of fortdeps export.
type ExportResponseCLI struct {
	Path     string          `json:"path" yaml:"path"`
	Format   export.Format   `json:"format" yaml:"format"`
	Metadata export.Metadata `json:"metadata" yaml:"metadata"`
}

// InitResponseCLI is the output of fortdeps init.
type InitResponseCLI struct {
	Created []string `json:"created" yaml:"created"`
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// CacheStatsResponseCLI is the output of fortdeps cache stats.
type CacheStatsResponseCLI struct {
	Stats storage.CacheStats `json:"stats" yaml:"stats"`
}

// CacheClearResponseCLI is the output of fortdeps cache clear.
type CacheClearResponseCLI struct {
	Path    string `json:"path" yaml:"path"`
	Cleared bool   `json:"cleared" yaml:"cleared"`
}

// RunsResponseCLI is the output of fortdeps runs.
type RunsResponseCLI struct {
	Runs []storage.ScanRun `json:"runs" yaml:"runs"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(resp); err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *StatementsResponseCLI:
		return formatStatementsHuman(v), nil
	case *ScanResponseCLI:
		return formatScanHuman(v), nil
	case *DepsResponseCLI:
		return formatDepsHuman(v), nil
	case *ExportResponseCLI:
		return fmt.Sprintf("Wrote %s (%s, %d files, %d edges)", v.Path, v.Format, v.Metadata.FileCount, v.Metadata.EdgeCount), nil
	case *InitResponseCLI:
		return formatInitHuman(v), nil
	case *CacheStatsResponseCLI:
		return formatCacheStatsHuman(v), nil
	case *CacheClearResponseCLI:
		return fmt.Sprintf("Cleared result cache at %s", v.Path), nil
	case *RunsResponseCLI:
		return formatRunsHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatStatementsHuman(resp *StatementsResponseCLI) string {
	var b strings.Builder
	for _, s := range resp.Statements {
		fmt.Fprintf(&b, "%4d  %s\n", s.Line, s.Text)
	}
	if resp.Error != "" {
		fmt.Fprintf(&b, "   !  %s\n", resp.Error)
	}
	return b.String()
}

func formatScanHuman(resp *ScanResponseCLI) string {
	var b strings.Builder
	for _, e := range resp.Entries {
		b.WriteString(e.Code + "\n")
	}
	return b.String()
}

func formatDepsHuman(resp *DepsResponseCLI) string {
	r := resp.Result
	var b strings.Builder

	fmt.Fprintf(&b, "Scanned %s\n", r.Root)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Files:    %d (%d failed, %d skipped, %d cached)\n", len(r.Files), len(r.Failed), len(r.Skipped), r.CacheHits)
	fmt.Fprintf(&b, "Modules:  %d (%d defined more than once)\n", len(r.Modules), len(r.Duplicates))
	fmt.Fprintf(&b, "Uses:     %d (local %d, self %d, intrinsic %d, external %d, unknown %d)\n",
		len(r.Edges),
		resp.Stats[string(modules.LocalModule)],
		resp.Stats[string(modules.SelfReference)],
		resp.Stats[string(modules.Intrinsic)],
		resp.Stats[string(modules.External)],
		resp.Stats[string(modules.Unknown)])
	fmt.Fprintf(&b, "Status:   %s (%d ms)\n\n", r.Status, r.DurationMs)

	b.WriteString("Build order:\n")
	for i, p := range r.BuildOrder {
		fmt.Fprintf(&b, "  %3d. %s\n", i+1, p)
	}

	if len(r.Cycles) > 0 {
		b.WriteString("\nCycles:\n")
		for _, c := range r.Cycles {
			fmt.Fprintf(&b, "  %s  [%s]\n", strings.Join(c.Files, " <-> "), strings.Join(c.Modules, ", "))
		}
	}
	if len(r.Blocked) > 0 {
		b.WriteString("\nBlocked by a cycle:\n")
		for _, p := range r.Blocked {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	if len(r.Duplicates) > 0 {
		b.WriteString("\nDuplicate modules:\n")
		for _, d := range r.Duplicates {
			fmt.Fprintf(&b, "  %s: %s\n", d.Module, strings.Join(d.Files, ", "))
		}
	}
	if len(r.Unresolved) > 0 {
		b.WriteString("\nUnresolved modules:\n")
		for _, name := range r.Unresolved {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	if external := modules.FilterImportsByKind(r.Edges, modules.External); len(external) > 0 {
		b.WriteString("\nExternal modules:\n")
		uses := make(map[string]int)
		var names []string
		for _, e := range external {
			if uses[e.To] == 0 {
				names = append(names, e.To)
			}
			uses[e.To]++
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s (%d uses)\n", name, uses[name])
		}
	}
	if len(r.Failed) > 0 {
		b.WriteString("\nFailed files:\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&b, "  %s: %s\n", f.Path, f.Reason)
		}
	}
	if resp.Organized != nil {
		b.WriteString("\n")
		b.WriteString(export.FormatOrganizedText(resp.Organized))
	}
	return b.String()
}

func formatInitHuman(resp *InitResponseCLI) string {
	var b strings.Builder
	for _, p := range resp.Created {
		fmt.Fprintf(&b, "Created %s\n", p)
	}
	for _, p := range resp.Skipped {
		fmt.Fprintf(&b, "Kept existing %s (use --force to overwrite)\n", p)
	}
	return b.String()
}

func formatCacheStatsHuman(resp *CacheStatsResponseCLI) string {
	s := resp.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "Result cache: %s\n", s.Path)
	fmt.Fprintf(&b, "  Files:  %d (%d failed, %d stale)\n", s.Files, s.Failed, s.Stale)
	fmt.Fprintf(&b, "  LRU:    %d entries\n", s.LRUSize)
	return b.String()
}

func formatRunsHuman(resp *RunsResponseCLI) string {
	if len(resp.Runs) == 0 {
		return "No scans recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-20s  %-8s  %6s  %6s  %6s  %8s\n", "RUN", "STARTED", "STATUS", "FILES", "FAILED", "EDGES", "MS")
	for _, r := range resp.Runs {
		fmt.Fprintf(&b, "%-36s  %-20s  %-8s  %6d  %6d  %6d  %8d\n",
			r.RunID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.Files,
			r.Failed,
			r.Edges,
			r.Duration().Milliseconds())
	}
	return b.String()
}

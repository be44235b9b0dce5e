package modules

import (
	"sort"
)

// Duplicate is a module name defined by more than one file.
type Duplicate struct {
	Module string   `json:"module" yaml:"module" toml:"module"`
	Files  []string `json:"files" yaml:"files" toml:"files"`
}

// Cycle is a set of files whose modules use each other.
type Cycle struct {
	Files   []string `json:"files" yaml:"files" toml:"files"`
	Modules []string `json:"modules" yaml:"modules" toml:"modules"`
}

// Graph is the resolved file dependency graph of one scan.
type Graph struct {
	// Modules maps each case-folded module name to the first file defining it.
	Modules map[string]string

	Duplicates []Duplicate

	// Edges are classified USE statements in file order.
	Edges []*ImportEdge

	// Unresolved lists named modules nothing accounts for, sorted.
	Unresolved []string

	// BuildOrder lists files so that every provider precedes its users.
	// Ties are broken lexically.
	BuildOrder []string

	Cycles []Cycle

	// Blocked lists files outside any cycle that depend on one.
	Blocked []string

	deps map[string][]string
}

// BuildGraph resolves the uses of files against their provisions.
func BuildGraph(files []*SourceFile, intrinsic, external []string) *Graph {
	g := &Graph{
		Modules:    make(map[string]string),
		Duplicates: []Duplicate{},
		Edges:      []*ImportEdge{},
		Unresolved: []string{},
		BuildOrder: []string{},
		Cycles:     []Cycle{},
		Blocked:    []string{},
		deps:       make(map[string][]string),
	}

	definers := make(map[string][]string)
	var names []string
	for _, f := range files {
		for _, ref := range f.Provides {
			key := ref.Key()
			if key == "" {
				continue
			}
			if _, seen := definers[key]; !seen {
				names = append(names, key)
			}
			if !containsString(definers[key], f.Path) {
				definers[key] = append(definers[key], f.Path)
			}
		}
	}
	duplicates := make(map[string]bool)
	for _, name := range names {
		g.Modules[name] = definers[name][0]
		if len(definers[name]) > 1 {
			duplicates[name] = true
			g.Duplicates = append(g.Duplicates, Duplicate{Module: name, Files: definers[name]})
		}
	}
	sort.Slice(g.Duplicates, func(i, j int) bool { return g.Duplicates[i].Module < g.Duplicates[j].Module })

	classifier := NewImportClassifier(NewModuleContext(g.Modules, duplicates, intrinsic, external))
	unresolved := make(map[string]bool)
	for _, f := range files {
		for _, ref := range f.Uses {
			edge := &ImportEdge{From: f.Path, To: ref.Key(), RawImport: ref.Name, Line: ref.Line}
			classifier.ClassifyEdge(edge)
			g.Edges = append(g.Edges, edge)

			switch {
			case edge.Kind == LocalModule && !containsString(g.deps[f.Path], edge.Provider):
				g.deps[f.Path] = append(g.deps[f.Path], edge.Provider)
			case !edge.IsResolved() && edge.To != "":
				unresolved[edge.To] = true
			}
		}
	}
	for name := range unresolved {
		g.Unresolved = append(g.Unresolved, name)
	}
	sort.Strings(g.Unresolved)

	g.order(files)
	return g
}

// DependenciesOf returns the files providing modules used by path.
func (g *Graph) DependenciesOf(path string) []string {
	deps := append([]string(nil), g.deps[path]...)
	sort.Strings(deps)
	return deps
}

// order runs Kahn's algorithm, always taking the lexically smallest ready
// file, then reports what is left as cycles and blocked files.
func (g *Graph) order(files []*SourceFile) {
	indegree := make(map[string]int, len(files))
	users := make(map[string][]string)
	var nodes []string
	for _, f := range files {
		if _, seen := indegree[f.Path]; seen {
			continue
		}
		nodes = append(nodes, f.Path)
		providers := g.DependenciesOf(f.Path)
		indegree[f.Path] = len(providers)
		for _, provider := range providers {
			users[provider] = append(users[provider], f.Path)
		}
	}

	var ready []string
	for _, n := range nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	done := make(map[string]bool, len(nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		g.BuildOrder = append(g.BuildOrder, n)
		done[n] = true
		for _, u := range users[n] {
			indegree[u]--
			if indegree[u] == 0 {
				ready = insertSorted(ready, u)
			}
		}
	}
	if len(g.BuildOrder) == len(nodes) {
		return
	}

	var rest []string
	for _, n := range nodes {
		if !done[n] {
			rest = append(rest, n)
		}
	}
	inCycle := make(map[string]bool)
	for _, scc := range g.components(rest, done) {
		if len(scc) < 2 {
			continue
		}
		sort.Strings(scc)
		members := make(map[string]bool, len(scc))
		for _, n := range scc {
			members[n] = true
			inCycle[n] = true
		}
		var mods []string
		for _, e := range g.Edges {
			if e.Kind == LocalModule && members[e.From] && members[e.Provider] && !containsString(mods, e.To) {
				mods = append(mods, e.To)
			}
		}
		sort.Strings(mods)
		g.Cycles = append(g.Cycles, Cycle{Files: scc, Modules: mods})
	}
	sort.Slice(g.Cycles, func(i, j int) bool { return g.Cycles[i].Files[0] < g.Cycles[j].Files[0] })

	for _, n := range rest {
		if !inCycle[n] {
			g.Blocked = append(g.Blocked, n)
		}
	}
	sort.Strings(g.Blocked)
}

// components returns the strongly connected components (Tarjan) of the
// subgraph induced by nodes, ignoring edges into already ordered files.
func (g *Graph) components(nodes []string, done map[string]bool) [][]string {
	var (
		index   = make(map[string]int, len(nodes))
		low     = make(map[string]int, len(nodes))
		onStack = make(map[string]bool, len(nodes))
		stack   []string
		next    int
		out     [][]string
	)

	var visit func(n string)
	visit = func(n string) {
		index[n], low[n] = next, next
		next++
		stack = append(stack, n)
		onStack[n] = true

		for _, m := range g.deps[n] {
			if done[m] {
				continue
			}
			if _, seen := index[m]; !seen {
				visit(m)
				low[n] = min(low[n], low[m])
			} else if onStack[m] {
				low[n] = min(low[n], index[m])
			}
		}

		if low[n] == index[n] {
			var scc []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				scc = append(scc, top)
				if top == n {
					break
				}
			}
			out = append(out, scc)
		}
	}

	for _, n := range nodes {
		if _, seen := index[n]; !seen {
			visit(n)
		}
	}
	return out
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

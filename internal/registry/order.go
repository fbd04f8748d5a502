package registry

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// ExecutionOrder resolves the suite into ordered batches: every check in a
// batch has all of its dependencies in prior batches, so checks within a
// batch are safe to run concurrently. When selected names are given, the
// plan is restricted to those checks plus their transitive dependencies.
//
// Check names are sorted within each batch so the plan is deterministic.
func (s *Suite) ExecutionOrder(selected ...string) ([][]*CheckDescriptor, error) {
	include, err := s.expandSelection(selected)
	if err != nil {
		return nil, err
	}

	// Kahn's algorithm by levels over the selected subgraph. The suite is
	// already proven acyclic at load, so this always terminates.
	remaining := make(map[string]int, len(include))
	for name := range include {
		d := s.byName[name]
		deg := 0
		for _, dep := range d.DependsOn {
			if _, ok := include[dep]; ok {
				deg++
			}
		}
		remaining[name] = deg
	}

	var batches [][]*CheckDescriptor
	resolved := make(map[string]struct{}, len(include))
	for len(resolved) < len(include) {
		var names []string
		for name, deg := range remaining {
			if deg != 0 {
				continue
			}
			if _, done := resolved[name]; done {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		batch := make([]*CheckDescriptor, 0, len(names))
		for _, name := range names {
			batch = append(batch, s.byName[name])
			resolved[name] = struct{}{}
		}
		for _, d := range batch {
			for _, dependent := range s.Checks {
				if _, ok := include[dependent.Name]; !ok {
					continue
				}
				for _, dep := range dependent.DependsOn {
					if dep == d.Name {
						remaining[dependent.Name]--
					}
				}
			}
		}
		batches = append(batches, batch)
	}

	return batches, nil
}

// expandSelection resolves the requested check names to the full set that
// must run: the selection plus all transitive dependencies. An empty
// selection means every check in the suite.
func (s *Suite) expandSelection(selected []string) (map[string]struct{}, error) {
	include := make(map[string]struct{}, len(s.Checks))
	if len(selected) == 0 {
		for name := range s.byName {
			include[name] = struct{}{}
		}
		return include, nil
	}

	var visit func(name string)
	visit = func(name string) {
		if _, ok := include[name]; ok {
			return
		}
		include[name] = struct{}{}
		for _, dep := range s.byName[name].DependsOn {
			visit(dep)
		}
	}

	for _, name := range selected {
		if _, ok := s.byName[name]; !ok {
			return nil, fmt.Errorf("unknown check %q", name)
		}
		visit(name)
	}
	return include, nil
}

// MatchChecks expands glob patterns against check names, returning matched
// names in suite order. A pattern that matches nothing is an error so typos
// surface instead of silently running everything.
func (s *Suite) MatchChecks(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	var matched []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		found := false
		for _, d := range s.Checks {
			ok, err := path.Match(pattern, d.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid check pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
			found = true
			if _, dup := seen[d.Name]; !dup {
				seen[d.Name] = struct{}{}
				matched = append(matched, d.Name)
			}
		}
		if !found {
			return nil, fmt.Errorf("check pattern %q matched no checks", pattern)
		}
	}
	return matched, nil
}

// findCycle performs a deterministic DFS over names in sorted order and
// returns one cycle path as a stable witness, or nil when acyclic.
func (s *Suite) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	color := make(map[string]int, len(names))
	parent := make(map[string]string, len(names))
	var cycle []string

	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		deps := append([]string(nil), s.byName[u].DependsOn...)
		sort.Strings(deps)
		for _, v := range deps {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back-edge u -> v closes a cycle. Walk parents back to v.
				cycle = append(cycle, v)
				for cur := u; cur != "" && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, name := range names {
		if color[name] == white && dfs(name) {
			break
		}
	}

	if len(cycle) == 0 {
		return nil
	}
	// Reverse the parent walk into forward order.
	out := make([]string, len(cycle))
	for i := range cycle {
		out[i] = cycle[len(cycle)-1-i]
	}
	return out
}

func joinCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}

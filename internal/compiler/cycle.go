package compiler

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/docql/internal/model"
)

// CycleWarning reports owned navigations that nest an entity inside
// itself.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - Tree-shaped documents (a Category with owned Children)
//   - Optional self-references that stop at null
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Node", "Node"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeCycles finds owned-navigation cycles.
//
// The algorithm:
//  1. Build entity → navigation target graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// A DAG (no cycles) returns an empty warning list.
func AnalyzeCycles(defs []model.EntityDef) []CycleWarning {
	graph := make(dependencyGraph)
	for _, def := range defs {
		if graph[def.Name] == nil {
			graph[def.Name] = []string{}
		}
		for _, nav := range def.Navigations {
			graph[def.Name] = append(graph[def.Name], nav.Target)
		}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// inheritanceCycles returns each base chain that loops, as a path that
// starts and ends at the same entity.
func inheritanceCycles(defs []model.EntityDef) [][]string {
	graph := make(dependencyGraph)
	for _, def := range defs {
		graph[def.Name] = []string{}
		if def.Base != "" {
			graph[def.Name] = append(graph[def.Name], def.Base)
		}
	}

	var cycles [][]string
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			if len(scc) == 1 {
				cycles = append(cycles, []string{scc[0], scc[0]})
				continue
			}
			cycles = append(cycles, reconstructCyclePath(scc, graph))
		}
	}
	return cycles
}

// dependencyGraph maps entity name → entity names it references.
type dependencyGraph map[string][]string

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted order and each SCC is rotated to start at
// its smallest name, so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Reverse(scc)
			sccs = append(sccs, rotateToMin(scc))
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

func rotateToMin(scc []string) []string {
	at := 0
	for i, n := range scc {
		if n < scc[at] {
			at = i
		}
	}
	return append(scc[at:len(scc):len(scc)], scc[:at]...)
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-nesting owned entity: %s -> %s", name, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Owned navigation cycle: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}

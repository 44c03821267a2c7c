package coupling

import (
	"fmt"
	"slices"

	"github.com/roach88/aircore/internal/ir"
)

// Edge is a same-tick dependency: To reads Variables written by From.
type Edge struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Variables []string `json:"variables"`
}

// Graph is the static coupling graph of a configuration.
type Graph struct {
	names []string
	succ  [][]int // successor indices, ascending
	pred  [][]int
	edges []Edge
	order []int
}

// Build computes edges and the update order for systems.
//
// Returns a ConfigError with DUPLICATE_DECLARATION when two systems share a
// name, DUPLICATE_WRITER when two systems write the same variable, or
// CYCLIC_DEPENDENCY with the cycle path when same-tick reads
// form a loop.
func Build(systems []ir.SystemDecl) (*Graph, error) {
	n := len(systems)
	g := &Graph{
		names: make([]string, n),
		succ:  make([][]int, n),
		pred:  make([][]int, n),
	}

	seen := make(map[string]bool, n)
	for _, s := range systems {
		if seen[s.Name] {
			return nil, &ir.Error{
				Class:   ir.ClassConfig,
				Code:    ir.ErrCodeDuplicateDeclaration,
				Message: "system declared twice",
				System:  s.Name,
			}
		}
		seen[s.Name] = true
	}

	writer := make(map[string]int)
	for i, s := range systems {
		g.names[i] = s.Name
		for _, v := range s.Writes() {
			if w, dup := writer[v]; dup && w != i {
				return nil, &ir.Error{
					Class:    ir.ClassConfig,
					Code:     ir.ErrCodeDuplicateWriter,
					Message:  fmt.Sprintf("already written by %s", systems[w].Name),
					Variable: v,
					System:   s.Name,
				}
			}
			writer[v] = i
		}
	}

	// edgeAt[from][to] indexes g.edges so repeated variables collapse into
	// one edge.
	edgeAt := make(map[[2]int]int)
	for to, s := range systems {
		for _, v := range s.Reads() {
			from, ok := writer[v]
			if !ok || from == to {
				continue
			}
			key := [2]int{from, to}
			if idx, seen := edgeAt[key]; seen {
				if !slices.Contains(g.edges[idx].Variables, v) {
					g.edges[idx].Variables = append(g.edges[idx].Variables, v)
				}
				continue
			}
			edgeAt[key] = len(g.edges)
			g.edges = append(g.edges, Edge{From: g.names[from], To: s.Name, Variables: []string{v}})
			g.succ[from] = append(g.succ[from], to)
			g.pred[to] = append(g.pred[to], from)
		}
	}
	for i := range g.succ {
		slices.Sort(g.succ[i])
		slices.Sort(g.pred[i])
	}

	order, ok := g.kahn()
	if !ok {
		return nil, ir.NewCycleError(g.cyclePath())
	}
	g.order = order
	return g, nil
}

// kahn returns a topological order in which the ready set is always drained
// lowest declaration index first.
func (g *Graph) kahn() ([]int, bool) {
	n := len(g.names)
	indegree := make([]int, n)
	for i := range g.pred {
		indegree[i] = len(g.pred[i])
	}

	var ready []int
	for i := range n {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, s := range g.succ[next] {
			indegree[s]--
			if indegree[s] == 0 {
				pos, _ := slices.BinarySearch(ready, s)
				ready = slices.Insert(ready, pos, s)
			}
		}
	}
	return order, len(order) == n
}

// Order returns system names in update order.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	for i, idx := range g.order {
		out[i] = g.names[idx]
	}
	return out
}

// OrderIndex returns update order as indices into the declared systems.
func (g *Graph) OrderIndex() []int {
	return slices.Clone(g.order)
}

// Edges returns the coupling edges in reader declaration order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Levels groups systems by longest dependency depth. Systems in one level do
// not depend on each other. Used for display only; updates stay sequential.
func (g *Graph) Levels() [][]string {
	depth := make([]int, len(g.names))
	maxDepth := -1
	for _, idx := range g.order {
		for _, p := range g.pred[idx] {
			depth[idx] = max(depth[idx], depth[p]+1)
		}
		maxDepth = max(maxDepth, depth[idx])
	}

	levels := make([][]string, maxDepth+1)
	for i, name := range g.names {
		levels[depth[i]] = append(levels[depth[i]], name)
	}
	return levels
}

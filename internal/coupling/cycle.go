package coupling

// cyclePath reports one same-tick cycle as system names, first name repeated
// at the end: ["a", "b", "a"].
//
// Strongly connected components are found with Tarjan's algorithm, visiting
// nodes and successors in declaration order. The reported cycle lives in the
// component holding the lowest declaration index and is the shortest loop
// back to that node.
func (g *Graph) cyclePath() []string {
	var best []int
	for _, scc := range g.tarjanSCC() {
		if len(scc) < 2 {
			continue
		}
		if best == nil || minOf(scc) < minOf(best) {
			best = scc
		}
	}
	if best == nil {
		return nil
	}

	start := minOf(best)
	idx := g.shortestLoop(start, best)
	path := make([]string, len(idx))
	for i, n := range idx {
		path[i] = g.names[n]
	}
	return path
}

// tarjanSCC finds strongly connected components.
func (g *Graph) tarjanSCC() [][]int {
	n := len(g.names)
	var (
		index   = 0
		stack   []int
		indices = make([]int, n)
		lowlink = make([]int, n)
		onStack = make([]bool, n)
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.succ[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range n {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return sccs
}

// shortestLoop runs a breadth-first search inside scc from start back to
// start.
func (g *Graph) shortestLoop(start int, scc []int) []int {
	member := make(map[int]bool, len(scc))
	for _, v := range scc {
		member[v] = true
	}

	parent := map[int]int{start: -1}
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.succ[v] {
			if !member[w] {
				continue
			}
			if w == start {
				var rev []int
				for at := v; at != -1; at = parent[at] {
					rev = append(rev, at)
				}
				path := make([]int, 0, len(rev)+1)
				for i := len(rev) - 1; i >= 0; i-- {
					path = append(path, rev[i])
				}
				return append(path, start)
			}
			if _, seen := parent[w]; !seen {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []int{start, start}
}

func minOf(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		m = min(m, x)
	}
	return m
}

// Package topology implements the machine-wide and per-agent plugin
// topology DAG: a minimal graph with dense integer vertex handles and
// parallel adjacency slices, plus the generator, inverter, and merger
// operations that build and combine per-agent graphs into one machine
// graph.
package topology

// VertexID is a dense handle into a Graph's vertex slice.
type VertexID int

// LocalPair identifies a plugin as seen by one agent.
type LocalPair struct {
	Agent string
	Local string
}

// Vertex is one physical plugin. Generate sets Global to the vertex's local
// devpath; a merge or inversion pass may rewrite it. Pairs always has at least one entry once a
// vertex is added to a graph; a same_node merge may add more.
type Vertex struct {
	Global string
	Pairs  []LocalPair
}

// HasPair reports whether the vertex has a pair for the given agent.
func (v *Vertex) HasPair(agent string) bool {
	for _, p := range v.Pairs {
		if p.Agent == agent {
			return true
		}
	}
	return false
}

// Graph is a directed graph over dense vertex handles. Vertices may be
// removed (the merger folds same_node vertices into their base); removed
// handles are tombstoned rather than reused, so handles obtained before a
// removal remain valid identifiers (Alive reports false for them).
type Graph struct {
	vertices []*Vertex
	alive    []bool
	out      [][]VertexID
	in       [][]VertexID
	byPair   map[LocalPair]VertexID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{byPair: make(map[LocalPair]VertexID)}
}

// AddVertex creates a new vertex carrying the given local pairs and
// returns its handle.
func (g *Graph) AddVertex(pairs ...LocalPair) VertexID {
	id := VertexID(len(g.vertices))
	cp := append([]LocalPair(nil), pairs...)
	g.vertices = append(g.vertices, &Vertex{Pairs: cp})
	g.alive = append(g.alive, true)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	for _, p := range pairs {
		g.byPair[p] = id
	}
	return id
}

// AddEdge adds a directed edge from -> to.
func (g *Graph) AddEdge(from, to VertexID) {
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// RemoveEdge removes the directed edge from -> to, if present.
func (g *Graph) RemoveEdge(from, to VertexID) {
	g.out[from] = removeID(g.out[from], to)
	g.in[to] = removeID(g.in[to], from)
}

// RemoveVertex tombstones id, detaching it from all its neighbors and
// dropping its local pairs from the byPair index.
func (g *Graph) RemoveVertex(id VertexID) {
	if !g.alive[id] {
		return
	}
	g.alive[id] = false
	for _, p := range g.vertices[id].Pairs {
		if cur, ok := g.byPair[p]; ok && cur == id {
			delete(g.byPair, p)
		}
	}
	for _, child := range g.out[id] {
		g.in[child] = removeID(g.in[child], id)
	}
	for _, parent := range g.in[id] {
		g.out[parent] = removeID(g.out[parent], id)
	}
	g.out[id] = nil
	g.in[id] = nil
}

// Vertex returns the vertex data for id. The returned pointer is stable
// for the lifetime of the graph and may be mutated in place (used by the
// inverter and merger to relabel Global).
func (g *Graph) Vertex(id VertexID) *Vertex {
	return g.vertices[id]
}

// Alive reports whether id has not been removed.
func (g *Graph) Alive(id VertexID) bool {
	return g.alive[id]
}

// Out returns the out-neighbors of id.
func (g *Graph) Out(id VertexID) []VertexID {
	return g.out[id]
}

// In returns the in-neighbors of id.
func (g *Graph) In(id VertexID) []VertexID {
	return g.in[id]
}

// VertexByPair looks up the vertex carrying the given (agent, local
// devpath) pair.
func (g *Graph) VertexByPair(p LocalPair) (VertexID, bool) {
	id, ok := g.byPair[p]
	return id, ok
}

// VertexByGlobal scans for the (unique, by invariant) vertex whose Global
// devpath matches. O(|V|); acceptable since graphs are small.
func (g *Graph) VertexByGlobal(global string) (VertexID, bool) {
	for i, v := range g.vertices {
		if g.alive[i] && v.Global == global {
			return VertexID(i), true
		}
	}
	return 0, false
}

// Vertices returns the handles of all live vertices, in handle order.
func (g *Graph) Vertices() []VertexID {
	ids := make([]VertexID, 0, len(g.vertices))
	for i := range g.vertices {
		if g.alive[i] {
			ids = append(ids, VertexID(i))
		}
	}
	return ids
}

// Len returns the number of live vertices.
func (g *Graph) Len() int {
	n := 0
	for _, a := range g.alive {
		if a {
			n++
		}
	}
	return n
}

func removeID(s []VertexID, id VertexID) []VertexID {
	for i, v := range s {
		if v == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// BFS returns the vertex handles reachable from root via out-edges, in
// breadth-first order (root first).
func BFS(g *Graph, root VertexID) []VertexID {
	visited := map[VertexID]bool{root: true}
	order := []VertexID{root}
	queue := []VertexID{root}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range g.Out(u) {
			if visited[v] || !g.Alive(v) {
				continue
			}
			visited[v] = true
			order = append(order, v)
			queue = append(queue, v)
		}
	}

	return order
}

// HasCycle reports whether g contains a directed cycle reachable through
// any live vertex, via recursive depth-first search with a three-color
// visit state.
func HasCycle(g *Graph) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[VertexID]int)

	var visit func(u VertexID) bool
	visit = func(u VertexID) bool {
		color[u] = gray
		for _, v := range g.Out(u) {
			if !g.Alive(v) {
				continue
			}
			switch color[v] {
			case gray:
				return true
			case white:
				if visit(v) {
					return true
				}
			}
		}
		color[u] = black
		return false
	}

	for _, id := range g.Vertices() {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

package topology

import (
	"fmt"
	"strings"

	"github.com/google/ecclesia-mmaster/internal/devpath"
	"github.com/google/ecclesia-mmaster/pkg/apperror"
)

// Invert rewrites g in place so the vertex at newRootLocal becomes the
// root, reversing the edges on the old-root -> new-root path and
// relabeling the spine using upstreamConnectors.
//
// upstreamConnectors must have exactly depth(newRootLocal) entries: one
// per edge on the path from the old root to the new root.
func Invert(g *Graph, newRootLocal string, upstreamConnectors []string) error {
	segs := devpath.Segments(newRootLocal)
	depth := len(segs)

	if len(upstreamConnectors) != depth {
		return apperror.New(apperror.CodeSpecMismatch,
			fmt.Sprintf("invert %q: got %d upstream connectors, want %d", newRootLocal, len(upstreamConnectors), depth))
	}

	oldRoot, ok := g.VertexByGlobal("/phys")
	if !ok {
		return apperror.New(apperror.CodeNotFound, "invert: graph has no root vertex")
	}

	chain := make([]VertexID, depth+1)
	chain[0] = oldRoot
	prefix := "/phys"
	for i, seg := range segs {
		prefix = prefix + "/" + seg
		id, ok := g.VertexByGlobal(prefix)
		if !ok {
			return apperror.NewWithField(apperror.CodeNotFound,
				"invert: missing vertex along inversion path", "devpath").WithDetails("devpath", prefix)
		}
		chain[i+1] = id
	}

	for i := 0; i < depth; i++ {
		g.RemoveEdge(chain[i], chain[i+1])
		g.AddEdge(chain[i+1], chain[i])
	}

	newRoot := chain[depth]
	g.Vertex(newRoot).Global = "/phys"
	for i := 0; i < depth; i++ {
		g.Vertex(chain[i]).Global = "/" + upstreamConnectors[i]
	}

	onSpine := make(map[VertexID]bool, len(chain))
	for _, id := range chain {
		onSpine[id] = true
	}
	for _, id := range g.Vertices() {
		if onSpine[id] {
			continue
		}
		v := g.Vertex(id)
		v.Global = "/" + lastSegment(v.Global)
	}

	visited := map[VertexID]bool{newRoot: true}
	queue := []VertexID{newRoot}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		parentGlobal := g.Vertex(u).Global
		for _, c := range g.Out(u) {
			if visited[c] || !g.Alive(c) {
				continue
			}
			visited[c] = true
			g.Vertex(c).Global = parentGlobal + g.Vertex(c).Global
			queue = append(queue, c)
		}
	}

	return nil
}

func lastSegment(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

package topology

import (
	"fmt"
	"sort"

	"github.com/google/ecclesia-mmaster/internal/devpath"
	"github.com/google/ecclesia-mmaster/pkg/apperror"
)

// Generate builds one agent's plugin DAG from a set of local plugin
// devpaths. Invalid devpaths (including any carrying a connector/device
// suffix) fail the whole build.
func Generate(agent string, localDevpaths []string) (*Graph, error) {
	paths := append([]string(nil), localDevpaths...)
	for _, p := range paths {
		_, ns, _, err := devpath.Components(p)
		if err != nil {
			return nil, apperror.NewWithField(apperror.CodeInvalidDevpath,
				fmt.Sprintf("agent %s: malformed local devpath", agent), "devpath").WithDetails("devpath", p)
		}
		if ns != devpath.NamespaceNone {
			return nil, apperror.NewWithField(apperror.CodeInvalidDevpath,
				fmt.Sprintf("agent %s: generator accepts only plugin devpaths, not ns:text suffixes", agent), "devpath").WithDetails("devpath", p)
		}
	}

	sort.Strings(paths)

	g := New()
	seen := make(map[string]VertexID)

	ensureVertex := func(path string) VertexID {
		if id, ok := seen[path]; ok {
			return id
		}
		id := g.AddVertex(LocalPair{Agent: agent, Local: path})
		g.Vertex(id).Global = path
		seen[path] = id
		return id
	}

	for _, p := range paths {
		segs := devpath.Segments(p)
		parent := ensureVertex("/phys")
		prefix := "/phys"
		for _, seg := range segs {
			prefix = prefix + "/" + seg
			if _, ok := seen[prefix]; !ok {
				id := ensureVertex(prefix)
				g.AddEdge(parent, id)
				parent = id
				continue
			}
			parent = seen[prefix]
		}
	}

	if HasCycle(g) {
		return nil, apperror.New(apperror.CodeInternal,
			fmt.Sprintf("agent %s: generated graph contains a cycle", agent))
	}

	return g, nil
}

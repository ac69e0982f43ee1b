package topology

import (
	"fmt"

	"github.com/google/ecclesia-mmaster/pkg/apperror"
	"github.com/google/ecclesia-mmaster/pkg/config"
)

// Merge structurally combines a set of per-agent graphs into a single
// machine graph, mutating and returning the root agent's graph in place
//
func Merge(agentGraphs map[string]*Graph, spec config.MergeSpec) (*Graph, error) {
	base, ok := agentGraphs[spec.Root]
	if !ok {
		return nil, apperror.New(apperror.CodeSpecMismatch,
			fmt.Sprintf("merge: root agent %q has no graph", spec.Root))
	}

	merged := map[string]bool{spec.Root: true}
	remaining := append([]config.MergeOp(nil), spec.MergeOps...)

	for len(remaining) > 0 {
		progressed := false
		var next []config.MergeOp

		for _, op := range remaining {
			if !merged[op.BaseAgent] {
				next = append(next, op)
				continue
			}

			appendant, ok := agentGraphs[op.AppendantAgent]
			if !ok {
				return nil, apperror.New(apperror.CodeSpecMismatch,
					fmt.Sprintf("merge: appendant agent %q has no graph", op.AppendantAgent))
			}

			if err := applyMergeOp(base, appendant, op); err != nil {
				return nil, err
			}

			merged[op.AppendantAgent] = true
			progressed = true
		}

		if !progressed {
			return nil, apperror.ErrSpecUnsatisfiable
		}
		remaining = next
	}

	if HasCycle(base) {
		return nil, apperror.New(apperror.CodeInternal, "merge: resulting graph contains a cycle")
	}

	return base, nil
}

func applyMergeOp(base, appendant *Graph, op config.MergeOp) error {
	plugged := op.PluggedInNode != nil

	var baseDevpath, appendantDevpath, connector string
	switch {
	case plugged:
		baseDevpath = op.PluggedInNode.BaseDevpath
		appendantDevpath = op.PluggedInNode.AppendantDevpath
		connector = op.PluggedInNode.Connector
	case op.SameNode != nil:
		baseDevpath = op.SameNode.BaseDevpath
		appendantDevpath = op.SameNode.AppendantDevpath
	default:
		return apperror.New(apperror.CodeSpecMismatch,
			fmt.Sprintf("merge op %s->%s sets neither plugged_in_node nor same_node", op.BaseAgent, op.AppendantAgent))
	}

	v, ok := base.VertexByPair(LocalPair{Agent: op.BaseAgent, Local: baseDevpath})
	if !ok {
		return apperror.New(apperror.CodeNotFound,
			fmt.Sprintf("merge: base vertex (%s, %s) not found", op.BaseAgent, baseDevpath))
	}
	u, ok := appendant.VertexByPair(LocalPair{Agent: op.AppendantAgent, Local: appendantDevpath})
	if !ok {
		return apperror.New(apperror.CodeNotFound,
			fmt.Sprintf("merge: appendant vertex (%s, %s) not found", op.AppendantAgent, appendantDevpath))
	}

	// Topological order of the subtree rooted at u, so suffix_of is always
	// known before it's read.
	order := BFS(appendant, u)
	suffix := map[VertexID]string{u: ""}
	for _, w := range order {
		if w == u {
			continue
		}
		for _, p := range appendant.In(w) {
			if s, ok := suffix[p]; ok {
				suffix[w] = s + "/" + lastSegment(appendant.Vertex(w).Global)
				break
			}
		}
	}

	vertexBase := base.Vertex(v).Global

	imageOf := make(map[VertexID]VertexID, len(order))
	for _, w := range order {
		s := suffix[w]
		var global string
		if plugged {
			global = vertexBase + "/" + connector + s
		} else {
			global = vertexBase + s
		}
		id := base.AddVertex(appendant.Vertex(w).Pairs...)
		base.Vertex(id).Global = global
		imageOf[w] = id
	}

	for _, w := range order {
		for _, c := range appendant.Out(w) {
			cImg, ok := imageOf[c]
			if !ok {
				continue
			}
			base.AddEdge(imageOf[w], cImg)
		}
	}

	mu := imageOf[u]
	if plugged {
		base.AddEdge(v, mu)
		return nil
	}

	// same_node: fold mu into v.
	for _, x := range base.Out(mu) {
		base.AddEdge(v, x)
	}
	pairs := base.Vertex(mu).Pairs
	base.Vertex(v).Pairs = append(base.Vertex(v).Pairs, pairs...)
	for _, p := range pairs {
		base.byPair[p] = v
	}
	base.RemoveVertex(mu)

	return nil
}

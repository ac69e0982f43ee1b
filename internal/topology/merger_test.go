package topology

import (
	"testing"

	"github.com/google/ecclesia-mmaster/pkg/config"
)

func mustGenerate(t *testing.T, agent string, paths []string) *Graph {
	t.Helper()
	g, err := Generate(agent, paths)
	if err != nil {
		t.Fatalf("Generate(%s): %v", agent, err)
	}
	return g
}

func TestMerge_LinearScenario(t *testing.T) {
	graphs := map[string]*Graph{
		"a1": mustGenerate(t, "a1", []string{"/phys", "/phys/A", "/phys/A/B"}),
		"a2": mustGenerate(t, "a2", []string{"/phys", "/phys/C", "/phys/C/D"}),
		"a3": mustGenerate(t, "a3", []string{"/phys", "/phys/E", "/phys/E/F"}),
		"a4": mustGenerate(t, "a4", []string{"/phys", "/phys/G", "/phys/G/H"}),
	}

	spec := config.MergeSpec{
		Root: "a1",
		MergeOps: []config.MergeOp{
			{
				BaseAgent: "a1", AppendantAgent: "a2",
				PluggedInNode: &config.PluggedInNode{BaseDevpath: "/phys/A/B", AppendantDevpath: "/phys", Connector: "PADS1"},
			},
			{
				BaseAgent: "a1", AppendantAgent: "a3",
				SameNode: &config.SameNode{BaseDevpath: "/phys/A/B", AppendantDevpath: "/phys"},
			},
			{
				BaseAgent: "a2", AppendantAgent: "a4",
				PluggedInNode: &config.PluggedInNode{BaseDevpath: "/phys/C", AppendantDevpath: "/phys", Connector: "PADS2"},
			},
		},
	}

	merged, err := Merge(graphs, spec)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	id, ok := merged.VertexByPair(LocalPair{Agent: "a4", Local: "/phys/G/H"})
	if !ok {
		t.Fatalf("missing vertex for (a4, /phys/G/H)")
	}
	if got, want := merged.Vertex(id).Global, "/phys/A/B/PADS1/C/PADS2/G/H"; got != want {
		t.Errorf("a4 /phys/G/H global = %q, want %q", got, want)
	}

	ab, ok := merged.VertexByGlobal("/phys/A/B")
	if !ok {
		t.Fatalf("missing vertex for global /phys/A/B")
	}
	agents := map[string]bool{}
	for _, p := range merged.Vertex(ab).Pairs {
		agents[p.Agent] = true
	}
	if len(agents) != 2 || !agents["a1"] || !agents["a3"] {
		t.Errorf("expected /phys/A/B to carry agents {a1,a3}, got %v", agents)
	}

	if HasCycle(merged) {
		t.Errorf("merged graph must remain acyclic")
	}
}

func TestMerge_Unsatisfiable(t *testing.T) {
	graphs := map[string]*Graph{
		"a1": mustGenerate(t, "a1", []string{"/phys"}),
		"a2": mustGenerate(t, "a2", []string{"/phys"}),
	}

	spec := config.MergeSpec{
		Root: "a1",
		MergeOps: []config.MergeOp{
			{
				BaseAgent: "ghost", AppendantAgent: "a2",
				SameNode: &config.SameNode{BaseDevpath: "/phys", AppendantDevpath: "/phys"},
			},
		},
	}

	if _, err := Merge(graphs, spec); err == nil {
		t.Errorf("expected SpecUnsatisfiable error")
	}
}

func TestMerge_MissingVertex(t *testing.T) {
	graphs := map[string]*Graph{
		"a1": mustGenerate(t, "a1", []string{"/phys"}),
		"a2": mustGenerate(t, "a2", []string{"/phys"}),
	}

	spec := config.MergeSpec{
		Root: "a1",
		MergeOps: []config.MergeOp{
			{
				BaseAgent: "a1", AppendantAgent: "a2",
				SameNode: &config.SameNode{BaseDevpath: "/phys/DOES_NOT_EXIST", AppendantDevpath: "/phys"},
			},
		},
	}

	if _, err := Merge(graphs, spec); err == nil {
		t.Errorf("expected NotFound error for missing base devpath")
	}
}

package redfish

import (
	"context"
	"testing"
)

type fakeSource struct {
	byPath map[string][]AssemblyPayload
	byURI  map[string]map[string]any
}

func (s *fakeSource) FetchAssemblyCollection(ctx context.Context, pathTemplate string) ([]AssemblyPayload, error) {
	return s.byPath[pathTemplate], nil
}

func (s *fakeSource) FetchObject(ctx context.Context, uri string) (map[string]any, error) {
	return s.byURI[uri], nil
}

func TestBuild_AssignsDevpathsInTopologicalOrder(t *testing.T) {
	src := &fakeSource{byPath: map[string][]AssemblyPayload{
		AssemblyCollectionPaths[0]: {
			{
				ODataID: "/redfish/v1/Chassis/1/Assembly#/0",
				Name:    "motherboard",
				Components: []AssemblyComponent{
					{Name: "motherboard"},
					{Name: "PCIE0", PhysicalContext: "Connector"},
					{Name: "TPM"},
				},
			},
			{
				ODataID:    "/redfish/v1/Chassis/1/Assembly#/1",
				Name:       "riser",
				AttachedTo: "/redfish/v1/Chassis/1/Assembly#/0",
				Components: []AssemblyComponent{
					{Name: "riser"},
				},
			},
		},
	}}

	topo, err := Build(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	board, ok := topo.ComponentByDevpath("/phys")
	if !ok || board.Class != ClassBoard {
		t.Fatalf("expected root board at /phys, got %+v ok=%v", board, ok)
	}
	if _, ok := topo.ComponentByDevpath("/phys:connector:PCIE0"); !ok {
		t.Errorf("expected connector PCIE0 under root board")
	}
	if _, ok := topo.ComponentByDevpath("/phys:device:TPM"); !ok {
		t.Errorf("expected device TPM under root board")
	}
	riser, ok := topo.ComponentByDevpath("/phys/riser")
	if !ok || riser.Class != ClassBoard {
		t.Fatalf("expected riser board at /phys/riser, got %+v ok=%v", riser, ok)
	}
}

func TestBuild_DropsOrphanedAssembly(t *testing.T) {
	src := &fakeSource{byPath: map[string][]AssemblyPayload{
		AssemblyCollectionPaths[0]: {
			{
				ODataID: "/a/0",
				Name:    "root",
				Components: []AssemblyComponent{
					{Name: "root"},
				},
			},
			{
				ODataID:    "/a/1",
				Name:       "ghost",
				AttachedTo: "/a/does-not-exist",
				Components: []AssemblyComponent{
					{Name: "ghost"},
				},
			},
		},
	}}

	topo, err := Build(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := topo.ComponentByDevpath("/phys/ghost"); ok {
		t.Errorf("expected orphaned assembly to be dropped, found /phys/ghost")
	}
	if len(topo.Assemblies) != 1 {
		t.Errorf("expected exactly 1 assembly kept, got %d", len(topo.Assemblies))
	}
}

func TestReclassifyCable(t *testing.T) {
	src := &fakeSource{byPath: map[string][]AssemblyPayload{
		AssemblyCollectionPaths[0]: {
			{
				ODataID: "/a/0",
				Name:    "root",
				Components: []AssemblyComponent{
					{Name: "root"},
				},
			},
			{
				ODataID:    "/a/1",
				Name:       "link",
				AttachedTo: "/a/0",
				Components: []AssemblyComponent{
					{Name: "link"},
					{Name: "DOWNLINK"},
				},
			},
			{
				ODataID:    "/a/2",
				Name:       "notacable",
				AttachedTo: "/a/0",
				Components: []AssemblyComponent{
					{Name: "notacable"},
					{Name: "OTHER"},
					{Name: "THIRD"},
				},
			},
		},
	}}

	topo, err := Build(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	link, ok := topo.ComponentByDevpath("/phys/link")
	if !ok || link.Class != ClassCable {
		t.Errorf("expected 'link' board reclassified as cable, got %+v ok=%v", link, ok)
	}
	notACable, ok := topo.ComponentByDevpath("/phys/notacable")
	if !ok || notACable.Class != ClassBoard {
		t.Errorf("expected 'notacable' to remain a board (3 components, no reclassification), got %+v ok=%v", notACable, ok)
	}
}

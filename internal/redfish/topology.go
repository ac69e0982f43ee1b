package redfish

import (
	"context"

	"github.com/google/ecclesia-mmaster/internal/devpath"
	"github.com/google/ecclesia-mmaster/pkg/logger"
	"github.com/google/ecclesia-mmaster/pkg/telemetry"
)

// Classification is a component's role within an assembly.
type Classification int

const (
	ClassBoard Classification = iota
	ClassConnector
	ClassDevice
	ClassCable
)

func (c Classification) String() string {
	switch c {
	case ClassBoard:
		return "board"
	case ClassConnector:
		return "connector"
	case ClassDevice:
		return "device"
	case ClassCable:
		return "cable"
	default:
		return "unknown"
	}
}

// Component is one classified entry within an Assembly, with its
// locally-assigned devpath and property cache.
type Component struct {
	Name               string
	ODataID            string
	Class              Classification
	Devpath            string
	UpstreamConnectors []string
	AssociatedURIs     []string
	Properties         *PropertyContainer
}

// Assembly is an FRU: a name, an optional upstream reference, and its
// classified components.
type Assembly struct {
	ODataID    string
	Name       string
	AttachedTo string
	Devpath    string
	Components []*Component

	assigned bool
}

// Topology is the crawled, devpath-assigned set of assemblies for one
// agent.
type Topology struct {
	Assemblies []*Assembly
	byDevpath  map[string]*Component
}

// ComponentByDevpath looks up the component at a locally-assigned devpath
// (board, connector, or device form).
func (t *Topology) ComponentByDevpath(path string) (*Component, bool) {
	c, ok := t.byDevpath[path]
	return c, ok
}

// Build crawls the fixed collection path set via source, classifies every
// component, reclassifies boards-that-are-cables, and assigns local
// devpaths in topological order.
func Build(ctx context.Context, source Source, refresher *SourceRefresher) (*Topology, error) {
	ctx, span := telemetry.StartSpan(ctx, "redfish.Build")
	defer span.End()

	var assemblies []*Assembly
	byID := make(map[string]*Assembly)

	// A *SourceRefresher stored as a nil interface.Refresher would be a
	// non-nil interface wrapping a nil pointer; pass an explicit nil
	// interface instead so PropertyContainer.Get's refresher == nil check
	// works when the caller has no refresher configured.
	var ref Refresher
	if refresher != nil {
		ref = refresher
	}

	for _, path := range AssemblyCollectionPaths {
		fetchCtx, fetchSpan := telemetry.StartSpan(ctx, "redfish.FetchAssemblyCollection")
		fetchSpan.SetAttributes(telemetry.RedfishFetchAttributes(path)...)
		payloads, err := source.FetchAssemblyCollection(fetchCtx, path)
		if err != nil {
			telemetry.SetError(fetchCtx, err)
			fetchSpan.End()
			return nil, err
		}
		fetchSpan.End()
		for _, p := range payloads {
			a := &Assembly{ODataID: p.ODataID, Name: p.Name, AttachedTo: p.AttachedTo}
			for _, cp := range p.Components {
				a.Components = append(a.Components, &Component{
					Name:           cp.Name,
					ODataID:        cp.ODataID,
					Class:          classify(cp, p.Name),
					AssociatedURIs: cp.AssociatedWith,
					Properties:     NewPropertyContainer(ref),
				})
			}
			reclassifyCable(a)
			assemblies = append(assemblies, a)
			if a.ODataID != "" {
				byID[a.ODataID] = a
			}
		}
	}

	assignDevpaths(assemblies, byID)

	t := &Topology{byDevpath: make(map[string]*Component)}
	for _, a := range assemblies {
		if !a.assigned {
			logger.Get().Warn("redfish: dropping orphaned assembly",
				"assembly", a.Name, "attached_to", a.AttachedTo)
			continue
		}
		t.Assemblies = append(t.Assemblies, a)
		for _, c := range a.Components {
			if c.Devpath != "" {
				t.byDevpath[c.Devpath] = c
			}
		}
		if refresher != nil {
			refresher.index(a)
		}
	}

	return t, nil
}

// classify implements the per-component classification rule.
func classify(c AssemblyComponent, assemblyName string) Classification {
	if c.PhysicalContext == "Connector" {
		return ClassConnector
	}
	if c.Name == assemblyName {
		return ClassBoard
	}
	return ClassDevice
}

// reclassifyCable implements the cable-detection predicate: a board
// component is reclassified as a cable iff its assembly has exactly two
// components and one of them is named exactly "DOWNLINK".
func reclassifyCable(a *Assembly) {
	if len(a.Components) != 2 {
		return
	}
	hasDownlink := false
	for _, c := range a.Components {
		if c.Name == "DOWNLINK" {
			hasDownlink = true
		}
	}
	if !hasDownlink {
		return
	}
	for _, c := range a.Components {
		if c.Class == ClassBoard {
			c.Class = ClassCable
		}
	}
}

// assignDevpaths assigns local devpaths in topological order: the root
// assembly (no AttachedTo) gets "/phys"; every other assembly takes its
// upstream assembly's board devpath plus "/" plus its own name. Assemblies
// whose upstream hasn't been resolved yet are deferred; if a pass makes no
// progress, assignment stops and the remaining assemblies stay
// unassigned (dropped by the caller).
func assignDevpaths(assemblies []*Assembly, byID map[string]*Assembly) {
	pending := append([]*Assembly(nil), assemblies...)

	for len(pending) > 0 {
		var next []*Assembly
		progressed := false

		for _, a := range pending {
			switch {
			case a.AttachedTo == "":
				a.Devpath = "/phys"
			default:
				upstream, ok := byID[a.AttachedTo]
				if !ok || !upstream.assigned {
					next = append(next, a)
					continue
				}
				a.Devpath = upstream.Devpath + "/" + a.Name
			}
			assignComponentDevpaths(a)
			a.assigned = true
			progressed = true
		}

		if !progressed {
			break
		}
		pending = next
	}
}

func assignComponentDevpaths(a *Assembly) {
	segs := devpath.Segments(a.Devpath)
	for _, c := range a.Components {
		switch c.Class {
		case ClassBoard, ClassCable:
			c.Devpath = a.Devpath
			c.UpstreamConnectors = segs
		case ClassConnector:
			c.Devpath = devpath.Join(a.Devpath, devpath.NamespaceConnector, c.Name)
			c.UpstreamConnectors = segs
		case ClassDevice:
			c.Devpath = devpath.Join(a.Devpath, devpath.NamespaceDevice, c.Name)
			c.UpstreamConnectors = segs
		}
	}
}

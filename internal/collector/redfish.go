package collector

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/google/ecclesia-mmaster/internal/redfish"
	"github.com/google/ecclesia-mmaster/internal/resource"
)

// RedfishCollector serves every devpath-keyed resource.Kind off one
// agent's crawled Topology. Which Redfish object backs which leaf
// property is explicitly out of scope ("the specific set of
// leaf resource property definitions"); every component the topology
// discovered is addressable as a resource of any devpath-keyed kind, and
// Query resolves requested field-mask paths against that component's
// property cache.
type RedfishCollector struct {
	topology *redfish.Topology
	now      func() time.Time
}

// NewRedfishCollector builds a collector over topo. now defaults to
// time.Now when nil.
func NewRedfishCollector(topo *redfish.Topology, now func() time.Time) *RedfishCollector {
	if now == nil {
		now = time.Now
	}
	return &RedfishCollector{topology: topo, now: now}
}

// Enumerate streams the devpath of every component in the topology. Kind
// is accepted for interface conformance; per the scope note above it
// does not further filter membership.
func (c *RedfishCollector) Enumerate(ctx context.Context, kind resource.Kind, onWrite func(resource.Identifier) error) error {
	if !kind.DevpathKeyed() {
		return nil
	}
	for _, a := range c.topology.Assemblies {
		for _, comp := range a.Components {
			if comp.Devpath == "" {
				continue
			}
			if err := onWrite(resource.Identifier{Devpath: comp.Devpath}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Query resolves id.Devpath to a component and reads every field-mask
// path as a property: resolves queries by devpath lookup followed by
// property extraction with field-mask filtering.
func (c *RedfishCollector) Query(ctx context.Context, kind resource.Kind, id resource.Identifier, mask *fieldmaskpb.FieldMask) (resource.Response, error) {
	if !kind.DevpathKeyed() {
		return resource.NotFound(id), nil
	}
	comp, ok := c.topology.ComponentByDevpath(id.Devpath)
	if !ok {
		return resource.NotFound(id), nil
	}

	now := c.now()
	fields := make(map[string]any)
	for _, name := range maskPaths(mask) {
		v, ok := comp.Properties.Get(ctx, name, now)
		if !ok {
			continue
		}
		fields[name] = v.Any()
	}
	return resource.OK(id, fields), nil
}

func maskPaths(mask *fieldmaskpb.FieldMask) []string {
	if mask == nil {
		return nil
	}
	return mask.GetPaths()
}

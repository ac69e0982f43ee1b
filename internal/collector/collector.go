// Package collector implements the per-agent resource collector:
// Enumerate streams every known resource id of a kind, Query resolves one
// id to its typed fields with field-mask filtering.
package collector

import (
	"context"

	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/google/ecclesia-mmaster/internal/resource"
)

// Collector is the per-agent, per-kind resource collector interface. A
// single implementation typically serves every devpath-keyed kind by
// dispatching on resource.Kind internally (the Redfish implementation
// does), favoring a function-table style over one
// interface per resource type.
type Collector interface {
	// Enumerate invokes onWrite once per known resource instance of kind.
	Enumerate(ctx context.Context, kind resource.Kind, onWrite func(resource.Identifier) error) error

	// Query returns the resource's typed fields filtered by mask, or a
	// NOT_FOUND response if id is unknown to this agent.
	Query(ctx context.Context, kind resource.Kind, id resource.Identifier, mask *fieldmaskpb.FieldMask) (resource.Response, error)
}

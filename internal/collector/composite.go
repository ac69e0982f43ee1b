package collector

import (
	"context"

	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/google/ecclesia-mmaster/internal/resource"
)

// Composite dispatches each call to the sub-collector backing the
// resource kind's keying scheme: Redfish for devpath-keyed kinds, a
// plain OsDomainCollector otherwise. This is the Collector an agent
// actually registers with the aggregator.
type Composite struct {
	devpathKeyed Collector
	osDomain     Collector
}

// NewComposite builds a Collector that routes by resource.Kind.
func NewComposite(devpathKeyed, osDomain Collector) *Composite {
	return &Composite{devpathKeyed: devpathKeyed, osDomain: osDomain}
}

func (c *Composite) Enumerate(ctx context.Context, kind resource.Kind, onWrite func(resource.Identifier) error) error {
	if kind.DevpathKeyed() {
		return c.devpathKeyed.Enumerate(ctx, kind, onWrite)
	}
	return c.osDomain.Enumerate(ctx, kind, onWrite)
}

func (c *Composite) Query(ctx context.Context, kind resource.Kind, id resource.Identifier, mask *fieldmaskpb.FieldMask) (resource.Response, error) {
	if kind.DevpathKeyed() {
		return c.devpathKeyed.Query(ctx, kind, id, mask)
	}
	return c.osDomain.Query(ctx, kind, id, mask)
}

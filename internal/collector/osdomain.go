package collector

import (
	"context"

	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/google/ecclesia-mmaster/internal/resource"
)

// OsDomainCollector serves the single OsDomain resource an agent
// represents: its configured os_domain name. OsDomain carries no
// devpath, so it needs no topology.
type OsDomainCollector struct {
	osDomain string
}

// NewOsDomainCollector builds a collector that reports the one domain
// name configured for this agent.
func NewOsDomainCollector(osDomain string) *OsDomainCollector {
	return &OsDomainCollector{osDomain: osDomain}
}

func (c *OsDomainCollector) Enumerate(ctx context.Context, kind resource.Kind, onWrite func(resource.Identifier) error) error {
	if kind != resource.KindOsDomain || c.osDomain == "" {
		return nil
	}
	return onWrite(resource.Identifier{Name: c.osDomain})
}

func (c *OsDomainCollector) Query(ctx context.Context, kind resource.Kind, id resource.Identifier, mask *fieldmaskpb.FieldMask) (resource.Response, error) {
	if kind != resource.KindOsDomain || id.Name != c.osDomain || c.osDomain == "" {
		return resource.NotFound(id), nil
	}
	return resource.OK(id, map[string]any{"name": c.osDomain}), nil
}

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys used by the spans below.
const (
	AttrAgentName      = "mmaster.agent.name"
	AttrResourceKind   = "mmaster.resource.kind"
	AttrDevpath        = "mmaster.devpath"
	AttrCandidateCount = "mmaster.candidate_count"
	AttrMapperVertices = "mmaster.mapper.vertices"
	AttrMapperChanged  = "mmaster.mapper.changed"
	AttrSourceURI      = "mmaster.redfish.source_uri"
	AttrAssemblyCount  = "mmaster.redfish.assembly_count"
)

// EnumerateAttributes describes one agent's fan-out leg of Enumerate.
func EnumerateAttributes(agent string, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAgentName, agent),
		attribute.String(AttrResourceKind, kind),
	}
}

// QueryAttributes describes a Query call's candidate-agent fan-out.
func QueryAttributes(kind string, devpath string, candidates int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrResourceKind, kind),
		attribute.String(AttrDevpath, devpath),
		attribute.Int(AttrCandidateCount, candidates),
	}
}

// MapperRebuildAttributes describes one Mapper.Rebuild call.
func MapperRebuildAttributes(vertices int, changed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrMapperVertices, vertices),
		attribute.Bool(AttrMapperChanged, changed),
	}
}

// RedfishFetchAttributes describes one Source fetch.
func RedfishFetchAttributes(uri string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSourceURI, uri),
	}
}

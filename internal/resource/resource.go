// Package resource defines the heterogeneous resource-identifier shapes
// the aggregator and collectors share, modeled
// as a small sum type plus a function table rather than per-resource
// generated message types (no protobuf codegen is available in this
// repository).
package resource

import (
	"google.golang.org/genproto/googleapis/rpc/code"
)

// Kind names one of the resource types the service exposes.
type Kind string

const (
	KindAssembly    Kind = "Assembly"
	KindFirmware    Kind = "Firmware"
	KindStorage     Kind = "Storage"
	KindSensor      Kind = "Sensor"
	KindOsDomain    Kind = "OsDomain"
	KindPowerDomain Kind = "PowerDomain"
)

// Kinds is the full registry of resource types this service serves,
// equivalent to the original's kServiceResourceTypes
// No kind's name is a prefix of another's.
var Kinds = []Kind{KindAssembly, KindFirmware, KindStorage, KindSensor, KindOsDomain, KindPowerDomain}

// DevpathKeyed reports whether a resource of this kind is looked up by
// machine devpath (all kinds except OsDomain).
func (k Kind) DevpathKeyed() bool {
	return k != KindOsDomain
}

// MutationVerbs lists the mutation RPCs declared for each resource kind,
// equivalent to the original's kResourceVerbs. Only
// PowerDomain carries one, Reset.
var MutationVerbs = map[Kind][]string{
	KindPowerDomain: {"Reset"},
}

// Identifier is a resource-specific identifier: Devpath for the
// devpath-keyed kinds, Name (the os_domain string) for OsDomain.
type Identifier struct {
	Devpath string
	Name    string
}

// Response is the result of one Query call: a status plus, on OK, a
// field bag standing in for the resource's typed fields (no generated
// message types exist to carry them).
type Response struct {
	ID     Identifier
	Status code.Code
	Fields map[string]any
}

// NotFound builds a NOT_FOUND response carrying the given id, used both
// by collectors on a local miss and by the aggregator when every
// candidate agent misses.
func NotFound(id Identifier) Response {
	return Response{ID: id, Status: code.Code_NOT_FOUND}
}

// OK builds a successful response.
func OK(id Identifier, fields map[string]any) Response {
	return Response{ID: id, Status: code.Code_OK, Fields: fields}
}

// Equal reports whether two identifiers refer to the same resource,
// field by field — the matching rule the mock frontend uses.
func (id Identifier) Equal(other Identifier) bool {
	return id.Devpath == other.Devpath && id.Name == other.Name
}

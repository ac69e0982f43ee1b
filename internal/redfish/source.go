// Package redfish implements the Redfish-backed resource collector's two
// inner components: topology construction from Assembly resources, and the
// per-property cache with source-URI-based invalidation.
package redfish

import "context"

// AssemblyComponent is the wire shape of one entry in an Assembly's
// Oem.Google.Components list.
type AssemblyComponent struct {
	Name            string
	ODataID         string
	PhysicalContext string
	AssociatedWith  []string
}

// AssemblyPayload is the wire shape of one Redfish Assembly resource,
// trimmed to the fields the topology builder reads.
type AssemblyPayload struct {
	ODataID    string
	Name       string
	AttachedTo string // Oem.Google.AttachedTo[0].odata.id; empty for the root assembly.
	Components []AssemblyComponent
}

// Source is the external collaborator that owns HTTP transport, chassis/
// system enumeration, and JSON decoding — deliberately out of scope here
// ("concrete Redfish/HTTP client transport" is an explicit non-goal). The
// topology builder and property cache only ever see the
// decoded shapes below.
type Source interface {
	// FetchAssemblyCollection returns the assemblies found by walking the
	// given collection path template (one of the constants in
	// AssemblyCollectionPaths). Implementations resolve any {chassis}/
	// {system}-style placeholders themselves. A path with no matching
	// resources on this agent returns an empty slice, not an error.
	FetchAssemblyCollection(ctx context.Context, pathTemplate string) ([]AssemblyPayload, error)

	// FetchObject returns the decoded JSON object at a Redfish URI, used
	// by the property cache to re-extract every registered property on
	// refresh.
	FetchObject(ctx context.Context, uri string) (map[string]any, error)
}

// AssemblyCollectionPaths is the fixed set of Redfish collection paths
// walked during topology construction. The set is a property of this
// component, not user-configurable.
var AssemblyCollectionPaths = []string{
	"/redfish/v1/Chassis/{chassis}/Assembly",
	"/redfish/v1/Systems/{system}/Memory/{dimm}/Assembly",
	"/redfish/v1/Systems/{system}/Processors/{cpu}/Assembly",
	"/redfish/v1/Systems/{system}/EthernetInterfaces/{nic}/Assembly",
	"/redfish/v1/Systems/{system}/Storage/{controller}/Drives/{drive}/Assembly",
}

package resource

import "google.golang.org/protobuf/types/known/fieldmaskpb"

// ApplyFieldMask returns the subset of fields named by mask's paths. A
// nil or empty mask returns fields unchanged — query requests always
// carry a field_mask, but collectors built for tests sometimes pass one
// through untouched.
func ApplyFieldMask(fields map[string]any, mask *fieldmaskpb.FieldMask) map[string]any {
	if mask == nil || len(mask.GetPaths()) == 0 {
		return fields
	}
	out := make(map[string]any, len(mask.GetPaths()))
	for _, p := range mask.GetPaths() {
		if v, ok := fields[p]; ok {
			out[p] = v
		}
	}
	return out
}

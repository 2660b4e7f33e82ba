// Package profile maps HL7 v2 message headers to the validation resources
// (profile OIDs) known to the NIST validation service.
package profile

import "sort"

// Resource names a validation profile on the remote service.
// The set of resources is fixed; only their OIDs can be overridden.
type Resource struct {
	// Name is the symbolic name, e.g. "IZ_VXU_Z22".
	Name string `json:"name"`

	// OID identifies the profile on the remote service.
	OID string `json:"oid"`

	// Description is a short human-readable label.
	Description string `json:"description,omitempty"`
}

// IsZero reports whether r is the empty resource.
func (r Resource) IsZero() bool {
	return r.Name == ""
}

// String returns the symbolic name.
func (r Resource) String() string {
	return r.Name
}

// Immunization profiles published for the NIST HL7 v2 validation service.
var (
	IZVXU = Resource{
		Name:        "IZ_VXU",
		OID:         "2.16.840.1.113883.3.72.2.3.99001",
		Description: "VXU without profile identifier",
	}
	IZVXUZ22 = Resource{
		Name:        "IZ_VXU_Z22",
		OID:         "2.16.840.1.113883.3.72.2.3.99002",
		Description: "VXU Z22 send immunization update",
	}
	IZACKZ23 = Resource{
		Name:        "IZ_ACK_Z23",
		OID:         "2.16.840.1.113883.3.72.2.2.99001",
		Description: "ACK Z23 acknowledgement",
	}
	IZACKForAIRA = Resource{
		Name:        "IZ_ACK_FOR_AIRA",
		OID:         "2.16.840.1.113883.3.72.2.2.99002",
		Description: "ACK as profiled for AIRA testing",
	}
	IZQBPZ34 = Resource{
		Name:        "IZ_QBP_Z34",
		OID:         "2.16.840.1.113883.3.72.2.4.99001",
		Description: "QBP Z34 request immunization history",
	}
	IZQBPZ44 = Resource{
		Name:        "IZ_QBP_Z44",
		OID:         "2.16.840.1.113883.3.72.2.4.99002",
		Description: "QBP Z44 request evaluated history and forecast",
	}
	IZRSPZ31 = Resource{
		Name:        "IZ_RSP_Z31",
		OID:         "2.16.840.1.113883.3.72.2.5.99001",
		Description: "RSP Z31 return candidate list",
	}
	IZRSPZ32 = Resource{
		Name:        "IZ_RSP_Z32",
		OID:         "2.16.840.1.113883.3.72.2.5.99002",
		Description: "RSP Z32 return complete immunization history",
	}
	IZRSPZ33 = Resource{
		Name:        "IZ_RSP_Z33",
		OID:         "2.16.840.1.113883.3.72.2.5.99003",
		Description: "RSP Z33 return acknowledgement, no match",
	}
	IZRSPZ42 = Resource{
		Name:        "IZ_RSP_Z42",
		OID:         "2.16.840.1.113883.3.72.2.5.99004",
		Description: "RSP Z42 return evaluated history and forecast",
	}
)

var resources = map[string]Resource{
	IZVXU.Name:        IZVXU,
	IZVXUZ22.Name:     IZVXUZ22,
	IZACKZ23.Name:     IZACKZ23,
	IZACKForAIRA.Name: IZACKForAIRA,
	IZQBPZ34.Name:     IZQBPZ34,
	IZQBPZ44.Name:     IZQBPZ44,
	IZRSPZ31.Name:     IZRSPZ31,
	IZRSPZ32.Name:     IZRSPZ32,
	IZRSPZ33.Name:     IZRSPZ33,
	IZRSPZ42.Name:     IZRSPZ42,
}

// LookupResource returns the resource with the given symbolic name.
func LookupResource(name string) (Resource, bool) {
	r, ok := resources[name]
	return r, ok
}

// Resources returns all known resources sorted by name.
func Resources() []Resource {
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

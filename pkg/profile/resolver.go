package profile

import (
	"fmt"

	"github.com/gofhir/nistvalidator/pkg/hl7"
)

// Rule maps a (message type, profile identifier) pair to a resource.
type Rule struct {
	// Name describes the condition, e.g. "RSP & Z31".
	Name string

	// Resource is returned when Match succeeds.
	Resource Resource

	// Match reports whether the rule applies.
	Match func(messageType, profileID string) bool
}

// typeAndProfile matches an exact message type and profile identifier.
func typeAndProfile(messageType, profileID string, r Resource) Rule {
	return Rule{
		Name:     fmt.Sprintf("%s & %s", messageType, profileID),
		Resource: r,
		Match: func(mt, pid string) bool {
			return mt == messageType && pid == profileID
		},
	}
}

// typeOnly matches a message type regardless of the profile identifier.
func typeOnly(messageType string, r Resource) Rule {
	return Rule{
		Name:     fmt.Sprintf("%s & *", messageType),
		Resource: r,
		Match: func(mt, _ string) bool {
			return mt == messageType
		},
	}
}

// typeOrProfile matches either the message type or the profile identifier.
func typeOrProfile(messageType, profileID string, r Resource) Rule {
	return Rule{
		Name:     fmt.Sprintf("%s | %s", profileID, messageType),
		Resource: r,
		Match: func(mt, pid string) bool {
			return pid == profileID || mt == messageType
		},
	}
}

// DefaultRules returns the resolution rules in priority order.
// Later rules are broader than earlier ones, so order matters: a VXU
// matches IZ_VXU_Z22 whatever its profile, and an ACK always gets the AIRA
// acknowledgement profile.
func DefaultRules() []Rule {
	return []Rule{
		typeAndProfile("RSP", "Z31", IZRSPZ31),
		typeAndProfile("RSP", "Z32", IZRSPZ32),
		typeAndProfile("RSP", "Z42", IZRSPZ42),
		typeAndProfile("RSP", "Z33", IZRSPZ33),
		typeAndProfile("QBP", "Z34", IZQBPZ34),
		typeAndProfile("QBP", "Z44", IZQBPZ44),
		typeOnly("VXU", IZVXUZ22),
		typeOrProfile("ACK", "Z23", IZACKForAIRA),
	}
}

// Resolver picks the validation resource for a message.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	rules []Rule
	oids  map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOIDs overrides resource OIDs by resource name.
// Names that are not known resources are ignored.
func WithOIDs(oids map[string]string) Option {
	return func(r *Resolver) {
		for name, oid := range oids {
			if _, ok := resources[name]; ok && oid != "" {
				r.oids[name] = oid
			}
		}
	}
}

// WithRules replaces the rule list.
func WithRules(rules []Rule) Option {
	return func(r *Resolver) {
		r.rules = append([]Rule(nil), rules...)
	}
}

// NewResolver creates a Resolver using DefaultRules.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		rules: DefaultRules(),
		oids:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns a copy of the rules in evaluation order.
func (r *Resolver) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	for i, rule := range r.rules {
		rule.Resource = r.withOID(rule.Resource)
		out[i] = rule
	}
	return out
}

// Resolve returns the resource of the first matching rule.
// Returns false if no rule matches; the message cannot be validated.
func (r *Resolver) Resolve(messageType, profileID string) (Resource, bool) {
	for _, rule := range r.rules {
		if rule.Match(messageType, profileID) {
			return r.withOID(rule.Resource), true
		}
	}
	return Resource{}, false
}

// ResolveMessage reads MSH-9 and MSH-21 from message and resolves them.
// A message without an MSH segment is unresolved.
func (r *Resolver) ResolveMessage(message string) (Resource, bool) {
	h, ok := hl7.ReadHeader(message)
	if !ok {
		return Resource{}, false
	}
	return r.Resolve(h.MessageType, h.ProfileID)
}

// Lookup returns the named resource with any OID override applied.
func (r *Resolver) Lookup(name string) (Resource, bool) {
	res, ok := LookupResource(name)
	if !ok {
		return Resource{}, false
	}
	return r.withOID(res), true
}

func (r *Resolver) withOID(res Resource) Resource {
	if oid, ok := r.oids[res.Name]; ok {
		res.OID = oid
	}
	return res
}

var defaultResolver = NewResolver()

// Resolve resolves using the default rules and OIDs.
func Resolve(messageType, profileID string) (Resource, bool) {
	return defaultResolver.Resolve(messageType, profileID)
}

// ResolveMessage resolves message using the default rules and OIDs.
func ResolveMessage(message string) (Resource, bool) {
	return defaultResolver.ResolveMessage(message)
}

// Package privacy decides, per field and per caller role, whether sensitive
// personal data is shown in full or masked. Masking is pure and deterministic;
// privilege is an opaque boolean delegated to a RoleChecker and never cached
// across renders, so role revocation takes effect on the next render.
package privacy

import "strings"

// Class tags a value's sensitivity at the call site. It is never inferred
// from content.
type Class string

const (
	// ClassIdentity marks identity-like values addressed as email.
	ClassIdentity Class = "identity"
	// ClassContact marks contact values such as phone numbers.
	ClassContact Class = "contact"
	// ClassGeneric marks values that must never leak in any part.
	ClassGeneric Class = "generic"
)

const (
	// maskLiteral replaces the hidden portion of a value.
	maskLiteral = "***"
	// emptyPlaceholder renders absent values.
	emptyPlaceholder = "—"

	identityPrefixLen = 2
	contactSuffixLen  = 4
)

// Mask renders the masked projection of value for its class. Same input,
// same output; no I/O.
func Mask(value string, class Class) string {
	switch class {
	case ClassIdentity:
		local, domain, found := strings.Cut(value, "@")
		if !found {
			return maskLiteral
		}
		prefix := []rune(local)
		if len(prefix) > identityPrefixLen {
			prefix = prefix[:identityPrefixLen]
		}
		return string(prefix) + maskLiteral + "@" + domain
	case ClassContact:
		runes := []rune(value)
		if len(runes) <= contactSuffixLen {
			return maskLiteral
		}
		return maskLiteral + string(runes[len(runes)-contactSuffixLen:])
	default:
		return maskLiteral
	}
}

// DisplayState is the projection of a sensitive value handed to rendering.
type DisplayState struct {
	Value     string `json:"value"`
	Masked    bool   `json:"masked"`
	CanToggle bool   `json:"can_toggle"`
}

// Render decides between the raw value and its masked projection.
//
// A privileged caller always sees the raw value regardless of toggle state.
// For everyone else the masked projection is the default; CanToggle tells the
// UI whether an interactive reveal is offered. The reveal itself is a
// sensitive-data access the caller must report to the audit recorder — this
// package records nothing so auditing has a single home.
func Render(value *string, class Class, privileged, toggleable bool) DisplayState {
	if value == nil || *value == "" {
		return DisplayState{Value: emptyPlaceholder}
	}
	if privileged {
		return DisplayState{Value: *value}
	}
	return DisplayState{
		Value:     Mask(*value, class),
		Masked:    true,
		CanToggle: toggleable,
	}
}

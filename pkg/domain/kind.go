package domain

import (
	dErrors "verdeck/pkg/domain-errors"
)

// EntityKind distinguishes the two onboarding populations. The kind is fixed
// at creation and selects which document set is required.
type EntityKind string

const (
	KindInstitution  EntityKind = "institution"
	KindOrganization EntityKind = "organization"
)

func (k EntityKind) String() string { return string(k) }

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	return k == KindInstitution || k == KindOrganization
}

// ParseEntityKind parses a kind at a trust boundary.
func ParseEntityKind(raw string) (EntityKind, error) {
	kind := EntityKind(raw)
	if !kind.Valid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "kind must be %q or %q", KindInstitution, KindOrganization)
	}
	return kind, nil
}

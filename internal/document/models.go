// Package document tracks uploaded verification documents and the per-kind
// required sets that drive readiness.
package document

import (
	"time"

	id "verdeck/pkg/domain"
)

// Type names one category of verification document. The set of acceptable
// types is configuration per entity kind, not engine logic.
type Type string

const (
	TypeRegistrationCertificate Type = "registration_certificate"
	TypeTaxCertificate          Type = "tax_certificate"
	TypeAuthorizationLetter     Type = "authorization_letter"
	TypeRepresentativeID        Type = "representative_id"
)

// Record is the metadata for one uploaded file. The bytes themselves live in
// the blob store behind StoredRef.
type Record struct {
	ID         id.DocumentID `json:"id"`
	EntityID   id.EntityID   `json:"entity_id"`
	Type       Type          `json:"document_type"`
	StoredRef  string        `json:"stored_ref"`
	SizeBytes  int64         `json:"size_bytes"`
	UploadedAt time.Time     `json:"uploaded_at"`
}

// RequiredSets maps each entity kind to the document types it must provide
// before submission. Supplied externally as configuration.
type RequiredSets map[id.EntityKind][]Type

// DefaultRequiredSets mirrors the production onboarding policy: institutions
// provide four document types, organizations three.
func DefaultRequiredSets() RequiredSets {
	return RequiredSets{
		id.KindInstitution: {
			TypeRegistrationCertificate,
			TypeTaxCertificate,
			TypeAuthorizationLetter,
			TypeRepresentativeID,
		},
		id.KindOrganization: {
			TypeRegistrationCertificate,
			TypeTaxCertificate,
			TypeRepresentativeID,
		},
	}
}

// Allows reports whether docType is in the required set for kind.
func (r RequiredSets) Allows(kind id.EntityKind, docType Type) bool {
	for _, t := range r[kind] {
		if t == docType {
			return true
		}
	}
	return false
}

// Satisfied recomputes the documents_submitted readiness flag: true iff every
// required type for kind has at least one stored record. Always derived from
// the current records, never cached, so it cannot drift.
func (r RequiredSets) Satisfied(kind id.EntityKind, records []Record) bool {
	present := make(map[Type]bool, len(records))
	for _, rec := range records {
		present[rec.Type] = true
	}
	for _, t := range r[kind] {
		if !present[t] {
			return false
		}
	}
	return true
}

// Missing lists the required types for kind with no stored record yet.
func (r RequiredSets) Missing(kind id.EntityKind, records []Record) []Type {
	present := make(map[Type]bool, len(records))
	for _, rec := range records {
		present[rec.Type] = true
	}
	var missing []Type
	for _, t := range r[kind] {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

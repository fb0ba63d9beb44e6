package models

import (
	"strings"
	"time"

	id "verdeck/pkg/domain"
	dErrors "verdeck/pkg/domain-errors"
)

// Profile holds the owner-editable descriptive fields of an entity.
type Profile struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Website      string `json:"website"`
	Address      string `json:"address"`
	Description  string `json:"description"`
}

// Entity is the aggregate root for the verification workflow.
//
// Invariants:
//   - Name is non-empty and at most 256 characters
//   - Kind is immutable after construction
//   - Status=verified implies EmailVerified, all required documents stored,
//     and DocumentsVerified
//   - Status=submitted implies EmailVerified and all required documents stored
//   - DocumentsVerified is set only through ApplyApproval, never by the owner
//
// Whether every required document is stored (documents_submitted) is derived
// from the document records at evaluation time; it is deliberately not a
// field here, so it can never drift from the stored set.
//
// EmailVerified is a readiness flag distinct from StatusEmailVerified: the
// flag records the fact, the status records lifecycle position. The flag can
// be true while the status is still pending.
type Entity struct {
	ID      id.EntityID   `json:"id"`
	Kind    id.EntityKind `json:"kind"`
	Profile Profile       `json:"profile"`

	Status            Status `json:"status"`
	EmailVerified     bool   `json:"email_verified"`
	DocumentsVerified bool   `json:"documents_verified"`

	ReviewNotes string      `json:"review_notes,omitempty"`
	ReviewedBy  *id.ActorID `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time  `json:"reviewed_at,omitempty"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`

	OwnerID   id.ActorID `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewEntity constructs a pending entity, validating construction invariants.
func NewEntity(entityID id.EntityID, kind id.EntityKind, ownerID id.ActorID, profile Profile, now time.Time) (*Entity, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "entity name cannot be empty")
	}
	if len(profile.Name) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "entity name must be 256 characters or less")
	}
	if !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown entity kind")
	}
	return &Entity{
		ID:        entityID,
		Kind:      kind,
		Profile:   profile,
		Status:    StatusPending,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanEditProfile checks that the profile is still owner-mutable. Profile
// fields freeze at first submission so reviewers never see a moving target.
func (e *Entity) CanEditProfile() error {
	if e.Status == StatusPending || e.Status == StatusEmailVerified {
		return nil
	}
	return dErrors.New(dErrors.CodeInvariantViolation, "profile is frozen once submitted for review")
}

// ApplyProfileUpdate overwrites the profile fields. Call CanEditProfile
// first; the callback store pattern runs both under the entity lock.
func (e *Entity) ApplyProfileUpdate(profile Profile, now time.Time) {
	profile.Name = strings.TrimSpace(profile.Name)
	e.Profile = profile
	e.UpdatedAt = now
}

// CanRequestEmailVerification rejects token issuance once the address is
// already confirmed.
func (e *Entity) CanRequestEmailVerification() error {
	if e.EmailVerified {
		return dErrors.New(dErrors.CodeInvariantViolation, "email is already verified")
	}
	return nil
}

// ApplyEmailVerified sets the readiness flag and advances the status when the
// entity is still pending. The status stays put in any later state; the flag
// is the source of truth for readiness evaluation.
func (e *Entity) ApplyEmailVerified(now time.Time) {
	e.EmailVerified = true
	if e.Status == StatusPending {
		e.Status = StatusEmailVerified
	}
	e.UpdatedAt = now
}

// CanUploadDocuments checks that no review is in flight and the entity is not
// already verified.
func (e *Entity) CanUploadDocuments() error {
	switch e.Status {
	case StatusPending, StatusEmailVerified, StatusRejected:
		return nil
	case StatusSubmitted:
		return dErrors.New(dErrors.CodeInvariantViolation, "documents cannot change while a review is in flight")
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "entity is already verified")
	}
}

// CanSubmit validates the submission guards. documentsSubmitted is the
// derived readiness computed from the stored document records.
func (e *Entity) CanSubmit(documentsSubmitted bool) error {
	switch e.Status {
	case StatusSubmitted:
		return dErrors.New(dErrors.CodeConflict, "entity is already submitted for review")
	case StatusVerified:
		return dErrors.New(dErrors.CodeConflict, "entity is already verified")
	}
	if !e.EmailVerified {
		return dErrors.New(dErrors.CodePrecondition, "verify the contact email before submitting")
	}
	if !documentsSubmitted {
		return dErrors.New(dErrors.CodePrecondition, "upload all required documents before submitting")
	}
	return nil
}

// ApplySubmission transitions the entity into review.
func (e *Entity) ApplySubmission(now time.Time) {
	e.Status = StatusSubmitted
	e.SubmittedAt = &now
	e.UpdatedAt = now
}

// CanDecide checks that a pending submission exists. Only a submitted entity
// may receive a terminal decision; this is what makes a second concurrent
// decision fail rather than double-log.
func (e *Entity) CanDecide() error {
	if e.Status != StatusSubmitted {
		return dErrors.New(dErrors.CodePrecondition, "only a submitted entity can be decided")
	}
	return nil
}

// ApplyApproval records the approve decision.
func (e *Entity) ApplyApproval(adminID id.ActorID, notes string, now time.Time) {
	e.Status = StatusVerified
	e.DocumentsVerified = true
	e.ReviewNotes = notes
	e.ReviewedBy = &adminID
	e.ReviewedAt = &now
	e.UpdatedAt = now
}

// ApplyRejection records the reject decision. The entity remains
// resubmittable once the owner re-satisfies readiness.
func (e *Entity) ApplyRejection(adminID id.ActorID, notes string, now time.Time) {
	e.Status = StatusRejected
	e.DocumentsVerified = false
	e.ReviewNotes = notes
	e.ReviewedBy = &adminID
	e.ReviewedAt = &now
	e.UpdatedAt = now
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state outside the entity lock.
func (e *Entity) Clone() *Entity {
	clone := *e
	if e.ReviewedBy != nil {
		rb := *e.ReviewedBy
		clone.ReviewedBy = &rb
	}
	if e.ReviewedAt != nil {
		ra := *e.ReviewedAt
		clone.ReviewedAt = &ra
	}
	if e.SubmittedAt != nil {
		sa := *e.SubmittedAt
		clone.SubmittedAt = &sa
	}
	return &clone
}

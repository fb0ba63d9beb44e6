// Package audit is the append-only record of every verification transition:
// who performed it, when, and why. Entries are created only by the
// verification engine and are never mutated or deleted.
package audit

import (
	"context"
	"time"

	id "verdeck/pkg/domain"
)

// Action names one transition in an entity's verification history.
type Action string

const (
	ActionCreated               Action = "created"
	ActionEmailVerificationSent Action = "email_verification_sent"
	ActionEmailVerified         Action = "email_verified"
	ActionDocumentUploaded      Action = "document_uploaded"
	ActionSubmittedForReview    Action = "submitted_for_review"
	ActionApproved              Action = "approved"
	ActionRejected              Action = "rejected"
)

// Entry is one immutable record per transition. Keep it transport-agnostic
// so stores and sinks can fan out.
type Entry struct {
	EntityID  id.EntityID `json:"entity_id"`
	Action    Action      `json:"action"`
	ActorID   id.ActorID  `json:"actor_id"`
	Notes     string      `json:"notes,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Store persists audit entries. Append-only: there is no update or delete.
// ListByEntity returns entries oldest first, in the order the engine
// linearized the transitions they record.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityID id.EntityID) ([]Entry, error)
}

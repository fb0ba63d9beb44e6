package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"verdeck/internal/document"
	"verdeck/internal/notification"
	"verdeck/internal/verification/models"
	id "verdeck/pkg/domain"
	dErrors "verdeck/pkg/domain-errors"
	"verdeck/pkg/platform/audit"
	"verdeck/pkg/platform/sentinel"
	"verdeck/pkg/requestcontext"
)

// CreateEntity registers a new entity in the pending state and opens its
// audit trail.
func (s *Service) CreateEntity(ctx context.Context, kind id.EntityKind, ownerID id.ActorID, profile models.Profile) (*models.Entity, error) {
	ctx, span := s.startSpan(ctx, "verification.CreateEntity")
	defer span.End()

	now := requestcontext.Now(ctx)
	entity, err := models.NewEntity(id.NewEntityID(), kind, ownerID, profile, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.entities.Create(txCtx, entity); err != nil {
			return wrapEntityErr(err)
		}
		return s.appendAudit(txCtx, audit.Entry{
			EntityID: entity.ID,
			Action:   audit.ActionCreated,
			ActorID:  ownerID,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EntitiesCreated.Inc()
	}
	s.logger.InfoContext(ctx, "entity created",
		"entity_id", entity.ID,
		"kind", entity.Kind,
	)
	return entity, nil
}

// UpdateProfile overwrites the profile fields while they are still
// owner-mutable. Frozen once submitted so reviewers see a stable record.
func (s *Service) UpdateProfile(ctx context.Context, entityID id.EntityID, profile models.Profile) (*models.Entity, error) {
	ctx, span := s.startSpan(ctx, "verification.UpdateProfile", entityID)
	defer span.End()

	if profile.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity name cannot be empty")
	}

	unlock := s.lockEntity(entityID)
	defer unlock()

	now := requestcontext.Now(ctx)
	var entity *models.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entity, err = s.entities.Execute(txCtx, entityID,
			func(e *models.Entity) error {
				if err := e.CanEditProfile(); err != nil {
					return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
				}
				return nil
			},
			func(e *models.Entity) {
				e.ApplyProfileUpdate(profile, now)
			},
		)
		return wrapEntityErr(err)
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// RequestEmailVerification issues a fresh single-use token, invalidating any
// previous one, and asks the notification channel to deliver it. A failed
// send does not roll back the issuance: the token stays live and the error
// tells the caller to offer a manual resend.
func (s *Service) RequestEmailVerification(ctx context.Context, entityID id.EntityID) (string, error) {
	ctx, span := s.startSpan(ctx, "verification.RequestEmailVerification", entityID)
	defer span.End()

	unlock := s.lockEntity(entityID)
	defer unlock()

	entity, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		return "", wrapEntityErr(err)
	}
	if err := entity.CanRequestEmailVerification(); err != nil {
		return "", dErrors.New(dErrors.CodeConflict, "email is already verified")
	}

	plaintext, err := s.tokens.Issue(ctx, entityID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue verification token")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.appendAudit(txCtx, audit.Entry{
			EntityID: entityID,
			Action:   audit.ActionEmailVerificationSent,
			ActorID:  requestcontext.ActorID(ctx),
		})
	})
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"entity_name":     entity.Profile.Name,
		"token":           plaintext,
		"expires_minutes": strconv.Itoa(int(s.tokens.TTL().Minutes())),
	}
	if err := s.notifier.Send(ctx, entity.Profile.ContactEmail, notification.TemplateEmailVerification, payload); err != nil {
		s.logger.ErrorContext(ctx, "verification email send failed",
			"entity_id", entityID,
			"error", err,
		)
		return plaintext, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification email could not be sent; request a resend")
	}
	return plaintext, nil
}

// ConfirmEmailVerification consumes the token and sets the readiness flag.
// A duplicate confirmation after the flag is already set is a no-op, not an
// error, so double clicks and retried requests stay harmless.
func (s *Service) ConfirmEmailVerification(ctx context.Context, entityID id.EntityID, tokenPlaintext string) (*models.Entity, error) {
	ctx, span := s.startSpan(ctx, "verification.ConfirmEmailVerification", entityID)
	defer span.End()

	unlock := s.lockEntity(entityID)
	defer unlock()

	if err := s.tokens.Consume(ctx, entityID, tokenPlaintext); err != nil {
		entity, findErr := s.entities.FindByID(ctx, entityID)
		if findErr != nil {
			return nil, wrapEntityErr(findErr)
		}
		if entity.EmailVerified {
			// Already verified; tolerate the duplicate confirmation.
			return entity, nil
		}
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			return nil, dErrors.New(dErrors.CodeInvalidToken, "verification token has expired")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeInvalidToken, "verification token is unknown or already used")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume verification token")
		}
	}

	now := requestcontext.Now(ctx)
	var entity *models.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entity, err = s.entities.Execute(txCtx, entityID,
			func(e *models.Entity) error { return nil },
			func(e *models.Entity) { e.ApplyEmailVerified(now) },
		)
		if err != nil {
			return wrapEntityErr(err)
		}
		return s.appendAudit(txCtx, audit.Entry{
			EntityID: entityID,
			Action:   audit.ActionEmailVerified,
			ActorID:  entity.OwnerID,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EmailsVerified.Inc()
	}
	s.logger.InfoContext(ctx, "email verified", "entity_id", entityID)
	return entity, nil
}

// UploadDocument stores the file and records its metadata. Uploads are legal
// while the entity is pending, email-verified, or rejected; never while a
// review is in flight or after final verification. The blob write is retried
// a bounded number of times before surfacing as unavailable.
func (s *Service) UploadDocument(ctx context.Context, entityID id.EntityID, docType document.Type, content []byte) (document.Record, error) {
	ctx, span := s.startSpan(ctx, "verification.UploadDocument", entityID)
	defer span.End()

	if len(content) == 0 {
		return document.Record{}, dErrors.New(dErrors.CodeValidation, "document content is empty")
	}

	unlock := s.lockEntity(entityID)
	defer unlock()

	entity, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		return document.Record{}, wrapEntityErr(err)
	}
	if err := entity.CanUploadDocuments(); err != nil {
		return document.Record{}, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	if !s.required.Allows(entity.Kind, docType) {
		return document.Record{}, dErrors.Newf(dErrors.CodeValidation, "document type %q is not required for kind %q", docType, entity.Kind)
	}

	// External side effect first: if the blob write ultimately fails, no
	// state has changed. The reverse order would record metadata for bytes
	// that were never stored.
	var ref string
	err = s.withRetry(ctx, func() error {
		var storeErr error
		ref, storeErr = s.blobs.Store(ctx, entityID, docType, content)
		return storeErr
	})
	if err != nil {
		return document.Record{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "document store is unavailable")
	}

	now := requestcontext.Now(ctx)
	record := document.Record{
		ID:         id.NewDocumentID(),
		EntityID:   entityID,
		Type:       docType,
		StoredRef:  ref,
		SizeBytes:  int64(len(content)),
		UploadedAt: now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Re-validate under the row lock: the in-process keyed lock does not
		// cover writers on other instances.
		_, err := s.entities.Execute(txCtx, entityID,
			func(e *models.Entity) error {
				if err := e.CanUploadDocuments(); err != nil {
					return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
				}
				return nil
			},
			func(e *models.Entity) { e.UpdatedAt = now },
		)
		if err != nil {
			return wrapEntityErr(err)
		}
		if err := s.documents.Create(txCtx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document")
		}
		return s.appendAudit(txCtx, audit.Entry{
			EntityID: entityID,
			Action:   audit.ActionDocumentUploaded,
			ActorID:  entity.OwnerID,
			Notes:    string(docType),
		})
	})
	if err != nil {
		return document.Record{}, err
	}

	s.logger.InfoContext(ctx, "document uploaded",
		"entity_id", entityID,
		"document_type", docType,
		"size_bytes", record.SizeBytes,
	)
	return record, nil
}

// SubmitForReview is the single linearization point into the review queue.
// Readiness (email verified, all required documents stored) is evaluated
// under the entity lock so a racing upload or confirmation cannot be missed
// or half-observed.
func (s *Service) SubmitForReview(ctx context.Context, entityID id.EntityID, actorID id.ActorID) (*models.Entity, error) {
	ctx, span := s.startSpan(ctx, "verification.SubmitForReview", entityID)
	defer span.End()

	start := time.Now()
	unlock := s.lockEntity(entityID)
	defer unlock()

	now := requestcontext.Now(ctx)
	var entity *models.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entity, err = s.entities.Execute(txCtx, entityID,
			func(e *models.Entity) error {
				records, listErr := s.documents.ListByEntity(txCtx, e.ID)
				if listErr != nil {
					return dErrors.Wrap(listErr, dErrors.CodeInternal, "failed to evaluate document readiness")
				}
				return e.CanSubmit(s.required.Satisfied(e.Kind, records))
			},
			func(e *models.Entity) { e.ApplySubmission(now) },
		)
		if err != nil {
			return wrapEntityErr(err)
		}
		return s.appendAudit(txCtx, audit.Entry{
			EntityID: entityID,
			Action:   audit.ActionSubmittedForReview,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Submissions.Inc()
		s.metrics.ObserveSubmit(start)
	}
	s.logger.InfoContext(ctx, "entity submitted for review",
		"entity_id", entityID,
		"kind", entity.Kind,
	)
	return entity, nil
}

// Decide records an administrator's terminal decision for the current review
// cycle. Only a submitted entity can be decided, so of two concurrent
// decisions exactly one succeeds and exactly one log entry is written.
func (s *Service) Decide(ctx context.Context, entityID id.EntityID, adminID id.ActorID, outcome models.Outcome, notes string) (*models.Entity, error) {
	ctx, span := s.startSpan(ctx, "verification.Decide", entityID)
	defer span.End()

	if outcome == models.OutcomeReject && notes == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection requires review notes")
	}

	start := time.Now()
	unlock := s.lockEntity(entityID)
	defer unlock()

	now := requestcontext.Now(ctx)
	action := audit.ActionApproved
	if outcome == models.OutcomeReject {
		action = audit.ActionRejected
	}

	var entity *models.Entity
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entity, err = s.entities.Execute(txCtx, entityID,
			func(e *models.Entity) error { return e.CanDecide() },
			func(e *models.Entity) {
				if outcome == models.OutcomeApprove {
					e.ApplyApproval(adminID, notes, now)
				} else {
					e.ApplyRejection(adminID, notes, now)
				}
			},
		)
		if err != nil {
			return wrapEntityErr(err)
		}
		return s.appendAudit(txCtx, audit.Entry{
			EntityID: entityID,
			Action:   action,
			ActorID:  adminID,
			Notes:    notes,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues(string(outcome)).Inc()
		s.metrics.ObserveDecide(start)
	}
	s.logger.InfoContext(ctx, "decision recorded",
		"entity_id", entityID,
		"outcome", outcome,
		"admin_id", adminID,
	)

	s.notifyDecision(ctx, entity, outcome, notes)
	return entity, nil
}

// notifyDecision delivers the outcome notice. Best effort: the decision is
// already committed, so a send failure is logged and swallowed.
func (s *Service) notifyDecision(ctx context.Context, entity *models.Entity, outcome models.Outcome, notes string) {
	template := notification.TemplateReviewApproved
	if outcome == models.OutcomeReject {
		template = notification.TemplateReviewRejected
	}
	payload := map[string]string{
		"entity_name": entity.Profile.Name,
		"notes":       notes,
	}
	if err := s.notifier.Send(ctx, entity.Profile.ContactEmail, template, payload); err != nil {
		s.logger.ErrorContext(ctx, "decision notice send failed",
			"entity_id", entity.ID,
			"outcome", outcome,
			"error", err,
		)
	}
}

// GetEntity returns the current entity state.
func (s *Service) GetEntity(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	entity, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		return nil, wrapEntityErr(err)
	}
	return entity, nil
}

// EntityDetail bundles the entity with its documents, derived readiness, and
// full audit trail for the detail surfaces.
type EntityDetail struct {
	Entity             *models.Entity    `json:"entity"`
	Documents          []document.Record `json:"documents"`
	DocumentsSubmitted bool              `json:"documents_submitted"`
	MissingDocuments   []document.Type   `json:"missing_documents,omitempty"`
	Trail              []audit.Entry     `json:"audit_trail"`
}

// GetEntityDetail assembles the full picture of one entity.
func (s *Service) GetEntityDetail(ctx context.Context, entityID id.EntityID) (*EntityDetail, error) {
	entity, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		return nil, wrapEntityErr(err)
	}
	records, err := s.documents.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	trail, err := s.auditLog.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit trail")
	}
	return &EntityDetail{
		Entity:             entity,
		Documents:          records,
		DocumentsSubmitted: s.required.Satisfied(entity.Kind, records),
		MissingDocuments:   s.required.Missing(entity.Kind, records),
		Trail:              trail,
	}, nil
}

// ListAuditTrail returns the entity's transitions oldest first.
func (s *Service) ListAuditTrail(ctx context.Context, entityID id.EntityID) ([]audit.Entry, error) {
	if _, err := s.entities.FindByID(ctx, entityID); err != nil {
		return nil, wrapEntityErr(err)
	}
	trail, err := s.auditLog.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit trail")
	}
	return trail, nil
}

// ListPending is the review queue: submitted entities oldest first, so the
// longest-waiting review is served next. A submission not yet linearized
// simply does not appear.
func (s *Service) ListPending(ctx context.Context, kind id.EntityKind) ([]*models.Entity, error) {
	if kind != "" && !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "kind must be institution or organization")
	}
	entities, err := s.entities.ListSubmitted(ctx, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list review queue")
	}
	return entities, nil
}

func (s *Service) appendAudit(ctx context.Context, entry audit.Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	entry.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditLog.Append(ctx, entry); err != nil {
		// The transition is only committed if its audit entry is; surfacing
		// the error here aborts the surrounding transaction.
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	return nil
}

func (s *Service) startSpan(ctx context.Context, name string, entityID ...id.EntityID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	if len(entityID) > 0 {
		span.SetAttributes(attribute.String("entity.id", entityID[0].String()))
	}
	return ctx, span
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verdeck/internal/document"
	"verdeck/internal/notification"
	"verdeck/internal/verification/models"
	entitystore "verdeck/internal/verification/store/entity"
	"verdeck/internal/verification/token"
	id "verdeck/pkg/domain"
	dErrors "verdeck/pkg/domain-errors"
	"verdeck/pkg/platform/audit"
	auditmemory "verdeck/pkg/platform/audit/store/memory"
	"verdeck/pkg/requestcontext"
)

// captureNotifier records sends so tests can look at delivered payloads.
type captureNotifier struct {
	mu    sync.Mutex
	sends []capturedSend
	fail  bool
}

type capturedSend struct {
	recipient string
	template  notification.Template
	payload   map[string]string
}

func (n *captureNotifier) Send(_ context.Context, recipient string, template notification.Template, payload map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp connection refused")
	}
	n.sends = append(n.sends, capturedSend{recipient: recipient, template: template, payload: payload})
	return nil
}

func (n *captureNotifier) lastSend() (capturedSend, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sends) == 0 {
		return capturedSend{}, false
	}
	return n.sends[len(n.sends)-1], true
}

type EngineSuite struct {
	suite.Suite
	entities   *entitystore.InMemory
	tokenStore *token.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	notifier   *captureNotifier
	service    *Service

	owner id.ActorID
	admin id.ActorID
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.entities = entitystore.NewInMemory()
	s.tokenStore = token.NewInMemoryStore()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.notifier = &captureNotifier{}

	tokens, err := token.NewManager(s.tokenStore, time.Hour)
	s.Require().NoError(err)

	s.service = New(
		s.entities,
		document.NewInMemoryRecordStore(),
		document.NewInMemoryBlobStore(),
		document.DefaultRequiredSets(),
		tokens,
		s.auditStore,
		s.notifier,
		WithLogger(slog.New(slog.DiscardHandler)),
	)

	s.owner = id.NewActorID()
	s.admin = id.NewActorID()
}

func (s *EngineSuite) profile() models.Profile {
	return models.Profile{
		Name:         "Meridian Savings Bank",
		ContactEmail: "ops@meridian.example",
	}
}

func (s *EngineSuite) createEntity(kind id.EntityKind) *models.Entity {
	entity, err := s.service.CreateEntity(context.Background(), kind, s.owner, s.profile())
	s.Require().NoError(err)
	return entity
}

// verifyEmail walks the request/confirm pair using the issued plaintext.
func (s *EngineSuite) verifyEmail(entityID id.EntityID) {
	plaintext, err := s.service.RequestEmailVerification(context.Background(), entityID)
	s.Require().NoError(err)
	_, err = s.service.ConfirmEmailVerification(context.Background(), entityID, plaintext)
	s.Require().NoError(err)
}

func (s *EngineSuite) uploadAll(entity *models.Entity) {
	for _, docType := range document.DefaultRequiredSets()[entity.Kind] {
		_, err := s.service.UploadDocument(context.Background(), entity.ID, docType, []byte("pdf bytes"))
		s.Require().NoError(err)
	}
}

// submittedEntity fast-forwards a fresh entity to the submitted state.
func (s *EngineSuite) submittedEntity() *models.Entity {
	entity := s.createEntity(id.KindInstitution)
	s.verifyEmail(entity.ID)
	s.uploadAll(entity)
	submitted, err := s.service.SubmitForReview(context.Background(), entity.ID, s.owner)
	s.Require().NoError(err)
	return submitted
}

func (s *EngineSuite) auditActions(entityID id.EntityID) []audit.Action {
	trail, err := s.auditStore.ListByEntity(context.Background(), entityID)
	s.Require().NoError(err)
	actions := make([]audit.Action, 0, len(trail))
	for _, entry := range trail {
		actions = append(actions, entry.Action)
	}
	return actions
}

func (s *EngineSuite) TestCreateEntity() {
	s.Run("creates a pending entity with an opening audit entry", func() {
		entity := s.createEntity(id.KindInstitution)

		s.Equal(models.StatusPending, entity.Status)
		s.False(entity.EmailVerified)
		s.False(entity.DocumentsVerified)
		s.Equal(s.owner, entity.OwnerID)
		s.Equal([]audit.Action{audit.ActionCreated}, s.auditActions(entity.ID))
	})

	s.Run("rejects an empty name", func() {
		_, err := s.service.CreateEntity(context.Background(), id.KindInstitution, s.owner, models.Profile{Name: "   "})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a name over 256 characters", func() {
		long := make([]byte, 257)
		for i := range long {
			long[i] = 'a'
		}
		_, err := s.service.CreateEntity(context.Background(), id.KindInstitution, s.owner, models.Profile{Name: string(long)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestFullApprovalFlow() {
	entity := s.createEntity(id.KindInstitution)
	s.verifyEmail(entity.ID)
	s.uploadAll(entity)

	submitted, err := s.service.SubmitForReview(context.Background(), entity.ID, s.owner)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, submitted.Status)
	s.NotNil(submitted.SubmittedAt)

	approved, err := s.service.Decide(context.Background(), entity.ID, s.admin, models.OutcomeApprove, "all checks passed")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, approved.Status)
	s.True(approved.EmailVerified)
	s.True(approved.DocumentsVerified)
	s.Require().NotNil(approved.ReviewedBy)
	s.Equal(s.admin, *approved.ReviewedBy)

	s.Equal([]audit.Action{
		audit.ActionCreated,
		audit.ActionEmailVerificationSent,
		audit.ActionEmailVerified,
		audit.ActionDocumentUploaded,
		audit.ActionDocumentUploaded,
		audit.ActionDocumentUploaded,
		audit.ActionDocumentUploaded,
		audit.ActionSubmittedForReview,
		audit.ActionApproved,
	}, s.auditActions(entity.ID))

	// Outcome notice went out.
	send, ok := s.notifier.lastSend()
	s.Require().True(ok)
	s.Equal(notification.TemplateReviewApproved, send.template)
}

func (s *EngineSuite) TestRejectionAndResubmission() {
	entity := s.submittedEntity()

	rejected, err := s.service.Decide(context.Background(), entity.ID, s.admin, models.OutcomeReject, "registration certificate illegible")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.Status)
	s.False(rejected.DocumentsVerified)
	s.Equal("registration certificate illegible", rejected.ReviewNotes)

	// The owner may replace documents and submit again without any reset.
	_, err = s.service.UploadDocument(context.Background(), entity.ID, document.TypeRegistrationCertificate, []byte("better scan"))
	s.Require().NoError(err)

	resubmitted, err := s.service.SubmitForReview(context.Background(), entity.ID, s.owner)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, resubmitted.Status)

	approved, err := s.service.Decide(context.Background(), entity.ID, s.admin, models.OutcomeApprove, "resolved")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, approved.Status)
}

func (s *EngineSuite) TestSubmitGuards() {
	s.Run("blocked before email verification", func() {
		entity := s.createEntity(id.KindInstitution)
		s.uploadAll(entity)

		_, err := s.service.SubmitForReview(context.Background(), entity.ID, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("blocked while documents are missing", func() {
		entity := s.createEntity(id.KindInstitution)
		s.verifyEmail(entity.ID)
		_, err := s.service.UploadDocument(context.Background(), entity.ID, document.TypeTaxCertificate, []byte("pdf"))
		s.Require().NoError(err)

		_, err = s.service.SubmitForReview(context.Background(), entity.ID, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("duplicate submission conflicts", func() {
		entity := s.submittedEntity()
		_, err := s.service.SubmitForReview(context.Background(), entity.ID, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *EngineSuite) TestEmailVerification() {
	s.Run("token is delivered through the notifier, never stored in plaintext", func() {
		entity := s.createEntity(id.KindOrganization)
		plaintext, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
		s.Require().NoError(err)

		send, ok := s.notifier.lastSend()
		s.Require().True(ok)
		s.Equal(notification.TemplateEmailVerification, send.template)
		s.Equal(plaintext, send.payload["token"])
	})

	s.Run("wrong token is rejected without revealing why", func() {
		entity := s.createEntity(id.KindOrganization)
		_, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
		s.Require().NoError(err)

		_, err = s.service.ConfirmEmailVerification(context.Background(), entity.ID, "not-the-token")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	})

	s.Run("reissue invalidates the previous token", func() {
		entity := s.createEntity(id.KindOrganization)
		first, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
		s.Require().NoError(err)
		second, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
		s.Require().NoError(err)

		_, err = s.service.ConfirmEmailVerification(context.Background(), entity.ID, first)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))

		confirmed, err := s.service.ConfirmEmailVerification(context.Background(), entity.ID, second)
		s.Require().NoError(err)
		s.True(confirmed.EmailVerified)
	})

	s.Run("duplicate confirmation is a no-op", func() {
		entity := s.createEntity(id.KindOrganization)
		plaintext, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
		s.Require().NoError(err)

		_, err = s.service.ConfirmEmailVerification(context.Background(), entity.ID, plaintext)
		s.Require().NoError(err)

		// Token already consumed, but the flag is set: tolerated.
		again, err := s.service.ConfirmEmailVerification(context.Background(), entity.ID, plaintext)
		s.Require().NoError(err)
		s.True(again.EmailVerified)

		// Exactly one email_verified entry in the trail.
		verifiedCount := 0
		for _, action := range s.auditActions(entity.ID) {
			if action == audit.ActionEmailVerified {
				verifiedCount++
			}
		}
		s.Equal(1, verifiedCount)
	})

	s.Run("requesting after verification conflicts", func() {
		entity := s.createEntity(id.KindOrganization)
		s.verifyEmail(entity.ID)

		_, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *EngineSuite) TestExpiredToken() {
	clock := time.Now()
	s.tokenStore.WithClock(func() time.Time { return clock })

	entity := s.createEntity(id.KindOrganization)
	plaintext, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
	s.Require().NoError(err)

	clock = clock.Add(2 * time.Hour)

	_, err = s.service.ConfirmEmailVerification(context.Background(), entity.ID, plaintext)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))

	// A fresh token still works after expiry.
	fresh, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
	s.Require().NoError(err)
	confirmed, err := s.service.ConfirmEmailVerification(context.Background(), entity.ID, fresh)
	s.Require().NoError(err)
	s.True(confirmed.EmailVerified)
}

func (s *EngineSuite) TestNotifierOutage() {
	entity := s.createEntity(id.KindOrganization)
	s.notifier.fail = true

	plaintext, err := s.service.RequestEmailVerification(context.Background(), entity.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.NotEmpty(plaintext)

	// The issued token survives the failed send, so a support-driven resend
	// can still complete the flow.
	s.notifier.fail = false
	confirmed, err := s.service.ConfirmEmailVerification(context.Background(), entity.ID, plaintext)
	s.Require().NoError(err)
	s.True(confirmed.EmailVerified)
}

func (s *EngineSuite) TestUploadGuards() {
	entity := s.createEntity(id.KindInstitution)

	s.Run("empty content", func() {
		_, err := s.service.UploadDocument(context.Background(), entity.ID, document.TypeTaxCertificate, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("type outside the required set", func() {
		_, err := s.service.UploadDocument(context.Background(), entity.ID, document.Type("selfie"), []byte("jpg"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("blocked while under review", func() {
		submitted := s.submittedEntity()
		_, err := s.service.UploadDocument(context.Background(), submitted.ID, document.TypeTaxCertificate, []byte("pdf"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("replacement of an already uploaded type is allowed", func() {
		_, err := s.service.UploadDocument(context.Background(), entity.ID, document.TypeTaxCertificate, []byte("v1"))
		s.Require().NoError(err)
		_, err = s.service.UploadDocument(context.Background(), entity.ID, document.TypeTaxCertificate, []byte("v2"))
		s.NoError(err)
	})
}

func (s *EngineSuite) TestProfileFrozenAfterSubmission() {
	entity := s.submittedEntity()

	updated := s.profile()
	updated.Name = "Meridian Savings Bank N.A."
	_, err := s.service.UpdateProfile(context.Background(), entity.ID, updated)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *EngineSuite) TestDecideGuards() {
	s.Run("rejection requires notes", func() {
		entity := s.submittedEntity()
		_, err := s.service.Decide(context.Background(), entity.ID, s.admin, models.OutcomeReject, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("only submitted entities can be decided", func() {
		entity := s.createEntity(id.KindInstitution)
		_, err := s.service.Decide(context.Background(), entity.ID, s.admin, models.OutcomeApprove, "")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("unknown entity", func() {
		_, err := s.service.Decide(context.Background(), id.NewEntityID(), s.admin, models.OutcomeApprove, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// Two administrators race on the same submitted entity: exactly one decision
// lands and exactly one decision entry is written.
func (s *EngineSuite) TestConcurrentDecisions() {
	entity := s.submittedEntity()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	outcomes := []models.Outcome{models.OutcomeApprove, models.OutcomeReject}
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.Decide(context.Background(), entity.ID, id.NewActorID(), outcomes[i], "race notes")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		}
	}
	s.Equal(1, succeeded)

	decisions := 0
	for _, action := range s.auditActions(entity.ID) {
		if action == audit.ActionApproved || action == audit.ActionRejected {
			decisions++
		}
	}
	s.Equal(1, decisions)
}

// Concurrent uploads of all required types must leave the entity submittable.
func (s *EngineSuite) TestConcurrentUploadsThenSubmit() {
	entity := s.createEntity(id.KindInstitution)
	s.verifyEmail(entity.ID)

	required := document.DefaultRequiredSets()[id.KindInstitution]
	var wg sync.WaitGroup
	errs := make([]error, len(required))
	for i, docType := range required {
		wg.Add(1)
		go func(i int, docType document.Type) {
			defer wg.Done()
			_, errs[i] = s.service.UploadDocument(context.Background(), entity.ID, docType, []byte(fmt.Sprintf("doc %d", i)))
		}(i, docType)
	}
	wg.Wait()
	for _, err := range errs {
		s.Require().NoError(err)
	}

	submitted, err := s.service.SubmitForReview(context.Background(), entity.ID, s.owner)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, submitted.Status)
}

func (s *EngineSuite) TestAuditEntriesCarryRequestContext() {
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-7f3a")

	entity, err := s.service.CreateEntity(ctx, id.KindInstitution, s.owner, s.profile())
	s.Require().NoError(err)

	trail, err := s.auditStore.ListByEntity(context.Background(), entity.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal("req-7f3a", trail[0].RequestID)
	s.Equal(fixed, trail[0].CreatedAt)
	s.Equal(s.owner, trail[0].ActorID)
}

func (s *EngineSuite) TestReviewQueue() {
	first := s.submittedEntity()
	second := s.submittedEntity()

	org, err := s.service.CreateEntity(context.Background(), id.KindOrganization, s.owner, models.Profile{Name: "Relief Works", ContactEmail: "info@relief.example"})
	s.Require().NoError(err)
	s.verifyEmail(org.ID)
	for _, docType := range document.DefaultRequiredSets()[id.KindOrganization] {
		_, err := s.service.UploadDocument(context.Background(), org.ID, docType, []byte("pdf"))
		s.Require().NoError(err)
	}
	_, err = s.service.SubmitForReview(context.Background(), org.ID, s.owner)
	s.Require().NoError(err)

	s.Run("oldest submission first", func() {
		queue, err := s.service.ListPending(context.Background(), "")
		s.Require().NoError(err)
		s.Require().Len(queue, 3)
		s.Equal(first.ID, queue[0].ID)
		s.Equal(second.ID, queue[1].ID)
	})

	s.Run("kind filter", func() {
		queue, err := s.service.ListPending(context.Background(), id.KindOrganization)
		s.Require().NoError(err)
		s.Require().Len(queue, 1)
		s.Equal(org.ID, queue[0].ID)
	})

	s.Run("invalid kind", func() {
		_, err := s.service.ListPending(context.Background(), id.EntityKind("charity"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("decided entities leave the queue", func() {
		_, err := s.service.Decide(context.Background(), first.ID, s.admin, models.OutcomeApprove, "")
		s.Require().NoError(err)
		queue, err := s.service.ListPending(context.Background(), "")
		s.Require().NoError(err)
		s.Len(queue, 2)
	})
}

func (s *EngineSuite) TestGetEntityDetail() {
	entity := s.createEntity(id.KindInstitution)
	_, err := s.service.UploadDocument(context.Background(), entity.ID, document.TypeTaxCertificate, []byte("pdf"))
	s.Require().NoError(err)

	detail, err := s.service.GetEntityDetail(context.Background(), entity.ID)
	s.Require().NoError(err)
	s.False(detail.DocumentsSubmitted)
	s.Len(detail.Documents, 1)
	s.Len(detail.MissingDocuments, 3)
	s.Len(detail.Trail, 2)

	s.uploadAll(entity)
	detail, err = s.service.GetEntityDetail(context.Background(), entity.ID)
	s.Require().NoError(err)
	s.True(detail.DocumentsSubmitted)
	s.Empty(detail.MissingDocuments)
}

// TestRandomizedSequencesKeepTrailLegal throws randomized operation sequences
// at the engine and replays every resulting audit trail against the status
// machine. Guards may reject individual operations; whatever lands in the
// trail must walk only legal edges, and the final entity state must agree
// with the replay.
func (s *EngineSuite) TestRandomizedSequencesKeepTrailLegal() {
	const (
		seeds        = 25
		opsPerSeed   = 40
		rejectionMsg = "missing paperwork"
	)

	for seed := int64(0); seed < seeds; seed++ {
		s.Run(fmt.Sprintf("seed_%d", seed), func() {
			ctx := context.Background()
			rng := rand.New(rand.NewSource(seed))

			kind := id.KindInstitution
			if rng.Intn(2) == 1 {
				kind = id.KindOrganization
			}
			entity := s.createEntity(kind)
			docTypes := document.DefaultRequiredSets()[kind]

			var plaintext string
			for op := 0; op < opsPerSeed; op++ {
				switch rng.Intn(8) {
				case 0:
					if issued, err := s.service.RequestEmailVerification(ctx, entity.ID); err == nil {
						plaintext = issued
					}
				case 1:
					if plaintext != "" {
						if _, err := s.service.ConfirmEmailVerification(ctx, entity.ID, plaintext); err == nil {
							plaintext = ""
						}
					}
				case 2:
					_, _ = s.service.ConfirmEmailVerification(ctx, entity.ID, "not-a-token")
				case 3, 4:
					docType := docTypes[rng.Intn(len(docTypes))]
					_, _ = s.service.UploadDocument(ctx, entity.ID, docType, []byte("pdf bytes"))
				case 5:
					_, _ = s.service.SubmitForReview(ctx, entity.ID, s.owner)
				case 6:
					_, _ = s.service.Decide(ctx, entity.ID, s.admin, models.OutcomeApprove, "")
				case 7:
					_, _ = s.service.Decide(ctx, entity.ID, s.admin, models.OutcomeReject, rejectionMsg)
				}
			}

			trail, err := s.auditStore.ListByEntity(ctx, entity.ID)
			s.Require().NoError(err)
			s.Require().NotEmpty(trail)

			status := models.StatusPending
			emailVerified := false
			for i, entry := range trail {
				switch entry.Action {
				case audit.ActionCreated:
					s.Zero(i, "created must open the trail")
				case audit.ActionEmailVerificationSent:
					s.False(emailVerified, "no token issuance after the address is confirmed")
				case audit.ActionEmailVerified:
					s.False(emailVerified, "email confirms at most once")
					s.Require().True(status.CanTransitionTo(models.StatusEmailVerified),
						"illegal edge %s -> %s at trail index %d", status, models.StatusEmailVerified, i)
					status = models.StatusEmailVerified
					emailVerified = true
				case audit.ActionDocumentUploaded:
					switch status {
					case models.StatusPending, models.StatusEmailVerified, models.StatusRejected:
					default:
						s.Failf("illegal upload", "upload recorded while %s at trail index %d", status, i)
					}
				case audit.ActionSubmittedForReview:
					s.True(emailVerified, "submission recorded before email confirmation")
					s.Require().True(status.CanTransitionTo(models.StatusSubmitted),
						"illegal edge %s -> %s at trail index %d", status, models.StatusSubmitted, i)
					status = models.StatusSubmitted
				case audit.ActionApproved:
					s.Require().True(status.CanTransitionTo(models.StatusVerified),
						"illegal edge %s -> %s at trail index %d", status, models.StatusVerified, i)
					status = models.StatusVerified
				case audit.ActionRejected:
					s.Require().True(status.CanTransitionTo(models.StatusRejected),
						"illegal edge %s -> %s at trail index %d", status, models.StatusRejected, i)
					status = models.StatusRejected
				default:
					s.Failf("unknown action", "action %q at trail index %d", entry.Action, i)
				}
			}

			final, err := s.service.GetEntity(ctx, entity.ID)
			s.Require().NoError(err)
			s.Equal(status, final.Status, "trail replay must land on the stored status")
			s.Equal(emailVerified, final.EmailVerified)

			if final.Status == models.StatusVerified {
				s.True(final.DocumentsVerified)
				detail, err := s.service.GetEntityDetail(ctx, entity.ID)
				s.Require().NoError(err)
				s.True(detail.DocumentsSubmitted, "verified requires every required document stored")
			}
			if final.Status == models.StatusSubmitted || final.Status == models.StatusVerified {
				s.True(final.EmailVerified)
			}
		})
	}
}

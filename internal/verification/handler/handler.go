// Package handler wires the verification engine to HTTP. Handlers stay thin:
// decode, authorize, delegate, translate errors.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verdeck/internal/document"
	"verdeck/internal/verification/models"
	"verdeck/internal/verification/service"
	id "verdeck/pkg/domain"
	dErrors "verdeck/pkg/domain-errors"
	"verdeck/pkg/platform/audit"
	"verdeck/pkg/platform/httputil"
	"verdeck/pkg/requestcontext"
)

// Service is the engine surface the handlers need.
type Service interface {
	CreateEntity(ctx context.Context, kind id.EntityKind, ownerID id.ActorID, profile models.Profile) (*models.Entity, error)
	UpdateProfile(ctx context.Context, entityID id.EntityID, profile models.Profile) (*models.Entity, error)
	RequestEmailVerification(ctx context.Context, entityID id.EntityID) (string, error)
	ConfirmEmailVerification(ctx context.Context, entityID id.EntityID, token string) (*models.Entity, error)
	UploadDocument(ctx context.Context, entityID id.EntityID, docType document.Type, content []byte) (document.Record, error)
	SubmitForReview(ctx context.Context, entityID id.EntityID, actorID id.ActorID) (*models.Entity, error)
	Decide(ctx context.Context, entityID id.EntityID, adminID id.ActorID, outcome models.Outcome, notes string) (*models.Entity, error)
	GetEntity(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
	GetEntityDetail(ctx context.Context, entityID id.EntityID) (*service.EntityDetail, error)
	ListAuditTrail(ctx context.Context, entityID id.EntityID) ([]audit.Entry, error)
	ListPending(ctx context.Context, kind id.EntityKind) ([]*models.Entity, error)
}

// Handler serves both the owner-facing and administrator-facing surfaces.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the owner-facing endpoints. The router is expected to have
// run the bearer-auth middleware already.
func (h *Handler) Register(r chi.Router) {
	r.Post("/entities", h.handleCreateEntity)
	r.Get("/entities/{entityID}", h.handleGetEntity)
	r.Patch("/entities/{entityID}", h.handleUpdateProfile)
	r.Post("/entities/{entityID}/email-verification", h.handleRequestEmailVerification)
	r.Post("/entities/{entityID}/documents", h.handleUploadDocument)
	r.Post("/entities/{entityID}/submit", h.handleSubmitForReview)
	r.Get("/entities/{entityID}/audit", h.handleListAudit)
}

// RegisterPublic mounts the endpoints reachable without a bearer token. The
// confirm endpoint lives here because it is followed from an email link and
// the verification token is the credential.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/entities/{entityID}/email-verification/confirm", h.handleConfirmEmailVerification)
}

// RegisterAdmin mounts the administrator endpoints; the admin-token
// middleware guards the group.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/review-queue", h.handleReviewQueue)
	r.Get("/admin/entities/{entityID}", h.handleAdminEntityDetail)
	r.Post("/admin/entities/{entityID}/decision", h.handleDecide)
}

func (h *Handler) entityID(w http.ResponseWriter, r *http.Request) (id.EntityID, bool) {
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EntityID{}, false
	}
	return entityID, true
}

// requireOwner checks that the authenticated actor owns the entity. Admins
// go through their own surface; this keeps one owner from poking another's
// onboarding.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request, entityID id.EntityID) (id.ActorID, bool) {
	actorID := requestcontext.ActorID(r.Context())
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ActorID{}, false
	}
	entity, err := h.service.GetEntity(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return id.ActorID{}, false
	}
	if entity.OwnerID != actorID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "entity belongs to a different owner"))
		return id.ActorID{}, false
	}
	return actorID, true
}

func (h *Handler) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.Decode[createEntityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	kind, err := id.ParseEntityKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entity, err := h.service.CreateEntity(ctx, kind, actorID, req.Profile)
	if err != nil {
		h.logger.WarnContext(ctx, "create entity failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromEntity(entity))
}

func (h *Handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireOwner(w, r, entityID); !ok {
		return
	}
	detail, err := h.service.GetEntityDetail(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDetail(detail))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireOwner(w, r, entityID); !ok {
		return
	}
	req, ok := httputil.Decode[updateProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	entity, err := h.service.UpdateProfile(ctx, entityID, req.Profile)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEntity(entity))
}

func (h *Handler) handleRequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireOwner(w, r, entityID); !ok {
		return
	}
	// The token travels only through the notification channel, never the
	// API response.
	if _, err := h.service.RequestEmailVerification(ctx, entityID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "verification_sent"})
}

func (h *Handler) handleConfirmEmailVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[confirmEmailRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.Token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "token is required"))
		return
	}
	entity, err := h.service.ConfirmEmailVerification(ctx, entityID, req.Token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEntity(entity))
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireOwner(w, r, entityID); !ok {
		return
	}
	req, ok := httputil.Decode[uploadDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	content, err := req.DecodeContent()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.service.UploadDocument(ctx, entityID, document.Type(req.DocumentType), content)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromRecord(record))
}

func (h *Handler) handleSubmitForReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	actorID, ok := h.requireOwner(w, r, entityID)
	if !ok {
		return
	}
	entity, err := h.service.SubmitForReview(ctx, entityID, actorID)
	if err != nil {
		h.logger.InfoContext(ctx, "submission blocked",
			"request_id", requestcontext.RequestID(ctx),
			"entity_id", entityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEntity(entity))
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireOwner(w, r, entityID); !ok {
		return
	}
	trail, err := h.service.ListAuditTrail(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromTrail(trail))
}

package handler

import (
	"net/http"

	"verdeck/internal/verification/models"
	id "verdeck/pkg/domain"
	dErrors "verdeck/pkg/domain-errors"
	"verdeck/pkg/platform/httputil"
	"verdeck/pkg/requestcontext"
)

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !requestcontext.IsAdmin(r.Context()) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator access required"))
		return false
	}
	return true
}

func (h *Handler) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var kind id.EntityKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		parsed, err := id.ParseEntityKind(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		kind = parsed
	}
	entities, err := h.service.ListPending(r.Context(), kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromQueue(entities))
}

func (h *Handler) handleAdminEntityDetail(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetEntityDetail(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDetail(detail))
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	adminID := requestcontext.ActorID(ctx)
	if adminID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	entityID, ok := h.entityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[decisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	outcome, err := models.ParseOutcome(req.Outcome)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entity, err := h.service.Decide(ctx, entityID, adminID, outcome, req.Notes)
	if err != nil {
		h.logger.InfoContext(ctx, "decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"entity_id", entityID,
			"outcome", outcome,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEntity(entity))
}

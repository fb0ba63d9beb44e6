package testutil

import (
	"net/http"
	"time"

	id "verdeck/pkg/domain"
	"verdeck/pkg/requestcontext"
)

// WithActor adds an actor ID to the request context.
// This simulates what the auth middleware would do for authenticated
// requests. An invalid UUID is silently ignored.
func WithActor(req *http.Request, actorID string) *http.Request {
	parsed, err := id.ParseActorID(actorID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithActorID(req.Context(), parsed))
}

// WithAdmin marks the request context as carrying an authenticated
// administrator, as the admin-token middleware would.
func WithAdmin(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithAdmin(req.Context()))
}

// WithRequestTime pins the request-scoped time, as the requesttime
// middleware would at the start of a request.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
	"github.com/strv-go/newsletter-publisher/internal/repository"
	"github.com/strv-go/newsletter-publisher/internal/session"
)

// Dependencies is the immutable set of collaborators every handler is built
// from: one instance is constructed once in main and shared by pointer,
// mirroring the teacher's RouterDependencies shape.
type Dependencies struct {
	Subscriptions *repository.SubscriptionStore
	Idempotency   *repository.IdempotencyStore
	Issues        *repository.IssuePublisher
	Users         *repository.UserStore
	Sessions      *session.Store
	Templates     *Templates
	Logger        *zap.SugaredLogger
}

// errorResponse is a standard JSON error body. Unlike the teacher's
// JSONErrorSecure, 5xx responses never echo the underlying error text —
// spec error-handling policy requires a generic message on the wire while
// the full chain is logged server-side.
type errorResponse struct {
	Message string `json:"message"`
}

// writeError logs err at the level its classification implies and writes a
// generic (for 5xx) or descriptive (for 4xx) JSON error body.
func (d *Dependencies) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	status := apperrors.ErrorToHTTPStatus(err)

	switch {
	case apperrors.IsValidation(err), apperrors.IsBadRequest(err):
		d.Logger.Infow(operation, "path", r.URL.Path, "status", status, "error", err)
	case apperrors.IsNotFound(err):
		d.Logger.Warnw(operation, "path", r.URL.Path, "status", status, "error", err)
	case apperrors.IsConflict(err):
		d.Logger.Warnw(operation, "path", r.URL.Path, "status", status, "error", err)
	default:
		d.Logger.Errorw(operation, "path", r.URL.Path, "status", status, "error", err)
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: message})
}

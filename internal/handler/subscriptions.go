package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
	"github.com/strv-go/newsletter-publisher/internal/domain"
)

type subscribeResponse struct {
	ID string `json:"id"`
}

// Subscribe implements POST /subscriptions: validate the form, then hand off
// to the subscription store for the atomic subscriber+token+email write.
func (d *Dependencies) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		d.writeError(w, r, apperrors.WrapValidation(err, "could not parse form"), "subscribe")
		return
	}

	name, err := domain.ParseUserName(r.FormValue("username"))
	if err != nil {
		d.writeError(w, r, err, "subscribe")
		return
	}
	email, err := domain.ParseEmail(r.FormValue("email"))
	if err != nil {
		d.writeError(w, r, err, "subscribe")
		return
	}

	id, err := d.Subscriptions.Subscribe(r.Context(), name.String(), email.String())
	if err != nil {
		d.writeError(w, r, err, "subscribe")
		return
	}

	body, _ := json.Marshal(subscribeResponse{ID: id})
	newJSONResult(http.StatusCreated, body).write(w)
}

// ConfirmSubscription implements GET /subscriptions/confirm?token=…. 400 if
// the token parameter is absent or unknown, 200 otherwise. Idempotent.
func (d *Dependencies) ConfirmSubscription(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		d.writeError(w, r, apperrors.ErrMissingToken, "confirm subscription")
		return
	}

	if err := d.Subscriptions.Confirm(r.Context(), token); err != nil {
		// An unknown token is a 400 here, not the 404 apperrors.ErrTokenNotFound
		// would otherwise map to elsewhere in the API.
		if apperrors.IsNotFound(err) {
			d.writeError(w, r, apperrors.WrapValidation(err, "unknown confirmation token"), "confirm subscription")
			return
		}
		d.writeError(w, r, err, "confirm subscription")
		return
	}

	newJSONResult(http.StatusOK, []byte(`{"status":"confirmed"}`)).write(w)
}

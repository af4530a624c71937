package handler

import (
	"net/http"

	"github.com/strv-go/newsletter-publisher/internal/domain"
	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
	"github.com/strv-go/newsletter-publisher/internal/middleware"
	"github.com/strv-go/newsletter-publisher/internal/models"
)

// Home implements GET /: an unauthenticated landing page.
func (d *Dependencies) Home(w http.ResponseWriter, r *http.Request) {
	newHTMLResult(http.StatusOK, d.Templates.Render("home", nil)).write(w)
}

// Dashboard implements GET /admin/dashboard, behind the session gate.
func (d *Dependencies) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	newHTMLResult(http.StatusOK, d.Templates.Render("dashboard", map[string]string{"UserID": userID})).write(w)
}

// NewslettersPage implements GET /admin/newsletters, behind the session gate.
func (d *Dependencies) NewslettersPage(w http.ResponseWriter, r *http.Request) {
	flash := d.readFlash(r)
	newHTMLResult(http.StatusOK, d.Templates.Render("newsletters", map[string]string{"Flash": flash})).write(w)
}

// PublishNewsletter implements POST /admin/newsletters (C7): claim the
// idempotency key, publish the issue and enqueue its fanout inside the
// claimed transaction, then save+commit the response so replays return the
// identical bytes.
func (d *Dependencies) PublishNewsletter(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		d.writeError(w, r, apperrors.WrapValidation(err, "could not parse form"), "publish newsletter")
		return
	}

	key, err := domain.ParseIdempotencyKey(r.FormValue("idempotency_key"))
	if err != nil {
		d.writeError(w, r, err, "publish newsletter")
		return
	}

	title := r.FormValue("title")
	textContent := r.FormValue("text_content")
	htmlContent := r.FormValue("html_content")

	tx, saved, err := d.Idempotency.TryProcessing(r.Context(), userID, key.String())
	if err != nil {
		d.writeError(w, r, err, "publish newsletter")
		return
	}
	if saved != nil {
		writeSavedResponse(w, saved.StatusCode, saved.Headers, saved.Body)
		return
	}

	if _, _, err := d.Issues.Publish(r.Context(), tx, title, textContent, htmlContent); err != nil {
		tx.Rollback(r.Context())
		d.writeError(w, r, err, "publish newsletter")
		return
	}

	location := "/admin/newsletters"
	cookie := flashCookie("The newsletter issue has been published!")
	headers := []models.HeaderPair{
		{Name: "Set-Cookie", Value: []byte(cookie.String())},
		{Name: "Location", Value: []byte(location)},
	}

	if err := d.Idempotency.SaveResponse(r.Context(), tx, userID, key.String(), http.StatusSeeOther, headers, nil); err != nil {
		d.writeError(w, r, err, "publish newsletter")
		return
	}

	writeSavedResponse(w, http.StatusSeeOther, headers, nil)
}

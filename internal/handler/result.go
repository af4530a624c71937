// Package handler implements the HTTP surface from the external interfaces
// table: health check, subscription/confirmation, session login/logout,
// admin dashboard/password/newsletters.
package handler

import (
	"net/http"

	"github.com/strv-go/newsletter-publisher/internal/models"
)

// result is the redirect-as-value pattern replacing the source's
// exception-style redirect: a handler returns one of these instead of
// writing directly, so both a JSON body and a 303 redirect are ordinary
// return values rather than one being a short-circuiting error.
type result interface {
	write(w http.ResponseWriter) (statusCode int, headers []models.HeaderPair, body []byte)
}

type jsonResult struct {
	code int
	body []byte
}

func newJSONResult(code int, body []byte) jsonResult {
	return jsonResult{code: code, body: body}
}

func (r jsonResult) write(w http.ResponseWriter) (int, []models.HeaderPair, []byte) {
	const contentType = "application/json; charset=utf-8"
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(r.code)
	w.Write(r.body)
	return r.code, []models.HeaderPair{{Name: "Content-Type", Value: []byte(contentType)}}, r.body
}

type htmlResult struct {
	code int
	body []byte
}

func newHTMLResult(code int, body []byte) htmlResult {
	return htmlResult{code: code, body: body}
}

func (r htmlResult) write(w http.ResponseWriter) (int, []models.HeaderPair, []byte) {
	const contentType = "text/html; charset=utf-8"
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(r.code)
	w.Write(r.body)
	return r.code, []models.HeaderPair{{Name: "Content-Type", Value: []byte(contentType)}}, r.body
}

// redirectResult models a 303 response carrying optional cookies (used for
// the `_flash` one-shot message).
type redirectResult struct {
	location string
	cookies  []*http.Cookie
}

func newRedirect(location string, cookies ...*http.Cookie) redirectResult {
	return redirectResult{location: location, cookies: cookies}
}

func (r redirectResult) write(w http.ResponseWriter) (int, []models.HeaderPair, []byte) {
	headers := make([]models.HeaderPair, 0, len(r.cookies)+1)
	for _, c := range r.cookies {
		w.Header().Add("Set-Cookie", c.String())
		headers = append(headers, models.HeaderPair{Name: "Set-Cookie", Value: []byte(c.String())})
	}
	w.Header().Set("Location", r.location)
	headers = append(headers, models.HeaderPair{Name: "Location", Value: []byte(r.location)})
	w.WriteHeader(http.StatusSeeOther)
	return http.StatusSeeOther, headers, nil
}

// flashCookie builds the literal `_flash` cookie contract: Max-Age=1,
// Secure, HttpOnly.
func flashCookie(message string) *http.Cookie {
	return &http.Cookie{
		Name:     "_flash",
		Value:    message,
		MaxAge:   1,
		Secure:   true,
		HttpOnly: true,
		Path:     "/",
	}
}

// writeSavedResponse replays a previously completed idempotent response
// byte-for-byte, including headers.
func writeSavedResponse(w http.ResponseWriter, statusCode int, headers []models.HeaderPair, body []byte) {
	for _, h := range headers {
		w.Header().Add(h.Name, string(h.Value))
	}
	w.WriteHeader(statusCode)
	w.Write(body)
}

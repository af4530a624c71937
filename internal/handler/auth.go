package handler

import (
	"context"
	"net/http"

	"github.com/strv-go/newsletter-publisher/internal/password"
	"github.com/strv-go/newsletter-publisher/internal/session"
)

// LoginPage implements GET /login: renders the login form, surfacing any
// pending flash message from a just-completed redirect.
func (d *Dependencies) LoginPage(w http.ResponseWriter, r *http.Request) {
	flash := d.readFlash(r)
	newHTMLResult(http.StatusOK, d.Templates.Render("login", map[string]string{"Flash": flash})).write(w)
}

// Login implements POST /login: validate credentials via C2, renew the
// session to defeat fixation, and redirect to the dashboard on success or
// back to /login with a flash on failure.
func (d *Dependencies) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		d.redirectWithFlash(w, r, "/login", "Authentication failed")
		return
	}

	username := r.FormValue("username")
	pass := r.FormValue("password")

	userID, err := password.ValidateCredentials(r.Context(), username, pass, d.lookupUser)
	if err != nil {
		d.Logger.Infow("login failed", "username", username, "error", err)
		d.redirectWithFlash(w, r, "/login", "Authentication failed")
		return
	}

	sessionID, err := d.sessionIDFromRequest(r)
	if err != nil {
		sessionID, err = session.NewSessionID()
		if err != nil {
			d.writeError(w, r, err, "login")
			return
		}
	} else {
		sessionID, err = d.Sessions.Renew(r.Context(), sessionID)
		if err != nil {
			d.writeError(w, r, err, "login")
			return
		}
	}

	if err := d.Sessions.SetUserID(r.Context(), sessionID, userID); err != nil {
		d.writeError(w, r, err, "login")
		return
	}

	newRedirect("/admin/dashboard", &http.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	}).write(w)
}

// Logout implements POST /logout: requires an authenticated session
// (enforced by middleware.RequireSession), purges it, and redirects to
// /login with a flash.
func (d *Dependencies) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err == nil {
		if purgeErr := d.Sessions.Purge(r.Context(), cookie.Value); purgeErr != nil {
			d.Logger.Warnw("logout: purge session", "error", purgeErr)
		}
	}
	d.redirectWithFlash(w, r, "/login", "You have successfully logged out")
}

func (d *Dependencies) lookupUser(ctx context.Context, username string) (userID, passwordHashed string, err error) {
	u, err := d.Users.GetByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	return u.ID, u.PasswordHashed, nil
}

func (d *Dependencies) sessionIDFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// redirectWithFlash is shared by every handler that replies with a 303 plus
// a one-shot `_flash` message.
func (d *Dependencies) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, message string) {
	newRedirect(location, flashCookie(message)).write(w)
}

// readFlash reads the `_flash` cookie value verbatim, used by GET handlers
// that render it inside the page (e.g. `<p><i>…</i></p>` on /login).
func (d *Dependencies) readFlash(r *http.Request) string {
	cookie, err := r.Cookie("_flash")
	if err != nil {
		return ""
	}
	return cookie.Value
}

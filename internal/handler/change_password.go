package handler

import (
	"net/http"

	"github.com/strv-go/newsletter-publisher/internal/middleware"
	"github.com/strv-go/newsletter-publisher/internal/password"
)

const (
	minNewPasswordLength = 12
	maxNewPasswordLength = 128
)

// PasswordPage implements GET /admin/password: renders the change-password
// form, behind the session gate.
func (d *Dependencies) PasswordPage(w http.ResponseWriter, r *http.Request) {
	flash := d.readFlash(r)
	newHTMLResult(http.StatusOK, d.Templates.Render("password", map[string]string{"Flash": flash})).write(w)
}

// ChangePassword implements POST /admin/password: requires the current
// password, rejects a too-short/too-long or mismatched new password, and
// always replies with a 303 + flash — success and failure alike.
func (d *Dependencies) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		d.redirectWithFlash(w, r, "/admin/password", "Could not parse form")
		return
	}

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	newPasswordCheck := r.FormValue("new_password_check")

	if len(newPassword) < minNewPasswordLength || len(newPassword) > maxNewPasswordLength {
		d.redirectWithFlash(w, r, "/admin/password",
			"New password must be between 12 and 128 characters long")
		return
	}
	if newPassword != newPasswordCheck {
		d.redirectWithFlash(w, r, "/admin/password", "New passwords do not match")
		return
	}

	user, err := d.Users.GetByID(r.Context(), userID)
	if err != nil {
		d.writeError(w, r, err, "change password")
		return
	}

	ok, err := password.Verify(user.PasswordHashed, currentPassword)
	if err != nil {
		d.writeError(w, r, err, "change password")
		return
	}
	if !ok {
		d.redirectWithFlash(w, r, "/admin/password", "The current password is incorrect")
		return
	}

	salt, err := password.NewSalt()
	if err != nil {
		d.writeError(w, r, err, "change password")
		return
	}
	hashed, err := password.Hash(newPassword, salt)
	if err != nil {
		d.writeError(w, r, err, "change password")
		return
	}

	if err := d.Users.UpdatePassword(r.Context(), userID, hashed, salt); err != nil {
		d.writeError(w, r, err, "change password")
		return
	}

	d.redirectWithFlash(w, r, "/admin/password", "Your password has been changed.")
}

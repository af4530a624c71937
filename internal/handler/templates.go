package handler

import (
	"bytes"
	"html/template"
)

// Templates renders the handful of admin/auth pages named in spec.md §6.
// Out of scope per spec.md §1 ("HTML template rendering for admin pages");
// kept minimal, just enough to exercise the `_flash` cookie contract from
// spec.md §8 scenario 4 (`<p><i>…</i></p>`).
type Templates struct {
	set *template.Template
}

const pageSource = `
{{define "home"}}<html><body><h1>Newsletter</h1><p><a href="/login">Admin login</a></p></body></html>{{end}}

{{define "login"}}<html><body><h1>Log in</h1>
{{if .Flash}}<p><i>{{.Flash}}</i></p>{{end}}
<form method="POST" action="/login">
<input type="text" name="username">
<input type="password" name="password">
<button type="submit">Log in</button>
</form></body></html>{{end}}

{{define "dashboard"}}<html><body><h1>Dashboard</h1><p>Welcome, {{.UserID}}</p></body></html>{{end}}

{{define "password"}}<html><body><h1>Change password</h1>
{{if .Flash}}<p><i>{{.Flash}}</i></p>{{end}}
<form method="POST" action="/admin/password">
<input type="password" name="current_password">
<input type="password" name="new_password">
<input type="password" name="new_password_check">
<button type="submit">Change password</button>
</form></body></html>{{end}}

{{define "newsletters"}}<html><body><h1>Publish newsletter</h1>
{{if .Flash}}<p><i>{{.Flash}}</i></p>{{end}}
<form method="POST" action="/admin/newsletters">
<input type="text" name="title">
<textarea name="text_content"></textarea>
<textarea name="html_content"></textarea>
<input type="text" name="idempotency_key">
<button type="submit">Publish</button>
</form></body></html>{{end}}
`

// NewTemplates parses the fixed set of page templates.
func NewTemplates() (*Templates, error) {
	set, err := template.New("pages").Parse(pageSource)
	if err != nil {
		return nil, err
	}
	return &Templates{set: set}, nil
}

// Render executes the named template, returning an empty-page body if
// rendering somehow fails (the template set is fixed and parsed at startup,
// so this should never happen in practice).
func (t *Templates) Render(name string, data interface{}) []byte {
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return []byte{}
	}
	return buf.Bytes()
}

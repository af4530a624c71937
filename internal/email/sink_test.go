package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsPostmarkShapedBody(t *testing.T) {
	var captured sendEmailRequest
	var gotToken, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := New(Config{
		APIBaseURL:         server.URL,
		SenderEmail:        "newsletter@example.com",
		AuthorizationToken: "tok-123",
	})

	status, err := sink.Send(context.Background(), "bar@qq.com", "subj", "<p>hi</p>", "hi")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/email", gotPath)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, "newsletter@example.com", captured.From)
	assert.Equal(t, "bar@qq.com", captured.To)
	assert.Equal(t, "subj", captured.Subject)
	assert.Equal(t, "<p>hi</p>", captured.HtmlBody)
	assert.Equal(t, "hi", captured.TextBody)
}

func TestSendSurfacesServerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := New(Config{APIBaseURL: server.URL, SenderEmail: "a@b.com", AuthorizationToken: "t"})

	status, err := sink.Send(context.Background(), "c@d.com", "s", "<p>x</p>", "x")
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

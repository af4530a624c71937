// Package email is the outbound email sink adapter: it serializes an
// outbound message and submits it to an external HTTP-based email provider
// with a bounded timeout.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// sendEmailRequest mirrors the Postmark-style API body. Field names are
// PascalCase because the upstream provider dictates the wire shape.
type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Sink submits outbound email over HTTP to a Postmark-compatible API.
type Sink struct {
	httpClient          *http.Client
	apiBaseURL          string
	senderEmail         string
	authorizationToken  string
}

// Config configures a Sink.
type Config struct {
	APIBaseURL          string
	SenderEmail         string
	AuthorizationToken  string
	TimeoutMilliseconds int
}

// New builds a Sink with a single long-lived HTTP client bound to a
// per-request timeout (default 10s if unset).
func New(cfg Config) *Sink {
	timeout := defaultTimeout
	if cfg.TimeoutMilliseconds > 0 {
		timeout = time.Duration(cfg.TimeoutMilliseconds) * time.Millisecond
	}
	return &Sink{
		httpClient:         &http.Client{Timeout: timeout},
		apiBaseURL:         cfg.APIBaseURL,
		senderEmail:        cfg.SenderEmail,
		authorizationToken: cfg.AuthorizationToken,
	}
}

// Send submits one message. Any HTTP status >= 400 is surfaced as an error.
func (s *Sink) Send(ctx context.Context, to, subject, htmlBody, textBody string) (int, error) {
	body, err := json.Marshal(sendEmailRequest{
		From:     s.senderEmail,
		To:       to,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return 0, fmt.Errorf("email: Send: marshal body: %w", err)
	}

	url := s.apiBaseURL + "/email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("email: Send: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.authorizationToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("email: Send: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("email: Send: provider returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

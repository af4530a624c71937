package repository

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
	"github.com/strv-go/newsletter-publisher/internal/models"
)

//go:embed queries/idempotency/try_processing.sql
var tryProcessingQuery string

//go:embed queries/idempotency/get_saved_response.sql
var getSavedResponseQuery string

//go:embed queries/idempotency/save_response.sql
var saveResponseQuery string

const (
	replayPollInterval = 50 * time.Millisecond
	replayPollAttempts  = 100
)

// jsonHeaderPair is the JSON-on-the-wire shape for models.HeaderPair; Value
// is base64 text since bytea has no natural JSON representation.
type jsonHeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SavedResponse is a previously completed response, reconstructed for replay.
type SavedResponse struct {
	StatusCode int
	Headers    []models.HeaderPair
	Body       []byte
}

// IdempotencyStore implements C6: the claim-or-replay primitive keyed by
// (user_id, idempotency_key).
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore builds an IdempotencyStore.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// TryProcessing attempts to claim (userID, key). If it wins the race, it
// returns an open transaction the caller must use for every effect-write and
// must finish with SaveResponse (or roll back on failure). If it loses the
// race, it returns the other request's completed response once that
// request's transaction has committed, polling with a short backoff.
func (s *IdempotencyStore) TryProcessing(ctx context.Context, userID, key string) (tx pgx.Tx, saved *SavedResponse, err error) {
	claimTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("idempotency store: TryProcessing: begin: %w", err)
	}

	cmdTag, err := claimTx.Exec(ctx, tryProcessingQuery, userID, key)
	if err != nil {
		claimTx.Rollback(ctx)
		return nil, nil, fmt.Errorf("idempotency store: TryProcessing: claim insert: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		// We won the race; the caller now owns claimTx.
		return claimTx, nil, nil
	}

	// We lost the race. This transaction has nothing left to do.
	claimTx.Rollback(ctx)

	resp, err := s.waitForCompletedResponse(ctx, userID, key)
	if err != nil {
		return nil, nil, fmt.Errorf("idempotency store: TryProcessing: %w", err)
	}
	return nil, resp, nil
}

// waitForCompletedResponse polls GetSavedResponse until the winning
// request's transaction commits a completed record, or ctx/attempts are
// exhausted.
func (s *IdempotencyStore) waitForCompletedResponse(ctx context.Context, userID, key string) (*SavedResponse, error) {
	for attempt := 0; attempt < replayPollAttempts; attempt++ {
		resp, err := s.GetSavedResponse(ctx, userID, key)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(replayPollInterval):
		}
	}
	return nil, fmt.Errorf("%w: timed out waiting for concurrent idempotent request to complete", apperrors.ErrTransient)
}

// GetSavedResponse is a read-only lookup; it returns (nil, nil) when the
// record is absent or still a claim in progress (not yet completed).
func (s *IdempotencyStore) GetSavedResponse(ctx context.Context, userID, key string) (*SavedResponse, error) {
	var statusCode *int16
	var headersJSON []byte
	var body []byte

	err := s.pool.QueryRow(ctx, getSavedResponseQuery, userID, key).Scan(&statusCode, &headersJSON, &body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency store: GetSavedResponse: %w", err)
	}
	if statusCode == nil {
		return nil, nil // claim row, still in progress
	}

	headers, err := decodeHeaders(headersJSON)
	if err != nil {
		return nil, fmt.Errorf("idempotency store: GetSavedResponse: decode headers: %w", err)
	}

	return &SavedResponse{StatusCode: int(*statusCode), Headers: headers, Body: body}, nil
}

// SaveResponse writes the completed response into the caller's open
// transaction and commits it. The transaction was obtained from
// TryProcessing and must carry every effect-write issued by the caller.
func (s *IdempotencyStore) SaveResponse(ctx context.Context, tx pgx.Tx, userID, key string, statusCode int, headers []models.HeaderPair, body []byte) error {
	headersJSON, err := encodeHeaders(headers)
	if err != nil {
		return fmt.Errorf("idempotency store: SaveResponse: encode headers: %w", err)
	}

	if _, err := tx.Exec(ctx, saveResponseQuery, int16(statusCode), headersJSON, body, userID, key); err != nil {
		return fmt.Errorf("idempotency store: SaveResponse: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("idempotency store: SaveResponse: commit: %w", err)
	}
	return nil
}

func encodeHeaders(headers []models.HeaderPair) ([]byte, error) {
	wire := make([]jsonHeaderPair, 0, len(headers))
	for _, h := range headers {
		wire = append(wire, jsonHeaderPair{Name: h.Name, Value: base64.StdEncoding.EncodeToString(h.Value)})
	}
	return json.Marshal(wire)
}

func decodeHeaders(raw []byte) ([]models.HeaderPair, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire []jsonHeaderPair
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	headers := make([]models.HeaderPair, 0, len(wire))
	for _, w := range wire {
		value, err := base64.StdEncoding.DecodeString(w.Value)
		if err != nil {
			return nil, err
		}
		headers = append(headers, models.HeaderPair{Name: w.Name, Value: value})
	}
	return headers, nil
}

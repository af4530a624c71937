package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:embed queries/issue/insert_issue.sql
var insertIssueQuery string

//go:embed queries/issue/enqueue_deliveries.sql
var enqueueDeliveriesQuery string

// IssuePublisher implements C7: insert a newsletter issue and fan it out to
// every confirmed subscriber's delivery queue, inside the caller's
// idempotency transaction.
type IssuePublisher struct{}

// NewIssuePublisher builds an IssuePublisher.
func NewIssuePublisher() *IssuePublisher {
	return &IssuePublisher{}
}

// Publish inserts the issue and enqueues one delivery task per confirmed
// subscriber, all within tx (the transaction handed back by
// IdempotencyStore.TryProcessing). It never commits tx; the caller commits
// via IdempotencyStore.SaveResponse.
func (p *IssuePublisher) Publish(ctx context.Context, tx pgx.Tx, title, textContent, htmlContent string) (issueID string, publishedAt time.Time, err error) {
	issueID = uuid.NewString()
	if err := tx.QueryRow(ctx, insertIssueQuery, issueID, title, textContent, htmlContent).Scan(&publishedAt); err != nil {
		return "", time.Time{}, fmt.Errorf("issue publisher: Publish: insert issue: %w", err)
	}

	if _, err := tx.Exec(ctx, enqueueDeliveriesQuery, issueID); err != nil {
		return "", time.Time{}, fmt.Errorf("issue publisher: Publish: enqueue deliveries: %w", err)
	}

	return issueID, publishedAt, nil
}

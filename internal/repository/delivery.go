package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strv-go/newsletter-publisher/internal/models"
)

//go:embed queries/delivery/dequeue_task.sql
var dequeueTaskQuery string

//go:embed queries/delivery/get_issue.sql
var getIssueQuery string

//go:embed queries/delivery/delete_task.sql
var deleteTaskQuery string

// ErrEmptyQueue signals try_execute_task found no row to claim.
var ErrEmptyQueue = errors.New("delivery queue: empty")

// DeliveryQueue implements the row-locking dequeue primitives used by C8.
type DeliveryQueue struct {
	pool *pgxpool.Pool
}

// NewDeliveryQueue builds a DeliveryQueue.
func NewDeliveryQueue(pool *pgxpool.Pool) *DeliveryQueue {
	return &DeliveryQueue{pool: pool}
}

// Claim opens a transaction and claims one row with FOR UPDATE SKIP LOCKED.
// The caller must finish the transaction (Delete+Commit on success,
// Rollback on transient failure) to release the row lock.
func (q *DeliveryQueue) Claim(ctx context.Context) (tx pgx.Tx, task *models.IssueDeliveryTask, err error) {
	tx, err = q.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("delivery queue: Claim: begin: %w", err)
	}

	var t models.IssueDeliveryTask
	err = tx.QueryRow(ctx, dequeueTaskQuery).Scan(&t.NewsletterIssueID, &t.SubscriberEmail)
	if err != nil {
		tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrEmptyQueue
		}
		return nil, nil, fmt.Errorf("delivery queue: Claim: dequeue: %w", err)
	}

	return tx, &t, nil
}

// GetIssue loads the issue referenced by a claimed task, using the same
// transaction so the read is consistent with the lock held on the task row.
func (q *DeliveryQueue) GetIssue(ctx context.Context, tx pgx.Tx, issueID string) (*models.NewsletterIssue, error) {
	var issue models.NewsletterIssue
	err := tx.QueryRow(ctx, getIssueQuery, issueID).Scan(
		&issue.ID, &issue.Title, &issue.TextContent, &issue.HTMLContent, &issue.PublishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("delivery queue: GetIssue: %w", err)
	}
	return &issue, nil
}

// Delete removes the claimed task and commits, releasing the row lock.
func (q *DeliveryQueue) Delete(ctx context.Context, tx pgx.Tx, issueID, subscriberEmail string) error {
	if _, err := tx.Exec(ctx, deleteTaskQuery, issueID, subscriberEmail); err != nil {
		return fmt.Errorf("delivery queue: Delete: exec: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delivery queue: Delete: commit: %w", err)
	}
	return nil
}

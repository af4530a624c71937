// Package worker implements C8: the long-running delivery loop that drains
// issue_delivery_queue under row-level locks, grounded on the goroutine +
// context-cancellation shutdown idiom from the teacher's EmailWorker, but
// rebuilt around DB-polling with FOR UPDATE SKIP LOCKED rather than an
// in-process channel queue.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/strv-go/newsletter-publisher/internal/domain"
	"github.com/strv-go/newsletter-publisher/internal/email"
	"github.com/strv-go/newsletter-publisher/internal/repository"
)

const (
	emptyQueueSleep = 10 * time.Second
	errorSleep      = 1 * time.Second
)

type outcome int

const (
	outcomeTaskCompleted outcome = iota
	outcomeEmptyQueue
	outcomeError
)

// DeliveryWorker drains the delivery queue for the lifetime of the process.
type DeliveryWorker struct {
	queue  *repository.DeliveryQueue
	sink   *email.Sink
	logger *zap.SugaredLogger
}

// New builds a DeliveryWorker.
func New(queue *repository.DeliveryQueue, sink *email.Sink, logger *zap.SugaredLogger) *DeliveryWorker {
	return &DeliveryWorker{queue: queue, sink: sink, logger: logger}
}

// Run loops until ctx is cancelled, per the outcome table in spec.md §4.8.
func (w *DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch w.tryExecuteTask(ctx) {
		case outcomeTaskCompleted:
			continue
		case outcomeEmptyQueue:
			sleep(ctx, emptyQueueSleep)
		case outcomeError:
			sleep(ctx, errorSleep)
		}
	}
}

// tryExecuteTask implements one iteration: claim a task, load its issue,
// validate the recipient, send, and delete on success. A malformed
// recipient is a poison message — dropped rather than retried forever. A
// send failure rolls back so the row becomes visible again for a later
// attempt, by this or another worker instance.
func (w *DeliveryWorker) tryExecuteTask(ctx context.Context) outcome {
	tx, task, err := w.queue.Claim(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrEmptyQueue) {
			return outcomeEmptyQueue
		}
		w.logger.Errorw("delivery worker: claim failed", "error", err)
		return outcomeError
	}

	issue, err := w.queue.GetIssue(ctx, tx, task.NewsletterIssueID)
	if err != nil {
		tx.Rollback(ctx)
		w.logger.Errorw("delivery worker: issue referenced by delivery task is missing",
			"issueID", task.NewsletterIssueID, "error", err)
		return outcomeError
	}

	if _, err := domain.ParseEmail(task.SubscriberEmail); err != nil {
		w.logger.Warnw("delivery worker: dropping task with malformed recipient",
			"issueID", task.NewsletterIssueID, "email", task.SubscriberEmail)
		if delErr := w.queue.Delete(ctx, tx, task.NewsletterIssueID, task.SubscriberEmail); delErr != nil {
			w.logger.Errorw("delivery worker: drop malformed task failed", "error", delErr)
			return outcomeError
		}
		return outcomeTaskCompleted
	}

	if _, err := w.sink.Send(ctx, task.SubscriberEmail, issue.Title, issue.HTMLContent, issue.TextContent); err != nil {
		tx.Rollback(ctx)
		w.logger.Warnw("delivery worker: send failed, will retry",
			"issueID", task.NewsletterIssueID, "email", task.SubscriberEmail, "error", err)
		return outcomeError
	}

	if err := w.queue.Delete(ctx, tx, task.NewsletterIssueID, task.SubscriberEmail); err != nil {
		w.logger.Errorw("delivery worker: delete after send failed", "error", err)
		return outcomeError
	}

	return outcomeTaskCompleted
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

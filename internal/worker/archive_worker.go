// Package worker replicates written records into the SQLite archive and
// serves reporting reads from it. It consumes record events, fetches the
// full document from the primary store and hands it to the archive
// repository; the report handler answers per-user listings off the replica.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/store"
)

// RecordReader is the primary-store slice the worker needs.
type RecordReader interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)
}

// Archiver persists records into the reporting replica.
type Archiver interface {
	SaveExpense(ctx context.Context, userID string, e core.Expense) error
	SaveIncome(ctx context.Context, userID string, in core.Income) error
}

type ArchiveWorker struct {
	reader  RecordReader
	archive Archiver
}

func NewArchiveWorker(reader RecordReader, archive Archiver) *ArchiveWorker {
	return &ArchiveWorker{
		reader:  reader,
		archive: archive,
	}
}

// HandleRecordEvent processes a single record event. An error return makes
// the consumer nack and requeue, so transient store and archive failures
// retry. A record the store no longer has is dropped instead; it will never
// resolve, and requeuing it would redeliver forever.
func (w *ArchiveWorker) HandleRecordEvent(ctx context.Context, msg *amqp.RecordEventMessage) error {
	slog.InfoContext(ctx, "Processing record event",
		"kind", msg.Kind,
		"record_id", msg.RecordID,
		"user_id", msg.UserID)

	switch msg.Kind {
	case amqp.KindExpense:
		expense, err := w.reader.GetExpense(ctx, msg.RecordID)
		if errors.Is(err, store.ErrNotFound) {
			w.dropMissing(ctx, msg)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get expense from store: %w", err)
		}
		if err := w.archive.SaveExpense(ctx, msg.UserID, expense); err != nil {
			return fmt.Errorf("archive expense: %w", err)
		}
	case amqp.KindIncome:
		income, err := w.reader.GetIncome(ctx, msg.RecordID)
		if errors.Is(err, store.ErrNotFound) {
			w.dropMissing(ctx, msg)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get income from store: %w", err)
		}
		if err := w.archive.SaveIncome(ctx, msg.UserID, income); err != nil {
			return fmt.Errorf("archive income: %w", err)
		}
	default:
		// Unknown kinds are dropped; requeuing them would loop forever.
		slog.WarnContext(ctx, "Dropping record event with unknown kind",
			"kind", msg.Kind,
			"record_id", msg.RecordID)
	}

	return nil
}

// dropMissing logs a record event whose document is gone from the store.
func (w *ArchiveWorker) dropMissing(ctx context.Context, msg *amqp.RecordEventMessage) {
	slog.WarnContext(ctx, "Dropping record event for missing record",
		"kind", msg.Kind,
		"record_id", msg.RecordID,
		"user_id", msg.UserID)
}

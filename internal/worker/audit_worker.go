// Package worker consumes expense events.
package worker

import (
	"context"
	"sync"
	"time"

	"emoledger/internal/amqp"
	"emoledger/internal/core"
	"emoledger/internal/log"
)

// AuditWorker logs every recorded expense and keeps running per-emotion
// totals of what it has seen since start.
type AuditWorker struct {
	logger *log.Logger

	mu     sync.Mutex
	totals core.Analytics
	events int
	last   time.Time
}

func NewAuditWorker(logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AuditWorker{logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleExpenseRecorded records one event. It never fails, so events are
// not redelivered.
func (w *AuditWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	w.mu.Lock()
	w.totals.Add(msg.Emotion, msg.Amount)
	w.events++
	if msg.Timestamp.After(w.last) {
		w.last = msg.Timestamp
	}
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Expense recorded",
		log.FieldOperation, log.OpConsume,
		log.FieldExpenseID, msg.ID,
		log.FieldEmotion, msg.Emotion,
		log.FieldAmount, msg.Amount,
		"recorded_at", msg.Timestamp)
	return nil
}

// Snapshot returns the totals and the number of events seen so far.
func (w *AuditWorker) Snapshot() (core.Analytics, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var copied core.Analytics
	for _, e := range w.totals.Entries() {
		copied.Set(e.Emotion, e.Stats)
	}
	return copied, w.events
}

// LogSummary writes one log line per emotion seen so far.
func (w *AuditWorker) LogSummary(ctx context.Context) {
	totals, events := w.Snapshot()
	if events == 0 {
		w.logger.DebugContext(ctx, "No expenses recorded yet")
		return
	}

	for _, e := range totals.Entries() {
		w.logger.InfoContext(ctx, "Emotion spending summary",
			log.FieldEmotion, e.Emotion,
			log.FieldCount, e.Stats.Count,
			"total", core.FormatAmount(e.Stats.Total))
	}
	w.logger.InfoContext(ctx, "Audit summary",
		"events", events,
		"emotions", totals.Len())
}

// Run logs a summary every interval until ctx is done, then logs a final one.
func (w *AuditWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.LogSummary(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			w.LogSummary(ctx)
		}
	}
}

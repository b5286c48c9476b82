package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flor3z/lol-live-tracker/internal/notify"
	"github.com/flor3z/lol-live-tracker/internal/storage"
	"github.com/google/uuid"
)

// PurgeInterval is how often old pending matches are garbage collected.
const PurgeInterval = time.Hour

// PendingOptions tunes the retry queue
type PendingOptions struct {
	Interval    time.Duration // between drains
	MinAge      time.Duration // entries younger than this are left alone
	MaxAttempts int
	MaxAge      time.Duration // entries older than this are purged
}

// PendingWorker retries matches that were not retrievable when their game
// ended
type PendingWorker struct {
	queue    PendingQueue
	ingest   Ingestor
	notifier Notifier
	opts     PendingOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPendingWorker creates a PendingWorker
func NewPendingWorker(queue PendingQueue, ingest Ingestor, notifier Notifier, opts PendingOptions) *PendingWorker {
	return &PendingWorker{
		queue:    queue,
		ingest:   ingest,
		notifier: notifier,
		opts:     opts,
	}
}

// Start starts the drain and purge loops
func (w *PendingWorker) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.drainLoop()
	go w.purgeLoop()

	slog.Info("Started pending match worker",
		"interval", w.opts.Interval, "maxAttempts", w.opts.MaxAttempts, "maxAge", w.opts.MaxAge)
}

// Stop stops both loops and waits for the current pass
func (w *PendingWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	slog.Info("Pending match worker stopped")
}

func (w *PendingWorker) drainLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Drain(w.ctx)
		}
	}
}

func (w *PendingWorker) purgeLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(PurgeInterval)
	defer ticker.Stop()

	// Initial purge
	w.Purge(w.ctx)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Purge(w.ctx)
		}
	}
}

// Drain retries every due entry once. A started drain runs to completion even
// if ctx is cancelled.
func (w *PendingWorker) Drain(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	log := slog.With("drain", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			log.Error("Pending drain panicked", "panic", r)
		}
	}()

	entries, err := w.queue.DrainDue(ctx, w.opts.MinAge)
	if err != nil {
		log.Error("Failed to load pending matches", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	log.Debug("Retrying pending matches", "count", len(entries))
	for i := range entries {
		w.retry(ctx, log.With("matchID", entries[i].MatchID), &entries[i])
	}
}

func (w *PendingWorker) retry(ctx context.Context, log *slog.Logger, e *storage.PendingMatch) {
	ref := notify.MessageRef{ChannelID: e.ChannelID, MessageID: e.MessageID}

	ok, err := w.ingest.IngestMatch(ctx, e.MatchID)
	if err != nil {
		log.Warn("Pending match retry failed", "error", err)
	}
	if ok {
		// the entry stays queued until the result is posted
		if err := w.notifier.PostFinalResult(ctx, ref, e.GuildID, e.MatchID); err != nil {
			log.Error("Failed to post match result", "error", err)
			ok = false
		}
	}
	if ok {
		if _, err := w.queue.RemovePending(ctx, e.MatchID); err != nil {
			log.Error("Failed to remove pending match", "error", err)
		}
		log.Info("Pending match ingested", "attempts", e.Attempts+1)
		return
	}

	attempts, err := w.queue.RecordAttempt(ctx, e.MatchID)
	if err != nil {
		log.Error("Failed to record attempt", "error", err)
		return
	}
	if attempts == 0 || attempts < w.opts.MaxAttempts {
		return
	}

	removed, err := w.queue.RemovePending(ctx, e.MatchID)
	if err != nil {
		log.Error("Failed to remove exhausted match", "error", err)
		return
	}
	if !removed {
		return
	}

	log.Warn("Giving up on pending match", "attempts", attempts)
	if err := w.notifier.PostFailure(ctx, ref, e.GuildID, e.MatchID, attempts); err != nil {
		log.Error("Failed to post failure notice", "error", err)
	}
}

// Purge removes entries older than the maximum age
func (w *PendingWorker) Purge(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	n, err := w.queue.PurgePendingOlderThan(ctx, w.opts.MaxAge)
	if err != nil {
		slog.Error("Failed to purge pending matches", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Purged stale pending matches", "count", n)
	}
}

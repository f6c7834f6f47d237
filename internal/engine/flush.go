package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/cartsync/internal/notify"
)

// flush sends a captured batch and reconciles with a fresh fetch. The batch
// must have been registered by capture.
func (e *Engine) flush(ctx context.Context, batch []Pending) {
	defer e.inflight.Done()

	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	if !e.auth.RequireAuth() {
		e.begin(false)
		e.logger.Warn("discarding cart edits without a session", zap.Int("mutations", len(batch)))
		return
	}

	e.begin(true)
	defer e.store.SyncDone()

	e.logger.Info("flushing cart edits", zap.Int("mutations", len(batch)))
	failures := e.apply(ctx, batch)
	if len(failures) > 0 {
		e.logger.Warn("cart flush finished with failures",
			zap.Int("failed", len(failures)),
			zap.Int("mutations", len(batch)))
	}

	// The re-fetch runs whatever happened above; it is the only reconciliation.
	// A successful fetch clears the store error, so edit failures are restored.
	if err := e.load(ctx); err == nil && len(failures) > 0 {
		e.store.Failure(failureSummary(failures))
	}
}

func failureSummary(failures []string) string {
	if len(failures) == 1 {
		return failures[0]
	}
	return fmt.Sprintf("Could not sync %d items", len(failures))
}

// apply issues one remote call per mutation and returns a message for each
// one that failed.
func (e *Engine) apply(ctx context.Context, batch []Pending) []string {
	results := make([]error, len(batch))
	if e.concurrency < 2 {
		for i, p := range batch {
			results[i] = e.send(ctx, p)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for i, p := range batch {
			i, p := i, p
			g.Go(func() error {
				results[i] = e.send(ctx, p)
				return nil
			})
		}
		_ = g.Wait()
	}

	var failures []string
	for i, err := range results {
		if err == nil {
			continue
		}
		p := batch[i]
		e.logger.Warn("cart edit failed",
			zap.String("line_id", p.LineID),
			zap.Stringer("kind", p.Mutation.Kind),
			zap.Error(err))
		msg := fmt.Sprintf("Could not sync item %s: %v", p.LineID, err)
		failures = append(failures, msg)
		e.store.Failure(msg)
		e.notifier.Notify(notify.Error, "Sync failed", err.Error())
	}
	return failures
}

func (e *Engine) send(ctx context.Context, p Pending) error {
	switch p.Mutation.Kind {
	case MutationUpdate:
		return e.remote.SetItemQuantity(ctx, p.LineID, p.Mutation.Quantity)
	case MutationDelete:
		return e.remote.RemoveItem(ctx, p.LineID)
	default:
		return fmt.Errorf("unknown mutation kind %d", p.Mutation.Kind)
	}
}

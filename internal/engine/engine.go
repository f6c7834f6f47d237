package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/auth"
	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/coupon"
	"github.com/five82/cartsync/internal/notify"
	"github.com/five82/cartsync/internal/remote"
	"github.com/five82/cartsync/internal/state"
)

var (
	ErrUnauthenticated = errors.New("sign in required")
	ErrClosed          = errors.New("cart engine closed")
	ErrUnknownLine     = errors.New("line not in cart")
	ErrInvalidDetails  = errors.New("invalid delivery details")
)

// Remote is the cart store the engine reconciles against.
type Remote interface {
	FetchCart(ctx context.Context) (cart.Snapshot, error)
	SetItemQuantity(ctx context.Context, lineID string, quantity int) error
	RemoveItem(ctx context.Context, lineID string) error
	SaveDeliveryDetails(ctx context.Context, details cart.DeliveryDetails) (cart.Snapshot, error)
}

// Options configure an Engine.
type Options struct {
	Remote   Remote
	Auth     auth.Gate
	Notifier notify.Sink
	Coupons  coupon.Validator
	Logger   *zap.Logger

	ShippingFee      cart.Amount   // zero uses cart.DefaultShippingFee
	Debounce         time.Duration // zero uses DefaultDebounce
	FlushConcurrency int           // values below 2 flush sequentially
}

// Engine keeps one cart session in sync with the remote store.
type Engine struct {
	store    *state.Store
	remote   Remote
	auth     auth.Gate
	notifier notify.Sink
	coupons  coupon.Validator
	logger   *zap.Logger

	concurrency int

	mu       sync.Mutex
	queue    *Queue
	debounce *Debouncer
	closed   bool
	queued   int // batches captured but still waiting for flushMu

	flushMu  sync.Mutex // one batch executes at a time
	inflight sync.WaitGroup
}

// New builds an Engine. Remote and Auth are required.
func New(opts Options) (*Engine, error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("engine requires a remote cart store")
	}
	if opts.Auth == nil {
		return nil, fmt.Errorf("engine requires an auth gate")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Multi{}
	}
	if opts.Coupons == nil {
		opts.Coupons = coupon.NewStatic(coupon.DefaultLatency)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	fee := opts.ShippingFee
	if fee == 0 {
		fee = cart.DefaultShippingFee
	}

	e := &Engine{
		store:       state.New(fee),
		remote:      opts.Remote,
		auth:        opts.Auth,
		notifier:    opts.Notifier,
		coupons:     opts.Coupons,
		logger:      opts.Logger,
		concurrency: opts.FlushConcurrency,
		queue:       NewQueue(),
	}
	e.debounce = NewDebouncer(opts.Debounce, e.onSettled)
	return e, nil
}

// View returns a copy of the current cart state.
func (e *Engine) View() state.View {
	return e.store.View()
}

// HasPendingSync reports whether edits are waiting for a flush.
func (e *Engine) HasPendingSync() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len() > 0
}

// Refresh loads the canonical cart. Without a session it returns
// ErrUnauthenticated and leaves the local cart alone.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.auth.RequireAuth() {
		return ErrUnauthenticated
	}
	e.store.Request()
	return e.load(ctx)
}

// UpdateItemQuantity optimistically sets a line quantity and queues the
// change. A quantity below one removes the line.
func (e *Engine) UpdateItemQuantity(lineID string, qty int) error {
	if qty < 1 {
		return e.RemoveItem(lineID)
	}
	return e.enqueue(lineID, Update(qty))
}

// RemoveItem optimistically drops a line and queues the removal.
func (e *Engine) RemoveItem(lineID string) error {
	return e.enqueue(lineID, Delete())
}

// Flush sends pending edits now instead of waiting for the debounce.
func (e *Engine) Flush(ctx context.Context) {
	e.mu.Lock()
	e.debounce.Stop()
	batch := e.capture()
	e.mu.Unlock()

	if len(batch) > 0 {
		e.flush(ctx, batch)
	}
}

// Close flushes any pending edits immediately and waits for in-flight
// flushes. Edits made after Close fail with ErrClosed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return e.wait(ctx)
	}
	e.closed = true
	e.debounce.Stop()
	batch := e.capture()
	e.mu.Unlock()

	if len(batch) > 0 {
		e.logger.Info("flushing pending cart edits on close", zap.Int("mutations", len(batch)))
		e.flush(ctx, batch)
	}
	return e.wait(ctx)
}

func (e *Engine) enqueue(lineID string, m Mutation) error {
	if !e.auth.RequireAuth() {
		return ErrUnauthenticated
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	var found bool
	switch m.Kind {
	case MutationDelete:
		found = e.store.LocalRemoveItem(lineID)
	default:
		found = e.store.LocalUpdateItem(lineID, m.Quantity)
	}
	if !found {
		return fmt.Errorf("%s: %w", lineID, ErrUnknownLine)
	}

	e.queue.Put(lineID, m)
	e.store.SyncPending(true)
	e.debounce.Trigger()
	return nil
}

// onSettled runs on the debounce timer goroutine.
func (e *Engine) onSettled() {
	e.mu.Lock()
	batch := e.capture()
	e.mu.Unlock()

	if len(batch) > 0 {
		e.flush(context.Background(), batch)
	}
}

// capture drains the queue and registers the batch as in flight. Callers
// hold e.mu, so no edit can land between the drain and the registration.
func (e *Engine) capture() []Pending {
	batch := e.queue.Drain()
	if len(batch) == 0 {
		return nil
	}
	e.inflight.Add(1)
	e.queued++
	return batch
}

// begin hands a captured batch to the running flush. The pending indicator
// stays up while other batches are queued or edits keep arriving.
func (e *Engine) begin(start bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queued--
	if start {
		e.store.SyncStart()
	}
	e.store.SyncPending(e.queued > 0 || e.queue.Len() > 0)
}

func (e *Engine) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load fetches the canonical cart into the store.
func (e *Engine) load(ctx context.Context) error {
	snap, err := e.remote.FetchCart(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrUnavailable) {
			e.store.Success(cart.Snapshot{})
			return nil
		}
		e.logger.Warn("cart fetch failed", zap.Error(err))
		e.store.Failure("Could not load your cart: " + err.Error())
		e.notifier.Notify(notify.Error, "Cart unavailable", err.Error())
		return err
	}
	e.store.Success(snap)
	return nil
}

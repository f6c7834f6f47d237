package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cartsync/internal/cart"
	"github.com/five82/cartsync/internal/coupon"
	"github.com/five82/cartsync/internal/notify"
	"github.com/five82/cartsync/internal/remote"
)

type fakeGate struct {
	allow atomic.Bool
}

func newGate(allow bool) *fakeGate {
	g := &fakeGate{}
	g.allow.Store(allow)
	return g
}

func (g *fakeGate) IsAuthenticated() bool { return g.allow.Load() }
func (g *fakeGate) RequireAuth() bool     { return g.allow.Load() }

type fakeRemote struct {
	mu       sync.Mutex
	lines    []cart.Line
	events   []string
	failSet  map[string]error
	fetchErr error
	details  cart.DeliveryDetails

	block   chan struct{} // SetItemQuantity waits on it when non-nil
	started chan string
}

func newFakeRemote(lines ...cart.Line) *fakeRemote {
	return &fakeRemote{lines: lines, failSet: map[string]error{}}
}

func (f *fakeRemote) record(ev string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeRemote) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeRemote) FetchCart(context.Context) (cart.Snapshot, error) {
	f.record("fetch")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return cart.Snapshot{}, f.fetchErr
	}
	return cart.Snapshot{
		ID:              "cart-1",
		OrderType:       f.details.OrderType,
		CustomerPhone:   f.details.CustomerPhone,
		DeliveryAddress: f.details.DeliveryAddress,
		Items:           cart.CloneLines(f.lines),
	}, nil
}

func (f *fakeRemote) SetItemQuantity(_ context.Context, id string, qty int) error {
	if f.started != nil {
		f.started <- id
	}
	if f.block != nil {
		<-f.block
	}
	f.record(fmt.Sprintf("set:%s:%d", id, qty))
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSet[id]; err != nil {
		return err
	}
	if i := cart.Find(f.lines, id); i >= 0 {
		f.lines[i].Quantity = qty
	}
	return nil
}

func (f *fakeRemote) RemoveItem(_ context.Context, id string) error {
	f.record("del:" + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := cart.Find(f.lines, id); i >= 0 {
		f.lines = append(f.lines[:i], f.lines[i+1:]...)
	}
	return nil
}

func (f *fakeRemote) SaveDeliveryDetails(_ context.Context, d cart.DeliveryDetails) (cart.Snapshot, error) {
	f.record("delivery")
	f.mu.Lock()
	f.details = d
	f.mu.Unlock()
	return f.FetchCart(context.Background())
}

func lines() []cart.Line {
	return []cart.Line{
		{ID: "a", Name: "Pho", Quantity: 2, Price: 50000},
		{ID: "b", Name: "Banh mi", Quantity: 1, Price: 100000},
	}
}

type harness struct {
	engine   *Engine
	remote   *fakeRemote
	gate     *fakeGate
	recorder *notify.Recorder
}

func newHarness(t *testing.T, debounce time.Duration, mutate ...func(*Options)) harness {
	t.Helper()
	h := harness{
		remote:   newFakeRemote(lines()...),
		gate:     newGate(true),
		recorder: &notify.Recorder{},
	}
	opts := Options{
		Remote:   h.remote,
		Auth:     h.gate,
		Notifier: h.recorder,
		Coupons:  coupon.NewStatic(0),
		Debounce: debounce,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	h.engine = e
	require.NoError(t, e.Refresh(context.Background()))
	h.remote.mu.Lock()
	h.remote.events = nil
	h.remote.mu.Unlock()
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return h
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Auth: newGate(true)})
	assert.Error(t, err)
	_, err = New(Options{Remote: newFakeRemote()})
	assert.Error(t, err)
}

func TestEngine_CoalescesEditsPerLine(t *testing.T) {
	h := newHarness(t, time.Hour)

	for _, qty := range []int{3, 4, 5, 6} {
		require.NoError(t, h.engine.UpdateItemQuantity("a", qty))
	}
	assert.True(t, h.engine.HasPendingSync())
	assert.True(t, h.engine.View().PendingSync)
	assert.Equal(t, 6, h.engine.View().Items[0].Quantity)
	assert.Empty(t, h.remote.Events(), "nothing is sent before the flush")

	h.engine.Flush(context.Background())

	assert.Equal(t, []string{"set:a:6", "fetch"}, h.remote.Events())
	assert.False(t, h.engine.HasPendingSync())
	v := h.engine.View()
	assert.False(t, v.SyncingChanges)
	assert.False(t, v.PendingSync)
	assert.Equal(t, cart.Amount(400000), v.Subtotal)
}

func TestEngine_LatestIntentWinsAcrossKinds(t *testing.T) {
	h := newHarness(t, time.Hour)

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	require.NoError(t, h.engine.RemoveItem("a"))
	require.NoError(t, h.engine.UpdateItemQuantity("b", 2))
	h.engine.Flush(context.Background())

	assert.Equal(t, []string{"del:a", "set:b:2", "fetch"}, h.remote.Events())
}

func TestEngine_QuantityBelowOneDeletes(t *testing.T) {
	h := newHarness(t, time.Hour)

	require.NoError(t, h.engine.UpdateItemQuantity("b", 0))
	v := h.engine.View()
	require.Len(t, v.Items, 1)
	assert.Equal(t, "a", v.Items[0].ID)

	h.engine.Flush(context.Background())
	assert.Equal(t, []string{"del:b", "fetch"}, h.remote.Events())
}

func TestEngine_UnknownLine(t *testing.T) {
	h := newHarness(t, time.Hour)
	err := h.engine.UpdateItemQuantity("zzz", 2)
	assert.ErrorIs(t, err, ErrUnknownLine)
	assert.False(t, h.engine.HasPendingSync())
}

func TestEngine_DebounceFlushesAfterQuiet(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	require.NoError(t, h.engine.UpdateItemQuantity("a", 4))

	require.Eventually(t, func() bool {
		ev := h.remote.Events()
		return len(ev) == 2 && !h.engine.View().SyncingChanges
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"set:a:4", "fetch"}, h.remote.Events())
}

func TestEngine_UnauthenticatedEditsAreRefused(t *testing.T) {
	h := newHarness(t, time.Hour)
	before := h.engine.View()

	h.gate.allow.Store(false)
	err := h.engine.UpdateItemQuantity("a", 9)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, before.Items, h.engine.View().Items)
	assert.False(t, h.engine.HasPendingSync())
}

func TestEngine_AuthDeniedAtFlushDiscardsBatch(t *testing.T) {
	h := newHarness(t, time.Hour)

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	h.gate.allow.Store(false)
	h.engine.Flush(context.Background())

	assert.Empty(t, h.remote.Events())
	assert.False(t, h.engine.HasPendingSync())
	v := h.engine.View()
	assert.False(t, v.SyncingChanges)
	assert.False(t, v.PendingSync)
}

func TestEngine_PartialFailureContinuesBatch(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.remote.failSet["a"] = errors.New("boom")

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	require.NoError(t, h.engine.RemoveItem("b"))
	h.engine.Flush(context.Background())

	assert.Equal(t, []string{"set:a:3", "del:b", "fetch"}, h.remote.Events())
	assert.Equal(t, 1, h.recorder.Count(notify.Error))

	// the re-fetch restores the server quantity for a
	v := h.engine.View()
	require.Len(t, v.Items, 1)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.False(t, v.SyncingChanges)
	assert.Equal(t, "Could not sync item a: boom", v.Error, "re-fetch must not clear the edit failure")
	assert.False(t, v.Loading)
}

func TestEngine_FailureSummaryCountsItems(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.remote.failSet["a"] = errors.New("boom")
	h.remote.failSet["b"] = errors.New("boom")

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	require.NoError(t, h.engine.UpdateItemQuantity("b", 2))
	h.engine.Flush(context.Background())

	assert.Equal(t, "Could not sync 2 items", h.engine.View().Error)
	assert.Equal(t, 2, h.recorder.Count(notify.Error))
}

func TestEngine_CleanFlushClearsError(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.remote.failSet["a"] = errors.New("boom")
	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	h.engine.Flush(context.Background())
	require.NotEmpty(t, h.engine.View().Error)

	h.remote.mu.Lock()
	delete(h.remote.failSet, "a")
	h.remote.mu.Unlock()
	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	h.engine.Flush(context.Background())
	assert.Empty(t, h.engine.View().Error)
}

func TestEngine_QueuedBatchKeepsPendingIndicator(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.remote.block = make(chan struct{})
	h.remote.started = make(chan string, 4)

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	first := make(chan struct{})
	go func() {
		h.engine.Flush(context.Background())
		close(first)
	}()
	require.Equal(t, "a", <-h.remote.started)
	assert.False(t, h.engine.View().PendingSync, "running batch is no longer pending")

	require.NoError(t, h.engine.UpdateItemQuantity("b", 4))
	second := make(chan struct{})
	go func() {
		h.engine.Flush(context.Background())
		close(second)
	}()
	// the second batch is drained from the queue but waits behind the first
	require.Eventually(t, func() bool { return !h.engine.HasPendingSync() },
		time.Second, time.Millisecond)
	v := h.engine.View()
	assert.True(t, v.PendingSync)
	assert.True(t, v.SyncingChanges)

	close(h.remote.block)
	<-first
	<-second
	v = h.engine.View()
	assert.False(t, v.PendingSync)
	assert.False(t, v.SyncingChanges)
	assert.Equal(t, []string{"set:a:3", "fetch", "set:b:4", "fetch"}, h.remote.Events())
}

func TestEngine_ParallelFlushRefetchesAfterAllCalls(t *testing.T) {
	h := newHarness(t, time.Hour, func(o *Options) { o.FlushConcurrency = 4 })
	h.remote.failSet["b"] = errors.New("boom")

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	require.NoError(t, h.engine.UpdateItemQuantity("b", 5))
	h.engine.Flush(context.Background())

	ev := h.remote.Events()
	require.Len(t, ev, 3)
	assert.ElementsMatch(t, []string{"set:a:3", "set:b:5"}, ev[:2])
	assert.Equal(t, "fetch", ev[2])
	assert.Equal(t, 1, h.recorder.Count(notify.Error))
}

func TestEngine_EditsDuringFlushFormNewBatch(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.remote.block = make(chan struct{})
	h.remote.started = make(chan string, 4)

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	done := make(chan struct{})
	go func() {
		h.engine.Flush(context.Background())
		close(done)
	}()

	assert.Equal(t, "a", <-h.remote.started)
	assert.True(t, h.engine.View().SyncingChanges)

	require.NoError(t, h.engine.UpdateItemQuantity("b", 4))
	assert.True(t, h.engine.HasPendingSync(), "edit made during flush waits for the next batch")

	close(h.remote.block)
	<-done
	assert.Equal(t, []string{"set:a:3", "fetch"}, h.remote.Events())

	h.engine.Flush(context.Background())
	<-h.remote.started
	assert.Equal(t, []string{"set:a:3", "fetch", "set:b:4", "fetch"}, h.remote.Events())
}

func TestEngine_CloseFlushesPendingOnce(t *testing.T) {
	h := newHarness(t, time.Hour)

	require.NoError(t, h.engine.UpdateItemQuantity("a", 3))
	require.NoError(t, h.engine.RemoveItem("b"))

	require.NoError(t, h.engine.Close(context.Background()))
	assert.Equal(t, []string{"set:a:3", "del:b", "fetch"}, h.remote.Events())

	assert.ErrorIs(t, h.engine.UpdateItemQuantity("a", 1), ErrClosed)
	require.NoError(t, h.engine.Close(context.Background()))
	assert.Len(t, h.remote.Events(), 3, "second Close sends nothing")
}

func TestEngine_CloseWithEmptyQueueSendsNothing(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.engine.Close(context.Background()))
	assert.Empty(t, h.remote.Events())
}

func TestEngine_RemovingLastItemDropsShipping(t *testing.T) {
	h := newHarness(t, time.Hour)

	require.NoError(t, h.engine.RemoveItem("a"))
	require.NoError(t, h.engine.RemoveItem("b"))

	v := h.engine.View()
	assert.Empty(t, v.Items)
	assert.Equal(t, cart.Amount(0), v.ShippingFee)
	assert.Equal(t, cart.Amount(0), v.Total)
}

func TestEngine_Refresh(t *testing.T) {
	t.Run("unavailable yields empty cart", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		h.remote.fetchErr = fmt.Errorf("fetch cart: %w", remote.ErrUnavailable)

		require.NoError(t, h.engine.Refresh(context.Background()))
		v := h.engine.View()
		assert.Empty(t, v.Items)
		assert.Empty(t, v.Error)
	})

	t.Run("failure keeps items", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		h.remote.fetchErr = errors.New("connection refused")

		err := h.engine.Refresh(context.Background())
		require.Error(t, err)
		v := h.engine.View()
		assert.Len(t, v.Items, 2)
		assert.Contains(t, v.Error, "connection refused")
		assert.False(t, v.Loading)
		assert.Equal(t, 1, h.recorder.Count(notify.Error))
	})

	t.Run("signed out keeps the cart", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		h.gate.allow.Store(false)
		before := h.engine.View()

		err := h.engine.Refresh(context.Background())
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Empty(t, h.remote.Events())
		v := h.engine.View()
		assert.Equal(t, before.Items, v.Items)
		assert.Equal(t, before.Subtotal, v.Subtotal)
		assert.Empty(t, v.Error)
	})
}

func fourPho(t *testing.T) harness {
	t.Helper()
	h := newHarness(t, time.Hour)
	require.NoError(t, h.engine.UpdateItemQuantity("a", 4))
	require.NoError(t, h.engine.RemoveItem("b"))
	h.engine.Flush(context.Background())
	require.Equal(t, cart.Amount(200000), h.engine.View().Subtotal)
	return h
}

func TestEngine_ApplyCouponFlatOff(t *testing.T) {
	h := fourPho(t)

	res, err := h.engine.ApplyCoupon(context.Background(), " tasty50 ")
	require.NoError(t, err)
	assert.Equal(t, cart.Amount(50000), res.Discount)

	v := h.engine.View()
	assert.Equal(t, cart.Amount(50000), v.Discount)
	assert.Equal(t, v.Subtotal-50000+v.ShippingFee, v.Total)
	assert.Equal(t, "TASTY50", v.CouponCode)
	assert.Equal(t, 1, h.recorder.Count(notify.Success))
}

func TestEngine_ApplyCouponFreeShipping(t *testing.T) {
	h := fourPho(t)

	_, err := h.engine.ApplyCoupon(context.Background(), "FREESHIP")
	require.NoError(t, err)

	v := h.engine.View()
	assert.Equal(t, v.ShippingFee, v.Discount)
	assert.Equal(t, v.Subtotal, v.Total)
}

func TestEngine_SecondCouponReplacesFirst(t *testing.T) {
	h := fourPho(t)

	_, err := h.engine.ApplyCoupon(context.Background(), "TASTY50")
	require.NoError(t, err)
	_, err = h.engine.ApplyCoupon(context.Background(), "WELCOME10")
	require.NoError(t, err)

	assert.Equal(t, cart.Amount(20000), h.engine.View().Discount)
}

func TestEngine_ApplyCouponRejections(t *testing.T) {
	h := fourPho(t)
	_, err := h.engine.ApplyCoupon(context.Background(), "FREESHIP")
	require.NoError(t, err)
	before := h.engine.View().Discount

	_, err = h.engine.ApplyCoupon(context.Background(), "BOGUS")
	assert.ErrorIs(t, err, coupon.ErrInvalidCode)
	v := h.engine.View()
	assert.Equal(t, before, v.Discount)
	assert.Equal(t, "failed", string(v.CouponStatus))
	assert.Equal(t, 1, h.recorder.Count(notify.Error))

	_, err = h.engine.ApplyCoupon(context.Background(), "   ")
	assert.ErrorIs(t, err, coupon.ErrEmptyCode)
	assert.Equal(t, 2, h.recorder.Count(notify.Error))

	h.gate.allow.Store(false)
	_, err = h.engine.ApplyCoupon(context.Background(), "TASTY50")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, before, h.engine.View().Discount)
}

func TestEngine_CouponClampedToSubtotal(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.engine.RemoveItem("b"))
	require.NoError(t, h.engine.UpdateItemQuantity("a", 1)) // subtotal 50000

	res, err := h.engine.ApplyCoupon(context.Background(), "TASTY50")
	require.NoError(t, err)
	assert.Equal(t, cart.Amount(50000), res.Discount)

	require.NoError(t, h.engine.RemoveItem("a"))
	v := h.engine.View()
	assert.Equal(t, cart.Amount(0), v.Discount)
	assert.Equal(t, cart.Amount(0), v.Total)
}

func TestEngine_SaveDeliveryInfo(t *testing.T) {
	h := newHarness(t, time.Hour)

	err := h.engine.SaveDeliveryInfo(context.Background(), cart.DeliveryDetails{CustomerPhone: "0901"})
	assert.ErrorIs(t, err, ErrInvalidDetails)
	assert.Empty(t, h.remote.Events())

	err = h.engine.SaveDeliveryInfo(context.Background(), cart.DeliveryDetails{
		CustomerPhone:   " 0901 ",
		DeliveryAddress: "12 Le Loi",
	})
	require.NoError(t, err)
	v := h.engine.View()
	assert.Equal(t, "12 Le Loi", v.Snapshot.DeliveryAddress)
	assert.Equal(t, "0901", v.Snapshot.CustomerPhone)
	assert.Equal(t, cart.OrderDelivery, v.Snapshot.OrderType)
	assert.False(t, v.AddressSaving)

	h.gate.allow.Store(false)
	err = h.engine.SaveDeliveryInfo(context.Background(), cart.DeliveryDetails{OrderType: cart.OrderDineIn})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

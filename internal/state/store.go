package state

import (
	"sync"
	"time"

	"github.com/five82/cartsync/internal/cart"
)

// CouponStatus tracks the coupon form lifecycle.
type CouponStatus string

const (
	CouponIdle    CouponStatus = "idle"
	CouponPending CouponStatus = "pending"
	CouponApplied CouponStatus = "applied"
	CouponFailed  CouponStatus = "failed"
)

// View is a point-in-time copy of the cart state handed to readers.
type View struct {
	Snapshot    cart.Snapshot
	HasSnapshot bool
	Items       []cart.Line

	Subtotal    cart.Amount
	ShippingFee cart.Amount
	Discount    cart.Amount
	Total       cart.Amount

	Loading        bool
	InitialLoading bool
	Error          string

	CouponStatus  CouponStatus
	CouponCode    string
	CouponMessage string

	AddressSaving  bool
	PendingSync    bool
	SyncingChanges bool

	LastUpdated time.Time
}

// Store holds the last known cart and its derived totals. The zero value is
// not usable; call New.
type Store struct {
	mu      sync.RWMutex
	flatFee cart.Amount
	applied cart.Amount // raw coupon discount, clamped on every recompute
	view    View
}

// New returns an empty store that charges flatFee for shipping.
func New(flatFee cart.Amount) *Store {
	return &Store{
		flatFee: flatFee,
		view: View{
			InitialLoading: true,
			CouponStatus:   CouponIdle,
		},
	}
}

// View returns a copy of the current state.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.view
	v.Snapshot = s.view.Snapshot.Clone()
	v.Items = cart.CloneLines(s.view.Items)
	return v
}

// Request marks a fetch as in flight.
func (s *Store) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.Loading = true
	s.view.InitialLoading = !s.view.HasSnapshot
}

// Success replaces the cart wholesale with a fetched snapshot.
func (s *Store) Success(snap cart.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := cart.Normalize(snap)
	s.view.Snapshot = norm
	s.view.HasSnapshot = true
	s.view.Items = cart.CloneLines(norm.Items)
	s.view.Loading = false
	s.view.InitialLoading = false
	s.view.Error = ""
	s.recompute()
}

// Failure records msg and keeps the current items.
func (s *Store) Failure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.Loading = false
	s.view.InitialLoading = false
	s.view.Error = msg
	s.view.LastUpdated = time.Now()
}

// LocalUpdateItem optimistically sets a line quantity. A quantity below one
// removes the line. It reports whether the line was present.
func (s *Store) LocalUpdateItem(id string, qty int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := cart.Find(s.view.Items, id)
	if idx < 0 {
		return false
	}
	if qty < 1 {
		s.removeAt(idx)
		return true
	}
	line := &s.view.Items[idx]
	line.Quantity = qty
	line.Subtotal = cart.LineSubtotal(*line)
	s.syncSnapshotItems()
	s.recompute()
	return true
}

// LocalRemoveItem optimistically drops a line.
func (s *Store) LocalRemoveItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := cart.Find(s.view.Items, id)
	if idx < 0 {
		return false
	}
	s.removeAt(idx)
	return true
}

// CouponRequest marks a coupon validation as in flight.
func (s *Store) CouponRequest(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.CouponStatus = CouponPending
	s.view.CouponCode = code
	s.view.CouponMessage = ""
}

// CouponSuccess replaces any previous discount with discount, clamped to the
// current subtotal, and returns the discount that took effect.
func (s *Store) CouponSuccess(code string, discount cart.Amount, msg string) cart.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applied = cart.ClampDiscount(discount, s.view.Subtotal)
	s.view.CouponStatus = CouponApplied
	s.view.CouponCode = code
	s.view.CouponMessage = msg
	s.recompute()
	return s.view.Discount
}

// CouponFailure records msg and leaves the discount unchanged.
func (s *Store) CouponFailure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.CouponStatus = CouponFailed
	s.view.CouponMessage = msg
}

// AddressRequest marks a delivery-details save as in flight.
func (s *Store) AddressRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.AddressSaving = true
}

// AddressDone clears the delivery-details saving flag.
func (s *Store) AddressDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.AddressSaving = false
}

// SyncPending records whether edits are waiting for a flush.
func (s *Store) SyncPending(pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PendingSync = pending
}

// SyncStart marks a flush as running.
func (s *Store) SyncStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SyncingChanges = true
}

// SyncDone marks the flush as finished.
func (s *Store) SyncDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SyncingChanges = false
}

func (s *Store) removeAt(idx int) {
	items := make([]cart.Line, 0, len(s.view.Items)-1)
	items = append(items, s.view.Items[:idx]...)
	items = append(items, s.view.Items[idx+1:]...)
	s.view.Items = items
	s.syncSnapshotItems()
	s.recompute()
}

func (s *Store) syncSnapshotItems() {
	s.view.Snapshot.Items = cart.CloneLines(s.view.Items)
}

// recompute must run after every change to items or the applied discount.
func (s *Store) recompute() {
	t := cart.Compute(s.view.Items, s.applied, s.flatFee)
	s.view.Subtotal = t.Subtotal
	s.view.ShippingFee = t.ShippingFee
	s.view.Discount = t.Discount
	s.view.Total = t.Total
	s.view.LastUpdated = time.Now()
}

// Package state holds the local cart state for cartsync.
//
// # Overview
//
// Store is the single mutable record of the last known cart snapshot, the
// totals derived from it, and the status flags the view renders (loading,
// error, coupon, address saving, sync). It is advanced only through named
// transitions; readers take a View, which is a deep copy.
//
// # Transitions
//
//	Request            loading = true
//	Success(snapshot)  replace the cart wholesale, rebuild totals, clear error
//	Failure(msg)       record msg, keep items
//	LocalUpdateItem    optimistic quantity change (qty < 1 removes the line)
//	LocalRemoveItem    optimistic removal
//	CouponRequest / CouponSuccess / CouponFailure
//	AddressRequest / AddressDone
//	SyncPending / SyncStart / SyncDone
//
// Every transition that touches items recomputes subtotal, shipping fee,
// discount and total before releasing the lock. There is no lazy derivation.
//
// # Discount Handling
//
// The store keeps the raw coupon discount separately from the visible one.
// The visible discount is min(raw, subtotal) and is re-clamped on every
// recompute, so shrinking the cart below a previously applied coupon never
// yields a negative total.
//
// # Last Fetch Wins
//
// Success does not merge. A fetch that resolves after local edits discards
// those edits; the engine relies on this when it re-fetches after a flush.
//
// # Concurrency Model
//
// All transitions take the write lock; View takes the read lock. The engine's
// timer goroutine and the UI goroutine can therefore share one Store.
package state

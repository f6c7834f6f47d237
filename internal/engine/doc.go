// Package engine keeps a cart session consistent with the remote cart store.
//
// # Overview
//
// The engine sits between the view and the remote store. Edits are applied
// to the local state.Store immediately and recorded in a coalescing Queue.
// A Debouncer waits for input to settle and then flushes the whole queue in
// one batch; after the batch the engine re-fetches the canonical cart and
// replaces the local state with it.
//
// # Data Flow
//
//	UpdateItemQuantity / RemoveItem
//	  ├─> store.LocalUpdateItem / LocalRemoveItem   (optimistic)
//	  ├─> queue.Put(lineID, mutation)               (newest intent wins)
//	  └─> debounce.Trigger()                        (restart shared timer)
//
//	timer fires
//	  ├─> capture: queue.Drain() under the engine lock
//	  ├─> RequireAuth() denied → discard batch
//	  ├─> one remote call per mutation, failures reported and skipped
//	  └─> FetchCart() → store.Success                (always)
//
// # Ordering Guarantees
//
// Capture happens under the engine mutex before any network call, so an edit
// either belongs to the batch being captured or to the next one. Batches
// execute one at a time. Within a batch the calls run in capture order, or
// with FlushConcurrency > 1 through a bounded errgroup; either way the
// re-fetch waits for every call to settle.
//
// # Lifecycle
//
// Close is the teardown hook for the owning view. It cancels the timer,
// flushes whatever is queued without waiting for the debounce, and blocks
// until in-flight batches finish or ctx expires.
//
// # Error Handling
//
//   - ErrUnauthenticated: the auth gate refused; local state is untouched
//   - ErrUnknownLine: the edit targets a line that is not in the cart
//   - ErrInvalidDetails, coupon.ErrEmptyCode: local validation, no network
//   - remote failures: store error + notification, optimistic state kept
package engine

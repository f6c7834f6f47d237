// Package app is the composition root for cartsync.
//
// Run loads configuration, opens the log file, and wires the pieces:
//
//  1. config.Load reads config.toml, .env and CARTSYNC_* overrides
//  2. logging.New opens the zap JSON log the activity pane tails
//  3. auth.Session holds the bearer token and gates every cart operation
//  4. remote.Client talks to the cart API with that token
//  5. the coupon validator is the built-in table or the remote endpoint
//  6. engine.Engine owns the optimistic store and the debounced sync queue
//  7. ui.Run hosts the Bubble Tea view until the user quits
//
// Notifications fan out to the view's toast feed and to the log.
//
// The initial fetch runs in the background so the view can show its loading
// state. Run always closes the engine on the way out, with a bounded timeout,
// so edits made just before a signal or quit still reach the server. Close is
// idempotent; the view's own quit path closes first and this second call
// returns once in-flight work is done.
package app

// Package ui provides the Bubble Tea cart view for cartsync.
//
// # Architecture
//
// Model never touches the network itself. It drives a CartEngine and polls
// CartEngine.View on a short tick, so optimistic edits show up immediately and
// the remote round trips run on the engine's own debounce. Long operations
// (refresh, coupon validation, delivery save, close) run as tea.Cmds and
// report back with opDoneMsg or closedMsg.
//
// # Files
//
//   - app.go: Model, Update loop, messages and commands, Run
//   - cart.go: header badge, cart table, totals, toasts, activity pane
//   - forms.go: coupon input and delivery details form
//   - keys.go: key bindings via bubbles/key
//   - help.go: help overlay
//   - theme.go: Lipgloss themes (Nightfox, Kanagawa, Slate)
//
// # Sync Indicators
//
// The header badge reads "waiting to sync…" while edits sit in the engine's
// pending queue and "syncing changes…" while a batch is in flight. A failed
// load or flush leaves the error on the status line with a retry hint.
//
// # Quitting
//
// q and ctrl+c switch the view to a closing screen and call
// CartEngine.Close with a timeout. The program exits only after Close
// returns, so edits made just before quitting are sent.
package ui

// Package config loads cartsync's configuration.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cartsync/config.toml
//  3. If the file doesn't exist, use defaults
//  4. Apply a .env file from the working directory, then the environment
//
// # TOML Format
//
//	api_url = "https://cart.example.com"
//	token = "..."
//	shipping_fee = 15000
//	debounce_ms = 3000
//	coupon_latency_ms = 600
//	coupon_source = "static"   # or "remote"
//	flush_concurrency = 1
//	log_file = "~/.local/state/cartsync/cartsync.log"
//	log_level = "info"
//
// Every field is optional. Tilde expansion is applied to log_file.
//
// # Environment Overrides
//
//   - CARTSYNC_API_URL
//   - CARTSYNC_TOKEN
//   - CARTSYNC_LOG_LEVEL
//
// # Error Handling
//
// Missing config files are not an error. Unreadable files, TOML syntax
// errors, a non-positive shipping_fee and an unknown coupon_source are.
package config

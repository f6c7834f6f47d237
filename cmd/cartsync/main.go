package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/cartsync/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (optional, defaults to ~/.config/cartsync/config.toml)")
	prefsPath := flag.String("prefs", "", "preferences file path (optional)")
	apiURL := flag.String("api", "", "cart API base URL (optional, overrides config)")
	debounce := flag.Duration("debounce", 0, "quiet period before edits are synced (optional, defaults to 3s)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		APIURL:     *apiURL,
	}
	if d := *debounce; d > 0 {
		opts.Debounce = d
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "cartsync: %v\n", err)
		return 1
	}
	return 0
}

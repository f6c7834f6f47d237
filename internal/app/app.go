package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/auth"
	"github.com/five82/cartsync/internal/config"
	"github.com/five82/cartsync/internal/coupon"
	"github.com/five82/cartsync/internal/engine"
	"github.com/five82/cartsync/internal/logging"
	"github.com/five82/cartsync/internal/notify"
	"github.com/five82/cartsync/internal/prefs"
	"github.com/five82/cartsync/internal/remote"
	"github.com/five82/cartsync/internal/ui"
)

const closeTimeout = 10 * time.Second

// Options configure the cartsync application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/cartsync/prefs.toml
	Debounce   time.Duration // zero uses the configured window
	APIURL     string        // overrides config and environment when set
}

// Run boots the cart TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Debounce > 0 {
		cfg.Debounce = opts.Debounce
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("load prefs failed", zap.Error(err))
	}

	eng, feed, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := eng.Close(closeCtx); err != nil {
			logger.Warn("close engine", zap.Error(err))
		}
	}()

	logger.Info("cartsync starting",
		zap.String("api", cfg.APIURL),
		zap.Duration("debounce", cfg.Debounce),
		zap.String("coupons", string(cfg.CouponSource)),
	)

	// The view renders a loading state until the first fetch lands.
	go func() { _ = eng.Refresh(ctx) }()

	return ui.Run(ui.Options{
		Context:      ctx,
		Engine:       eng,
		Feed:         feed,
		LogFile:      cfg.LogFile,
		CloseTimeout: closeTimeout,
		ThemeName:    userPrefs.Theme,
		ShowHelp:     userPrefs.ShowHelp,
		PrefsPath:    opts.PrefsPath,
		Logger:       logger.Named("ui"),
	})
}

// build wires the engine and its collaborators from cfg.
func build(cfg config.Config, logger *zap.Logger) (*engine.Engine, *notify.Feed, error) {
	feed := notify.NewFeed(5)
	notifier := notify.Multi{feed, notify.LogSink{Logger: logger.Named("notify")}}

	session := auth.NewSession(cfg.Token, func() bool {
		notifier.Notify(notify.Warning, "Sign in required",
			"Set token in config.toml or "+config.EnvToken)
		return false
	})

	client, err := remote.NewClient(cfg.APIURL, session, logger.Named("remote"))
	if err != nil {
		return nil, nil, fmt.Errorf("init cart client: %w", err)
	}

	var coupons coupon.Validator
	switch cfg.CouponSource {
	case config.CouponsRemote:
		coupons = coupon.Remote{Checker: client}
	default:
		coupons = coupon.NewStatic(cfg.CouponLatency)
	}

	eng, err := engine.New(engine.Options{
		Remote:           client,
		Auth:             session,
		Notifier:         notifier,
		Coupons:          coupons,
		Logger:           logger.Named("engine"),
		ShippingFee:      cfg.ShippingFee,
		Debounce:         cfg.Debounce,
		FlushConcurrency: cfg.FlushConcurrency,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return eng, feed, nil
}

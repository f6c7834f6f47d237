package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/cartsync/internal/cart"
)

// CouponSource selects where coupon codes are validated.
type CouponSource string

const (
	CouponsStatic CouponSource = "static"
	CouponsRemote CouponSource = "remote"
)

// Config captures the settings cartsync needs at startup.
type Config struct {
	APIURL           string
	Token            string
	ShippingFee      cart.Amount
	Debounce         time.Duration
	CouponLatency    time.Duration
	CouponSource     CouponSource
	FlushConcurrency int
	LogFile          string
	LogLevel         string
}

const (
	defaultConfigPath    = "~/.config/cartsync/config.toml"
	defaultAPIURL        = "127.0.0.1:8088"
	defaultLogFile       = "~/.local/state/cartsync/cartsync.log"
	defaultLogLevel      = "info"
	defaultDebounce      = 3 * time.Second
	defaultCouponLatency = 600 * time.Millisecond
)

// Environment variables that override the file.
const (
	EnvAPIURL   = "CARTSYNC_API_URL"
	EnvToken    = "CARTSYNC_TOKEN"
	EnvLogLevel = "CARTSYNC_LOG_LEVEL"
)

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		APIURL:           defaultAPIURL,
		ShippingFee:      cart.DefaultShippingFee,
		Debounce:         defaultDebounce,
		CouponLatency:    defaultCouponLatency,
		CouponSource:     CouponsStatic,
		FlushConcurrency: 1,
		LogFile:          mustExpand(defaultLogFile),
		LogLevel:         defaultLogLevel,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
// A .env file in the working directory and the process environment override
// the file.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := apply(&cfg, bytes); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

type rawConfig struct {
	APIURL           string `toml:"api_url"`
	Token            string `toml:"token"`
	ShippingFee      *int64 `toml:"shipping_fee"`
	DebounceMS       int    `toml:"debounce_ms"`
	CouponLatencyMS  *int   `toml:"coupon_latency_ms"`
	CouponSource     string `toml:"coupon_source"`
	FlushConcurrency int    `toml:"flush_concurrency"`
	LogFile          string `toml:"log_file"`
	LogLevel         string `toml:"log_level"`
}

func apply(cfg *Config, data []byte) error {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	if raw.ShippingFee != nil {
		if *raw.ShippingFee <= 0 {
			return fmt.Errorf("shipping_fee must be positive")
		}
		cfg.ShippingFee = cart.Amount(*raw.ShippingFee)
	}
	if raw.DebounceMS > 0 {
		cfg.Debounce = time.Duration(raw.DebounceMS) * time.Millisecond
	}
	if raw.CouponLatencyMS != nil && *raw.CouponLatencyMS >= 0 {
		cfg.CouponLatency = time.Duration(*raw.CouponLatencyMS) * time.Millisecond
	}
	switch src := CouponSource(strings.ToLower(strings.TrimSpace(raw.CouponSource))); src {
	case "":
	case CouponsStatic, CouponsRemote:
		cfg.CouponSource = src
	default:
		return fmt.Errorf("coupon_source %q: want static or remote", raw.CouponSource)
	}
	if raw.FlushConcurrency > 0 {
		cfg.FlushConcurrency = raw.FlushConcurrency
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

func applyEnv(cfg *Config) {
	// .env is optional; a missing file is fine
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

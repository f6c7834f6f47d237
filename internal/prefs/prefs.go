// Package prefs stores the cart view's per-user settings in a small TOML
// file. A missing file is not an error; a corrupt one yields defaults and
// the decode error so callers can log it.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultTheme is used when the file names no theme.
const DefaultTheme = "Nightfox"

const defaultLocation = "~/.config/cartsync/prefs.toml"

// Prefs are the settings the cart view remembers between runs.
type Prefs struct {
	// Theme is the lipgloss palette name.
	Theme string `toml:"theme"`
	// ShowHelp opens the key help overlay at startup.
	ShowHelp bool `toml:"show_help"`
}

// Defaults returns the settings used on first run.
func Defaults() Prefs {
	return Prefs{Theme: DefaultTheme}
}

// DefaultPath returns the default preferences file location.
func DefaultPath() string {
	return defaultLocation
}

// Load reads the preferences at path, or the default location when path
// is blank. Fields the file omits keep their defaults.
func Load(path string) (Prefs, error) {
	p := Defaults()
	file, err := resolve(path)
	if err != nil {
		return p, err
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("decode prefs %s: %w", file, err)
	}
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = DefaultTheme
	}
	return p, nil
}

// Save replaces the preferences file. The write goes through a temp file
// in the same directory so a crash never leaves a truncated file behind.
func Save(path string, p Prefs) error {
	file, err := resolve(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultLocation
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	return filepath.Abs(path)
}

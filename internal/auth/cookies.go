package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// EnvCookies holds a JSON cookie array that takes precedence over the file.
const EnvCookies = "X_AUTH_COOKIES"

const cookiesFile = "cookies.json"

// Cookie is a browser session cookie in the shape the browser exports it.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // seconds since epoch, -1 for session cookies
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"` // Strict, Lax or None
}

// Store persists cookies as JSON inside a config directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. An empty dir uses DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// DefaultDir returns ~/.clipmd.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".clipmd")
}

// Path returns the cookie file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, cookiesFile)
}

// Load returns saved cookies, or nil when none are stored.
// The X_AUTH_COOKIES environment variable wins over the file.
func (s *Store) Load() ([]Cookie, error) {
	if env := os.Getenv(EnvCookies); env != "" {
		var cookies []Cookie
		if err := json.Unmarshal([]byte(env), &cookies); err == nil {
			return cookies, nil
		}
		slog.Warn("ignoring invalid cookie JSON in environment", "var", EnvCookies)
	}

	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		slog.Warn("ignoring unreadable cookie file", "path", s.Path(), "error", err)
		return nil, nil
	}
	return cookies, nil
}

// Save writes cookies to disk, creating the config directory if needed.
func (s *Store) Save(cookies []Cookie) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies: %w", err)
	}
	return nil
}

// Clear removes the cookie file. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cookies: %w", err)
	}
	return nil
}

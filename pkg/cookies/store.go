// Package cookies persists browser session cookies so authenticated
// state survives session rotation and process restarts.
package cookies

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/browser"
)

// DefaultPath is where the cookie jar lives when the config does not
// say otherwise.
const DefaultPath = "uber_cookies.json"

// Store reads and writes a cookie jar file. Load is best-effort: a
// missing or corrupt jar leaves the session cookie-less rather than
// failing the run.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, log *zap.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

// Path returns the jar's file path.
func (s *Store) Path() string {
	return s.path
}

// Save serializes the session's current cookie set to the jar,
// replacing whatever was there. The write goes through a temp file so
// a crash cannot leave a half-written jar.
func (s *Store) Save(page browser.PageSession) error {
	cookies, err := page.Cookies()
	if err != nil {
		return fmt.Errorf("reading session cookies: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp cookie file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cookies); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.log.Debug("cookies saved", zap.String("path", s.path), zap.Int("count", len(cookies)))
	return nil
}

// LoadInto applies the jar's cookies to the session and refreshes the
// page so they take effect. Expiry is stripped from every cookie
// before application, so replayed sessions never expire client-side.
// Returns how many cookies were applied; every failure mode is logged
// and absorbed.
func (s *Store) LoadInto(ctx context.Context, page browser.PageSession) int {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("no cookie jar yet", zap.String("path", s.path))
		} else {
			s.log.Warn("failed to read cookie jar", zap.String("path", s.path), zap.Error(err))
		}
		return 0
	}

	var cookies []browser.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		s.log.Warn("failed to decode cookie jar", zap.String("path", s.path), zap.Error(err))
		return 0
	}

	applied := 0
	for _, cookie := range cookies {
		cookie.Expires = 0
		if err := page.AddCookie(cookie); err != nil {
			s.log.Warn("skipping cookie", zap.String("name", cookie.Name), zap.Error(err))
			continue
		}
		applied++
	}

	if err := page.Refresh(ctx); err != nil {
		s.log.Warn("failed to refresh after cookie restore", zap.Error(err))
	}

	s.log.Debug("cookies restored", zap.String("path", s.path), zap.Int("count", applied))
	return applied
}

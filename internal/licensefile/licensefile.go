// Package licensefile reads and writes the local cached license files the
// CLI keeps alongside installed packages.
package licensefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/skillgate/skillgate/internal/models"
)

// ErrNotFound indicates no license file exists for the package.
var ErrNotFound = errors.New("license file not found")

// DefaultDir returns the default licenses directory (~/.skillgate/licenses).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".skillgate", "licenses"), nil
}

// Path returns the license file path for a package within dir.
func Path(dir, pkg string) string {
	return filepath.Join(dir, pkg+".json")
}

// Read loads the cached license for a package. Returns ErrNotFound when
// the file does not exist, which callers treat as an unmanaged package.
func Read(dir, pkg string) (*models.CachedLicense, error) {
	data, err := os.ReadFile(Path(dir, pkg))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read license file: %w", err)
	}

	var cached models.CachedLicense
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("parse license file: %w", err)
	}
	return &cached, nil
}

// List returns the cached licenses in dir, skipping files that fail to
// parse. A missing directory yields an empty list.
func List(dir string) ([]*models.CachedLicense, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read licenses directory: %w", err)
	}

	var out []*models.CachedLicense
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		pkg := e.Name()[:len(e.Name())-len(".json")]
		cached, err := Read(dir, pkg)
		if err != nil {
			continue
		}
		out = append(out, cached)
	}
	return out, nil
}

// Write persists a cached license, creating the directory if needed. The
// write goes through a temp file and rename so readers never observe a
// torn file. Concurrent writers are not coordinated; last write wins.
func Write(dir string, cached *models.CachedLicense) error {
	if cached.Package == "" {
		return errors.New("cached license missing package")
	}
	if cached.InstalledAt.IsZero() {
		cached.InstalledAt = time.Now()
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create licenses directory: %w", err)
	}

	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal license file: %w", err)
	}

	path := Path(dir, cached.Package)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write license file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace license file: %w", err)
	}
	return nil
}

// UpdateExpiry rewrites a cached license with a refreshed expiry after a
// successful online validation.
func UpdateExpiry(dir string, cached *models.CachedLicense, expiresAt time.Time) error {
	cached.License.ExpiresAt = expiresAt
	return Write(dir, cached)
}

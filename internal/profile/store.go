package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileName is the profile record inside a cache directory.
const FileName = "profile.json"

// ErrNotFound: the directory has no profile yet.
var ErrNotFound = errors.New("profile not found")

// Store loads and saves profiles inside cache directories.
type Store struct {
	logger *slog.Logger
}

// NewStore creates a store logging to logger (nil for the default).
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger.With("component", "profile")}
}

// Path returns the record location for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Read returns the persisted profile of dir. It fails with ErrNotFound when
// there is none and ErrInvalid when the record is unreadable or breaks the
// profile invariants.
func (s *Store) Read(dir string) (Profile, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p.Clone(), nil
}

// Load returns the profile of dir. A missing profile is created with the
// defaults and persisted. An invalid one is left on disk untouched and the
// defaults are used until the next Save overwrites it.
func (s *Store) Load(dir string) Profile {
	p, err := s.Read(dir)
	switch {
	case err == nil:
		s.logger.Info("profile: loaded", "path", Path(dir))
		return p
	case errors.Is(err, ErrNotFound):
		s.logger.Warn("profile: not found, creating profile", "path", Path(dir))
		p = Default()
		if err := s.Save(dir, p); err != nil {
			s.logger.Error("profile: could not persist default", "path", Path(dir), "err", err)
		}
		return p
	default:
		s.logger.Error("profile: unusable, using defaults", "path", Path(dir), "err", err)
		return Default()
	}
}

// Save writes p into dir, creating the directory if needed. Invalid
// profiles are rejected so a degenerate record never reaches disk.
func (s *Store) Save(dir string, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(p.Clone())
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), Path(dir)); err != nil {
		return err
	}
	s.logger.Info("profile: saved", "path", Path(dir))
	return nil
}

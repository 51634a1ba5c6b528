// Package dossier persists job dossiers as one JSON file per job inside a
// phase directory and indexes them by ID.
package dossier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/council"
)

// Store reads and writes dossiers under a single directory.
type Store struct {
	dir    string
	logger *zap.Logger

	idIndex map[string]string
	indexed bool
}

// NewStore creates the directory when needed and returns a store rooted at
// it.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dossier dir %q: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the paths of all dossier files in deterministic order.
func (s *Store) List() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list dossiers: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads one dossier file.
func (s *Store) Load(path string) (*council.Dossier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dossier %q: %w", path, err)
	}

	var d council.Dossier
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dossier %q: %w", path, err)
	}

	return &d, nil
}

// Save writes the dossier back to path. The write goes through a temp file
// and a rename so a crash never leaves a truncated dossier behind.
func (s *Store) Save(path string, d *council.Dossier) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dossier %q: %w", d.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".dossier-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp dossier file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp dossier file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp dossier file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename dossier into place: %w", err)
	}

	s.indexed = false
	return nil
}

// SaveNew writes a dossier that does not yet have a file, naming it after
// its ID.
func (s *Store) SaveNew(d *council.Dossier) (string, error) {
	if strings.TrimSpace(d.ID) == "" {
		return "", fmt.Errorf("dossier has no id")
	}
	path := filepath.Join(s.dir, d.ID+".json")
	if err := s.Save(path, d); err != nil {
		return "", err
	}
	return path, nil
}

// FindByID locates a dossier file by job ID. IDs produced by different
// phases sometimes disagree on trailing underscores or get truncated in
// filenames, so exact lookup degrades to a fuzzy match.
func (s *Store) FindByID(jobID string) (string, bool) {
	if err := s.buildIndex(); err != nil {
		s.logger.Warn("indexing dossiers failed", zap.Error(err))
		return "", false
	}

	if path, ok := s.idIndex[jobID]; ok {
		return path, true
	}

	clean := strings.Trim(jobID, "_")
	for storedID, path := range s.idIndex {
		storedClean := strings.Trim(storedID, "_")
		if storedClean == clean {
			return path, true
		}
		if strings.Contains(storedClean, clean) || strings.Contains(clean, storedClean) {
			return path, true
		}
	}

	return "", false
}

func (s *Store) buildIndex() error {
	if s.indexed {
		return nil
	}

	paths, err := s.List()
	if err != nil {
		return err
	}

	s.idIndex = make(map[string]string, len(paths))
	for _, path := range paths {
		d, err := s.Load(path)
		if err != nil {
			// A corrupt dossier should not block indexing of the rest.
			s.logger.Debug("skipping unreadable dossier", zap.String("path", path), zap.Error(err))
			continue
		}
		if d.ID != "" {
			s.idIndex[d.ID] = path
		}
	}

	s.indexed = true
	return nil
}

package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/log"
)

// Store is the only writer of the persisted scheduler state. Every save is
// a temp-file write + fsync + rename, so a crash mid-write never corrupts
// the previous record.
type Store struct {
	path   string
	clock  clock.Clock
	logger log.Logger
}

// NewStore returns a Store that persists to path. The parent directory is
// created lazily on first Save.
func NewStore(path string, clk clock.Clock, logger log.Logger) *Store {
	return &Store{path: path, clock: clk, logger: logger}
}

// Save atomically writes state and a snapshot of config to disk.
func (s *Store) Save(st ScheduleState, cfg *ScheduleSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("state: create directory: %w", err)
	}

	record := PersistentRecord{
		Version: SchemaVersion,
		State:   st,
		Config:  cfg,
		SavedAt: s.clock.Now(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("state: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("state: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("state: rename into place: %w", err)
	}
	return nil
}

// Load returns the persisted state and, if present, the config snapshot
// written alongside it. A missing file yields a fresh default state and no
// error. A corrupted or version-mismatched file is renamed aside with a
// dated suffix and a fresh default state is returned; Load never errors on
// a damaged record, only on I/O failures it cannot route around.
func (s *Store) Load() (ScheduleState, *ScheduleSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ScheduleState{}, nil, nil
	}
	if err != nil {
		return ScheduleState{}, nil, fmt.Errorf("state: read: %w", err)
	}

	var record PersistentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.backupCorrupted("unmarshal failed: " + err.Error())
		return ScheduleState{}, nil, nil
	}
	if record.Version != SchemaVersion {
		s.backupCorrupted(fmt.Sprintf("unknown schema version %q", record.Version))
		return ScheduleState{}, nil, nil
	}

	return record.State, record.Config, nil
}

func (s *Store) backupCorrupted(reason string) {
	suffix := s.clock.Now().Format("20060102_150405")
	backupPath := fmt.Sprintf("%s.corrupted.%s.json", s.path, suffix)
	if err := os.Rename(s.path, backupPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Errorf("state: failed to back up corrupted record: %v", err)
		return
	}
	s.logger.Warnf("state: backed up corrupted record to %s: %s", backupPath, reason)
}

// Delete removes the persisted record, if any.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether a persisted record is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

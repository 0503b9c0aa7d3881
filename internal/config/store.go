package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	goccyyaml "github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"github.com/engels74/tgraph-bot-go/internal/log"
)

// Store is a typed, hot-reloadable configuration loader: a viper-backed
// reader (AddConfigPath/SetConfigType/SetConfigName/SetConfigFile, with
// fsnotify-driven hot reload via WatchConfig) paired with a goccy/go-yaml
// atomic-write path for Save, reusing the temp-file+fsync+rename pattern
// from internal/state/store.go.
type Store struct {
	path   string
	logger log.Logger
	v      *viper.Viper

	mu       sync.RWMutex
	current  *Config
	watching bool
	onChange []func(*Config)
}

// New returns a Store reading from and writing to path. It does not load
// until Load is called.
func New(path string, logger log.Logger) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return &Store{path: path, logger: logger, v: v}
}

// Load reads the document at path, writing (and then re-reading) a fresh
// default document if none exists yet. It does not validate; call Validate
// explicitly so callers can distinguish "missing file" from "invalid
// values" at startup.
func (s *Store) Load() (*Config, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.Save(Default()); err != nil {
			return nil, fmt.Errorf("config: write default document: %w", err)
		}
	}

	if err := s.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", s.path, err)
	}

	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.current = &cfg
	s.mu.Unlock()
	return &cfg, nil
}

// Save marshals cfg with goccy/go-yaml and writes it atomically: a temp
// file in the same directory, fsynced, then renamed into place, so a crash
// mid-write never corrupts the previous document.
func (s *Store) Save(cfg *Config) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := goccyyaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("config: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// Current returns the last successfully loaded document.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// View returns the masked, display-ready representation of the current
// document (the `config view` command surface).
func (s *Store) View() map[string]string {
	return View(s.Current())
}

// OnChange registers a callback invoked with the newly loaded document
// every time the on-disk file changes and the new contents pass Validate.
// An invalid reload is logged and ignored, leaving Current() unchanged.
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
	if !s.watching {
		s.watching = true
		s.v.OnConfigChange(s.handleFileChange)
		s.v.WatchConfig()
	}
}

func (s *Store) handleFileChange(_ fsnotify.Event) {
	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		s.logger.Warnf("config: reload failed to unmarshal, keeping previous document: %v", err)
		return
	}
	if err := Validate(&cfg); err != nil {
		s.logger.Warnf("config: reload rejected invalid document, keeping previous document: %v", err)
		return
	}

	s.mu.Lock()
	s.current = &cfg
	callbacks := append([]func(*Config){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(&cfg)
	}
}

// EditValue applies a single `config edit <key> <value>` change: sanitizes
// and validates the raw value, persists the full document, updates the
// in-memory copy, and fires OnChange callbacks. Returns whether this key
// requires a restart to take effect; IsScheduleAffecting reports whether it
// affects the schedule.
func (s *Store) EditValue(key, rawValue string) (restartRequired bool, err error) {
	meta, ok := Metadata[key]
	if !ok {
		return false, fmt.Errorf("config: %q is not an editable key", key)
	}

	s.mu.Lock()
	cfg := *s.current // shallow copy; maps are shared but we only ever replace scalar leaves here
	s.mu.Unlock()

	if err := applyEdit(&cfg, key, rawValue, meta); err != nil {
		return false, err
	}
	if err := Validate(&cfg); err != nil {
		return false, err
	}
	if err := s.Save(&cfg); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.current = &cfg
	callbacks := append([]func(*Config){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(&cfg)
	}
	return meta.RestartRequired, nil
}

// IsScheduleAffecting reports whether key requires a scheduler refresh when
// changed.
func IsScheduleAffecting(key string) bool {
	return scheduleAffectingKeys[key]
}

// Package state persists the bot's small configuration blob (bound group,
// daily schedule, last round counters) as a JSON file.
//
// Only durable settings live here. The active flag, participants and
// submissions of a running round are never written.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "github.com/edgard/collectbot/internal/errors"
	"github.com/edgard/collectbot/internal/logger"
)

const (
	stateFileMode   = 0o600
	stateDirMode    = 0o755
	tempFilePattern = ".state-*.tmp"
)

// RoundStats are the counters of the last finished round.
type RoundStats struct {
	Timestamp float64 `json:"timestamp"`
	UserCount int     `json:"user_count"`
	LinkCount int     `json:"link_count"`
}

// FinishedAt converts Timestamp to a time. Zero when no round finished yet.
func (r RoundStats) FinishedAt() time.Time {
	return FromUnixSeconds(r.Timestamp)
}

// State is the persisted blob.
type State struct {
	GroupID          *int64     `json:"group_id"`
	AutoTimes        []string   `json:"auto_times"`
	LastCollectStats RoundStats `json:"last_collect_stats"`
	BotStartTime     float64    `json:"bot_start_time"`
}

// Group returns the bound group id, 0 when unset.
func (s State) Group() int64 {
	if s.GroupID == nil {
		return 0
	}
	return *s.GroupID
}

func (s State) clone() State {
	c := s
	if s.GroupID != nil {
		id := *s.GroupID
		c.GroupID = &id
	}
	c.AutoTimes = append([]string{}, s.AutoTimes...)
	return c
}

// FromUnixSeconds is the inverse of UnixSeconds. Zero yields the zero time.
func FromUnixSeconds(v float64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// UnixSeconds converts t to the fractional seconds stored in the file.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Store keeps the current state in memory and rewrites the file after
// every update.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// Open loads the state file at path. A missing file yields an empty state.
// A malformed file yields an empty state and a ConfigError; the returned
// Store is usable in both cases.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	s := &Store{
		path:   path,
		logger: log.With("component", "state"),
		state:  State{AutoTimes: []string{}},
	}

	loaded, err := readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("State file not found, starting fresh", "path", path)
			return s, nil
		}
		s.logger.Warn("State file unreadable, falling back to defaults", "path", path, "error", err)
		return s, errs.NewConfigError(fmt.Sprintf("load state file %s", path), err)
	}

	if loaded.AutoTimes == nil {
		loaded.AutoTimes = []string{}
	}
	s.state = loaded
	s.logger.Info("State loaded", "path", path, "group_id", loaded.Group(), "auto_times", loaded.AutoTimes)
	return s, nil
}

func readFile(path string) (State, error) {
	var st State
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Update applies fn to the state and writes the file. The in-memory state
// keeps the change even if the write fails.
func (s *Store) Update(fn func(st *State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	if err := s.write(s.state); err != nil {
		s.logger.Error("Failed to save state", "path", s.path, "error", err)
		return err
	}
	s.logger.Debug("State saved", "path", s.path)
	return nil
}

// write replaces the file atomically through a temp file and rename.
func (s *Store) write(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false
	return nil
}

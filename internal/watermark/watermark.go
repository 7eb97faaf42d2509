// Package watermark persists the pipeline's extraction boundary across
// process invocations as a small JSON state file.
package watermark

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCorrupted marks an unreadable state file. Absence of the file is
// a normal first run; corruption is fatal, because silently resetting
// the watermark would cause unbounded reprocessing.
var ErrCorrupted = errors.New("watermark: state file corrupted")

// State is the persisted watermark: how far the last successful run
// has processed, and when it ran. Both fields are nil before the first
// successful run.
type State struct {
	LastFileDate *time.Time `json:"last_file_date"`
	LastRunUTC   *time.Time `json:"last_run_utc"`
}

// Advance moves the watermark forward to maxFileDate and records the
// run time. LastFileDate never decreases: a stale candidate leaves the
// boundary where it was.
func (s *State) Advance(maxFileDate, runTime time.Time) {
	if s.LastFileDate == nil || maxFileDate.After(*s.LastFileDate) {
		fd := maxFileDate
		s.LastFileDate = &fd
	}
	rt := runTime.UTC()
	s.LastRunUTC = &rt
}

// Store reads and writes the watermark state file.
type Store struct {
	path string
}

// NewStore creates a store for the given state file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state. found is false when the file does
// not exist (first run); an unparseable file returns an error wrapping
// ErrCorrupted, distinct from absence.
func (s *Store) Load() (State, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, eris.Wrapf(err, "watermark: read %s", s.path)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, eris.Wrapf(ErrCorrupted, "watermark: parse %s: %v", s.path, err)
	}
	return st, true, nil
}

// Save persists the state atomically: write to a temp file in the same
// directory, then rename over the target. The parent directory is
// created if absent.
func (s *Store) Save(st State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "watermark: create state dir %s", dir)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return eris.Wrap(err, "watermark: marshal state")
	}

	tmp, err := os.CreateTemp(dir, ".watermark-*.json")
	if err != nil {
		return eris.Wrapf(err, "watermark: create temp file in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "watermark: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "watermark: close %s", tmpName)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "watermark: rename %s to %s", tmpName, s.path)
	}
	return nil
}

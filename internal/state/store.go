package state

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Store is the single writer of the snapshot file and the event record
// stream. Both carry the same serialization of every published state.
type Store struct {
	mu           sync.Mutex
	snapshotPath string
	eventsPath   string
	pretty       bool

	current UiState
}

// NewStore builds a store targeting the configured output paths and
// creates their parent directories.
func NewStore(snapshotPath, eventsPath string, pretty bool) *Store {
	for _, p := range []string{snapshotPath, eventsPath} {
		if dir := filepath.Dir(p); dir != "" {
			_ = os.MkdirAll(dir, 0o700)
		}
	}
	return &Store{
		snapshotPath: snapshotPath,
		eventsPath:   eventsPath,
		pretty:       pretty,
	}
}

// Current returns the last published state. It stays authoritative even
// when persistence fails.
func (s *Store) Current() UiState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Publish overwrites the snapshot atomically and appends one record of
// the identical state to the event stream. Persistence failures are
// logged and absorbed; the in-memory state is updated regardless.
func (s *Store) Publish(st UiState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = st

	line, err := json.Marshal(st)
	if err != nil {
		log.Printf("state: marshal failed: %v", err)
		return
	}

	if err := s.writeSnapshot(st, line); err != nil {
		log.Printf("state: snapshot write failed: %v", err)
	}
	if err := s.appendEvent(line); err != nil {
		log.Printf("state: event append failed: %v", err)
	}
}

func (s *Store) writeSnapshot(st UiState, compact []byte) error {
	out := compact
	if s.pretty {
		var err error
		out, err = json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
	}
	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.snapshotPath)
}

func (s *Store) appendEvent(line []byte) error {
	f, err := os.OpenFile(s.eventsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	stateFileName = "narr.json"
	hashBytes     = 8192 // First 8KB for content hash
)

// Position is where reading stopped within a story.
type Position struct {
	Chapter  int `json:"chapter"`
	Sentence int `json:"sentence"`
}

type fileData struct {
	Settings  Settings            `json:"settings"`
	Positions map[string]Position `json:"positions"`
}

// Store persists reader settings and per-story positions as JSON.
type Store struct {
	path string
	data fileData
	mu   sync.RWMutex
}

// NewStore creates or loads state from XDG_STATE_HOME/narr/
func NewStore() (*Store, error) {
	return NewStoreAt(getStateDir())
}

// NewStoreAt creates or loads state from dir. A corrupt state file is
// ignored and replaced on the next save.
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	store := &Store{
		path: filepath.Join(dir, stateFileName),
		data: fileData{Settings: DefaultSettings(), Positions: make(map[string]Position)},
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = fileData{Settings: DefaultSettings(), Positions: make(map[string]Position)}
	}
	return store, nil
}

// getStateDir returns XDG_STATE_HOME/narr or ~/.local/state/narr
func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "narr")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "narr")
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// ComputeHash generates content hash for file identity
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

// Settings returns the saved reader settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Settings
}

// SaveSettings normalizes and persists settings, returning what was stored.
func (s *Store) SaveSettings(settings Settings) (Settings, error) {
	settings = settings.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Settings = settings
	return settings, s.save()
}

// Position returns the saved position for a story.
func (s *Store) Position(storyID string) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.Positions[storyID]
	return p, ok
}

// SetPosition saves the position for a story
func (s *Store) SetPosition(storyID string, p Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Positions[storyID] = p
	return s.save()
}

// Clear removes saved position for a story
func (s *Store) Clear(storyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.Positions, storyID)
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	// Missing keys keep their defaults.
	if err := json.Unmarshal(data, &s.data); err != nil {
		return err
	}
	if s.data.Positions == nil {
		s.data.Positions = make(map[string]Position)
	}
	s.data.Settings = s.data.Settings.Normalize()
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

type fileState struct {
	Token   string `json:"token,omitempty"`
	GuestID string `json:"guestCartId"`
}

// FileStore persists the token and guest id in a JSON file so they survive restarts.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	state fileState
}

// OpenFileStore loads path, creating it with a new guest id when it does not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read identity file: %w", err)
	default:
		if err := json.Unmarshal(data, &s.state); err != nil {
			return nil, fmt.Errorf("decode identity file %s: %w", path, err)
		}
	}

	if s.state.GuestID == "" {
		s.state.GuestID = NewGuestID()
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *FileStore) GuestID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GuestID
}

func (s *FileStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Token = token
	return s.save()
}

func (s *FileStore) ClearToken() error {
	return s.SetToken("")
}

// Reset forgets the token and issues a new guest id.
func (s *FileStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fileState{GuestID: NewGuestID()}
	return s.save()
}

// save writes atomically via a temp file; callers hold the lock.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

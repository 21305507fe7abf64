package credentials

//go:generate go run go.uber.org/mock/mockgen -source=./credentials.go -destination=./mocks/credentials_mock.go -package=mocks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"quickassist/config"
	"quickassist/shared/constant"
)

// Store holds the bearer credential pair, the client-local analog of
// the browser client's localStorage entries. Only the session service
// (login/logout) and the REST client (refresh handling) may write it.
type Store interface {
	Access() string
	Refresh() string
	Set(access, refresh string) error
	SetAccess(access string) error
	Clear() error
}

type fileStore struct {
	path string

	mu      sync.RWMutex
	access  string
	refresh string
}

// NewFileStore loads any previously persisted pair from the configured
// credentials file. A missing or unreadable file starts an empty store.
func NewFileStore(cfg *config.Config) Store {
	store := &fileStore{path: cfg.Auth.CredentialsFile}

	if err := store.load(); err != nil {
		log.Warn().Err(err).Str("path", store.path).Msg("No persisted credentials loaded, starting unauthenticated")
	}

	return store
}

func (s *fileStore) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.access
}

func (s *fileStore) Refresh() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.refresh
}

func (s *fileStore) Set(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access
	s.refresh = refresh

	return s.persist()
}

func (s *fileStore) SetAccess(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access

	return s.persist()
}

func (s *fileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = constant.Empty
	s.refresh = constant.Empty

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}

	return nil
}

func (s *fileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	var stored map[string]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("failed to decode credentials file: %w", err)
	}

	s.access = stored[constant.StorageKeyAccessToken]
	s.refresh = stored[constant.StorageKeyRefreshToken]

	return nil
}

// persist is called with the write lock held.
func (s *fileStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	raw, err := json.Marshal(map[string]string{
		constant.StorageKeyAccessToken:  s.access,
		constant.StorageKeyRefreshToken: s.refresh,
	})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

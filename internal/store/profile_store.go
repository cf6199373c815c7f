package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"cipherchat/internal/domain"
)

const profilesFile = "accounts.json"

// ProfileFileStore persists per-server account profiles to disk.
type ProfileFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewProfileFileStore returns a ProfileFileStore rooted at dir.
func NewProfileFileStore(dir string) *ProfileFileStore {
	return &ProfileFileStore{dir: dir}
}

// SaveAccountProfile stores or updates the given profile.
func (s *ProfileFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, profilesFile)
	profiles := make(map[string]domain.AccountProfile)
	if err := readJSON(path, &profiles); err != nil {
		return fmt.Errorf("read profiles: %w", err)
	}
	profiles[profileKey(profile.ServerURL, profile.Username)] = profile
	return writeJSON(path, profiles, 0o600)
}

// LoadAccountProfile retrieves a profile for (serverURL, username).
func (s *ProfileFileStore) LoadAccountProfile(
	serverURL string,
	username domain.Username,
) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, profilesFile)
	profiles := make(map[string]domain.AccountProfile)
	if err := readJSON(path, &profiles); err != nil {
		return domain.AccountProfile{}, false, err
	}
	profile, ok := profiles[profileKey(serverURL, username)]
	return profile, ok, nil
}

// ListAccountProfiles returns every saved profile for serverURL.
func (s *ProfileFileStore) ListAccountProfiles(serverURL string) ([]domain.AccountProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make(map[string]domain.AccountProfile)
	if err := readJSON(filepath.Join(s.dir, profilesFile), &profiles); err != nil {
		return nil, err
	}
	out := make([]domain.AccountProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.ServerURL == serverURL {
			out = append(out, p)
		}
	}
	return out, nil
}

func profileKey(serverURL string, username domain.Username) string {
	return fmt.Sprintf("%s|%s", serverURL, username.String())
}

// Compile-time assertion that ProfileFileStore implements domain.ProfileStore.
var _ domain.ProfileStore = (*ProfileFileStore)(nil)

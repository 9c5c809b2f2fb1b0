// Package audiometry implements the hearing threshold test procedure and
// the mapping from measured thresholds to signal-path parameters.
//
// This file implements the in-memory profile store. Profiles are kept
// resident for the session under caller-chosen names; durable storage is
// an external concern.
package audiometry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StoredProfile is a named, timestamped hearing profile.
type StoredProfile struct {
	Name      string
	Profile   HearingProfile
	SessionID string
	SavedAt   time.Time
}

// ProfileStore holds named hearing profiles for the lifetime of the
// process. Safe for concurrent use.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]StoredProfile
}

// NewProfileStore creates an empty profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]StoredProfile),
	}
}

// Save stores a profile under a name, replacing any previous profile
// with that name. The store keeps its own copy, so later mutation of
// the passed profile does not affect what was saved.
//
// Parameters:
//   - name: Profile name, must be non-blank
//   - profile: Thresholds to store
//   - sessionID: Test session the profile came from, may be empty
//
// Returns:
//   - error: ErrEmptyProfileName for a blank name
func (s *ProfileStore) Save(name string, profile HearingProfile, sessionID string) error {
	if name == "" {
		logrus.WithFields(logrus.Fields{
			"function": "ProfileStore.Save",
			"error":    "empty name",
		}).Error("Profile name validation failed")
		return fmt.Errorf("save profile: %w", ErrEmptyProfileName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[name] = StoredProfile{
		Name:      name,
		Profile:   profile.Clone(),
		SessionID: sessionID,
		SavedAt:   time.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"function":   "ProfileStore.Save",
		"name":       name,
		"session_id": sessionID,
		"thresholds": len(profile),
	}).Info("Profile saved")

	return nil
}

// Load returns a copy of the stored profile with the given name.
//
// Parameters:
//   - name: Profile name
//
// Returns:
//   - StoredProfile: Independent copy of the stored entry
//   - error: ErrNoSuchProfile if the name was never saved,
//     ErrEmptyProfileName for a blank name
func (s *ProfileStore) Load(name string) (StoredProfile, error) {
	if name == "" {
		return StoredProfile{}, fmt.Errorf("load profile: %w", ErrEmptyProfileName)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.profiles[name]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "ProfileStore.Load",
			"name":     name,
		}).Error("Profile not found")
		return StoredProfile{}, fmt.Errorf("load profile %q: %w", name, ErrNoSuchProfile)
	}

	stored.Profile = stored.Profile.Clone()
	return stored, nil
}

// Delete removes a stored profile.
//
// Parameters:
//   - name: Profile name
//
// Returns:
//   - error: ErrNoSuchProfile if the name was never saved
func (s *ProfileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("delete profile %q: %w", name, ErrNoSuchProfile)
	}
	delete(s.profiles, name)

	logrus.WithFields(logrus.Fields{
		"function": "ProfileStore.Delete",
		"name":     name,
	}).Info("Profile deleted")

	return nil
}

// Names returns the stored profile names in sorted order.
func (s *ProfileStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of stored profiles.
func (s *ProfileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

package handler_test

import (
	"sync"

	"nativeteacher/backend/internal/models"
	"nativeteacher/backend/internal/storage"
)

// memStore is an in-memory ProfileStore with real CAS semantics, so handler
// tests can drive the whole pipeline without Postgres.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	matches  []*models.Match
	names    map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]*models.UserProfile),
		names:    make(map[string]string),
	}
}

func (s *memStore) GetProfile(id string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *memStore) CreateProfile(profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.Version = 1
	c := *profile
	s.profiles[profile.ID] = &c
	return nil
}

func (s *memStore) UpdateProfileIfVersion(profile *models.UserProfile, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.profiles[profile.ID]
	if !ok || stored.Version != expectedVersion {
		return storage.ErrVersionConflict
	}
	profile.Version = expectedVersion + 1
	c := *profile
	s.profiles[profile.ID] = &c
	return nil
}

func (s *memStore) FindOneWaiting(knownLanguage, desiredLanguage string, exclude ...string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	for _, p := range s.profiles {
		if excluded[p.ID] {
			continue
		}
		if p.ConversationState == models.StateWaitingForMatch &&
			p.KnownLanguage == knownLanguage && p.DesiredLanguage == desiredLanguage {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) SaveMatch(match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, match)
	return nil
}

func (s *memStore) CountMatches() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matches)), nil
}

func (s *memStore) CountWaitingByPair() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, p := range s.profiles {
		if p.ConversationState == models.StateWaitingForMatch {
			counts[p.KnownLanguage+"->"+p.DesiredLanguage]++
		}
	}
	return counts, nil
}

func (s *memStore) CachedDisplayName(psid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[psid], nil
}

func (s *memStore) CacheDisplayName(psid, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[psid] = name
	return nil
}

// fakeSender records outbound traffic.
type sentMessage struct {
	RecipientID string
	Message     models.OutboundMessage
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) Send(recipientID string, message models.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{RecipientID: recipientID, Message: message})
	return nil
}

func (f *fakeSender) messagesFor(recipientID string) []models.OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OutboundMessage
	for _, m := range f.sent {
		if m.RecipientID == recipientID {
			out = append(out, m.Message)
		}
	}
	return out
}

// fakeNames maps PSIDs to display names.
type fakeNames struct {
	names map[string]string
}

func (f *fakeNames) FetchDisplayName(psid string) (string, error) {
	return f.names[psid], nil
}

package match_test

import (
	"nativeteacher/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.ProfileStore interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetProfile(id string) (*models.UserProfile, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockStorage) CreateProfile(profile *models.UserProfile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockStorage) UpdateProfileIfVersion(profile *models.UserProfile, expectedVersion int64) error {
	args := m.Called(profile, expectedVersion)
	if args.Error(0) == nil {
		profile.Version = expectedVersion + 1
	}
	return args.Error(0)
}

func (m *MockStorage) FindOneWaiting(knownLanguage, desiredLanguage string, exclude ...string) (*models.UserProfile, error) {
	args := m.Called(knownLanguage, desiredLanguage, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockStorage) SaveMatch(match *models.Match) error {
	args := m.Called(match)
	return args.Error(0)
}

func (m *MockStorage) CountMatches() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CountWaitingByPair() (map[string]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockStorage) CachedDisplayName(psid string) (string, error) {
	args := m.Called(psid)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) CacheDisplayName(psid, name string) error {
	args := m.Called(psid, name)
	return args.Error(0)
}

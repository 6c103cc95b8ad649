package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"nativeteacher/backend/internal/config"
	"nativeteacher/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no profile exists for the given id.
	ErrNotFound = errors.New("profile not found")
	// ErrVersionConflict is returned when a version-checked write loses the
	// race: the stored version no longer matches the expected one.
	ErrVersionConflict = errors.New("profile version conflict")
)

// ProfileStore is the persistence contract consumed by the dispatcher, the
// matching engine and the admin surfaces. The version-checked update is the
// single serialization point for concurrent webhook deliveries.
type ProfileStore interface {
	GetProfile(id string) (*models.UserProfile, error)
	CreateProfile(profile *models.UserProfile) error
	UpdateProfileIfVersion(profile *models.UserProfile, expectedVersion int64) error

	// FindOneWaiting returns the oldest waiting profile with exactly the given
	// language fields, or nil when there is none. Ids listed in exclude are
	// skipped (used to retry past a candidate lost to a concurrent claim).
	FindOneWaiting(knownLanguage, desiredLanguage string, exclude ...string) (*models.UserProfile, error)

	SaveMatch(match *models.Match) error
	CountMatches() (int64, error)
	CountWaitingByPair() (map[string]int64, error)

	CachedDisplayName(psid string) (string, error)
	CacheDisplayName(psid, name string) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// GetProfile loads one profile by PSID.
func (s *Service) GetProfile(id string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.DB.First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to load profile %s: %v", id, err)
		return nil, err
	}
	return &profile, nil
}

// CreateProfile inserts a fresh profile at version 1.
func (s *Service) CreateProfile(profile *models.UserProfile) error {
	if profile.ConversationState == "" {
		profile.ConversationState = models.StateNew
	}
	profile.Version = 1

	if err := s.DB.Create(profile).Error; err != nil {
		log.Printf("ERROR: Failed to create profile %s: %v", profile.ID, err)
		return err
	}
	return nil
}

// UpdateProfileIfVersion writes the profile only if the stored version still
// equals expectedVersion (compare-and-swap). On success the stored and
// in-memory versions are bumped to expectedVersion+1; losing the race returns
// ErrVersionConflict and the caller must reload and recompute.
func (s *Service) UpdateProfileIfVersion(profile *models.UserProfile, expectedVersion int64) error {
	result := s.DB.Model(&models.UserProfile{}).
		Where("id = ? AND version = ?", profile.ID, expectedVersion).
		Updates(map[string]interface{}{
			"display_name":       profile.DisplayName,
			"known_language":     profile.KnownLanguage,
			"desired_language":   profile.DesiredLanguage,
			"conversation_state": profile.ConversationState,
			"matched_with":       profile.MatchedWith,
			"version":            expectedVersion + 1,
		})

	if result.Error != nil {
		log.Printf("ERROR: Failed to update profile %s: %v", profile.ID, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	profile.Version = expectedVersion + 1
	return nil
}

// FindOneWaiting queries the pending pool. Pool membership is derived purely
// from conversation_state, never from a separately maintained list, so a
// profile leaves the pool atomically with its state write.
func (s *Service) FindOneWaiting(knownLanguage, desiredLanguage string, exclude ...string) (*models.UserProfile, error) {
	var profile models.UserProfile

	query := s.DB.
		Where("conversation_state = ?", models.StateWaitingForMatch).
		Where("known_language = ? AND desired_language = ?", knownLanguage, desiredLanguage)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	err := query.Order("updated_at asc").First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to query waiting pool (%s -> %s): %v", knownLanguage, desiredLanguage, err)
		return nil, err
	}
	return &profile, nil
}

// SaveMatch records a committed pairing.
func (s *Service) SaveMatch(match *models.Match) error {
	if err := s.DB.Create(match).Error; err != nil {
		log.Printf("ERROR: Failed to save match %s/%s: %v", match.User1ID, match.User2ID, err)
		return err
	}
	return nil
}

// CountMatches returns the total number of committed pairings.
func (s *Service) CountMatches() (int64, error) {
	var count int64
	if err := s.DB.Model(&models.Match{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type pairCount struct {
	KnownLanguage   string
	DesiredLanguage string
	Total           int64
}

// CountWaitingByPair returns the size of the pending pool per language pair,
// keyed "known->desired". Used by the admin stats surface.
func (s *Service) CountWaitingByPair() (map[string]int64, error) {
	var rows []pairCount
	err := s.DB.Model(&models.UserProfile{}).
		Select("known_language, desired_language, count(*) as total").
		Where("conversation_state = ?", models.StateWaitingForMatch).
		Group("known_language, desired_language").
		Find(&rows).Error
	if err != nil {
		log.Printf("ERROR: Failed to count waiting pool: %v", err)
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[fmt.Sprintf("%s->%s", row.KnownLanguage, row.DesiredLanguage)] = row.Total
	}
	return counts, nil
}

// CachedDisplayName checks Redis for a previously fetched display name.
// A cache miss is not an error.
func (s *Service) CachedDisplayName(psid string) (string, error) {
	name, err := s.Redis.Get(s.Ctx, "display_name:"+psid).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// CacheDisplayName stores a fetched display name so the profile API is hit
// once per user even across restarts.
func (s *Service) CacheDisplayName(psid, name string) error {
	return s.Redis.Set(s.Ctx, "display_name:"+psid, name, config.DisplayNameCacheTTL).Err()
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Match is the durable record of one committed pairing. It is written once by
// the matching engine after both profiles point at each other and is never
// consulted on the hot path; it exists for audit and the admin stats surface.
type Match struct {
	// MatchID is the unique identifier for the pairing (UUID).
	MatchID string `gorm:"primaryKey"`
	// User1ID is the PSID of the user whose search committed the pair.
	User1ID string `gorm:"index"`
	// User2ID is the PSID of the claimed candidate.
	User2ID string `gorm:"index"`
	// Language1 is what User1 teaches (and User2 learns).
	Language1 string
	// Language2 is what User2 teaches (and User1 learns).
	Language2 string
	CreatedAt time.Time
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when none is set.
func (m *Match) BeforeCreate(tx *gorm.DB) (err error) {
	if m.MatchID == "" {
		m.MatchID = uuid.New().String()
	}
	return
}

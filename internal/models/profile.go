package models

import "time"

// Conversation states a profile moves through. A profile is created in StateNew
// on first contact and only ever advances through these via the conversation
// package or the matching engine.
const (
	StateNew                     = "new"
	StateAwaitingKnownLanguage   = "awaiting_known_language"
	StateAwaitingDesiredLanguage = "awaiting_desired_language"
	StateWaitingForMatch         = "waiting_for_match"
	StateMatched                 = "matched"
)

// UserProfile represents one remote user and their progress through the
// sign-up conversation. ID is the platform-assigned sender id (PSID).
type UserProfile struct {
	ID          string `gorm:"primaryKey"`
	DisplayName string
	// KnownLanguage is the language the user can teach. Empty until supplied.
	KnownLanguage string `gorm:"index:idx_waiting_pool"`
	// DesiredLanguage is the language the user wants to learn. Empty until supplied.
	DesiredLanguage   string `gorm:"index:idx_waiting_pool"`
	ConversationState string `gorm:"index:idx_waiting_pool,priority:1"`
	// MatchedWith holds the partner's PSID, set only in StateMatched.
	MatchedWith string
	// Version guards every write; see storage.UpdateProfileIfVersion.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LanguagesComplete reports whether both language fields have been collected.
// Holds for every profile in waiting_for_match or matched.
func (p *UserProfile) LanguagesComplete() bool {
	return p.KnownLanguage != "" && p.DesiredLanguage != ""
}

// Clone returns a copy so the state machine can mutate freely while the
// caller keeps the loaded row for the version check.
func (p *UserProfile) Clone() *UserProfile {
	c := *p
	return &c
}

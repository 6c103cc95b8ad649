// Package match implements the matching engine: finding a reciprocal partner
// for a user who just finished profile entry and committing the pair exactly
// once under concurrent attempts.
package match

import (
	"errors"
	"fmt"
	"log"

	"nativeteacher/backend/internal/conversation"
	"nativeteacher/backend/internal/models"
	"nativeteacher/backend/internal/storage"
)

// selfCommitRetries bounds the reload loop for the second phase of the
// commit. The partner is already claimed at that point, so giving up is not
// an option until the loop is clearly wedged.
const selfCommitRetries = 10

// Notification is an outbound message the dispatcher must deliver on behalf
// of a committed pair.
type Notification struct {
	RecipientID string
	Message     models.OutboundMessage
}

// Result describes a committed pairing.
type Result struct {
	Partner       *models.UserProfile
	Notifications []Notification
}

// Engine searches the waiting pool and commits pairings through
// version-checked writes. It holds no state of its own; the store's CAS is
// the only synchronization.
type Engine struct {
	Storage storage.ProfileStore
}

// NewEngine creates a new matching engine.
func NewEngine(s storage.ProfileStore) *Engine {
	return &Engine{Storage: s}
}

// TryMatch looks for a reciprocal partner for self, which must already be
// persisted in waiting_for_match. It returns (nil, nil) when nobody suitable
// is waiting; that is the expected outcome, not an error.
//
// The commit is two-phase: the candidate is claimed first with a CAS write,
// then self is flipped. Two users racing for the same candidate can therefore
// never both win, and a user concurrently claimed by a third party makes our
// CAS fail instead of ending up matched twice.
func (e *Engine) TryMatch(self *models.UserProfile) (*Result, error) {
	// A reciprocal candidate knows what self wants to learn and wants to
	// learn what self knows.
	candidate, err := e.Storage.FindOneWaiting(self.DesiredLanguage, self.KnownLanguage, self.ID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}

	claimed, err := e.claim(candidate, self.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Somebody else got the candidate first. One more look, skipping the
		// lost candidate; after that, stay in the pool and wait.
		candidate, err = e.Storage.FindOneWaiting(self.DesiredLanguage, self.KnownLanguage, self.ID, candidate.ID)
		if err != nil || candidate == nil {
			return nil, err
		}
		claimed, err = e.claim(candidate, self.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, nil
		}
	}

	// The candidate is committed; now flip our own side. If a concurrent
	// searcher claimed us in the window, the candidate goes back into the
	// pool instead of us overwriting their pair.
	committed, err := e.commitSelf(self, candidate)
	if err != nil {
		return nil, err
	}
	if !committed {
		return nil, nil
	}

	record := &models.Match{
		User1ID:   self.ID,
		User2ID:   candidate.ID,
		Language1: self.KnownLanguage,
		Language2: candidate.KnownLanguage,
	}
	if err := e.Storage.SaveMatch(record); err != nil {
		// Audit record only; the pairing itself is already committed.
		log.Printf("WARN: Match %s/%s committed but not recorded: %v", self.ID, candidate.ID, err)
	}

	log.Printf("Match found: %s (%s) and %s (%s)", self.ID, self.KnownLanguage, candidate.ID, candidate.KnownLanguage)

	return &Result{
		Partner: candidate,
		Notifications: []Notification{
			{RecipientID: self.ID, Message: conversation.MatchFoundMessage(candidate.DisplayName)},
			{RecipientID: candidate.ID, Message: conversation.MatchFoundMessage(self.DisplayName)},
		},
	}, nil
}

// claim attempts the first-phase CAS write on the candidate. A version
// conflict means the candidate was grabbed or mutated concurrently; that is
// reported as claimed=false, not as an error.
func (e *Engine) claim(candidate *models.UserProfile, selfID string) (bool, error) {
	expected := candidate.Version
	candidate.ConversationState = models.StateMatched
	candidate.MatchedWith = selfID

	err := e.Storage.UpdateProfileIfVersion(candidate, expected)
	if errors.Is(err, storage.ErrVersionConflict) {
		log.Printf("Candidate %s claimed concurrently, abandoning", candidate.ID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// commitSelf is the second phase: record the match on our own profile. A
// conflict from a benign concurrent write is retried against the reloaded
// row. A conflict because somebody else claimed us is final: their pair
// stands and the candidate we already claimed is released back to the pool.
func (e *Engine) commitSelf(self *models.UserProfile, candidate *models.UserProfile) (bool, error) {
	current := self
	for attempt := 0; attempt < selfCommitRetries; attempt++ {
		expected := current.Version
		current.ConversationState = models.StateMatched
		current.MatchedWith = candidate.ID

		err := e.Storage.UpdateProfileIfVersion(current, expected)
		if err == nil {
			self.ConversationState = models.StateMatched
			self.MatchedWith = candidate.ID
			self.Version = current.Version
			return true, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return false, err
		}

		fresh, loadErr := e.Storage.GetProfile(self.ID)
		if loadErr != nil {
			return false, loadErr
		}

		if fresh.ConversationState == models.StateMatched {
			if fresh.MatchedWith == candidate.ID {
				// Mutual claim: the candidate's own search grabbed us in the
				// same window, so both rows already point at each other. The
				// lower id finishes the commit so the pair is recorded and
				// announced exactly once.
				self.ConversationState = models.StateMatched
				self.MatchedWith = candidate.ID
				self.Version = fresh.Version
				return self.ID < candidate.ID, nil
			}
			// A concurrent searcher claimed us first. Overwriting their pair
			// would leave them matched to nobody, so ours is the one undone.
			log.Printf("Profile %s claimed by %s concurrently, releasing %s back to the pool", self.ID, fresh.MatchedWith, candidate.ID)
			e.release(candidate)
			return false, nil
		}
		current = fresh
	}

	e.release(candidate)
	return false, fmt.Errorf("failed to commit own side of match %s/%s after %d attempts", self.ID, candidate.ID, selfCommitRetries)
}

// release undoes a first-phase claim: the candidate goes back to
// waiting_for_match so a later search can find them again.
func (e *Engine) release(candidate *models.UserProfile) {
	expected := candidate.Version
	candidate.ConversationState = models.StateWaitingForMatch
	candidate.MatchedWith = ""
	if err := e.Storage.UpdateProfileIfVersion(candidate, expected); err != nil {
		log.Printf("ERROR: Failed to release candidate %s back to the pool: %v", candidate.ID, err)
	}
}

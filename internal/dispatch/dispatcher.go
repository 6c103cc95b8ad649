// Package dispatch connects the webhook to the core: it normalizes inbound
// events, drives the conversation state machine against the profile store,
// triggers the matching engine and pushes replies out through the send
// capability.
package dispatch

import (
	"errors"
	"log"

	"nativeteacher/backend/internal/config"
	"nativeteacher/backend/internal/conversation"
	"nativeteacher/backend/internal/match"
	"nativeteacher/backend/internal/messenger"
	"nativeteacher/backend/internal/models"
	"nativeteacher/backend/internal/storage"
)

// Dispatcher handles one inbound event per call. Calls are independent and
// may run concurrently; the store's version-checked writes are the only
// serialization between them.
type Dispatcher struct {
	Storage storage.ProfileStore
	Machine *conversation.Machine
	Engine  *match.Engine
	Sender  messenger.Sender
	Names   messenger.NameFetcher
	Limiter *LimiterStore
}

// NewDispatcher wires the dispatcher. Limiter may be nil to disable
// throttling (tests do this).
func NewDispatcher(s storage.ProfileStore, m *conversation.Machine, e *match.Engine,
	sender messenger.Sender, names messenger.NameFetcher, limiter *LimiterStore) *Dispatcher {
	return &Dispatcher{
		Storage: s,
		Machine: m,
		Engine:  e,
		Sender:  sender,
		Names:   names,
		Limiter: limiter,
	}
}

// HandleWebhookBody processes every entry of one webhook delivery. A
// malformed entry is skipped; the rest of the batch still runs. The HTTP 200
// ack never depends on what happens here.
func (d *Dispatcher) HandleWebhookBody(body models.WebhookBody) {
	for _, entry := range body.Entry {
		ev, ok := NormalizeEntry(entry)
		if !ok {
			log.Printf("WARN: Skipping malformed webhook entry")
			continue
		}
		d.HandleEvent(ev)
	}
}

// NormalizeEntry extracts the dispatcher's event form from one webhook
// entry. The platform puts a single messaging event per entry.
func NormalizeEntry(entry models.WebhookEntry) (models.InboundEvent, bool) {
	if len(entry.Messaging) == 0 {
		return models.InboundEvent{}, false
	}
	raw := entry.Messaging[0]
	if raw.Sender.ID == "" {
		return models.InboundEvent{}, false
	}

	ev := models.InboundEvent{SenderID: raw.Sender.ID}
	switch {
	case raw.Postback != nil:
		ev.IsPostback = true
		ev.PostbackPayload = raw.Postback.Payload
	case raw.Message != nil:
		ev.Text = raw.Message.Text
		if ev.Text == "" && len(raw.Message.Attachments) > 0 {
			ev.HasAttachment = true
			ev.AttachmentURL = raw.Message.Attachments[0].Payload.URL
		}
	default:
		return models.InboundEvent{}, false
	}
	return ev, true
}

// HandleEvent runs the full pipeline for one normalized event.
func (d *Dispatcher) HandleEvent(ev models.InboundEvent) {
	if d.Limiter != nil && !d.Limiter.Allow(ev.SenderID) {
		log.Printf("WARN: Rate limit exceeded for sender %s, event dropped", ev.SenderID)
		return
	}

	profile, err := d.loadOrCreateProfile(ev.SenderID)
	if err != nil {
		log.Printf("ERROR: Failed to load profile for %s, event dropped: %v", ev.SenderID, err)
		return
	}

	result, ok := d.transitionAndSave(profile, ev)
	if !ok {
		return
	}

	replies := result.Replies
	var notifications []match.Notification

	if result.MatchReady {
		committed, err := d.Engine.TryMatch(result.Profile)
		if err != nil {
			log.Printf("ERROR: Matching attempt for %s failed: %v", ev.SenderID, err)
		}
		if committed == nil {
			// Expected outcome: nobody reciprocal is waiting yet. The user
			// stays in the pool and a later user's search will find them.
			replies = append(replies, models.TextMessage(conversation.MsgStillWaiting))
		} else {
			notifications = committed.Notifications
		}
	}

	for _, reply := range replies {
		if err := d.Sender.Send(ev.SenderID, reply); err != nil {
			log.Printf("ERROR: Failed to send reply to %s: %v", ev.SenderID, err)
		}
	}
	d.sendNotifications(notifications)
}

// transitionAndSave computes the transition and persists it with a bounded
// reload-and-recompute loop. Redelivered events recompute the same pure
// transition, so replays cannot regress state; at worst a prompt is sent
// twice.
func (d *Dispatcher) transitionAndSave(profile *models.UserProfile, ev models.InboundEvent) (conversation.Result, bool) {
	for attempt := 0; attempt < config.MaxSaveRetries; attempt++ {
		result := d.Machine.Transition(profile, ev)

		if !profileChanged(profile, result.Profile) {
			return result, true
		}

		err := d.Storage.UpdateProfileIfVersion(result.Profile, profile.Version)
		if err == nil {
			return result, true
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			log.Printf("ERROR: Failed to persist profile %s, event dropped: %v", profile.ID, err)
			return conversation.Result{}, false
		}

		fresh, loadErr := d.Storage.GetProfile(profile.ID)
		if loadErr != nil {
			log.Printf("ERROR: Failed to reload profile %s after conflict, event dropped: %v", profile.ID, loadErr)
			return conversation.Result{}, false
		}
		profile = fresh
	}

	log.Printf("ERROR: Gave up persisting profile %s after %d conflicts, event dropped", profile.ID, config.MaxSaveRetries)
	return conversation.Result{}, false
}

func profileChanged(before, after *models.UserProfile) bool {
	return before.ConversationState != after.ConversationState ||
		before.KnownLanguage != after.KnownLanguage ||
		before.DesiredLanguage != after.DesiredLanguage ||
		before.MatchedWith != after.MatchedWith
}

// loadOrCreateProfile fetches the profile, creating it on first contact. The
// display name is fetched once through the cache; failures there degrade to
// an unpersonalized greeting, never to a dropped event.
func (d *Dispatcher) loadOrCreateProfile(psid string) (*models.UserProfile, error) {
	profile, err := d.Storage.GetProfile(psid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	profile = &models.UserProfile{
		ID:                psid,
		DisplayName:       d.lookupDisplayName(psid),
		ConversationState: models.StateNew,
	}
	if createErr := d.Storage.CreateProfile(profile); createErr != nil {
		// A concurrent delivery may have created the row first; reload wins.
		if existing, loadErr := d.Storage.GetProfile(psid); loadErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return profile, nil
}

func (d *Dispatcher) lookupDisplayName(psid string) string {
	if cached, err := d.Storage.CachedDisplayName(psid); err == nil && cached != "" {
		return cached
	}

	name, err := d.Names.FetchDisplayName(psid)
	if err != nil {
		log.Printf("WARN: Failed to fetch display name for %s: %v", psid, err)
		return ""
	}
	if name != "" {
		if err := d.Storage.CacheDisplayName(psid, name); err != nil {
			log.Printf("WARN: Failed to cache display name for %s: %v", psid, err)
		}
	}
	return name
}

func (d *Dispatcher) sendNotifications(notifications []match.Notification) {
	for _, n := range notifications {
		if err := d.Sender.Send(n.RecipientID, n.Message); err != nil {
			log.Printf("ERROR: Failed to send match notification to %s: %v", n.RecipientID, err)
		}
	}
}

package conversation_test

import (
	"testing"

	"nativeteacher/backend/internal/conversation"
	"nativeteacher/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLanguages = []string{"english", "spanish", "french", "german"}

func newTestMachine() *conversation.Machine {
	return conversation.NewMachine(testLanguages)
}

func textEvent(senderID, text string) models.InboundEvent {
	return models.InboundEvent{SenderID: senderID, Text: text}
}

// TestTransitionNewUser verifies that the first message greets the user and
// asks for their known language.
func TestTransitionNewUser(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{ID: "u1", DisplayName: "Ann", ConversationState: models.StateNew}

	res := m.Transition(profile, textEvent("u1", "hello"))

	assert.Equal(t, models.StateAwaitingKnownLanguage, res.Profile.ConversationState)
	assert.False(t, res.MatchReady)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0].Text, "Hi Ann. ")
	assert.Contains(t, res.Replies[0].Text, conversation.PromptKnownLanguage)

	// Input profile must stay untouched.
	assert.Equal(t, models.StateNew, profile.ConversationState)
}

// TestTransitionGreetingWithoutName checks the greeting degrades gracefully
// when no display name could be fetched.
func TestTransitionGreetingWithoutName(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{ID: "u1", ConversationState: models.StateNew}

	res := m.Transition(profile, textEvent("u1", "hey"))

	require.Len(t, res.Replies, 1)
	assert.NotContains(t, res.Replies[0].Text, "Hi ")
	assert.Contains(t, res.Replies[0].Text, "Welcome to Native Teacher")
}

func TestTransitionKnownLanguage(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{ID: "u1", ConversationState: models.StateAwaitingKnownLanguage}

	res := m.Transition(profile, textEvent("u1", "French"))

	assert.Equal(t, models.StateAwaitingDesiredLanguage, res.Profile.ConversationState)
	assert.Equal(t, "french", res.Profile.KnownLanguage)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, conversation.PromptDesiredLanguage, res.Replies[0].Text)
}

func TestTransitionUnrecognizedLanguage(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{ID: "u1", ConversationState: models.StateAwaitingKnownLanguage}

	res := m.Transition(profile, textEvent("u1", "klingon"))

	assert.Equal(t, models.StateAwaitingKnownLanguage, res.Profile.ConversationState)
	assert.Empty(t, res.Profile.KnownLanguage)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, conversation.MsgUnrecognized, res.Replies[0].Text)
}

// TestTransitionFullScenario walks the documented sign-up conversation:
// greeting, known language, self-match rejection, then waiting for a match.
func TestTransitionFullScenario(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{ID: "U1", ConversationState: models.StateNew}

	// First contact -> greeting.
	res := m.Transition(profile, textEvent("U1", "hi"))
	assert.Equal(t, models.StateAwaitingKnownLanguage, res.Profile.ConversationState)

	// "French" -> asks what to learn.
	res = m.Transition(res.Profile, textEvent("U1", "French"))
	assert.Equal(t, models.StateAwaitingDesiredLanguage, res.Profile.ConversationState)
	assert.Equal(t, "french", res.Profile.KnownLanguage)

	// "French" again -> rejected, state unchanged.
	rejected := m.Transition(res.Profile, textEvent("U1", "French"))
	assert.Equal(t, models.StateAwaitingDesiredLanguage, rejected.Profile.ConversationState)
	assert.Empty(t, rejected.Profile.DesiredLanguage)
	require.Len(t, rejected.Replies, 1)
	assert.Equal(t, conversation.MsgSameLanguage, rejected.Replies[0].Text)
	assert.False(t, rejected.MatchReady)

	// "Spanish" -> waiting for match, engine must be triggered.
	res = m.Transition(res.Profile, textEvent("U1", "Spanish"))
	assert.Equal(t, models.StateWaitingForMatch, res.Profile.ConversationState)
	assert.Equal(t, "spanish", res.Profile.DesiredLanguage)
	assert.True(t, res.MatchReady)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, conversation.MsgSearching, res.Replies[0].Text)
	assert.True(t, res.Profile.LanguagesComplete())
}

// TestTransitionIdempotentReplay replays an input against a profile that has
// already advanced past it; the state must not regress and collected
// languages must survive.
func TestTransitionIdempotentReplay(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{
		ID:                "u1",
		KnownLanguage:     "french",
		DesiredLanguage:   "spanish",
		ConversationState: models.StateWaitingForMatch,
	}

	res := m.Transition(profile, textEvent("u1", "French"))

	assert.Equal(t, models.StateWaitingForMatch, res.Profile.ConversationState)
	assert.Equal(t, "french", res.Profile.KnownLanguage)
	assert.Equal(t, "spanish", res.Profile.DesiredLanguage)
	assert.False(t, res.MatchReady)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, conversation.MsgStillWaiting, res.Replies[0].Text)
}

func TestTransitionMatchedIsTerminal(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{
		ID:                "u1",
		KnownLanguage:     "french",
		DesiredLanguage:   "spanish",
		ConversationState: models.StateMatched,
		MatchedWith:       "u2",
	}

	res := m.Transition(profile, textEvent("u1", "german"))

	assert.Equal(t, models.StateMatched, res.Profile.ConversationState)
	assert.Equal(t, "u2", res.Profile.MatchedWith)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, conversation.MsgAlreadyMatched, res.Replies[0].Text)
}

func TestTransitionPostbacks(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{ID: "u1", ConversationState: models.StateWaitingForMatch}

	yes := m.Transition(profile, models.InboundEvent{SenderID: "u1", IsPostback: true, PostbackPayload: "yes"})
	require.Len(t, yes.Replies, 1)
	assert.Equal(t, conversation.MsgPostbackYes, yes.Replies[0].Text)

	no := m.Transition(profile, models.InboundEvent{SenderID: "u1", IsPostback: true, PostbackPayload: "no"})
	require.Len(t, no.Replies, 1)
	assert.Equal(t, conversation.MsgPostbackNo, no.Replies[0].Text)

	// Anything else is ignored without crashing and without replies.
	other := m.Transition(profile, models.InboundEvent{SenderID: "u1", IsPostback: true, PostbackPayload: "maybe"})
	assert.Empty(t, other.Replies)
	assert.Equal(t, models.StateWaitingForMatch, other.Profile.ConversationState)
}

func TestTransitionAttachment(t *testing.T) {
	m := newTestMachine()
	profile := &models.UserProfile{ID: "u1", ConversationState: models.StateNew}

	res := m.Transition(profile, models.InboundEvent{
		SenderID:      "u1",
		HasAttachment: true,
		AttachmentURL: "https://cdn.example.com/pic.jpg",
	})

	// The image-confirmation flow never touches the conversation state.
	assert.Equal(t, models.StateNew, res.Profile.ConversationState)
	require.Len(t, res.Replies, 1)
	attachment := res.Replies[0].Attachment
	require.NotNil(t, attachment)
	assert.Equal(t, "template", attachment.Type)
	require.Len(t, attachment.Payload.Elements, 1)
	assert.Equal(t, "https://cdn.example.com/pic.jpg", attachment.Payload.Elements[0].ImageURL)
	require.Len(t, attachment.Payload.Elements[0].Buttons, 2)
	assert.Equal(t, "yes", attachment.Payload.Elements[0].Buttons[0].Payload)
	assert.Equal(t, "no", attachment.Payload.Elements[0].Buttons[1].Payload)
}

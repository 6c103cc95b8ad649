// Package conversation holds the per-user conversation state machine. The
// transition function is pure: it never touches storage or the network, which
// keeps concurrent webhook deliveries safe to recompute after a lost write.
package conversation

import (
	"fmt"

	"nativeteacher/backend/internal/models"
)

const (
	PromptKnownLanguage   = "What language do you know?"
	PromptDesiredLanguage = "What language would you like to learn?"
	MsgUnrecognized       = "Sorry, I don't recognize that language. Try again."
	MsgSameLanguage       = "You can't learn the language you already know. Pick another one!"
	MsgSearching          = "Looking for your match!"
	MsgStillWaiting       = "We'll message you when we find a match!"
	MsgAlreadyMatched     = "You've already been matched! Message your partner and start teaching."
	MsgPostbackYes        = "Thanks!"
	MsgPostbackNo         = "Oops, try sending another image."
)

// Result is the outcome of one transition: the advanced profile copy, the
// replies to send, and whether the profile just became eligible for matching.
type Result struct {
	Profile    *models.UserProfile
	Replies    []models.OutboundMessage
	MatchReady bool
}

// Machine evaluates transitions against a fixed recognized-language set.
type Machine struct {
	Languages *Recognizer
}

// NewMachine creates a state machine over the given language set.
func NewMachine(languages []string) *Machine {
	return &Machine{Languages: NewRecognizer(languages)}
}

// Transition maps (current profile, inbound event) to the next profile and
// the outbound replies. The input profile is never mutated.
func (m *Machine) Transition(profile *models.UserProfile, ev models.InboundEvent) Result {
	next := profile.Clone()

	// Postbacks and image attachments belong to the self-contained
	// image-confirmation flow and never touch the conversation state.
	if ev.IsPostback {
		return Result{Profile: next, Replies: postbackReplies(ev.PostbackPayload)}
	}
	if ev.HasAttachment {
		return Result{Profile: next, Replies: []models.OutboundMessage{imageConfirmation(ev.AttachmentURL)}}
	}

	switch profile.ConversationState {
	case models.StateNew:
		next.ConversationState = models.StateAwaitingKnownLanguage
		return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(greeting(profile.DisplayName))}}

	case models.StateAwaitingKnownLanguage:
		lang, ok := m.Languages.Recognize(ev.Text)
		if !ok {
			return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(MsgUnrecognized)}}
		}
		next.KnownLanguage = lang
		next.ConversationState = models.StateAwaitingDesiredLanguage
		return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(PromptDesiredLanguage)}}

	case models.StateAwaitingDesiredLanguage:
		lang, ok := m.Languages.Recognize(ev.Text)
		if !ok {
			return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(MsgUnrecognized)}}
		}
		if lang == profile.KnownLanguage {
			return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(MsgSameLanguage)}}
		}
		next.DesiredLanguage = lang
		next.ConversationState = models.StateWaitingForMatch
		return Result{
			Profile:    next,
			Replies:    []models.OutboundMessage{models.TextMessage(MsgSearching)},
			MatchReady: true,
		}

	case models.StateWaitingForMatch:
		return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(MsgStillWaiting)}}

	case models.StateMatched:
		return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(MsgAlreadyMatched)}}

	default:
		// Unknown stored state. Restart the questionnaire rather than wedge
		// the user forever.
		next.ConversationState = models.StateAwaitingKnownLanguage
		return Result{Profile: next, Replies: []models.OutboundMessage{models.TextMessage(greeting(profile.DisplayName))}}
	}
}

// MatchFoundMessage is the notification sent to both sides of a committed
// pair.
func MatchFoundMessage(partnerName string) models.OutboundMessage {
	if partnerName == "" {
		partnerName = "your match"
	}
	return models.TextMessage(fmt.Sprintf("Great, we found you a match named %s!", partnerName))
}

func greeting(name string) string {
	prefix := ""
	if name != "" {
		prefix = "Hi " + name + ". "
	}
	return prefix + "Welcome to Native Teacher, a bot that connects you with someone who wants to learn your language and teach you theirs. " + PromptKnownLanguage
}

func postbackReplies(payload string) []models.OutboundMessage {
	switch payload {
	case "yes":
		return []models.OutboundMessage{models.TextMessage(MsgPostbackYes)}
	case "no":
		return []models.OutboundMessage{models.TextMessage(MsgPostbackNo)}
	default:
		// Unknown payloads are ignored.
		return nil
	}
}

func imageConfirmation(attachmentURL string) models.OutboundMessage {
	return models.OutboundMessage{
		Attachment: &models.TemplateAttachment{
			Type: "template",
			Payload: models.TemplatePayload{
				TemplateType: "generic",
				Elements: []models.TemplateElement{
					{
						Title:    "Is this the right picture?",
						Subtitle: "Tap a button to answer.",
						ImageURL: attachmentURL,
						Buttons: []models.TemplateButton{
							{Type: "postback", Title: "Yes!", Payload: "yes"},
							{Type: "postback", Title: "No!", Payload: "no"},
						},
					},
				},
			},
		},
	}
}

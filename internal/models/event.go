package models

// Wire shapes of the platform webhook, as delivered by POST /webhook.
// The platform batches entries; each entry carries one messaging event.

type WebhookBody struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	Messaging []MessagingEvent `json:"messaging"`
}

type MessagingEvent struct {
	Sender   EventSender      `json:"sender"`
	Message  *InboundMessage  `json:"message,omitempty"`
	Postback *InboundPostback `json:"postback,omitempty"`
}

type EventSender struct {
	ID string `json:"id"`
}

type InboundMessage struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url"`
}

type InboundPostback struct {
	Payload string `json:"payload"`
}

// InboundEvent is the normalized form the dispatcher works with, extracted
// from one MessagingEvent.
type InboundEvent struct {
	SenderID        string
	Text            string
	AttachmentURL   string
	HasAttachment   bool
	PostbackPayload string
	IsPostback      bool
}

// OutboundMessage is the message payload of the platform Send API: either a
// plain text message or a structured template attachment.
type OutboundMessage struct {
	Text       string              `json:"text,omitempty"`
	Attachment *TemplateAttachment `json:"attachment,omitempty"`
}

type TemplateAttachment struct {
	Type    string          `json:"type"`
	Payload TemplatePayload `json:"payload"`
}

type TemplatePayload struct {
	TemplateType string            `json:"template_type"`
	Elements     []TemplateElement `json:"elements"`
}

type TemplateElement struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	ImageURL string           `json:"image_url,omitempty"`
	Buttons  []TemplateButton `json:"buttons,omitempty"`
}

type TemplateButton struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// TextMessage is a convenience constructor for the common case.
func TextMessage(text string) OutboundMessage {
	return OutboundMessage{Text: text}
}

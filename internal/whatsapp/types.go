package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

const (
	// ObjectWhatsAppBusinessAccount is the object value sent for WhatsApp Business Account notifications.
	ObjectWhatsAppBusinessAccount = "whatsapp_business_account"
	// FieldMessages is the change field carrying inbound messages.
	FieldMessages = "messages"
	// MessageTypeText is the inbound message type for plain text.
	MessageTypeText = "text"
	// LanguageEnUS is the language code every outbound template is sent with.
	LanguageEnUS = "en_US"

	messagingProductWhatsApp = "whatsapp"
	recipientTypeIndividual  = "individual"
	messageTypeTemplate      = "template"
)

// NotificationPayload is the body of a webhook notification POSTed by the platform.
type NotificationPayload struct {
	// Object identifies the source of the notification (e.g. "whatsapp_business_account").
	Object string `json:"object"`
	// Entry holds one element per business account with changes.
	Entry []Entry `json:"entry"`
}

// Entry represents one business account entry.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// UnmarshalJSON implements json.Unmarshaler. ID accepts a string or a number.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      json.RawMessage `json:"id"`
		Changes []Change        `json:"changes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{ID: scalarString(raw.ID), Changes: raw.Changes}
	return nil
}

// Change wraps a single change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the message data of a change.
type ChangeValue struct {
	MessagingProduct string      `json:"messaging_product"`
	Metadata         Metadata    `json:"metadata"`
	Contacts         []Contact   `json:"contacts,omitempty"`
	Messages         MessageList `json:"messages,omitempty"`
	Statuses         []Status    `json:"statuses,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
// Only messages must be well formed; the other fields decode as zero values when they do not fit.
func (v *ChangeValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		MessagingProduct json.RawMessage `json:"messaging_product"`
		Metadata         json.RawMessage `json:"metadata"`
		Contacts         json.RawMessage `json:"contacts"`
		Messages         MessageList     `json:"messages"`
		Statuses         json.RawMessage `json:"statuses"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ChangeValue{
		MessagingProduct: scalarString(raw.MessagingProduct),
		Messages:         raw.Messages,
	}
	decodeLenient(raw.Metadata, &v.Metadata)
	decodeLenient(raw.Contacts, &v.Contacts)
	decodeLenient(raw.Statuses, &v.Statuses)
	return nil
}

// Metadata about the receiving phone number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the WhatsApp profile of a sender.
type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

// ContactProfile has the display name.
type ContactProfile struct {
	Name string `json:"name"`
}

// Status is a delivery status update for a previously sent message.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// InboundMessage is a message received from a WhatsApp user.
type InboundMessage struct {
	// From is the sender's phone number.
	From      string       `json:"from"`
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	Text      *TextContent `json:"text,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. ID and Timestamp accept a string or a number.
func (m *InboundMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		From      string          `json:"from"`
		ID        json.RawMessage `json:"id"`
		Timestamp json.RawMessage `json:"timestamp"`
		Type      string          `json:"type"`
		Text      *TextContent    `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = InboundMessage{
		From:      raw.From,
		ID:        scalarString(raw.ID),
		Timestamp: scalarString(raw.Timestamp),
		Type:      raw.Type,
		Text:      raw.Text,
	}
	return nil
}

// TextContent holds a text message body.
type TextContent struct {
	Body string `json:"body"`
}

// MessageList is the messages array of a change value.
// A value that is present but not a JSON array decodes as an empty list.
type MessageList []InboundMessage

// UnmarshalJSON implements json.Unmarshaler.
func (m *MessageList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		*m = nil
		return nil
	}
	var msgs []InboundMessage
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return fmt.Errorf("failed to decode messages: %w", err)
	}
	*m = msgs
	return nil
}

// scalarString returns a JSON string or number as a string, and "" for anything else.
func scalarString(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeLenient decodes data into dst and leaves dst untouched when data does not fit T.
func decodeLenient[T any](data json.RawMessage, dst *T) {
	if len(data) == 0 {
		return
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return
	}
	*dst = v
}

// TextBody returns the text body of the message and whether it is a text message with a non-empty body.
func (m *InboundMessage) TextBody() (string, bool) {
	if m == nil || m.Type != MessageTypeText || m.Text == nil || m.Text.Body == "" {
		return "", false
	}
	return m.Text.Body, true
}

// IsWhatsAppBusinessAccount reports whether the payload came from a WhatsApp Business Account subscription.
func (p *NotificationPayload) IsWhatsAppBusinessAccount() bool {
	return p != nil && p.Object == ObjectWhatsAppBusinessAccount
}

// EligibleMessages yields the first message of every "messages" change, in entry and change order.
// Later messages in the same change are not yielded.
func (p *NotificationPayload) EligibleMessages() iter.Seq[InboundMessage] {
	return func(yield func(InboundMessage) bool) {
		if p == nil {
			return
		}
		for _, entry := range p.Entry {
			for _, change := range entry.Changes {
				if change.Field != FieldMessages || len(change.Value.Messages) == 0 {
					continue
				}
				if !yield(change.Value.Messages[0]) {
					return
				}
			}
		}
	}
}

// ContactName returns the profile name of waID within the payload, or "" when unknown.
func (p *NotificationPayload) ContactName(waID string) string {
	if p == nil {
		return ""
	}
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, c := range change.Value.Contacts {
				if c.WaID == waID {
					return c.Profile.Name
				}
			}
		}
	}
	return ""
}

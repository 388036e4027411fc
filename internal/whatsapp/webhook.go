package whatsapp

import (
	"encoding/json"
	"fmt"
)

// WebhookPayload is the envelope Meta posts to the webhook endpoint.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one account-level notification batch.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one field change inside an entry.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the actual messages and contact metadata.
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

// Contact identifies the sender of a message batch.
type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

// Profile holds the sender's WhatsApp display name.
type Profile struct {
	Name string `json:"name"`
}

// Message is a single inbound message.
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// Text is the body of a plain text message.
type Text struct {
	Body string `json:"body"`
}

// Interactive is the payload of an interactive message reply.
type Interactive struct {
	Type     string    `json:"type"`
	NFMReply *NFMReply `json:"nfm_reply,omitempty"`
}

// NFMReply carries a completed WhatsApp Flow. ResponseJSON is a JSON
// object of screen field answers keyed by component name.
type NFMReply struct {
	Name         string `json:"name"`
	Body         string `json:"body"`
	ResponseJSON string `json:"response_json"`
}

// Incoming is a decoded inbound message, normalized for dispatch. Exactly
// one of Text and FlowAnswers is populated: FlowAnswers is non-nil when the
// customer completed an interactive flow, Text otherwise.
type Incoming struct {
	From        string
	ProfileName string
	Text        string
	FlowAnswers map[string]interface{}
}

// ExtractIncoming pulls the first message out of a webhook payload. The
// second return value is false when the payload carries no message (status
// updates, delivery receipts).
func ExtractIncoming(payload WebhookPayload) (*Incoming, bool, error) {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) == 0 {
				continue
			}
			msg := change.Value.Messages[0]
			in := &Incoming{From: msg.From}
			if len(change.Value.Contacts) > 0 {
				in.ProfileName = change.Value.Contacts[0].Profile.Name
			}

			if msg.Interactive != nil && msg.Interactive.NFMReply != nil {
				answers := make(map[string]interface{})
				if err := json.Unmarshal([]byte(msg.Interactive.NFMReply.ResponseJSON), &answers); err != nil {
					return nil, false, fmt.Errorf("failed to decode flow response: %w", err)
				}
				in.FlowAnswers = answers
				return in, true, nil
			}
			if msg.Text != nil {
				in.Text = msg.Text.Body
				return in, true, nil
			}
			// Unsupported message type (sticker, audio, ...): surface the
			// sender so the handler can still reply.
			return in, true, nil
		}
	}
	return nil, false, nil
}

// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event type tags used on the control channel. Outbound tags are sent by
// this client; inbound tags arrive from the provider. Inbound tags not
// listed here still flow through dispatch as generic events.
const (
	// TypeConversationItemCreate adds a user message to the remote
	// conversation. Outbound.
	TypeConversationItemCreate = "conversation.item.create"

	// TypeResponseCreate asks the model to produce a response. Outbound.
	// Used both for normal replies (text+audio) and for out-of-band
	// classification requests (text only, conversation "none").
	TypeResponseCreate = "response.create"

	// TypeConversationItemCreated confirms an item was added to the
	// remote conversation. Inbound.
	TypeConversationItemCreated = "conversation.item.created"

	// TypeResponseDone signals a completed response. Inbound. Carries
	// the response output and echoes back any request metadata, which
	// is how classification responses are recognized and correlated.
	TypeResponseDone = "response.done"

	// TypeError reports a provider-side protocol error. Inbound.
	TypeError = "error"
)

// MetadataClassification is the metadata type tag marking an out-of-band
// classification request and its eventual response.
const MetadataClassification = "classification"

// classificationInstructions directs the model to emit exactly one
// category label and nothing else. Kept verbatim across requests so the
// label set stays closed.
const classificationInstructions = `Analyze the conversation so far and classify it into exactly one of these categories: "general", "philosophical", "math", or "technology". Consider the overall theme and context of the entire conversation, not just the latest message. Output only the category name, nothing else. Do not respond like normal conversation or with question but only and only the category name.`

// Roles carried on conversation items.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentPart is one entry of an item or response output content list.
type ContentPart struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// ItemPayload is the item body of an outbound conversation.item.create.
type ItemPayload struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ResponseMetadata is caller-supplied request metadata, echoed back by
// the provider on response.done. ItemID carries the identity of the
// conversation item that triggered a classification request, giving
// result correlation that does not depend on completion order.
type ResponseMetadata struct {
	Type   string `json:"type,omitempty"`
	ItemID string `json:"item_id,omitempty"`
}

// ResponsePayload is the response body of an outbound response.create.
type ResponsePayload struct {
	// Conversation set to "none" keeps the response out of the visible
	// conversation context entirely: it neither reads prior items into
	// the default context nor writes its output back.
	Conversation string            `json:"conversation,omitempty"`
	Metadata     *ResponseMetadata `json:"metadata,omitempty"`
	Modalities   []string          `json:"modalities,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
}

// ClientEvent is an outbound control-channel event.
type ClientEvent struct {
	Type     string           `json:"type"`
	EventID  string           `json:"event_id,omitempty"`
	Item     *ItemPayload     `json:"item,omitempty"`
	Response *ResponsePayload `json:"response,omitempty"`
}

// Encode marshals the event for the data channel.
func (event ClientEvent) Encode() ([]byte, error) {
	return json.Marshal(event)
}

// NewUserMessage builds a conversation.item.create carrying one user
// text message.
func NewUserMessage(text string) ClientEvent {
	return ClientEvent{
		Type:    TypeConversationItemCreate,
		EventID: uuid.NewString(),
		Item: &ItemPayload{
			Type: "message",
			Role: RoleUser,
			Content: []ContentPart{
				{Type: "input_text", Text: text},
			},
		},
	}
}

// NewResponseRequest builds a normal response.create: the reply joins
// the conversation and is delivered as both text and audio.
func NewResponseRequest() ClientEvent {
	return ClientEvent{
		Type:    TypeResponseCreate,
		EventID: uuid.NewString(),
		Response: &ResponsePayload{
			Modalities: []string{"text", "audio"},
		},
	}
}

// NewClassificationRequest builds an out-of-band response.create tied to
// the triggering conversation item. The request is excluded from the
// visible conversation (conversation "none"), restricted to text output,
// and tagged so the response.done can be routed to the classification
// sink instead of the transcript.
func NewClassificationRequest(triggeringItemID string) ClientEvent {
	return ClientEvent{
		Type:    TypeResponseCreate,
		EventID: uuid.NewString(),
		Response: &ResponsePayload{
			Conversation: "none",
			Metadata: &ResponseMetadata{
				Type:   MetadataClassification,
				ItemID: triggeringItemID,
			},
			Modalities:   []string{"text"},
			Instructions: classificationInstructions,
		},
	}
}

// ItemCreated is the decoded payload of a conversation.item.created.
type ItemCreated struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// Text returns the first textual content of the item: explicit text for
// typed input, the transcript for audio input, empty when neither is
// present yet.
func (item ItemCreated) Text() string {
	for _, part := range item.Content {
		if part.Text != "" {
			return part.Text
		}
		if part.Transcript != "" {
			return part.Transcript
		}
	}
	return ""
}

// OutputItem is one output entry of a completed response.
type OutputItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ResponseDone is the decoded response body of a response.done.
type ResponseDone struct {
	ID       string           `json:"id"`
	Status   string           `json:"status"`
	Metadata ResponseMetadata `json:"metadata"`
	Output   []OutputItem     `json:"output"`
}

// IsClassification reports whether this response answers an out-of-band
// classification request.
func (response ResponseDone) IsClassification() bool {
	return response.Metadata.Type == MetadataClassification
}

// OutputText returns the text of the first content entry of the first
// output item, which for a classification response is the bare label.
func (response ResponseDone) OutputText() string {
	if len(response.Output) == 0 || len(response.Output[0].Content) == 0 {
		return ""
	}
	part := response.Output[0].Content[0]
	if part.Text != "" {
		return part.Text
	}
	return part.Transcript
}

// ServerEvent is a decoded inbound control-channel event. Exactly one of
// the variant fields is populated according to Type; Raw always holds
// the original payload for logging.
type ServerEvent struct {
	// Type is the event tag, empty when Malformed.
	Type string

	// Raw is the undecoded payload bytes.
	Raw []byte

	// Malformed marks a payload that failed JSON decoding. The router
	// logs and drops these without consulting any other field.
	Malformed bool

	// Item is set for conversation.item.created.
	Item *ItemCreated

	// Response is set for response.done.
	Response *ResponseDone
}

// serverEnvelope is the common shape used to pick apart inbound events.
type serverEnvelope struct {
	Type     string          `json:"type"`
	Item     json.RawMessage `json:"item"`
	Response json.RawMessage `json:"response"`
}

// DecodeServerEvent decodes one inbound data-channel message. Structural
// decode failures yield a Malformed event rather than an error: the
// caller logs a warning and continues with the next message. Partial
// failures inside a recognized tag (for example an item field that is
// not an object) are also Malformed; a half-decoded event must not
// reach dispatch.
func DecodeServerEvent(payload []byte) ServerEvent {
	event := ServerEvent{Raw: payload}

	var envelope serverEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Type == "" {
		event.Malformed = true
		return event
	}
	event.Type = envelope.Type

	switch envelope.Type {
	case TypeConversationItemCreated:
		var item ItemCreated
		if err := json.Unmarshal(envelope.Item, &item); err != nil {
			return ServerEvent{Raw: payload, Malformed: true}
		}
		event.Item = &item

	case TypeResponseDone:
		var response ResponseDone
		if err := json.Unmarshal(envelope.Response, &response); err != nil {
			return ServerEvent{Raw: payload, Malformed: true}
		}
		event.Response = &response
	}

	return event
}

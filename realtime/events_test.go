// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"encoding/json"
	"testing"
)

func TestNewUserMessageShape(t *testing.T) {
	t.Parallel()

	event := NewUserMessage("What is 2+2?")
	data, err := event.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded struct {
		Type    string `json:"type"`
		EventID string `json:"event_id"`
		Item    struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"item"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Type != TypeConversationItemCreate {
		t.Errorf("type = %q", decoded.Type)
	}
	if decoded.EventID == "" {
		t.Error("event_id is empty")
	}
	if decoded.Item.Type != "message" || decoded.Item.Role != RoleUser {
		t.Errorf("item = %+v", decoded.Item)
	}
	if len(decoded.Item.Content) != 1 || decoded.Item.Content[0].Type != "input_text" ||
		decoded.Item.Content[0].Text != "What is 2+2?" {
		t.Errorf("content = %+v", decoded.Item.Content)
	}
}

func TestNewResponseRequestUsesBothModalities(t *testing.T) {
	t.Parallel()

	event := NewResponseRequest()
	if event.Type != TypeResponseCreate {
		t.Errorf("type = %q", event.Type)
	}
	if got := event.Response.Modalities; len(got) != 2 || got[0] != "text" || got[1] != "audio" {
		t.Errorf("modalities = %v, want [text audio]", got)
	}
	if event.Response.Conversation != "" {
		t.Errorf("conversation = %q, want unset for a normal response", event.Response.Conversation)
	}
	if event.Response.Metadata != nil {
		t.Errorf("metadata = %+v, want nil for a normal response", event.Response.Metadata)
	}
}

func TestNewClassificationRequestIsOutOfBand(t *testing.T) {
	t.Parallel()

	event := NewClassificationRequest("item_123")

	if event.Type != TypeResponseCreate {
		t.Errorf("type = %q", event.Type)
	}
	response := event.Response
	if response.Conversation != "none" {
		t.Errorf("conversation = %q, want none", response.Conversation)
	}
	if response.Metadata == nil || response.Metadata.Type != MetadataClassification {
		t.Errorf("metadata = %+v, want classification tag", response.Metadata)
	}
	if response.Metadata.ItemID != "item_123" {
		t.Errorf("metadata item_id = %q, want item_123", response.Metadata.ItemID)
	}
	if len(response.Modalities) != 1 || response.Modalities[0] != "text" {
		t.Errorf("modalities = %v, want [text]", response.Modalities)
	}
	if response.Instructions == "" {
		t.Error("instructions are empty")
	}
}

func TestDecodeItemCreated(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"type": "conversation.item.created",
		"item": {
			"id": "item_42",
			"type": "message",
			"role": "user",
			"content": [{"type": "input_text", "text": "hello"}]
		}
	}`)

	event := DecodeServerEvent(payload)
	if event.Malformed {
		t.Fatal("event decoded as malformed")
	}
	if event.Type != TypeConversationItemCreated {
		t.Fatalf("type = %q", event.Type)
	}
	if event.Item == nil {
		t.Fatal("Item is nil")
	}
	if event.Item.ID != "item_42" || event.Item.Role != RoleUser {
		t.Errorf("item = %+v", event.Item)
	}
	if got := event.Item.Text(); got != "hello" {
		t.Errorf("Text() = %q, want hello", got)
	}
}

func TestDecodeItemCreatedAudioTranscript(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"type": "conversation.item.created",
		"item": {
			"id": "item_43",
			"role": "user",
			"content": [{"type": "input_audio", "transcript": "spoken words"}]
		}
	}`)

	event := DecodeServerEvent(payload)
	if event.Malformed || event.Item == nil {
		t.Fatalf("decode failed: %+v", event)
	}
	if got := event.Item.Text(); got != "spoken words" {
		t.Errorf("Text() = %q, want transcript fallback", got)
	}
}

func TestDecodeResponseDoneClassification(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"type": "response.done",
		"response": {
			"id": "resp_7",
			"status": "completed",
			"metadata": {"type": "classification", "item_id": "item_42"},
			"output": [{"content": [{"type": "text", "text": "math"}]}]
		}
	}`)

	event := DecodeServerEvent(payload)
	if event.Malformed || event.Response == nil {
		t.Fatalf("decode failed: %+v", event)
	}
	if !event.Response.IsClassification() {
		t.Error("IsClassification() = false")
	}
	if event.Response.Metadata.ItemID != "item_42" {
		t.Errorf("metadata item_id = %q", event.Response.Metadata.ItemID)
	}
	if got := event.Response.OutputText(); got != "math" {
		t.Errorf("OutputText() = %q, want math", got)
	}
}

func TestDecodeResponseDoneWithoutMetadataIsNotClassification(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"type": "response.done", "response": {"id": "resp_8", "output": []}}`)

	event := DecodeServerEvent(payload)
	if event.Malformed || event.Response == nil {
		t.Fatalf("decode failed: %+v", event)
	}
	if event.Response.IsClassification() {
		t.Error("IsClassification() = true for a plain response")
	}
	if got := event.Response.OutputText(); got != "" {
		t.Errorf("OutputText() = %q, want empty for no output", got)
	}
}

func TestDecodeMalformedPayloads(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
	}{
		{"not JSON", "not json at all"},
		{"missing type", `{"item": {}}`},
		{"item not an object", `{"type": "conversation.item.created", "item": 5}`},
		{"response not an object", `{"type": "response.done", "response": "no"}`},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			event := DecodeServerEvent([]byte(testCase.payload))
			if !event.Malformed {
				t.Errorf("DecodeServerEvent(%q) not marked malformed", testCase.payload)
			}
			if string(event.Raw) != testCase.payload {
				t.Errorf("Raw = %q, want original payload preserved", event.Raw)
			}
			if event.Item != nil || event.Response != nil {
				t.Error("malformed event carries a decoded variant")
			}
		})
	}
}

func TestDecodeUnknownTypePassesThrough(t *testing.T) {
	t.Parallel()

	event := DecodeServerEvent([]byte(`{"type": "session.created", "session": {"id": "sess_1"}}`))
	if event.Malformed {
		t.Fatal("unknown event type decoded as malformed")
	}
	if event.Type != "session.created" {
		t.Errorf("type = %q", event.Type)
	}
	if event.Item != nil || event.Response != nil {
		t.Error("unknown event carries a decoded variant")
	}
}

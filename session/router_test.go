// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/parley-foundation/parley/lib/clock"
	"github.com/parley-foundation/parley/realtime"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// recordingRequester counts sidecar notifications.
type recordingRequester struct {
	items []realtime.Item
}

func (r *recordingRequester) OnUserItem(item realtime.Item) {
	r.items = append(r.items, item)
}

func newTestRouter(sidecar Requester) (*Router, *realtime.Transcript, *realtime.ClassificationLog) {
	transcript := realtime.NewTranscript()
	classifications := realtime.NewClassificationLog()
	router := NewRouter(transcript, classifications, sidecar,
		clock.Fake(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)), testLogger(), RouterObservers{})
	return router, transcript, classifications
}

func userItemCreated(id, text string) realtime.ServerEvent {
	payload := fmt.Sprintf(`{
		"type": "conversation.item.created",
		"item": {"id": %q, "type": "message", "role": "user",
			"content": [{"type": "input_text", "text": %q}]}
	}`, id, text)
	return realtime.DecodeServerEvent([]byte(payload))
}

func assistantItemCreated(id, text string) realtime.ServerEvent {
	payload := fmt.Sprintf(`{
		"type": "conversation.item.created",
		"item": {"id": %q, "type": "message", "role": "assistant",
			"content": [{"type": "text", "text": %q}]}
	}`, id, text)
	return realtime.DecodeServerEvent([]byte(payload))
}

func classificationDone(itemID, label string) realtime.ServerEvent {
	payload := fmt.Sprintf(`{
		"type": "response.done",
		"response": {"id": "resp_1", "status": "completed",
			"metadata": {"type": "classification", "item_id": %q},
			"output": [{"content": [{"type": "text", "text": %q}]}]}
	}`, itemID, label)
	return realtime.DecodeServerEvent([]byte(payload))
}

func TestDispatchClassificationResponseNeverReachesTranscript(t *testing.T) {
	t.Parallel()

	sidecar := &recordingRequester{}
	router, transcript, classifications := newTestRouter(sidecar)

	router.Dispatch(classificationDone("item_1", "math"))

	if transcript.Len() != 0 {
		t.Errorf("transcript length = %d, want 0 (sidecar results are invisible to the transcript)", transcript.Len())
	}
	if classifications.Len() != 1 {
		t.Fatalf("classification log length = %d, want 1", classifications.Len())
	}

	result, ok := classifications.ByItem("item_1")
	if !ok {
		t.Fatal("classification not correlated to item_1")
	}
	if result.Category != realtime.CategoryMath || !result.Recognized {
		t.Errorf("result = %+v, want recognized math", result)
	}
	if len(sidecar.items) != 0 {
		t.Error("classification response re-triggered the sidecar")
	}
}

func TestDispatchUserItemTriggersExactlyOneClassification(t *testing.T) {
	t.Parallel()

	sidecar := &recordingRequester{}
	router, transcript, _ := newTestRouter(sidecar)

	router.Dispatch(userItemCreated("item_1", "What is 2+2?"))

	if transcript.Len() != 1 {
		t.Fatalf("transcript length = %d, want 1", transcript.Len())
	}
	items := transcript.Items()
	if items[0].Role != realtime.RoleUser || items[0].Content != "What is 2+2?" {
		t.Errorf("item = %+v", items[0])
	}
	if len(sidecar.items) != 1 {
		t.Fatalf("sidecar notified %d times, want exactly 1", len(sidecar.items))
	}
	if sidecar.items[0].ID != "item_1" {
		t.Errorf("sidecar item ID = %q, want item_1", sidecar.items[0].ID)
	}
}

func TestDispatchAssistantItemNeverTriggersClassification(t *testing.T) {
	t.Parallel()

	sidecar := &recordingRequester{}
	router, transcript, _ := newTestRouter(sidecar)

	router.Dispatch(assistantItemCreated("item_2", "2+2 equals 4."))

	if transcript.Len() != 1 {
		t.Errorf("transcript length = %d, want 1 (assistant items are logged)", transcript.Len())
	}
	if len(sidecar.items) != 0 {
		t.Errorf("sidecar notified %d times for an assistant item, want 0", len(sidecar.items))
	}
}

func TestDispatchMalformedMessageDropsAndContinues(t *testing.T) {
	t.Parallel()

	sidecar := &recordingRequester{}
	router, transcript, classifications := newTestRouter(sidecar)

	router.Dispatch(realtime.DecodeServerEvent([]byte("}{ not json")))

	if transcript.Len() != 0 || classifications.Len() != 0 || len(sidecar.items) != 0 {
		t.Error("malformed message fired a routing rule")
	}

	// The next valid message still dispatches normally.
	router.Dispatch(userItemCreated("item_3", "still alive?"))
	if transcript.Len() != 1 || len(sidecar.items) != 1 {
		t.Error("dispatch did not continue after a malformed message")
	}
}

func TestDispatchUnroutedEventGoesToGenericLog(t *testing.T) {
	t.Parallel()

	var generic []realtime.ServerEvent
	transcript := realtime.NewTranscript()
	classifications := realtime.NewClassificationLog()
	router := NewRouter(transcript, classifications, &recordingRequester{},
		clock.Fake(time.Unix(0, 0)), testLogger(), RouterObservers{
			Event: func(event realtime.ServerEvent) { generic = append(generic, event) },
		})

	router.Dispatch(realtime.DecodeServerEvent([]byte(`{"type": "session.created"}`)))
	router.Dispatch(realtime.DecodeServerEvent([]byte(`{"type": "response.done", "response": {"id": "r", "output": []}}`)))

	if len(generic) != 2 {
		t.Errorf("generic events = %d, want 2 (plain response.done is not a classification)", len(generic))
	}
	if transcript.Len() != 0 || classifications.Len() != 0 {
		t.Error("unrouted events mutated a sink")
	}
}

func TestDispatchUnrecognizedLabelFallsBackToGeneral(t *testing.T) {
	t.Parallel()

	router, _, classifications := newTestRouter(&recordingRequester{})

	router.Dispatch(classificationDone("item_1", " Quantum Vibes "))

	result, ok := classifications.ByItem("item_1")
	if !ok {
		t.Fatal("result not recorded")
	}
	if result.Category != realtime.CategoryGeneral || result.Recognized {
		t.Errorf("fallback = (%q, %v), want (general, false)", result.Category, result.Recognized)
	}
	if result.RawLabel != " Quantum Vibes " {
		t.Errorf("RawLabel = %q, want raw label preserved", result.RawLabel)
	}
}

func TestDispatchUnusableClassificationDropped(t *testing.T) {
	t.Parallel()

	router, transcript, classifications := newTestRouter(&recordingRequester{})

	// No output at all.
	router.Dispatch(realtime.DecodeServerEvent([]byte(`{
		"type": "response.done",
		"response": {"id": "resp_2", "status": "completed",
			"metadata": {"type": "classification", "item_id": "item_1"}, "output": []}
	}`)))

	// Provider-side failure.
	router.Dispatch(realtime.DecodeServerEvent([]byte(`{
		"type": "response.done",
		"response": {"id": "resp_3", "status": "failed",
			"metadata": {"type": "classification", "item_id": "item_1"},
			"output": [{"content": [{"type": "text", "text": "math"}]}]}
	}`)))

	if classifications.Len() != 0 {
		t.Errorf("classification log length = %d, want 0 (unusable responses are dropped)", classifications.Len())
	}
	if transcript.Len() != 0 {
		t.Error("unusable classification response reached the transcript")
	}
}

func TestDispatchOutOfOrderResultsCorrelateByIdentity(t *testing.T) {
	t.Parallel()

	sidecar := &recordingRequester{}
	router, _, classifications := newTestRouter(sidecar)

	router.Dispatch(userItemCreated("item_1", "prove Fermat's last theorem"))
	router.Dispatch(userItemCreated("item_2", "what is a monad"))

	// The second request completes before the first.
	router.Dispatch(classificationDone("item_2", "technology"))
	router.Dispatch(classificationDone("item_1", "math"))

	first, ok := classifications.ByItem("item_1")
	if !ok || first.Category != realtime.CategoryMath {
		t.Errorf("item_1 = (%+v, %v), want math", first, ok)
	}
	second, ok := classifications.ByItem("item_2")
	if !ok || second.Category != realtime.CategoryTechnology {
		t.Errorf("item_2 = (%+v, %v), want technology", second, ok)
	}

	// Display order is most-recent-first regardless of correlation.
	results := classifications.Results()
	if results[0].TriggeringItemID != "item_1" {
		t.Errorf("most recent result = %q, want item_1", results[0].TriggeringItemID)
	}
}

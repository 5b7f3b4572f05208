package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// unreachableService returns a model service pointed at a closed port
func unreachableService(t *testing.T) *ModelService {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	return NewModelService(server.URL, "test-key")
}

func TestModelService_GenerateStory_Success(t *testing.T) {
	audio := []byte("fake wav bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("Expected /generate path, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got %q", auth)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode request payload: %v", err)
		}
		if payload["task"] != "story_generation" {
			t.Errorf("Expected story_generation task, got %v", payload["task"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"text":  "A generated story.",
			"audio": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer server.Close()

	service := NewModelService(server.URL, "test-key")
	text, audioBytes, err := service.GenerateStory(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateStory failed: %v", err)
	}
	if text != "A generated story." {
		t.Errorf("Unexpected story text: %q", text)
	}
	if string(audioBytes) != string(audio) {
		t.Errorf("Audio bytes not decoded correctly: %q", audioBytes)
	}
}

func TestModelService_GenerateStory_NoAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": "Text only."})
	}))
	defer server.Close()

	service := NewModelService(server.URL, "test-key")
	text, audioBytes, err := service.GenerateStory(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateStory failed: %v", err)
	}
	if text != "Text only." {
		t.Errorf("Unexpected story text: %q", text)
	}
	if audioBytes != nil {
		t.Errorf("Expected nil audio, got %d bytes", len(audioBytes))
	}
}

func TestModelService_GenerateStory_FallbackOnNetworkFailure(t *testing.T) {
	service := unreachableService(t)

	// Fix the clock so fallback selection is deterministic
	fixed := time.Unix(1700000000, 0)
	service.now = func() time.Time { return fixed }

	text, audioBytes, err := service.GenerateStory(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected fallback, got error: %v", err)
	}
	if audioBytes != nil {
		t.Error("Fallback audio must be nil")
	}

	wantIndex := int(fixed.Unix()) % len(defaultFallbackStories)
	if text != defaultFallbackStories[wantIndex] {
		t.Errorf("Expected fallback story %d, got %q", wantIndex, text)
	}
}

func TestModelService_GenerateStory_UpstreamErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	service := NewModelService(server.URL, "test-key")
	_, _, err := service.GenerateStory(context.Background(), nil)
	if err == nil {
		t.Fatal("Expected error for non-200 upstream status")
	}
	if KindOf(err) != ErrKindUpstreamHTTP {
		t.Errorf("Expected upstream HTTP error, got %v", err)
	}
}

func TestModelService_GenerateStory_BadBase64Audio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": "x", "audio": "not-valid-base64!!!"})
	}))
	defer server.Close()

	service := NewModelService(server.URL, "test-key")
	_, _, err := service.GenerateStory(context.Background(), nil)
	if KindOf(err) != ErrKindMalformedResponse {
		t.Errorf("Expected malformed response error, got %v", err)
	}
}

func TestModelService_GenerateSchedule_EmptyTasks(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	service := NewModelService(server.URL, "test-key")
	_, err := service.GenerateSchedule(context.Background(), nil, nil)
	if KindOf(err) != ErrKindInvalidInput {
		t.Errorf("Expected invalid input error, got %v", err)
	}
	if called {
		t.Error("Validation must happen before any network call")
	}
}

func TestModelService_GenerateSchedule_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["task"] != "schedule_generation" {
			t.Errorf("Expected schedule_generation task, got %v", payload["task"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"schedule": []map[string]string{
				{"time": "10:00 AM", "task": "Knee Stretches"},
				{"time": "5:00 PM", "task": "10-min Walk"},
			},
			"metadata":   map[string]any{"source": "model"},
			"confidence": 0.92,
		})
	}))
	defer server.Close()

	service := NewModelService(server.URL, "test-key")
	result, err := service.GenerateSchedule(context.Background(), []string{"Knee Stretches", "10-min Walk"}, nil)
	if err != nil {
		t.Fatalf("GenerateSchedule failed: %v", err)
	}
	if len(result.Schedule) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result.Schedule))
	}
	if result.Confidence != 0.92 {
		t.Errorf("Expected confidence 0.92, got %v", result.Confidence)
	}
	if result.Metadata["source"] != "model" {
		t.Errorf("Metadata not passed through: %v", result.Metadata)
	}
}

func TestModelService_GenerateSchedule_MalformedEntryIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"schedule": []map[string]string{
				{"time": "10:00 AM", "task": "Knee Stretches"},
				{"time": "1:00 PM"}, // missing task
			},
		})
	}))
	defer server.Close()

	service := NewModelService(server.URL, "test-key")
	_, err := service.GenerateSchedule(context.Background(), []string{"Knee Stretches"}, nil)
	if KindOf(err) != ErrKindMalformedResponse {
		t.Errorf("Expected malformed response error, got %v", err)
	}
}

func TestModelService_GenerateSchedule_FallbackPosture(t *testing.T) {
	service := unreachableService(t)

	result, err := service.GenerateSchedule(context.Background(), []string{"Check Posture"}, nil)
	if err != nil {
		t.Fatalf("Expected fallback, got error: %v", err)
	}

	if len(result.Schedule) != 3 {
		t.Fatalf("Expected 3 posture entries, got %d", len(result.Schedule))
	}
	wantTimes := []string{"11:00 AM", "1:00 PM", "3:00 PM"}
	for i, entry := range result.Schedule {
		if entry.Task != "Check Posture" {
			t.Errorf("Entry %d has wrong task: %q", i, entry.Task)
		}
		if entry.Time != wantTimes[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, wantTimes[i], entry.Time)
		}
	}
	if result.Confidence != 0.5 {
		t.Errorf("Expected fallback confidence 0.5, got %v", result.Confidence)
	}
	if result.Metadata["source"] != "fallback" {
		t.Errorf("Expected fallback source metadata, got %v", result.Metadata)
	}
}

func TestModelService_GenerateSchedule_FallbackRules(t *testing.T) {
	service := unreachableService(t)

	tasks := []string{"Knee Stretches", "10-min Walk", "Breathing Exercise"}
	result, err := service.GenerateSchedule(context.Background(), tasks, nil)
	if err != nil {
		t.Fatalf("Expected fallback, got error: %v", err)
	}

	want := []struct {
		time string
		task string
	}{
		{"11:00 AM", "Knee Stretches"},     // cursor at 11, then advances
		{"5:00 PM", "10-min Walk"},         // fixed afternoon slot, cursor untouched
		{"1:00 PM", "Breathing Exercise"},  // cursor advanced to 13
	}
	if len(result.Schedule) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(result.Schedule))
	}
	for i, w := range want {
		got := result.Schedule[i]
		if got.Time != w.time || got.Task != w.task {
			t.Errorf("Entry %d: expected %s %q, got %s %q", i, w.time, w.task, got.Time, got.Task)
		}
	}
}

func TestClockTime(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{9, "9:00 AM"},
		{11, "11:00 AM"},
		{13, "1:00 PM"},
		{15, "3:00 PM"},
	}
	for _, tt := range tests {
		if got := clockTime(tt.hour); got != tt.want {
			t.Errorf("clockTime(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

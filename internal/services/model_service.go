package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"viberehab/internal/models"
)

// defaultFallbackStories is the built-in pool used when the model endpoint
// is unreachable. Selection rotates on current time modulo pool size.
var defaultFallbackStories = []string{
	"Today is a new chapter. Focus not on the mountain top, but on the single, steady step. " +
		"Every small movement forward is progress. Your body is healing, and patience is your greatest strength.",

	"Like a river carving through stone, your consistent effort shapes your recovery. " +
		"Celebrate the small victories - they are the building blocks of transformation.",

	"Recovery is not a race, it's a journey of rediscovery. Each stretch, each breath, " +
		"each mindful moment brings you closer to the version of yourself you're becoming.",
}

// ModelService calls the fine-tuned model endpoint for story and schedule
// generation, normalizing responses and falling back to deterministic local
// generation when the endpoint is unreachable. A non-200 response from a
// reachable endpoint is fatal, not a fallback trigger.
type ModelService struct {
	endpoint        string
	apiKey          string
	httpClient      *http.Client
	fallbackStories []string
	now             func() time.Time
}

// NewModelService creates a model service for the given endpoint
func NewModelService(endpoint, apiKey string) *ModelService {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &ModelService{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		fallbackStories: defaultFallbackStories,
		now:             time.Now,
	}
}

// SetFallbackStories replaces the built-in fallback story pool
func (s *ModelService) SetFallbackStories(stories []string) {
	if len(stories) > 0 {
		s.fallbackStories = stories
	}
}

// generateResponse is the wire shape of the model endpoint's reply
type generateResponse struct {
	Text       string           `json:"text"`
	Audio      any              `json:"audio"`
	Schedule   []map[string]any `json:"schedule"`
	Metadata   models.Meta      `json:"metadata"`
	Confidence float64          `json:"confidence"`
}

// GenerateStory produces an inspirational story for the given context.
// Returns the story text and optional audio bytes (nil when the model sent
// none, always nil on the fallback path).
func (s *ModelService) GenerateStory(ctx context.Context, storyContext models.Meta) (string, []byte, error) {
	payload := map[string]any{
		"task":    "story_generation",
		"context": storyContext,
		"parameters": map[string]any{
			"max_length":    150,
			"temperature":   0.8,
			"output_format": "both",
		},
	}

	result, err := s.post(ctx, payload)
	if err != nil {
		if KindOf(err) == ErrKindNetwork {
			log.Printf("⚠️  [MODEL] Endpoint unavailable, using fallback story: %v", err)
			return s.fallbackStory(), nil, nil
		}
		return "", nil, err
	}

	audio, err := decodeAudio(result.Audio)
	if err != nil {
		return "", nil, err
	}

	return result.Text, audio, nil
}

// GenerateSchedule produces a reminder schedule for the given tasks.
// Tasks must be non-empty; this is validated before any network call.
func (s *ModelService) GenerateSchedule(ctx context.Context, tasks []string, userProfile models.Meta) (*models.ScheduleResult, error) {
	if len(tasks) == 0 {
		return nil, invalidInput("tasks must be a non-empty array")
	}
	if userProfile == nil {
		userProfile = models.Meta{}
	}

	payload := map[string]any{
		"task":         "schedule_generation",
		"tasks":        tasks,
		"user_profile": userProfile,
		"parameters": map[string]any{
			"current_time": "9:00 AM",
			"scheduling_rules": map[string]any{
				"recurring_tasks": []string{"Check Posture"},
				"preferred_times": map[string]string{
					"walk":      "afternoon",
					"stretches": "after_sitting",
				},
			},
		},
	}

	result, err := s.post(ctx, payload)
	if err != nil {
		if KindOf(err) == ErrKindNetwork {
			log.Printf("⚠️  [MODEL] Endpoint unavailable, using fallback schedule: %v", err)
			return s.fallbackSchedule(tasks), nil
		}
		return nil, err
	}

	schedule := make([]models.ScheduleEntry, 0, len(result.Schedule))
	for i, item := range result.Schedule {
		timeVal, hasTime := item["time"].(string)
		taskVal, hasTask := item["task"].(string)
		if !hasTime || !hasTask {
			return nil, malformedErr(nil, "schedule entry %d missing time or task field", i)
		}
		schedule = append(schedule, models.ScheduleEntry{Time: timeVal, Task: taskVal})
	}

	metadata := result.Metadata
	if metadata == nil {
		metadata = models.Meta{}
	}

	return &models.ScheduleResult{
		Schedule:   schedule,
		Metadata:   metadata,
		Confidence: result.Confidence,
	}, nil
}

// post sends a generation request and classifies failures: transport-level
// errors as network failures, non-200 statuses as upstream errors
func (s *ModelService) post(ctx context.Context, payload map[string]any) (*generateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, networkErr(err, "model endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamErr(resp.StatusCode, "model API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkErr(err, "failed to read model response")
	}

	var result generateResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, malformedErr(err, "model response is not valid JSON")
	}

	return &result, nil
}

// decodeAudio normalizes the audio field of a model response: base64 string
// or absent. Absence yields nil bytes, not an error.
func decodeAudio(raw any) ([]byte, error) {
	if raw == nil {
		return nil, nil
	}

	encoded, ok := raw.(string)
	if !ok {
		return nil, malformedErr(nil, "audio field has unsupported type %T", raw)
	}
	if encoded == "" {
		return nil, nil
	}

	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, malformedErr(err, "audio field is not valid base64")
	}
	return audio, nil
}

// fallbackStory rotates through the local pool based on current time
func (s *ModelService) fallbackStory() string {
	index := int(s.now().Unix()) % len(s.fallbackStories)
	return s.fallbackStories[index]
}

// fallbackSchedule builds a rule-based schedule: posture tasks repeat three
// times at two-hour intervals from the base hour, walks land at 5:00 PM, and
// everything else takes sequential two-hour slots advancing a shared cursor.
// Only the generic branch advances the cursor.
func (s *ModelService) fallbackSchedule(tasks []string) *models.ScheduleResult {
	schedule := make([]models.ScheduleEntry, 0, len(tasks))
	currentHour := 11

	for _, task := range tasks {
		lower := strings.ToLower(task)
		switch {
		case strings.Contains(lower, "posture"):
			for i := 0; i < 3; i++ {
				schedule = append(schedule, models.ScheduleEntry{
					Time: clockTime(currentHour + i*2),
					Task: task,
				})
			}
		case strings.Contains(lower, "walk"):
			schedule = append(schedule, models.ScheduleEntry{Time: "5:00 PM", Task: task})
		default:
			schedule = append(schedule, models.ScheduleEntry{
				Time: clockTime(currentHour),
				Task: task,
			})
			currentHour += 2
		}
	}

	return &models.ScheduleResult{
		Schedule:   schedule,
		Metadata:   models.Meta{"source": "fallback"},
		Confidence: 0.5,
	}
}

// clockTime renders an hour-of-day as a 12-hour clock string
func clockTime(hour int) string {
	if hour < 12 {
		return fmt.Sprintf("%d:00 AM", hour)
	}
	return fmt.Sprintf("%d:00 PM", hour-12)
}

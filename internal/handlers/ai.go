package handlers

import (
	"log"
	"strings"
	"time"

	"viberehab/internal/models"
	"viberehab/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const storyErrorFallback = "Unable to generate story at this time. Remember: every small step counts."

// AIHandler handles story and schedule generation requests
type AIHandler struct {
	model   *services.ModelService
	audio   *services.AudioStore
	text    *services.TextStore
	metrics *services.Metrics
}

// NewAIHandler creates a new AI handler
func NewAIHandler(model *services.ModelService, audio *services.AudioStore, text *services.TextStore, metrics *services.Metrics) *AIHandler {
	return &AIHandler{model: model, audio: audio, text: text, metrics: metrics}
}

// VibeStory generates an inspirational story with optional audio output.
//
// Query params:
//
//	include_audio: if true (default), returns audio info when the model sent audio
//	save_audio:    if true, saves the audio clip to the permanent partition
func (h *AIHandler) VibeStory(c *fiber.Ctx) error {
	includeAudio := queryBool(c, "include_audio", true)
	savePermanent := queryBool(c, "save_audio", false)

	storyContext := models.Meta{
		"user_type":    "rehabilitation_patient",
		"content_type": "inspirational_story",
		"max_words":    100,
		"themes":       []string{"patience", "resilience", "small_victories"},
	}

	started := time.Now()
	storyText, audioData, err := h.model.GenerateStory(c.UserContext(), storyContext)
	h.metrics.GenerationLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return h.storyError(c, err)
	}

	textInfo, err := h.text.SaveStory(storyText, storyContext)
	if err != nil {
		return h.storyError(c, err)
	}
	h.metrics.ArtifactsStored.With(prometheus.Labels{"kind": "story"}).Inc()

	if err := h.text.LogGeneration("story", true, models.Meta{"story_id": textInfo.ID}); err != nil {
		log.Printf("⚠️  [AI-API] Failed to log story generation: %v", err)
	}
	h.metrics.GenerationRequests.With(prometheus.Labels{"type": "story", "outcome": "success"}).Inc()

	response := fiber.Map{
		"storyText": storyText,
		"storyId":   textInfo.ID,
		"wordCount": textInfo.WordCount,
		"success":   true,
	}

	if includeAudio && audioData != nil {
		audioInfo, err := h.audio.SaveAudio(audioData, "story_"+textInfo.ID, savePermanent, "wav")
		if err != nil {
			return h.storyError(c, err)
		}
		h.metrics.ArtifactsStored.With(prometheus.Labels{"kind": "audio"}).Inc()

		response["audioUrl"] = audioInfo.URL
		response["audioFilename"] = audioInfo.Filename
		response["audioSize"] = audioInfo.SizeKB
	}

	return c.JSON(response)
}

func (h *AIHandler) storyError(c *fiber.Ctx, err error) error {
	log.Printf("❌ [AI-API] Story generation failed: %v", err)
	if logErr := h.text.LogGeneration("story", false, models.Meta{"error": err.Error()}); logErr != nil {
		log.Printf("⚠️  [AI-API] Failed to log story failure: %v", logErr)
	}
	h.metrics.GenerationRequests.With(prometheus.Labels{"type": "story", "outcome": "error"}).Inc()

	return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
		"error":     err.Error(),
		"success":   false,
		"storyText": storyErrorFallback,
	})
}

// scheduleRequest is the expected body of POST /ai/generateschedule
type scheduleRequest struct {
	Tasks       []string    `json:"tasks"`
	UserProfile models.Meta `json:"user_profile"`
}

// GenerateSchedule generates a customized reminder schedule for pending tasks
func (h *AIHandler) GenerateSchedule(c *fiber.Ctx) error {
	var req scheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"success": false,
		})
	}
	if req.Tasks == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Missing 'tasks' field in request body",
			"success": false,
		})
	}
	if len(req.Tasks) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Tasks must be a non-empty array",
			"success": false,
		})
	}

	started := time.Now()
	result, err := h.model.GenerateSchedule(c.UserContext(), req.Tasks, req.UserProfile)
	h.metrics.GenerationLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return h.scheduleError(c, err)
	}

	scheduleInfo, err := h.text.SaveSchedule(result.Schedule, models.Meta{
		"tasks":        req.Tasks,
		"user_profile": req.UserProfile,
		"confidence":   result.Confidence,
	})
	if err != nil {
		return h.scheduleError(c, err)
	}
	h.metrics.ArtifactsStored.With(prometheus.Labels{"kind": "schedule"}).Inc()

	if err := h.text.LogGeneration("schedule", true, models.Meta{
		"schedule_id": scheduleInfo.ID,
		"task_count":  len(req.Tasks),
	}); err != nil {
		log.Printf("⚠️  [AI-API] Failed to log schedule generation: %v", err)
	}

	outcome := "success"
	if source, ok := result.Metadata["source"].(string); ok && source == "fallback" {
		outcome = "fallback"
	}
	h.metrics.GenerationRequests.With(prometheus.Labels{"type": "schedule", "outcome": outcome}).Inc()

	return c.JSON(fiber.Map{
		"schedule":   result.Schedule,
		"scheduleId": scheduleInfo.ID,
		"taskCount":  scheduleInfo.TaskCount,
		"confidence": result.Confidence,
		"metadata":   result.Metadata,
		"success":    true,
	})
}

func (h *AIHandler) scheduleError(c *fiber.Ctx, err error) error {
	log.Printf("❌ [AI-API] Schedule generation failed: %v", err)
	if logErr := h.text.LogGeneration("schedule", false, models.Meta{"error": err.Error()}); logErr != nil {
		log.Printf("⚠️  [AI-API] Failed to log schedule failure: %v", logErr)
	}
	h.metrics.GenerationRequests.With(prometheus.Labels{"type": "schedule", "outcome": "error"}).Inc()

	return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
		"error":   err.Error(),
		"success": false,
	})
}

// ListStories returns previews of recently generated stories
func (h *AIHandler) ListStories(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	stories, err := h.text.ListStories(limit)
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}

	return c.JSON(fiber.Map{
		"stories": stories,
		"count":   len(stories),
	})
}

// GetStory returns a saved story document by id
func (h *AIHandler) GetStory(c *fiber.Ctx) error {
	doc, err := h.text.GetStory(c.Params("id"))
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}
	return c.JSON(doc)
}

// ListSchedules returns previews of recently generated schedules
func (h *AIHandler) ListSchedules(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	schedules, err := h.text.ListSchedules(limit)
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}

	return c.JSON(fiber.Map{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

// GetSchedule returns a saved schedule document by id
func (h *AIHandler) GetSchedule(c *fiber.Ctx) error {
	doc, err := h.text.GetSchedule(c.Params("id"))
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}
	return c.JSON(doc)
}

// textCleanupRequest is the optional body of POST /text/cleanup
type textCleanupRequest struct {
	MaxAgeDays *int `json:"max_age_days"`
}

// CleanupText deletes stories, schedules and logs older than max_age_days
func (h *AIHandler) CleanupText(c *fiber.Ctx) error {
	maxAgeDays := 30
	var req textCleanupRequest
	if err := c.BodyParser(&req); err == nil && req.MaxAgeDays != nil {
		maxAgeDays = *req.MaxAgeDays
	}

	deleted, err := h.text.CleanupOld(maxAgeDays)
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}

	total := 0
	for partition, count := range deleted {
		total += count
		h.metrics.ArtifactsSwept.With(prometheus.Labels{"partition": partition}).Add(float64(count))
	}
	log.Printf("🗑️  [AI-API] Text cleanup removed %d files (max age %d days)", total, maxAgeDays)

	return c.JSON(fiber.Map{
		"success": true,
		"deleted": deleted,
	})
}

func queryBool(c *fiber.Ctx, key string, defaultValue bool) bool {
	value := c.Query(key)
	if value == "" {
		return defaultValue
	}
	return strings.EqualFold(value, "true")
}

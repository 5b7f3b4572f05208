package handlers

import (
	"fmt"
	"log"
	"strings"

	"viberehab/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// AudioHandler handles audio artifact retrieval and management
type AudioHandler struct {
	store           *services.AudioStore
	metrics         *services.Metrics
	sweepExtensions []string
}

// NewAudioHandler creates a new audio handler
func NewAudioHandler(store *services.AudioStore, metrics *services.Metrics, sweepExtensions []string) *AudioHandler {
	return &AudioHandler{store: store, metrics: metrics, sweepExtensions: sweepExtensions}
}

// Get streams an audio file with a MIME type derived from its extension
func (h *AudioHandler) Get(c *fiber.Ctx) error {
	filename := c.Params("filename")

	data, err := h.store.GetAudio(filename)
	if err != nil {
		if services.KindOf(err) == services.ErrKindNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":    "Audio file not found",
				"filename": filename,
			})
		}
		log.Printf("❌ [AUDIO-API] Failed to read %s: %v", filename, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":    err.Error(),
			"filename": filename,
		})
	}

	c.Set(fiber.HeaderContentType, mimeType(filename))
	return c.Send(data)
}

// Info returns filesystem-derived metadata for an audio file
func (h *AudioHandler) Info(c *fiber.Ctx) error {
	filename := c.Params("filename")

	info, err := h.store.GetAudioInfo(filename)
	if err != nil {
		if services.KindOf(err) == services.ErrKindNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":    "Audio file not found",
				"filename": filename,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(info)
}

// List returns metadata for stored audio files, newest first
func (h *AudioHandler) List(c *fiber.Ctx) error {
	permanentOnly := strings.EqualFold(c.Query("permanent_only"), "true")

	files, err := h.store.ListAudioFiles(permanentOnly)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"files": files,
		"count": len(files),
	})
}

// Delete removes an audio file from whichever partition holds it
func (h *AudioHandler) Delete(c *fiber.Ctx) error {
	filename := c.Params("filename")

	deleted, err := h.store.DeleteAudio(filename)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success":  false,
			"error":    "Audio file not found",
			"filename": filename,
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  fmt.Sprintf("Audio file %s deleted", filename),
		"filename": filename,
	})
}

// cleanupRequest is the optional body of POST /audio/cleanup
type cleanupRequest struct {
	MaxAgeHours *int `json:"max_age_hours"`
}

// Cleanup deletes temp-partition audio older than max_age_hours
func (h *AudioHandler) Cleanup(c *fiber.Ctx) error {
	maxAgeHours := 24
	var req cleanupRequest
	if err := c.BodyParser(&req); err == nil && req.MaxAgeHours != nil {
		maxAgeHours = *req.MaxAgeHours
	}

	deletedCount, err := h.store.CleanupTemp(maxAgeHours, h.sweepExtensions)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}
	h.metrics.ArtifactsSwept.With(prometheus.Labels{"partition": "temp_audio"}).Add(float64(deletedCount))
	log.Printf("🗑️  [AUDIO-API] Cleanup removed %d temp files (max age %dh)", deletedCount, maxAgeHours)

	return c.JSON(fiber.Map{
		"success":       true,
		"deleted_count": deletedCount,
		"message":       fmt.Sprintf("Cleaned up %d temporary audio files", deletedCount),
	})
}

// mimeType maps an audio filename to its stream content type
func mimeType(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(filename, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(filename, ".ogg"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

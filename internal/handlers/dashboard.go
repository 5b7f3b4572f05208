package handlers

import (
	"viberehab/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the main-page payload.
// Prototype scope: static mock data, no per-user persistence.
type DashboardHandler struct{}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Handle returns all data needed to render the main page
func (h *DashboardHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(models.Dashboard{
		User: models.DashboardUser{
			Name:            "Alex",
			OverallProgress: 0.25,
		},
		DailyPlan: []models.DailyPlanItem{
			{ID: 1, Label: "Morning Meditation", Icon: "ph-leaf", Completed: true},
			{ID: 2, Label: "Knee Stretches", Icon: "ph-person-simple-run", Completed: false},
			{ID: 3, Label: "10-min Walk", Icon: "ph-person-simple-walk", Completed: false},
		},
	})
}

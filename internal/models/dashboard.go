package models

// DashboardUser is the user block of the dashboard payload
type DashboardUser struct {
	Name            string  `json:"name"`
	OverallProgress float64 `json:"overallProgress"`
}

// DailyPlanItem is one task in the user's daily plan
type DailyPlanItem struct {
	ID        int    `json:"id"`
	Label     string `json:"label"`
	Icon      string `json:"icon"`
	Completed bool   `json:"completed"`
}

// Dashboard is the full main-page payload
type Dashboard struct {
	User      DashboardUser   `json:"user"`
	DailyPlan []DailyPlanItem `json:"dailyPlan"`
}

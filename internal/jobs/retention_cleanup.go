package jobs

import (
	"fmt"
	"log"
	"time"

	"viberehab/internal/config"
	"viberehab/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// RetentionJob runs the temp-audio and text retention sweeps on a fixed
// interval. Sweeping stays caller-triggered through the cleanup endpoints;
// this job is an opt-in supplement enabled via CLEANUP_INTERVAL_HOURS.
type RetentionJob struct {
	audio     *services.AudioStore
	text      *services.TextStore
	cfg       *config.Config
	scheduler gocron.Scheduler
}

// NewRetentionJob creates the retention job with its own scheduler
func NewRetentionJob(audio *services.AudioStore, text *services.TextStore, cfg *config.Config) (*RetentionJob, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &RetentionJob{
		audio:     audio,
		text:      text,
		cfg:       cfg,
		scheduler: scheduler,
	}, nil
}

// Start registers and starts the periodic sweep
func (j *RetentionJob) Start() error {
	interval := time.Duration(j.cfg.CleanupIntervalHours) * time.Hour

	_, err := j.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.Run),
		gocron.WithName("retention_cleanup"),
	)
	if err != nil {
		return fmt.Errorf("failed to register retention job: %w", err)
	}

	j.scheduler.Start()
	log.Printf("⏰ [RETENTION] Scheduled sweep every %dh (audio >%dh, text >%dd)",
		j.cfg.CleanupIntervalHours, j.cfg.AudioMaxAgeHours, j.cfg.TextMaxAgeDays)
	return nil
}

// Stop shuts down the scheduler
func (j *RetentionJob) Stop() error {
	return j.scheduler.Shutdown()
}

// Run executes one sweep over both stores
func (j *RetentionJob) Run() {
	startTime := time.Now()

	audioDeleted, err := j.audio.CleanupTemp(j.cfg.AudioMaxAgeHours, j.cfg.SweepExtensions)
	if err != nil {
		log.Printf("❌ [RETENTION] Temp audio sweep failed: %v", err)
	}

	textDeleted, err := j.text.CleanupOld(j.cfg.TextMaxAgeDays)
	if err != nil {
		log.Printf("❌ [RETENTION] Text sweep failed: %v", err)
	}

	total := audioDeleted
	for _, count := range textDeleted {
		total += count
	}
	log.Printf("✅ [RETENTION] Sweep complete: %d files deleted in %v (audio=%d stories=%d schedules=%d logs=%d)",
		total, time.Since(startTime), audioDeleted,
		textDeleted["stories"], textDeleted["schedules"], textDeleted["logs"])
}

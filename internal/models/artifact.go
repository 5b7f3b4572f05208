package models

import "time"

// Meta is open-ended caller-supplied metadata attached to artifacts.
// It is stored and returned verbatim, never validated or interpreted.
type Meta map[string]any

// AudioMetadata describes a saved audio artifact
type AudioMetadata struct {
	Filename     string  `json:"filename"`
	Path         string  `json:"path"`
	RelativePath string  `json:"relative_path,omitempty"`
	URL          string  `json:"url,omitempty"`
	Format       string  `json:"format,omitempty"`
	SizeBytes    int64   `json:"size_bytes,omitempty"`
	SizeKB       float64 `json:"size_kb"`
	CreatedAt    string  `json:"created_at"`
	Permanent    bool    `json:"permanent"`
}

// AudioFileInfo holds filesystem-derived stats for an audio artifact
type AudioFileInfo struct {
	Filename   string  `json:"filename"`
	Path       string  `json:"path"`
	SizeBytes  int64   `json:"size_bytes"`
	SizeKB     float64 `json:"size_kb"`
	CreatedAt  string  `json:"created_at"`
	ModifiedAt string  `json:"modified_at"`
	Exists     bool    `json:"exists"`
}

// StoryDocument is the on-disk representation of a saved story
type StoryDocument struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
	CreatedAt string `json:"created_at"`
	Metadata  Meta   `json:"metadata"`
	Type      string `json:"type"`

	// Set on save/load, not part of the document body
	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`
}

// ScheduleEntry is a single scheduled task slot
type ScheduleEntry struct {
	Time string `json:"time"`
	Task string `json:"task"`
}

// ScheduleDocument is the on-disk representation of a saved schedule
type ScheduleDocument struct {
	ID        string          `json:"id"`
	Schedule  []ScheduleEntry `json:"schedule"`
	TaskCount int             `json:"task_count"`
	CreatedAt string          `json:"created_at"`
	Metadata  Meta            `json:"metadata"`
	Type      string          `json:"type"`

	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`
}

// ScheduleResult is the normalized output of schedule generation
type ScheduleResult struct {
	Schedule   []ScheduleEntry `json:"schedule"`
	Metadata   Meta            `json:"metadata"`
	Confidence float64         `json:"confidence"`
}

// StoryPreview is a truncated listing view of a story
type StoryPreview struct {
	ID          string `json:"id"`
	TextPreview string `json:"text_preview"`
	WordCount   int    `json:"word_count"`
	CreatedAt   string `json:"created_at"`
}

// SchedulePreview is a listing view of a schedule
type SchedulePreview struct {
	ID        string `json:"id"`
	TaskCount int    `json:"task_count"`
	CreatedAt string `json:"created_at"`
}

// GenerationLogEntry is one append-only generation audit record
type GenerationLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Success   bool      `json:"success"`
	Metadata  Meta      `json:"metadata"`
}

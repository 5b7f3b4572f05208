package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"viberehab/internal/database"
	"viberehab/internal/models"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

const (
	previewLength = 100
	timestampFmt  = "20060102_150405"
	logDayFmt     = "20060102"
)

// TextStore persists story and schedule documents as JSON files under
// per-kind partitions (stories/, schedules/) plus an append-only daily
// generation log under logs/. Retrieval by id goes through the sqlite
// artifact index with a sorted directory scan as fallback.
type TextStore struct {
	root         string
	storiesDir   string
	schedulesDir string
	logsDir      string

	index *database.ArtifactIndex
	docs  *cache.Cache
	now   func() time.Time

	logMu sync.Mutex // serializes writers of the shared daily log
}

// NewTextStore creates the storage partitions if missing. The index may be
// nil, in which case retrieval falls back to directory scans only.
func NewTextStore(root string, index *database.ArtifactIndex) (*TextStore, error) {
	s := &TextStore{
		root:         root,
		storiesDir:   filepath.Join(root, "stories"),
		schedulesDir: filepath.Join(root, "schedules"),
		logsDir:      filepath.Join(root, "logs"),
		index:        index,
		docs:         cache.New(10*time.Minute, 5*time.Minute),
		now:          time.Now,
	}

	for _, dir := range []string{root, s.storiesDir, s.schedulesDir, s.logsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr(err, "failed to create text directory %s", dir)
		}
	}

	return s, nil
}

// Partitions returns the kind->directory mapping used for index rebuilds
func (s *TextStore) Partitions() map[string]string {
	return map[string]string{
		"story":    s.storiesDir,
		"schedule": s.schedulesDir,
	}
}

// SaveStory persists a generated story and returns the stored document
func (s *TextStore) SaveStory(text string, meta models.Meta) (*models.StoryDocument, error) {
	if text == "" {
		return nil, invalidInput("no story text provided")
	}
	if meta == nil {
		meta = models.Meta{}
	}

	now := s.now()
	id := uuid.New().String()[:8]
	filename := fmt.Sprintf("story_%s_%s.json", now.Format(timestampFmt), id)

	doc := &models.StoryDocument{
		ID:        id,
		Text:      text,
		WordCount: len(strings.Fields(text)),
		CharCount: utf8.RuneCountInString(text),
		CreatedAt: now.Format(time.RFC3339),
		Metadata:  meta,
		Type:      "story",
	}

	path, err := s.writeDocument(s.storiesDir, filename, doc)
	if err != nil {
		return nil, err
	}
	doc.Filename = filename
	doc.Path = path

	s.indexPut("story", id, filename, path, doc.CreatedAt)
	s.docs.Set("story:"+id, doc, cache.DefaultExpiration)

	return doc, nil
}

// SaveSchedule persists a generated schedule and returns the stored document
func (s *TextStore) SaveSchedule(entries []models.ScheduleEntry, meta models.Meta) (*models.ScheduleDocument, error) {
	if len(entries) == 0 {
		return nil, invalidInput("no schedule data provided")
	}
	if meta == nil {
		meta = models.Meta{}
	}

	now := s.now()
	id := uuid.New().String()[:8]
	filename := fmt.Sprintf("schedule_%s_%s.json", now.Format(timestampFmt), id)

	doc := &models.ScheduleDocument{
		ID:        id,
		Schedule:  entries,
		TaskCount: len(entries),
		CreatedAt: now.Format(time.RFC3339),
		Metadata:  meta,
		Type:      "schedule",
	}

	path, err := s.writeDocument(s.schedulesDir, filename, doc)
	if err != nil {
		return nil, err
	}
	doc.Filename = filename
	doc.Path = path

	s.indexPut("schedule", id, filename, path, doc.CreatedAt)
	s.docs.Set("schedule:"+id, doc, cache.DefaultExpiration)

	return doc, nil
}

// GetStory retrieves a saved story by its 8-character id
func (s *TextStore) GetStory(id string) (*models.StoryDocument, error) {
	if cached, ok := s.docs.Get("story:" + id); ok {
		if doc, ok := cached.(*models.StoryDocument); ok {
			return doc, nil
		}
	}

	path, err := s.resolve("story", s.storiesDir, id)
	if err != nil {
		return nil, err
	}

	var doc models.StoryDocument
	if err := s.readDocument(path, &doc); err != nil {
		return nil, err
	}
	doc.Filename = filepath.Base(path)
	doc.Path = path

	s.docs.Set("story:"+id, &doc, cache.DefaultExpiration)
	return &doc, nil
}

// GetSchedule retrieves a saved schedule by its 8-character id
func (s *TextStore) GetSchedule(id string) (*models.ScheduleDocument, error) {
	if cached, ok := s.docs.Get("schedule:" + id); ok {
		if doc, ok := cached.(*models.ScheduleDocument); ok {
			return doc, nil
		}
	}

	path, err := s.resolve("schedule", s.schedulesDir, id)
	if err != nil {
		return nil, err
	}

	var doc models.ScheduleDocument
	if err := s.readDocument(path, &doc); err != nil {
		return nil, err
	}
	doc.Filename = filepath.Base(path)
	doc.Path = path

	s.docs.Set("schedule:"+id, &doc, cache.DefaultExpiration)
	return &doc, nil
}

// ListStories returns previews of the most recent stories, newest first
func (s *TextStore) ListStories(limit int) ([]models.StoryPreview, error) {
	names, err := s.listDocuments(s.storiesDir, "story_")
	if err != nil {
		return nil, err
	}

	previews := make([]models.StoryPreview, 0, limit)
	for _, name := range names {
		if len(previews) >= limit {
			break
		}
		var doc models.StoryDocument
		if err := s.readDocument(filepath.Join(s.storiesDir, name), &doc); err != nil {
			log.Printf("⚠️  [TEXT-STORE] Skipping unreadable story %s: %v", name, err)
			continue
		}
		previews = append(previews, models.StoryPreview{
			ID:          doc.ID,
			TextPreview: truncate(doc.Text, previewLength),
			WordCount:   doc.WordCount,
			CreatedAt:   doc.CreatedAt,
		})
	}

	return previews, nil
}

// ListSchedules returns previews of the most recent schedules, newest first
func (s *TextStore) ListSchedules(limit int) ([]models.SchedulePreview, error) {
	names, err := s.listDocuments(s.schedulesDir, "schedule_")
	if err != nil {
		return nil, err
	}

	previews := make([]models.SchedulePreview, 0, limit)
	for _, name := range names {
		if len(previews) >= limit {
			break
		}
		var doc models.ScheduleDocument
		if err := s.readDocument(filepath.Join(s.schedulesDir, name), &doc); err != nil {
			log.Printf("⚠️  [TEXT-STORE] Skipping unreadable schedule %s: %v", name, err)
			continue
		}
		previews = append(previews, models.SchedulePreview{
			ID:        doc.ID,
			TaskCount: doc.TaskCount,
			CreatedAt: doc.CreatedAt,
		})
	}

	return previews, nil
}

// LogGeneration appends one entry to the current day's generation log.
// The log is JSONL (one object per line) so appends never rewrite the file.
func (s *TextStore) LogGeneration(generationType string, success bool, meta models.Meta) error {
	if meta == nil {
		meta = models.Meta{}
	}

	entry := models.GenerationLogEntry{
		Timestamp: s.now(),
		Type:      generationType,
		Success:   success,
		Metadata:  meta,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return storageErr(err, "failed to encode generation log entry")
	}

	s.logMu.Lock()
	defer s.logMu.Unlock()

	path := filepath.Join(s.logsDir, fmt.Sprintf("generation_log_%s.jsonl", s.now().Format(logDayFmt)))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return storageErr(err, "failed to open generation log")
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return storageErr(err, "failed to append generation log entry")
	}
	return nil
}

// ReadGenerationLog returns all entries logged on the given day
func (s *TextStore) ReadGenerationLog(day time.Time) ([]models.GenerationLogEntry, error) {
	path := filepath.Join(s.logsDir, fmt.Sprintf("generation_log_%s.jsonl", day.Format(logDayFmt)))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, storageErr(err, "failed to open generation log")
	}
	defer f.Close()

	var entries []models.GenerationLogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry models.GenerationLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			log.Printf("⚠️  [TEXT-STORE] Skipping malformed log line: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, storageErr(err, "failed to read generation log")
	}

	return entries, nil
}

// CleanupOld deletes documents whose last modification is strictly older
// than maxAgeDays across all three partitions. No text partition is exempt.
func (s *TextStore) CleanupOld(maxAgeDays int) (map[string]int, error) {
	cutoff := s.now().AddDate(0, 0, -maxAgeDays)
	deleted := map[string]int{"stories": 0, "schedules": 0, "logs": 0}

	partitions := []struct {
		dir string
		key string
	}{
		{s.storiesDir, "stories"},
		{s.schedulesDir, "schedules"},
		{s.logsDir, "logs"},
	}

	for _, p := range partitions {
		entries, err := os.ReadDir(p.dir)
		if err != nil {
			return deleted, storageErr(err, "failed to scan %s directory", p.key)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".json" && ext != ".jsonl" {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}

			path := filepath.Join(p.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("⚠️  [TEXT-STORE] Failed to sweep %s: %v", entry.Name(), err)
				continue
			}
			deleted[p.key]++

			if s.index != nil && p.key != "logs" {
				if err := s.index.Delete(path); err != nil {
					log.Printf("⚠️  [TEXT-STORE] Failed to prune index entry for %s: %v", entry.Name(), err)
				}
			}
		}
	}

	return deleted, nil
}

// FormatForSpeech normalizes text for text-to-speech output: punctuation
// gets trailing pauses, markdown emphasis characters are stripped
func (s *TextStore) FormatForSpeech(text string) string {
	formatted := strings.ReplaceAll(text, ". ", "... ")
	formatted = strings.ReplaceAll(formatted, "! ", "!.. ")
	formatted = strings.ReplaceAll(formatted, "? ", "?.. ")
	formatted = strings.ReplaceAll(formatted, "*", "")
	formatted = strings.ReplaceAll(formatted, "_", "")
	return formatted
}

// resolve finds the path for an artifact id: index first, then a sorted
// directory scan (newest filename first) for deterministic fallback order
func (s *TextStore) resolve(kind, dir, id string) (string, error) {
	if s.index != nil {
		if path, ok := s.index.Lookup(kind, id); ok {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	names, err := s.listDocuments(dir, kind+"_")
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if strings.HasSuffix(name, "_"+id+".json") {
			return filepath.Join(dir, name), nil
		}
	}

	return "", notFound("%s %s not found", kind, id)
}

// listDocuments returns matching filenames sorted descending, so
// timestamp-embedded names come newest first
func (s *TextStore) listDocuments(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, storageErr(err, "failed to scan directory %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *TextStore) writeDocument(dir, filename string, doc any) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", storageErr(err, "failed to encode document %s", filename)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", storageErr(err, "failed to write document %s", filename)
	}
	return path, nil
}

func (s *TextStore) readDocument(path string, doc any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("document %s not found", filepath.Base(path))
		}
		return storageErr(err, "failed to read document %s", filepath.Base(path))
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return storageErr(err, "failed to decode document %s", filepath.Base(path))
	}
	return nil
}

func (s *TextStore) indexPut(kind, id, filename, path, createdAt string) {
	if s.index == nil {
		return
	}
	err := s.index.Put(database.IndexEntry{
		ID:        id,
		Kind:      kind,
		Filename:  filename,
		Path:      path,
		CreatedAt: createdAt,
	})
	if err != nil {
		log.Printf("⚠️  [TEXT-STORE] Failed to index %s %s: %v", kind, id, err)
	}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

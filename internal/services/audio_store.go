package services

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"viberehab/internal/models"

	"github.com/google/uuid"
)

// listedExtensions are the formats recognized when listing audio files
var listedExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
	".ogg": true,
}

// AudioStore persists generated audio clips under a partitioned directory
// layout: <root>/temp for ephemeral clips subject to sweeping, and
// <root>/permanent for clips excluded from sweeping.
type AudioStore struct {
	root         string
	tempDir      string
	permanentDir string
	now          func() time.Time
}

// NewAudioStore creates the storage root and both partitions if missing
func NewAudioStore(root string) (*AudioStore, error) {
	s := &AudioStore{
		root:         root,
		tempDir:      filepath.Join(root, "temp"),
		permanentDir: filepath.Join(root, "permanent"),
		now:          time.Now,
	}

	for _, dir := range []string{root, s.tempDir, s.permanentDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr(err, "failed to create audio directory %s", dir)
		}
	}

	return s, nil
}

// SaveAudio writes raw audio bytes to the temp or permanent partition and
// returns descriptive metadata. If filename is empty a unique one is
// generated; otherwise the format extension is appended when missing.
// An existing file with the same name is overwritten.
func (s *AudioStore) SaveAudio(data []byte, filename string, permanent bool, format string) (*models.AudioMetadata, error) {
	if len(data) == 0 {
		return nil, invalidInput("no audio data provided")
	}
	if format == "" {
		format = "wav"
	}

	if filename == "" {
		filename = fmt.Sprintf("audio_%s.%s", uuid.New().String(), format)
	} else {
		filename = filepath.Base(filename)
		if !strings.HasSuffix(filename, "."+format) {
			filename = filename + "." + format
		}
	}

	targetDir := s.tempDir
	partition := "temp"
	if permanent {
		targetDir = s.permanentDir
		partition = "permanent"
	}
	path := filepath.Join(targetDir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, storageErr(err, "failed to write audio file %s", filename)
	}

	size := int64(len(data))
	return &models.AudioMetadata{
		Filename:     filename,
		Path:         path,
		RelativePath: filepath.Join(filepath.Base(s.root), partition, filename),
		URL:          "/api/audio/" + filename,
		Format:       format,
		SizeBytes:    size,
		SizeKB:       roundKB(size),
		CreatedAt:    s.now().Format(time.RFC3339),
		Permanent:    permanent,
	}, nil
}

// GetAudio returns the raw bytes of an audio file, checking the temp
// partition first, then permanent
func (s *AudioStore) GetAudio(filename string) ([]byte, error) {
	filename = filepath.Base(filename)

	for _, dir := range []string{s.tempDir, s.permanentDir} {
		path := filepath.Join(dir, filename)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, storageErr(err, "failed to read audio file %s", filename)
		}
	}

	return nil, notFound("audio file %s not found", filename)
}

// GetAudioInfo returns filesystem-derived stats for an audio file without
// reading its contents
func (s *AudioStore) GetAudioInfo(filename string) (*models.AudioFileInfo, error) {
	filename = filepath.Base(filename)

	for _, dir := range []string{s.tempDir, s.permanentDir} {
		path := filepath.Join(dir, filename)
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}

		// Write-once artifacts: mtime doubles as creation time since Go
		// cannot portably read inode birth time
		return &models.AudioFileInfo{
			Filename:   filename,
			Path:       path,
			SizeBytes:  stat.Size(),
			SizeKB:     roundKB(stat.Size()),
			CreatedAt:  stat.ModTime().Format(time.RFC3339),
			ModifiedAt: stat.ModTime().Format(time.RFC3339),
			Exists:     true,
		}, nil
	}

	return nil, notFound("audio file %s not found", filename)
}

// DeleteAudio removes an audio file from whichever partition holds it.
// Returns false when no file matched.
func (s *AudioStore) DeleteAudio(filename string) (bool, error) {
	filename = filepath.Base(filename)

	for _, dir := range []string{s.tempDir, s.permanentDir} {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			return false, storageErr(err, "failed to delete audio file %s", filename)
		}
		return true, nil
	}

	return false, nil
}

// CleanupTemp deletes files in the temp partition whose last modification is
// strictly older than maxAgeHours. Only files matching the given extensions
// are considered; the permanent partition is never touched.
func (s *AudioStore) CleanupTemp(maxAgeHours int, extensions []string) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0, storageErr(err, "failed to scan temp audio directory")
	}

	swept := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		swept["."+strings.TrimPrefix(ext, ".")] = true
	}

	cutoff := s.now().Add(-time.Duration(maxAgeHours) * time.Hour)
	deleted := 0

	for _, entry := range entries {
		if entry.IsDir() || !swept[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.tempDir, entry.Name())); err != nil {
				log.Printf("⚠️  [AUDIO-STORE] Failed to sweep %s: %v", entry.Name(), err)
				continue
			}
			deleted++
		}
	}

	return deleted, nil
}

// ListAudioFiles enumerates recognized audio files, newest first. With
// permanentOnly set, the temp partition is skipped entirely.
func (s *AudioStore) ListAudioFiles(permanentOnly bool) ([]models.AudioMetadata, error) {
	dirs := []string{s.tempDir, s.permanentDir}
	if permanentOnly {
		dirs = []string{s.permanentDir}
	}

	var files []models.AudioMetadata
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, storageErr(err, "failed to scan audio directory %s", dir)
		}

		for _, entry := range entries {
			if entry.IsDir() || !listedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, models.AudioMetadata{
				Filename:  entry.Name(),
				Path:      filepath.Join(dir, entry.Name()),
				SizeKB:    roundKB(info.Size()),
				CreatedAt: info.ModTime().Format(time.RFC3339),
				Permanent: dir == s.permanentDir,
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt > files[j].CreatedAt
	})

	return files, nil
}

func roundKB(sizeBytes int64) float64 {
	return math.Round(float64(sizeBytes)/1024*100) / 100
}

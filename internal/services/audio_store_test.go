package services

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestAudioStore(t *testing.T) *AudioStore {
	t.Helper()
	store, err := NewAudioStore(filepath.Join(t.TempDir(), "audio_outputs"))
	if err != nil {
		t.Fatalf("Failed to create audio store: %v", err)
	}
	return store
}

func TestAudioStore_SaveAndGetRoundTrip(t *testing.T) {
	store := newTestAudioStore(t)
	data := []byte("RIFF....WAVEfmt fake audio payload")

	meta, err := store.SaveAudio(data, "", false, "wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}

	if !strings.HasPrefix(meta.Filename, "audio_") || !strings.HasSuffix(meta.Filename, ".wav") {
		t.Errorf("Unexpected generated filename: %s", meta.Filename)
	}
	if meta.Permanent {
		t.Error("Expected temp partition metadata")
	}
	if filepath.Dir(meta.Path) != store.tempDir {
		t.Errorf("Expected file under temp partition, got %s", meta.Path)
	}
	if meta.SizeBytes != int64(len(data)) {
		t.Errorf("Expected size %d, got %d", len(data), meta.SizeBytes)
	}

	got, err := store.GetAudio(meta.Filename)
	if err != nil {
		t.Fatalf("GetAudio failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Retrieved audio differs from saved bytes")
	}
}

func TestAudioStore_SaveAudio_EmptyData(t *testing.T) {
	store := newTestAudioStore(t)

	_, err := store.SaveAudio(nil, "", false, "wav")
	if err == nil {
		t.Fatal("Expected error for empty audio data")
	}
	if KindOf(err) != ErrKindInvalidInput {
		t.Errorf("Expected invalid input error, got %v", err)
	}
}

func TestAudioStore_FilenameExtension(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		format   string
		want     string
	}{
		{"extension appended", "story_abc123", "wav", "story_abc123.wav"},
		{"extension not duplicated", "story_abc123.wav", "wav", "story_abc123.wav"},
		{"different format appended", "clip.wav", "mp3", "clip.wav.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestAudioStore(t)
			meta, err := store.SaveAudio([]byte("x"), tt.filename, false, tt.format)
			if err != nil {
				t.Fatalf("SaveAudio failed: %v", err)
			}
			if meta.Filename != tt.want {
				t.Errorf("Expected filename %q, got %q", tt.want, meta.Filename)
			}
		})
	}
}

func TestAudioStore_SizeKBRounding(t *testing.T) {
	store := newTestAudioStore(t)

	meta, err := store.SaveAudio(make([]byte, 1536), "", false, "wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	if meta.SizeKB != 1.5 {
		t.Errorf("Expected 1.5 KB, got %v", meta.SizeKB)
	}
}

func TestAudioStore_GetAudio_NotFound(t *testing.T) {
	store := newTestAudioStore(t)

	_, err := store.GetAudio("missing.wav")
	if KindOf(err) != ErrKindNotFound {
		t.Errorf("Expected not found error, got %v", err)
	}

	_, err = store.GetAudioInfo("missing.wav")
	if KindOf(err) != ErrKindNotFound {
		t.Errorf("Expected not found error from GetAudioInfo, got %v", err)
	}
}

func TestAudioStore_DeleteAudio(t *testing.T) {
	store := newTestAudioStore(t)

	meta, err := store.SaveAudio([]byte("x"), "", true, "mp3")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}

	deleted, err := store.DeleteAudio(meta.Filename)
	if err != nil {
		t.Fatalf("DeleteAudio failed: %v", err)
	}
	if !deleted {
		t.Error("Expected deletion of existing file")
	}

	deleted, err = store.DeleteAudio(meta.Filename)
	if err != nil {
		t.Fatalf("DeleteAudio on missing file errored: %v", err)
	}
	if deleted {
		t.Error("Expected no deletion for missing file")
	}
}

func TestAudioStore_CleanupTemp(t *testing.T) {
	store := newTestAudioStore(t)
	exts := []string{"wav", "mp3"}

	oldTemp, err := store.SaveAudio([]byte("old"), "old_clip", false, "wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	oldPermanent, err := store.SaveAudio([]byte("keep"), "keep_clip", true, "wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	fresh, err := store.SaveAudio([]byte("fresh"), "fresh_clip", false, "wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}

	// Age the old files past the threshold
	past := time.Now().Add(-48 * time.Hour)
	for _, path := range []string{oldTemp.Path, oldPermanent.Path} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("Failed to age file: %v", err)
		}
	}

	deleted, err := store.CleanupTemp(24, exts)
	if err != nil {
		t.Fatalf("CleanupTemp failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deletion, got %d", deleted)
	}

	if _, err := os.Stat(oldTemp.Path); !os.IsNotExist(err) {
		t.Error("Old temp file should have been swept")
	}
	if _, err := os.Stat(oldPermanent.Path); err != nil {
		t.Error("Permanent file must never be swept")
	}
	if _, err := os.Stat(fresh.Path); err != nil {
		t.Error("Fresh temp file should survive")
	}
}

func TestAudioStore_CleanupTemp_PermanentExemptAtAnyAge(t *testing.T) {
	store := newTestAudioStore(t)

	meta, err := store.SaveAudio([]byte("ancient"), "ancient", true, "wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	past := time.Now().Add(-10000 * time.Hour)
	if err := os.Chtimes(meta.Path, past, past); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	deleted, err := store.CleanupTemp(0, []string{"wav", "mp3"})
	if err != nil {
		t.Fatalf("CleanupTemp failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 deletions, got %d", deleted)
	}
}

func TestAudioStore_CleanupTemp_ZeroMaxAgeBoundary(t *testing.T) {
	store := newTestAudioStore(t)

	meta, err := store.SaveAudio([]byte("x"), "boundary", false, "wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}

	// Deletion requires age strictly greater than the threshold
	past := time.Now().Add(-time.Second)
	if err := os.Chtimes(meta.Path, past, past); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	deleted, err := store.CleanupTemp(0, []string{"wav"})
	if err != nil {
		t.Fatalf("CleanupTemp failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected a 1s-old file swept at max age 0, got %d deletions", deleted)
	}
}

func TestAudioStore_CleanupTemp_ExtensionSet(t *testing.T) {
	store := newTestAudioStore(t)

	ogg, err := store.SaveAudio([]byte("ogg"), "clip", false, "ogg")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(ogg.Path, past, past); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	// Default sweep set excludes ogg
	deleted, err := store.CleanupTemp(24, []string{"wav", "mp3"})
	if err != nil {
		t.Fatalf("CleanupTemp failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("ogg should not be swept by the default extension set, got %d deletions", deleted)
	}

	deleted, err = store.CleanupTemp(24, []string{"wav", "mp3", "ogg"})
	if err != nil {
		t.Fatalf("CleanupTemp failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("ogg should be swept once configured, got %d deletions", deleted)
	}
}

func TestAudioStore_ListAudioFiles(t *testing.T) {
	store := newTestAudioStore(t)

	if _, err := store.SaveAudio([]byte("a"), "temp_a", false, "wav"); err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	if _, err := store.SaveAudio([]byte("b"), "temp_b", false, "ogg"); err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	if _, err := store.SaveAudio([]byte("c"), "perm_c", true, "mp3"); err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}

	all, err := store.ListAudioFiles(false)
	if err != nil {
		t.Fatalf("ListAudioFiles failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 files, got %d", len(all))
	}

	permanent, err := store.ListAudioFiles(true)
	if err != nil {
		t.Fatalf("ListAudioFiles failed: %v", err)
	}
	if len(permanent) != 1 {
		t.Fatalf("Expected 1 permanent file, got %d", len(permanent))
	}
	for _, f := range permanent {
		if !f.Permanent {
			t.Errorf("Temp file %s leaked into permanent-only listing", f.Filename)
		}
	}
}

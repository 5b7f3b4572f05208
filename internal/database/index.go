package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ArtifactIndex maps artifact ids to their on-disk location so retrieval by
// id does not depend on directory listing order. It is rebuilt from the
// storage partitions at startup and maintained incrementally on save/delete.
type ArtifactIndex struct {
	db *sql.DB
}

// IndexEntry is one indexed artifact
type IndexEntry struct {
	ID        string
	Kind      string // "story" or "schedule"
	Filename  string
	Path      string
	CreatedAt string
}

// NewArtifactIndex opens (or creates) the sqlite index at the given path
func NewArtifactIndex(path string) (*ArtifactIndex, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact index: %w", err)
	}

	// Single writer; the index is tiny and contention-free
	db.SetMaxOpenConns(1)

	idx := &ArtifactIndex{db: db}
	if err := idx.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

func (idx *ArtifactIndex) initialize() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			filename   TEXT NOT NULL,
			path       TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create artifacts table: %w", err)
	}
	return nil
}

// Put inserts or replaces an index entry
func (idx *ArtifactIndex) Put(entry IndexEntry) error {
	_, err := idx.db.Exec(
		`INSERT OR REPLACE INTO artifacts (id, kind, filename, path, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Kind, entry.Filename, entry.Path, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to index artifact %s: %w", entry.ID, err)
	}
	return nil
}

// Lookup returns the path for an artifact id and kind, or ok=false
func (idx *ArtifactIndex) Lookup(kind, id string) (string, bool) {
	var path string
	err := idx.db.QueryRow(
		`SELECT path FROM artifacts WHERE id = ? AND kind = ?`, id, kind,
	).Scan(&path)
	if err != nil {
		return "", false
	}
	return path, true
}

// Delete removes an index entry by path (the sweeper works path-wise)
func (idx *ArtifactIndex) Delete(path string) error {
	_, err := idx.db.Exec(`DELETE FROM artifacts WHERE path = ?`, path)
	return err
}

// Rebuild drops all entries and re-scans the given partition directories.
// Filenames follow <kind>_<timestamp>_<id>.json; anything else is skipped.
func (idx *ArtifactIndex) Rebuild(partitions map[string]string) error {
	if _, err := idx.db.Exec(`DELETE FROM artifacts`); err != nil {
		return fmt.Errorf("failed to clear artifact index: %w", err)
	}

	total := 0
	for kind, dir := range partitions {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to scan %s partition: %w", kind, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			id, ok := parseArtifactFilename(kind, entry.Name())
			if !ok {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			err = idx.Put(IndexEntry{
				ID:        id,
				Kind:      kind,
				Filename:  entry.Name(),
				Path:      filepath.Join(dir, entry.Name()),
				CreatedAt: info.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00"),
			})
			if err != nil {
				return err
			}
			total++
		}
	}

	log.Printf("✅ [INDEX] Artifact index rebuilt: %d entries", total)
	return nil
}

// Close closes the underlying database
func (idx *ArtifactIndex) Close() error {
	return idx.db.Close()
}

// parseArtifactFilename extracts the trailing id token from
// <kind>_<YYYYMMDD>_<HHMMSS>_<id>.json
func parseArtifactFilename(kind, name string) (string, bool) {
	if !strings.HasPrefix(name, kind+"_") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	base := strings.TrimSuffix(name, ".json")
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return "", false
	}
	id := parts[len(parts)-1]
	if id == "" {
		return "", false
	}
	return id, true
}

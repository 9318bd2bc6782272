// Package store provides the central SQLite database for the bot. A single
// smmbot.db file holds the brand profile singleton, the autopost schedule
// setting, and the append-only draft log with its mutable attachment slot.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver.

	"github.com/bukhantcev/stavfitness26/pkg/smm/post"
)

// schema is the DDL executed on every startup (idempotent via IF NOT EXISTS).
const schema = `
-- Brand profile singleton (id constrained to 1).
CREATE TABLE IF NOT EXISTS studio (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    profile_json TEXT NOT NULL
);

-- Bot settings singleton. daily_time is 'HH:MM' or NULL (autopost off).
CREATE TABLE IF NOT EXISTS settings (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    daily_time TEXT
);

-- Append-only draft log. image_bytes is the only column updated after
-- insert; the workflow always reads the highest id.
CREATE TABLE IF NOT EXISTS drafts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    kind         TEXT NOT NULL,
    text         TEXT NOT NULL,
    image_prompt TEXT NOT NULL DEFAULT '',
    image_bytes  BLOB,
    created_at   TEXT NOT NULL
);
`

// Store wraps the shared database handle with typed accessors for the
// profile, schedule, and draft entities. Per-entity read-modify-write is
// sufficient; no cross-entity transactions are used.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, enables WAL mode, creates
// the schema, runs lazy migrations, and seeds the default profile if this
// is the first run.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "./data/smmbot.db"
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seedProfile(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for components that share the database.
func (s *Store) DB() *sql.DB { return s.db }

// migrate upgrades databases created before the attachment column existed.
func (s *Store) migrate() error {
	rows, err := s.db.Query("PRAGMA table_info(drafts)")
	if err != nil {
		return fmt.Errorf("inspect drafts table: %w", err)
	}
	defer rows.Close()

	hasImage := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan drafts column: %w", err)
		}
		if name == "image_bytes" {
			hasImage = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !hasImage {
		if _, err := s.db.Exec("ALTER TABLE drafts ADD COLUMN image_bytes BLOB"); err != nil {
			return fmt.Errorf("add image_bytes column: %w", err)
		}
	}
	return nil
}

// seedProfile inserts the default brand profile when none exists yet.
func (s *Store) seedProfile() error {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM studio WHERE id = 1").Scan(&n); err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if n > 0 {
		return nil
	}
	data, err := json.Marshal(post.DefaultProfile())
	if err != nil {
		return fmt.Errorf("marshal default profile: %w", err)
	}
	if _, err := s.db.Exec("INSERT INTO studio (id, profile_json) VALUES (1, ?)", string(data)); err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}
	return nil
}

// ---------- Profile ----------

// Profile returns the brand profile singleton.
func (s *Store) Profile() (*post.Profile, error) {
	var raw string
	err := s.db.QueryRow("SELECT profile_json FROM studio WHERE id = 1").Scan(&raw)
	if err == sql.ErrNoRows {
		return post.DefaultProfile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	var p post.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// SaveProfile replaces the brand profile singleton.
func (s *Store) SaveProfile(p *post.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO studio (id, profile_json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET profile_json = excluded.profile_json`,
		string(data))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ---------- Schedule ----------

// DailyTime returns the autopost time as "HH:MM", or "" when autopost is off.
func (s *Store) DailyTime() (string, error) {
	var t sql.NullString
	err := s.db.QueryRow("SELECT daily_time FROM settings WHERE id = 1").Scan(&t)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load daily time: %w", err)
	}
	if !t.Valid {
		return "", nil
	}
	return t.String, nil
}

// SetDailyTime stores the autopost time; empty string disables autopost.
func (s *Store) SetDailyTime(hhmm string) error {
	var val any
	if hhmm != "" {
		val = hhmm
	}
	_, err := s.db.Exec(`
		INSERT INTO settings (id, daily_time) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET daily_time = excluded.daily_time`,
		val)
	if err != nil {
		return fmt.Errorf("save daily time: %w", err)
	}
	return nil
}

// ---------- Drafts ----------

// AddDraft appends a draft and returns it with its assigned ID.
func (s *Store) AddDraft(kind post.Kind, text, imagePrompt string) (*post.Draft, error) {
	now := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO drafts (kind, text, image_prompt, created_at)
		VALUES (?, ?, ?, ?)`,
		string(kind), text, imagePrompt, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("draft id: %w", err)
	}
	return &post.Draft{
		ID:          id,
		Kind:        kind,
		Text:        text,
		ImagePrompt: imagePrompt,
		CreatedAt:   now,
	}, nil
}

// LatestDraft returns the highest-ID draft, or nil when none exist.
func (s *Store) LatestDraft() (*post.Draft, error) {
	var (
		d         post.Draft
		kind      string
		createdAt string
		image     []byte
	)
	err := s.db.QueryRow(`
		SELECT id, kind, text, image_prompt, image_bytes, created_at
		FROM drafts ORDER BY id DESC LIMIT 1`).
		Scan(&d.ID, &kind, &d.Text, &d.ImagePrompt, &image, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest draft: %w", err)
	}
	d.Kind = post.Kind(kind)
	d.Attachment = image
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &d, nil
}

// Draft returns a draft by ID, or nil when it does not exist.
func (s *Store) Draft(id int64) (*post.Draft, error) {
	var (
		d         post.Draft
		kind      string
		createdAt string
		image     []byte
	)
	err := s.db.QueryRow(`
		SELECT id, kind, text, image_prompt, image_bytes, created_at
		FROM drafts WHERE id = ?`, id).
		Scan(&d.ID, &kind, &d.Text, &d.ImagePrompt, &image, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %d: %w", id, err)
	}
	d.Kind = post.Kind(kind)
	d.Attachment = image
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &d, nil
}

// SetDraftImage sets the attachment (and the prompt that produced it) on
// an existing draft. Older drafts stay untouched.
func (s *Store) SetDraftImage(id int64, image []byte, imagePrompt string) error {
	_, err := s.db.Exec(
		"UPDATE drafts SET image_bytes = ?, image_prompt = ? WHERE id = ?",
		image, imagePrompt, id)
	if err != nil {
		return fmt.Errorf("set draft %d image: %w", id, err)
	}
	return nil
}

// ClearDraftImage removes the attachment from a draft. Clearing a draft
// that has no attachment is a no-op that still succeeds.
func (s *Store) ClearDraftImage(id int64) error {
	_, err := s.db.Exec("UPDATE drafts SET image_bytes = NULL WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("clear draft %d image: %w", id, err)
	}
	return nil
}

// CountDrafts returns the number of drafts in the log (audit trail size).
func (s *Store) CountDrafts() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM drafts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count drafts: %w", err)
	}
	return n, nil
}

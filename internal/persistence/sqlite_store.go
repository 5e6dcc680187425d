package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) GetSubtitleCache(ctx context.Context, videoID string) ([]subtitle.SentenceCue, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT payload_json
		 FROM subtitle_cache
		 WHERE video_id = ?`,
		videoID,
	)
	var payloadJSON string
	if err := row.Scan(&payloadJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	var cues []subtitle.SentenceCue
	if err := json.Unmarshal([]byte(payloadJSON), &cues); err != nil {
		return nil, false, err
	}
	return cues, true, nil
}

func (s *SQLiteStore) PutSubtitleCache(ctx context.Context, videoID string, cues []subtitle.SentenceCue) error {
	payload, err := json.Marshal(cues)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO subtitle_cache (video_id, payload_json, cached_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET
			payload_json=excluded.payload_json,
			cached_at=excluded.cached_at`,
		videoID,
		string(payload),
		time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) DeleteSubtitleCache(ctx context.Context, videoID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subtitle_cache WHERE video_id = ?`, videoID)
	return err
}

// SubtitleCacheCount returns how many videos are cached.
func (s *SQLiteStore) SubtitleCacheCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subtitle_cache`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) LoadTranslations(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_text, translated_text FROM translation_cache`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make(map[string]string)
	for rows.Next() {
		var source, translated string
		if err := rows.Scan(&source, &translated); err != nil {
			return nil, err
		}
		ret[source] = translated
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) SaveTranslations(ctx context.Context, translations map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for source, translated := range translations {
		if _, err = tx.ExecContext(
			ctx,
			`INSERT INTO translation_cache (source_text, translated_text, updated_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT(source_text) DO UPDATE SET
				translated_text=excluded.translated_text,
				updated_at=excluded.updated_at`,
			source,
			translated,
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TranslationCount returns how many translation pairs are stored.
func (s *SQLiteStore) TranslationCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translation_cache`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) GetDocument(ctx context.Context, collection, key string) (json.RawMessage, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT payload_json FROM documents WHERE collection = ? AND doc_key = ?`,
		collection,
		key,
	)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return json.RawMessage(payload), true, nil
}

func (s *SQLiteStore) PutDocument(ctx context.Context, collection, key string, payload json.RawMessage) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO documents (collection, doc_key, payload_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, doc_key) DO UPDATE SET
			payload_json=excluded.payload_json,
			updated_at=excluded.updated_at`,
		collection,
		key,
		string(payload),
		time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM documents WHERE collection = ? AND doc_key = ?`,
		collection,
		key,
	)
	return err
}

// ListDocuments returns every document in a collection keyed by doc_key.
func (s *SQLiteStore) ListDocuments(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT doc_key, payload_json FROM documents WHERE collection = ? ORDER BY doc_key ASC`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, err
		}
		ret[key] = json.RawMessage(payload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

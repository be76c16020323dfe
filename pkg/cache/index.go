package cache

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Index is a SQLite catalog of cache entries. It lets offline cache
// search list recent documents and memoize extracted text without
// walking the filesystem store.
type Index struct {
	db *sql.DB
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS docs (
	key           TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	final_url     TEXT NOT NULL,
	fetched_at    INTEGER NOT NULL,
	status        INTEGER NOT NULL,
	content_type  TEXT,
	body_bytes    INTEGER NOT NULL,
	text          TEXT,
	text_chars    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS docs_fetched_at ON docs (fetched_at DESC);
`

// OpenIndex opens (creating if needed) the corpus index inside dir.
func OpenIndex(dir string) (*Index, error) {
	db, err := sql.Open("sqlite3", filepath.Join(dir, "corpus.db")+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

// UpsertMeta records or refreshes a cache entry. A replaced entry
// invalidates any memoized text.
func (x *Index) UpsertMeta(key string, meta entryMeta, bodyBytes int) error {
	_, err := x.db.Exec(`
		INSERT INTO docs (key, url, final_url, fetched_at, status, content_type, body_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			url = excluded.url,
			final_url = excluded.final_url,
			fetched_at = excluded.fetched_at,
			status = excluded.status,
			content_type = excluded.content_type,
			body_bytes = excluded.body_bytes,
			text = NULL,
			text_chars = 0`,
		key, meta.URL, meta.FinalURL, meta.FetchedAt, meta.Status, meta.ContentType, bodyBytes)
	if err != nil {
		return fmt.Errorf("index upsert: %w", err)
	}
	return nil
}

// SetText memoizes extracted text for a cache entry.
func (x *Index) SetText(key, text string, chars int) error {
	_, err := x.db.Exec(`UPDATE docs SET text = ?, text_chars = ? WHERE key = ?`, text, chars, key)
	if err != nil {
		return fmt.Errorf("index set text: %w", err)
	}
	return nil
}

// Doc is one indexed cache entry.
type Doc struct {
	Key         string
	URL         string
	FinalURL    string
	FetchedAt   int64
	Status      int
	ContentType string
	BodyBytes   int
	// Text is the memoized extraction; empty means not yet extracted.
	Text      string
	TextChars int
}

// Recent lists the newest entries, most recently fetched first.
func (x *Index) Recent(limit int) ([]Doc, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := x.db.Query(`
		SELECT key, url, final_url, fetched_at, status, COALESCE(content_type, ''),
		       body_bytes, COALESCE(text, ''), text_chars
		FROM docs ORDER BY fetched_at DESC, key LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("index scan: %w", err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var d Doc
		if err := rows.Scan(&d.Key, &d.URL, &d.FinalURL, &d.FetchedAt, &d.Status,
			&d.ContentType, &d.BodyBytes, &d.Text, &d.TextChars); err != nil {
			return nil, fmt.Errorf("index scan: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteFileName is the database file created in the cache directory.
const SQLiteFileName = "cache.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translations (
	lang   TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	PRIMARY KEY (lang, source)
)`

// SQLiteBackend keeps every language in one SQLite database.
type SQLiteBackend struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing %s: %w", path, err)
	}
	return &SQLiteBackend{path: path, db: db}, nil
}

// Location implements Backend.
func (b *SQLiteBackend) Location(lang string) string {
	return fmt.Sprintf("%s[%s]", b.path, normalizeLang(lang))
}

// Load implements Backend.
func (b *SQLiteBackend) Load(lang string) (map[string]string, error) {
	entries := make(map[string]string)

	rows, err := b.db.Query(`SELECT source, target FROM translations WHERE lang = ?`, normalizeLang(lang))
	if err != nil {
		return entries, &LoadError{Location: b.Location(lang), Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return map[string]string{}, &LoadError{Location: b.Location(lang), Err: err}
		}
		entries[source] = target
	}
	if err := rows.Err(); err != nil {
		return map[string]string{}, &LoadError{Location: b.Location(lang), Err: err}
	}
	return entries, nil
}

// Save implements Backend. Existing rows are updated in place.
func (b *SQLiteBackend) Save(lang string, entries map[string]string) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO translations (lang, source, target) VALUES (?, ?, ?)
		ON CONFLICT (lang, source) DO UPDATE SET target = excluded.target`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	code := normalizeLang(lang)
	for _, source := range sortedKeys(entries) {
		if _, err := stmt.Exec(code, source, entries[source]); err != nil {
			return fmt.Errorf("storing %q: %w", source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache: %w", err)
	}
	return nil
}

// Clear implements Backend.
func (b *SQLiteBackend) Clear(lang string) error {
	if _, err := b.db.Exec(`DELETE FROM translations WHERE lang = ?`, normalizeLang(lang)); err != nil {
		return fmt.Errorf("deleting %s entries: %w", normalizeLang(lang), err)
	}
	return nil
}

// Languages implements Backend.
func (b *SQLiteBackend) Languages() ([]string, error) {
	rows, err := b.db.Query(`SELECT DISTINCT lang FROM translations ORDER BY lang`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var langs []string
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, err
		}
		langs = append(langs, lang)
	}
	return langs, rows.Err()
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error { return b.db.Close() }

// Package cache implements the per-language translation cache: a mapping
// from source string to translated string that lets repeated runs skip
// strings they have already paid for.
//
// Entries are keyed strictly by source text, never by document path, so the
// same string appearing twice in a document (or in two different documents)
// is translated once. Entries are never evicted; only a successful
// translation or an explicit Clear changes the mapping.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// LoadError reports an unreadable or malformed cache. It is never fatal:
// the run continues with an empty cache.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cache %s unusable, starting empty: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Decode parses a serialized cache. Empty input is an empty cache. Input
// that is not a JSON object yields an empty cache and a *LoadError; members
// whose value is not a string are skipped.
func Decode(data []byte) (map[string]string, error) {
	entries := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return entries, &LoadError{Err: err}
	}
	if raw == nil {
		// Literal null.
		return entries, nil
	}

	for source, rv := range raw {
		var target string
		if err := json.Unmarshal(rv, &target); err != nil {
			continue
		}
		entries[source] = target
	}
	return entries, nil
}

// Encode serializes entries as an indented JSON object with sorted keys,
// so the file diff between two runs only shows new strings.
func Encode(entries map[string]string) ([]byte, error) {
	if entries == nil {
		entries = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encoding cache: %w", err)
	}
	return buf.Bytes(), nil
}

// ---------------------------------------------------------------------------
// Backends
// ---------------------------------------------------------------------------

// Backend persists caches for any number of target languages.
type Backend interface {
	// Load returns the cache for lang. A missing cache is an empty map and
	// no error. A damaged cache is an empty map and a *LoadError.
	Load(lang string) (map[string]string, error)
	// Save stores the complete mapping for lang.
	Save(lang string, entries map[string]string) error
	// Clear removes the cache for lang.
	Clear(lang string) error
	// Languages lists the languages that have a stored cache, sorted.
	Languages() ([]string, error)
	// Location describes where the cache for lang lives.
	Location(lang string) string
	Close() error
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Store is the in-memory cache of one target language. All methods are
// safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	lang    string
	entries map[string]string
	dirty   bool
	backend Backend
}

// New returns a store holding entries that is never persisted.
func New(lang string, entries map[string]string) *Store {
	s := &Store{lang: lang, entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

// Open reads the cache for lang from b. When the stored cache is damaged,
// Open returns a usable empty store together with the *LoadError so the
// caller can warn about it. Any other error is returned with a nil store.
func Open(b Backend, lang string) (*Store, error) {
	entries, err := b.Load(lang)
	var loadErr *LoadError
	if err != nil && !errors.As(err, &loadErr) {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	s := &Store{lang: lang, entries: entries, backend: b}
	if loadErr != nil {
		if loadErr.Location == "" {
			loadErr.Location = b.Location(lang)
		}
		return s, loadErr
	}
	return s, nil
}

// Lang returns the target language of the store.
func (s *Store) Lang() string { return s.lang }

// Location describes where the store is persisted.
func (s *Store) Location() string {
	if s.backend == nil {
		return "memory"
	}
	return s.backend.Location(s.lang)
}

// Lookup returns the cached translation of source.
func (s *Store) Lookup(source string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.entries[source]
	return t, ok
}

// Insert records a translation. The last insert for a source wins.
func (s *Store) Insert(source, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[source]; ok && old == target {
		return
	}
	s.entries[source] = target
	s.dirty = true
}

// Len returns the number of cached translations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a copy of the mapping.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Flush writes the mapping through the backend if it changed since the
// last flush.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty || s.backend == nil {
		return nil
	}
	if err := s.backend.Save(s.lang, s.entries); err != nil {
		return fmt.Errorf("saving cache %s: %w", s.backend.Location(s.lang), err)
	}
	s.dirty = false
	return nil
}

// Clear drops every entry, in memory and in the backend.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]string)
	s.dirty = false
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Clear(s.lang); err != nil {
		return fmt.Errorf("clearing cache %s: %w", s.backend.Location(s.lang), err)
	}
	return nil
}

// Summary returns a one-line human-readable description.
func (s *Store) Summary() string {
	n := s.Len()
	if n == 0 {
		return fmt.Sprintf("%s: empty", s.lang)
	}
	return fmt.Sprintf("%s: %d entries (%s)", s.lang, n, s.Location())
}

// normalizeLang upper-cases a language code for use in file names and keys.
func normalizeLang(lang string) string {
	return strings.ToUpper(strings.TrimSpace(lang))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

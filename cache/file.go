package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileBackend keeps one JSON file per language in Dir, named
// cache_<LANG>.json.
type FileBackend struct {
	Dir string
}

// NewFileBackend returns a backend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{Dir: dir}
}

const (
	filePrefix = "cache_"
	fileSuffix = ".json"
)

// Path returns the cache file path for lang.
func (b *FileBackend) Path(lang string) string {
	return filepath.Join(b.Dir, filePrefix+normalizeLang(lang)+fileSuffix)
}

// Location implements Backend.
func (b *FileBackend) Location(lang string) string { return b.Path(lang) }

// Load implements Backend.
func (b *FileBackend) Load(lang string) (map[string]string, error) {
	path := b.Path(lang)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return map[string]string{}, &LoadError{Location: path, Err: err}
	}

	entries, err := Decode(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Location = path
		}
		return entries, err
	}
	return entries, nil
}

// Save implements Backend. The file is replaced atomically.
func (b *FileBackend) Save(lang string, entries map[string]string) error {
	data, err := Encode(entries)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", b.Dir, err)
	}

	path := b.Path(lang)
	tmp, err := os.CreateTemp(b.Dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", tmpName, err)
	}
	return nil
}

// Clear implements Backend.
func (b *FileBackend) Clear(lang string) error {
	err := os.Remove(b.Path(lang))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Languages implements Backend.
func (b *FileBackend) Languages() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.Dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	var langs []string
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), filePrefix), fileSuffix)
		if name != "" {
			langs = append(langs, name)
		}
	}
	sort.Strings(langs)
	return langs, nil
}

// Close implements Backend.
func (b *FileBackend) Close() error { return nil }

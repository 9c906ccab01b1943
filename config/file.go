package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// FileName is the default project configuration file name.
const FileName = ".jsonlate.yaml"

// File is the .jsonlate.yaml structure. Every field is optional; unset
// fields fall through to built-in defaults.
type File struct {
	// TargetLang is the target language code (e.g. "DE", "pt-BR").
	TargetLang string `yaml:"target_lang,omitempty"`
	// Input is the JSON document to translate.
	Input string `yaml:"input,omitempty"`
	// OutputDir receives <unix>_<LANG>.json files.
	OutputDir string `yaml:"output_dir,omitempty"`
	// Indent pretty-prints the output document.
	Indent *bool `yaml:"indent,omitempty"`

	// Provider is "deepl" or "openai".
	Provider string `yaml:"provider,omitempty"`
	// Endpoint overrides the provider base URL.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Model is the chat model for the openai provider.
	Model string `yaml:"model,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`

	// CacheDir holds the translation cache.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// CacheBackend is "json" or "sqlite".
	CacheBackend string `yaml:"cache_backend,omitempty"`

	// Delimiter separates strings inside a batch payload.
	Delimiter string `yaml:"delimiter,omitempty"`
	// BatchLimit bounds a batch payload in bytes.
	BatchLimit *int `yaml:"batch_limit,omitempty"`
	// Mismatch is the segment count mismatch policy: "truncate" or "strict".
	Mismatch string `yaml:"mismatch,omitempty"`

	// Timeout is the per-request timeout (Go duration, e.g. "60s").
	Timeout string `yaml:"timeout,omitempty"`
	// Deadline bounds a whole run (Go duration, e.g. "10m").
	Deadline string `yaml:"deadline,omitempty"`
	// MaxRetries is the number of retries per request (0 disables retries).
	MaxRetries *int `yaml:"max_retries,omitempty"`
	// RequestsPerSecond paces provider calls (0 = unlimited).
	RequestsPerSecond *float64 `yaml:"requests_per_second,omitempty"`
	// MaxConcurrent is the number of batches in flight.
	MaxConcurrent *int `yaml:"max_concurrent,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadFile reads and validates a configuration file. Returns nil and no
// error if path does not exist.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Key: path, Msg: "cannot read file", Err: err}
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Key: path, Msg: "invalid YAML", Err: err}
	}

	for key, val := range map[string]string{KeyTimeout: f.Timeout, KeyDeadline: f.Deadline} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return nil, &Error{Key: key, Msg: fmt.Sprintf("%s: invalid duration %q", path, val), Err: err}
		}
	}

	return &f, nil
}

// settings returns the values set in f keyed by configuration key.
func (f *File) settings() map[string]any {
	m := make(map[string]any)
	setString := func(key, val string) {
		if val != "" {
			m[key] = val
		}
	}

	setString(KeyTargetLang, f.TargetLang)
	setString(KeyInput, f.Input)
	setString(KeyOutputDir, f.OutputDir)
	setString(KeyProvider, f.Provider)
	setString(KeyEndpoint, f.Endpoint)
	setString(KeyModel, f.Model)
	setString(KeyProxy, f.Proxy)
	setString(KeyCacheDir, f.CacheDir)
	setString(KeyCacheBackend, f.CacheBackend)
	setString(KeyDelimiter, f.Delimiter)
	setString(KeyMismatch, f.Mismatch)
	setString(KeyTimeout, f.Timeout)
	setString(KeyDeadline, f.Deadline)

	if f.Indent != nil {
		m[KeyIndent] = *f.Indent
	}
	if f.BatchLimit != nil {
		m[KeyBatchLimit] = *f.BatchLimit
	}
	if f.MaxRetries != nil {
		m[KeyMaxRetries] = *f.MaxRetries
	}
	if f.RequestsPerSecond != nil {
		m[KeyRequestsPerSecond] = *f.RequestsPerSecond
	}
	if f.MaxConcurrent != nil {
		m[KeyMaxConcurrent] = *f.MaxConcurrent
	}
	return m
}

// ---------------------------------------------------------------------------
// Template
// ---------------------------------------------------------------------------

const template = `# jsonlate configuration.
#
# Precedence (highest first): command-line flags, environment variables
# (DEEPL_API_KEY, TARGET_LANG, JSONLATE_*), .env file, this file, defaults.
# The API key is deliberately not read from this file: use DEEPL_API_KEY,
# a .env file, or "jsonlate auth set-key".

# Target language code (required), e.g. DE, FR, PT-BR, ZH-HANT.
target_lang: %s

# Source document and output directory. Output files are named
# <unix-seconds>_<LANG>.json.
input: %s
output_dir: %s
indent: false

# Translation service: deepl or openai.
provider: %s
# endpoint: https://api-free.deepl.com
# model: gpt-4o-mini
# proxy: http://127.0.0.1:8080

# Translation cache: json (one file per language) or sqlite.
cache_dir: %s
cache_backend: %s

# Batching. Strings are joined with the delimiter into payloads of at most
# batch_limit bytes. mismatch decides what happens when the service returns
# a different number of segments: truncate (warn and keep what matches) or
# strict (abort).
delimiter: "%s"
batch_limit: %d
mismatch: %s

# Network behaviour.
timeout: %s
deadline: %s
max_retries: %d
requests_per_second: 0
max_concurrent: %d
`

// Template returns a commented configuration file with default values.
func Template(targetLang string) []byte {
	d := Defaults()
	if targetLang == "" {
		targetLang = "DE"
	}
	return []byte(fmt.Sprintf(template,
		targetLang,
		d.Input, d.OutputDir,
		d.Provider,
		d.CacheDir, d.CacheBackend,
		d.Delimiter, d.BatchLimit, d.Mismatch,
		d.Timeout, d.Deadline, d.MaxRetries, d.MaxConcurrent,
	))
}

// WriteTemplate creates FileName in dir. An existing file is only replaced
// when force is set.
func WriteTemplate(dir, targetLang string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, Template(strings.ToUpper(targetLang)), 0644); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Package config resolves jsonlate's run configuration from command-line
// flags, environment variables, an optional .env file, an optional
// .jsonlate.yaml project file and built-in defaults, in that order of
// precedence. Layering is done with viper; the project file is decoded
// strictly with yaml.v3 so typos in key names are reported.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/minios-linux/jsonlate/batch"
	"github.com/minios-linux/jsonlate/langmeta"
	"github.com/minios-linux/jsonlate/provider"
)

// Configuration keys. Flags use the same names with dashes.
const (
	KeyAPIKey            = "api_key"
	KeyTargetLang        = "target_lang"
	KeyInput             = "input"
	KeyOutputDir         = "output_dir"
	KeyIndent            = "indent"
	KeyProvider          = "provider"
	KeyEndpoint          = "endpoint"
	KeyModel             = "model"
	KeyProxy             = "proxy"
	KeyCacheDir          = "cache_dir"
	KeyCacheBackend      = "cache_backend"
	KeyDelimiter         = "delimiter"
	KeyBatchLimit        = "batch_limit"
	KeyMismatch          = "mismatch"
	KeyTimeout           = "timeout"
	KeyDeadline          = "deadline"
	KeyMaxRetries        = "max_retries"
	KeyRequestsPerSecond = "requests_per_second"
	KeyMaxConcurrent     = "max_concurrent"
	KeyVerbose           = "verbose"
)

// Environment variables read besides the JSONLATE_<KEY> forms.
const (
	EnvAPIKey     = "DEEPL_API_KEY"
	EnvTargetLang = "TARGET_LANG"
	EnvPrefix     = "JSONLATE"
)

// Cache backends.
const (
	CacheBackendJSON   = "json"
	CacheBackendSQLite = "sqlite"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Error is a missing or invalid configuration value. It is fatal and is
// reported before any work starts.
type Error struct {
	Key string
	Msg string
	Err error
}

func (e *Error) Error() string {
	s := "config: " + e.Key + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Resolved configuration
// ---------------------------------------------------------------------------

// Config is the resolved configuration of a run.
type Config struct {
	APIKey     string
	TargetLang string
	// KnownLang is false when TargetLang is well-formed but not in the
	// language registry.
	KnownLang bool

	Input     string
	OutputDir string
	Indent    bool

	Provider string
	Endpoint string
	Model    string
	Proxy    string

	CacheDir     string
	CacheBackend string

	Delimiter  string
	BatchLimit int
	Mismatch   batch.MismatchPolicy

	Timeout           time.Duration
	Deadline          time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	MaxConcurrent     int

	Verbose bool

	// FileUsed is the project file that contributed values, if any.
	FileUsed string
	// EnvFileUsed is the .env file that contributed values, if any.
	EnvFileUsed string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Input:         filepath.Join("data", "input.json"),
		OutputDir:     "data",
		Provider:      provider.ProviderDeepL,
		CacheDir:      filepath.Join("data", "cache"),
		CacheBackend:  CacheBackendJSON,
		Delimiter:     batch.DefaultDelimiter,
		BatchLimit:    batch.DefaultLimit,
		Mismatch:      batch.MismatchTruncate,
		Timeout:       provider.DefaultTimeout,
		Deadline:      10 * time.Minute,
		MaxRetries:    provider.DefaultMaxRetries,
		MaxConcurrent: 1,
	}
}

// ProviderConfig returns the provider client settings.
func (c *Config) ProviderConfig() provider.Config {
	retries := c.MaxRetries
	if retries == 0 {
		retries = -1
	}
	return provider.Config{
		ID:                c.Provider,
		APIKey:            c.APIKey,
		Endpoint:          c.Endpoint,
		Model:             c.Model,
		Delimiter:         c.Delimiter,
		Proxy:             c.Proxy,
		Timeout:           c.Timeout,
		MaxRetries:        retries,
		RequestsPerSecond: c.RequestsPerSecond,
		Verbose:           c.Verbose,
	}
}

// Validate checks the values that a translation run needs beyond those
// Load already checked.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &Error{Key: KeyAPIKey, Msg: fmt.Sprintf("no API key for %s (set %s, use --api-key, or run 'jsonlate auth set-key')", c.Provider, EnvAPIKey)}
	}
	if c.TargetLang == "" {
		return &Error{Key: KeyTargetLang, Msg: fmt.Sprintf("no target language (set %s or use --lang)", EnvTargetLang)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Sources tells Load where to look.
type Sources struct {
	// Dir is searched for .env and .jsonlate.yaml (default ".").
	Dir string
	// ConfigFile is an explicit project file; it must exist.
	ConfigFile string
	// Flags are the command-line flags. Only flags the user set override
	// other sources.
	Flags *pflag.FlagSet
}

// Load resolves the configuration from all sources and validates the
// format of every value. Missing API key or target language are not
// reported here; see Validate.
func Load(src Sources) (*Config, error) {
	dir := src.Dir
	if dir == "" {
		dir = "."
	}

	v := viper.New()
	setDefaults(v)

	cfg := &Config{}

	// Project file.
	filePath := src.ConfigFile
	if filePath == "" {
		filePath = filepath.Join(dir, FileName)
	}
	f, err := LoadFile(filePath)
	if err != nil {
		return nil, err
	}
	if f == nil && src.ConfigFile != "" {
		return nil, &Error{Key: "config", Msg: fmt.Sprintf("file %s not found", src.ConfigFile)}
	}
	if f != nil {
		if err := v.MergeConfigMap(f.settings()); err != nil {
			return nil, &Error{Key: filePath, Msg: "cannot apply file", Err: err}
		}
		cfg.FileUsed = filePath
	}

	// .env file: above the project file, below the real environment.
	envPath := filepath.Join(dir, ".env")
	dotenv, err := readDotenv(envPath)
	if err != nil {
		return nil, &Error{Key: envPath, Msg: "invalid .env file", Err: err}
	}
	if len(dotenv) > 0 {
		if err := v.MergeConfigMap(dotenv); err != nil {
			return nil, &Error{Key: envPath, Msg: "cannot apply .env", Err: err}
		}
		cfg.EnvFileUsed = envPath
	}

	// Environment.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", EnvAPIKey)
	_ = v.BindEnv(KeyTargetLang, EnvPrefix+"_TARGET_LANG", EnvTargetLang)

	// Flags.
	if src.Flags != nil {
		if err := bindFlags(v, src.Flags); err != nil {
			return nil, err
		}
	}

	if err := fill(cfg, v); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyTargetLang, "")
	v.SetDefault(KeyInput, d.Input)
	v.SetDefault(KeyOutputDir, d.OutputDir)
	v.SetDefault(KeyIndent, d.Indent)
	v.SetDefault(KeyProvider, d.Provider)
	v.SetDefault(KeyEndpoint, "")
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyProxy, "")
	v.SetDefault(KeyCacheDir, d.CacheDir)
	v.SetDefault(KeyCacheBackend, d.CacheBackend)
	v.SetDefault(KeyDelimiter, d.Delimiter)
	v.SetDefault(KeyBatchLimit, d.BatchLimit)
	v.SetDefault(KeyMismatch, string(d.Mismatch))
	v.SetDefault(KeyTimeout, d.Timeout.String())
	v.SetDefault(KeyDeadline, d.Deadline.String())
	v.SetDefault(KeyMaxRetries, d.MaxRetries)
	v.SetDefault(KeyRequestsPerSecond, d.RequestsPerSecond)
	v.SetDefault(KeyMaxConcurrent, d.MaxConcurrent)
	v.SetDefault(KeyVerbose, false)
}

// readDotenv returns the configuration values found in a .env file. The
// process environment is left untouched.
func readDotenv(path string) (map[string]any, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	out := make(map[string]any)
	for name, val := range env {
		switch {
		case name == EnvAPIKey:
			if _, set := out[KeyAPIKey]; !set {
				out[KeyAPIKey] = val
			}
		case name == EnvTargetLang:
			if _, set := out[KeyTargetLang]; !set {
				out[KeyTargetLang] = val
			}
		case strings.HasPrefix(name, EnvPrefix+"_"):
			// JSONLATE_* wins over the legacy names.
			out[strings.ToLower(strings.TrimPrefix(name, EnvPrefix+"_"))] = val
		}
	}
	return out, nil
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"api-key":        KeyAPIKey,
	"lang":           KeyTargetLang,
	"output-dir":     KeyOutputDir,
	"indent":         KeyIndent,
	"provider":       KeyProvider,
	"endpoint":       KeyEndpoint,
	"model":          KeyModel,
	"proxy":          KeyProxy,
	"cache-dir":      KeyCacheDir,
	"cache-backend":  KeyCacheBackend,
	"delimiter":      KeyDelimiter,
	"batch-limit":    KeyBatchLimit,
	"mismatch":       KeyMismatch,
	"timeout":        KeyTimeout,
	"deadline":       KeyDeadline,
	"max-retries":    KeyMaxRetries,
	"rps":            KeyRequestsPerSecond,
	"max-concurrent": KeyMaxConcurrent,
	"verbose":        KeyVerbose,
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		fl := fs.Lookup(name)
		if fl == nil {
			continue
		}
		if err := v.BindPFlag(key, fl); err != nil {
			return &Error{Key: key, Msg: "cannot bind flag --" + name, Err: err}
		}
	}
	return nil
}

// fill copies and validates the layered values into cfg.
func fill(cfg *Config, v *viper.Viper) error {
	cfg.APIKey = strings.TrimSpace(v.GetString(KeyAPIKey))
	cfg.Input = v.GetString(KeyInput)
	cfg.OutputDir = v.GetString(KeyOutputDir)
	cfg.Indent = v.GetBool(KeyIndent)
	cfg.Endpoint = v.GetString(KeyEndpoint)
	cfg.Model = v.GetString(KeyModel)
	cfg.Proxy = v.GetString(KeyProxy)
	cfg.CacheDir = v.GetString(KeyCacheDir)
	cfg.Delimiter = v.GetString(KeyDelimiter)
	cfg.BatchLimit = v.GetInt(KeyBatchLimit)
	cfg.MaxRetries = v.GetInt(KeyMaxRetries)
	cfg.RequestsPerSecond = v.GetFloat64(KeyRequestsPerSecond)
	cfg.MaxConcurrent = v.GetInt(KeyMaxConcurrent)
	cfg.Verbose = v.GetBool(KeyVerbose)

	if lang := strings.TrimSpace(v.GetString(KeyTargetLang)); lang != "" {
		code, known, err := langmeta.Normalize(lang)
		if err != nil {
			return &Error{Key: KeyTargetLang, Msg: fmt.Sprintf("invalid value %q", lang), Err: err}
		}
		cfg.TargetLang, cfg.KnownLang = code, known
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(v.GetString(KeyProvider)))
	switch cfg.Provider {
	case provider.ProviderDeepL, provider.ProviderOpenAI:
	default:
		return &Error{Key: KeyProvider, Msg: fmt.Sprintf("unknown provider %q (valid: %s)", cfg.Provider, strings.Join(provider.IDs(), ", "))}
	}

	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(v.GetString(KeyCacheBackend)))
	switch cfg.CacheBackend {
	case CacheBackendJSON, CacheBackendSQLite:
	default:
		return &Error{Key: KeyCacheBackend, Msg: fmt.Sprintf("unknown cache backend %q (valid: %s, %s)", cfg.CacheBackend, CacheBackendJSON, CacheBackendSQLite)}
	}

	mismatch, err := batch.ParseMismatchPolicy(v.GetString(KeyMismatch))
	if err != nil {
		return &Error{Key: KeyMismatch, Msg: "invalid value", Err: err}
	}
	cfg.Mismatch = mismatch

	for key, dst := range map[string]*time.Duration{KeyTimeout: &cfg.Timeout, KeyDeadline: &cfg.Deadline} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return &Error{Key: key, Msg: fmt.Sprintf("invalid duration %q", v.GetString(key)), Err: err}
		}
		if d <= 0 {
			return &Error{Key: key, Msg: "must be positive"}
		}
		*dst = d
	}

	switch {
	case cfg.Input == "":
		return &Error{Key: KeyInput, Msg: "must not be empty"}
	case cfg.Delimiter == "":
		return &Error{Key: KeyDelimiter, Msg: "must not be empty"}
	case cfg.BatchLimit < 0:
		return &Error{Key: KeyBatchLimit, Msg: "must not be negative"}
	case cfg.MaxRetries < 0:
		return &Error{Key: KeyMaxRetries, Msg: "must not be negative"}
	case cfg.RequestsPerSecond < 0:
		return &Error{Key: KeyRequestsPerSecond, Msg: "must not be negative"}
	case cfg.MaxConcurrent < 1:
		return &Error{Key: KeyMaxConcurrent, Msg: "must be at least 1"}
	}
	return nil
}

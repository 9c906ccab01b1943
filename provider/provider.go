// Package provider implements the clients for the translation services:
// DeepL's text translation endpoint and OpenAI-compatible chat completion
// APIs. Every client sends one payload per call and returns the translated
// payload; splitting it into segments is the caller's business.
//
// Calls are paced by an optional rate limiter, retried with exponential
// backoff on transport failures, HTTP 429 and 5xx, and guarded by a circuit
// breaker that fails fast after repeated consecutive failures.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Provider IDs.
const (
	ProviderDeepL  = "deepl"
	ProviderOpenAI = "openai"
)

// IDs lists the supported provider IDs.
func IDs() []string { return []string{ProviderDeepL, ProviderOpenAI} }

// Defaults.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultOpenAIModel = "gpt-4o-mini"

	breakerTrips   = 5
	breakerTimeout = 30 * time.Second
	maxRetryAfter  = 2 * time.Minute
)

// Translator translates one payload into targetLang.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
	// Name is the display name used in messages.
	Name() string
}

// DelimiterAware is implemented by translators whose request depends on the
// segment delimiter. WithDelimiter returns a copy using delim.
type DelimiterAware interface {
	WithDelimiter(delim string) Translator
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds the connection settings for a translation service.
type Config struct {
	// ID is the provider identifier (deepl, openai).
	ID string
	// APIKey is the authentication key.
	APIKey string
	// Endpoint overrides the API base URL.
	Endpoint string
	// Model is the chat model (openai only).
	Model string
	// Delimiter is the segment separator the model must keep (openai only).
	Delimiter string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	// Negative disables retries; zero selects DefaultMaxRetries.
	MaxRetries int
	// RetryBaseDelay is the first backoff delay, doubled on every retry.
	RetryBaseDelay time.Duration
	// RequestsPerSecond paces requests when positive.
	RequestsPerSecond float64
	// Verbose logs every attempt through the standard logger.
	Verbose bool
}

func (c Config) effectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) effectiveMaxRetries() int {
	switch {
	case c.MaxRetries < 0:
		return 0
	case c.MaxRetries == 0:
		return DefaultMaxRetries
	default:
		return c.MaxRetries
	}
}

func (c Config) effectiveRetryBaseDelay() time.Duration {
	if c.RetryBaseDelay > 0 {
		return c.RetryBaseDelay
	}
	return time.Second
}

// New returns the client for cfg.ID.
func New(cfg Config) (Translator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.ID)
	}
	switch strings.ToLower(cfg.ID) {
	case "", ProviderDeepL:
		return NewDeepL(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: %s)", cfg.ID, strings.Join(IDs(), ", "))
	}
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// Retry, pacing and circuit breaking
// ---------------------------------------------------------------------------

// guard runs provider calls with pacing, retries and a circuit breaker.
type guard struct {
	name       string
	maxRetries int
	baseDelay  time.Duration
	verbose    bool
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

func newGuard(name string, cfg Config) *guard {
	g := &guard{
		name:       name,
		maxRetries: cfg.effectiveMaxRetries(),
		baseDelay:  cfg.effectiveRetryBaseDelay(),
		verbose:    cfg.Verbose,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(math.Ceil(cfg.RequestsPerSecond))
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsOutage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if cfg.Verbose {
				log.Printf("[WARN] %s circuit breaker %s -> %s", name, from, to)
			}
		},
	})
	return g
}

// countsAsOutage reports whether err says the service is unavailable, as
// opposed to a bad request or an uninterpretable answer.
func countsAsOutage(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled)
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return false
}

func (g *guard) do(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", &TransportError{Provider: g.name, Err: err}
			}
		}

		if err := ctx.Err(); err != nil {
			return "", &TransportError{Provider: g.name, Err: err}
		}

		if g.verbose {
			log.Printf("[DEBUG] %s attempt %d/%d", g.name, attempt+1, g.maxRetries+1)
		}

		res, err := g.breaker.Execute(func() (interface{}, error) {
			return call(ctx)
		})
		if err == nil {
			return res.(string), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &TransportError{Provider: g.name, Err: fmt.Errorf("circuit breaker open: %w", err)}
		}

		if ctx.Err() != nil {
			return "", err
		}

		lastErr = err
		wait, retry := g.retryDelay(err, attempt)
		if !retry || attempt == g.maxRetries {
			break
		}

		if g.verbose {
			log.Printf("[WARN] %s: %v; retrying in %v (attempt %d/%d)", g.name, err, wait, attempt+1, g.maxRetries)
		}
		select {
		case <-ctx.Done():
			return "", &TransportError{Provider: g.name, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}

	return "", lastErr
}

// retryDelay returns how long to wait before retrying after err, and
// whether err is worth retrying at all.
func (g *guard) retryDelay(err error, attempt int) (time.Duration, bool) {
	backoff := time.Duration(math.Pow(2, float64(attempt))) * g.baseDelay

	var pe *ProviderError
	if errors.As(err, &pe) {
		if !pe.Temporary() {
			return 0, false
		}
		if pe.RetryAfter > 0 {
			return min(pe.RetryAfter, maxRetryAfter), true
		}
		return backoff, true
	}

	var te *TransportError
	if errors.As(err, &te) {
		return backoff, true
	}
	return 0, false
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

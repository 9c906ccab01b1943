package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DeepL API hosts. Free-plan keys end in ":fx".
const (
	DeepLFreeEndpoint = "https://api-free.deepl.com"
	DeepLProEndpoint  = "https://api.deepl.com"

	deeplTranslatePath = "/v2/translate"
	maxResponseBytes   = 16 << 20
)

// DeepLEndpoint returns the API host matching the plan of apiKey.
func DeepLEndpoint(apiKey string) string {
	if strings.HasSuffix(strings.TrimSpace(apiKey), ":fx") {
		return DeepLFreeEndpoint
	}
	return DeepLProEndpoint
}

// DeepL calls the DeepL v2 text translation endpoint with a form body.
type DeepL struct {
	url     string
	apiKey  string
	verbose bool
	client  *http.Client
	guard   *guard
}

// NewDeepL returns a DeepL client. An empty cfg.Endpoint selects the host
// from the key's plan; an endpoint without the /v2/translate path gets it
// appended.
func NewDeepL(cfg Config) *DeepL {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DeepLEndpoint(cfg.APIKey)
	}
	if !strings.HasSuffix(endpoint, deeplTranslatePath) {
		endpoint += deeplTranslatePath
	}

	return &DeepL{
		url:     endpoint,
		apiKey:  cfg.APIKey,
		verbose: cfg.Verbose,
		client:  makeHTTPClient(cfg.Proxy, cfg.effectiveTimeout()),
		guard:   newGuard("DeepL", cfg),
	}
}

// Name implements Translator.
func (d *DeepL) Name() string { return "DeepL" }

// URL returns the full translate URL.
func (d *DeepL) URL() string { return d.url }

// Translate implements Translator.
func (d *DeepL) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return d.guard.do(ctx, func(ctx context.Context) (string, error) {
		return d.call(ctx, text, targetLang)
	})
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string  `json:"detected_source_language"`
		Text                   *string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) call(ctx context.Context, text, targetLang string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if d.verbose {
		log.Printf("[DEBUG] DeepL: POST %s (%d bytes, target %s)", d.url, len(text), targetLang)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: d.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{Provider: d.Name(), Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{
			Provider:   d.Name(),
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(body)), 500),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return "", &DecodeError{Provider: d.Name(), Reason: "empty response body"}
	}

	var parsed deeplResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &DecodeError{Provider: d.Name(), Reason: "invalid response JSON", Err: err}
	}
	if len(parsed.Translations) == 0 || parsed.Translations[0].Text == nil {
		return "", &DecodeError{
			Provider: d.Name(),
			Reason:   fmt.Sprintf("response has no translations[0].text: %s", truncate(string(body), 200)),
		}
	}

	return *parsed.Translations[0].Text, nil
}

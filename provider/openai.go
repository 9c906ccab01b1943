package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/minios-linux/jsonlate/batch"
	"github.com/minios-linux/jsonlate/langmeta"
)

const openAISystemPrompt = `You are a professional translator. Translate the user's text into %s.

The text is a sequence of independent segments. Every segment is followed by the separator %q.
Rules:
- Keep every separator exactly as it appears, including the final one.
- Return exactly as many segments as you received, in the same order.
- Never merge, split, drop or reorder segments.
- Preserve placeholders, markup, leading and trailing whitespace.
- Reply with the translated text only, without explanations or code fences.`

// OpenAI sends payloads to an OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	client  *openai.Client
	model   string
	delim   string
	baseURL string
	verbose bool
	guard   *guard
}

// NewOpenAI returns a chat completion client. cfg.Endpoint replaces the
// default https://api.openai.com/v1 base URL.
func NewOpenAI(cfg Config) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		oc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	oc.HTTPClient = makeHTTPClient(cfg.Proxy, cfg.effectiveTimeout())

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	delim := cfg.Delimiter
	if delim == "" {
		delim = batch.DefaultDelimiter
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		delim:   delim,
		baseURL: oc.BaseURL,
		verbose: cfg.Verbose,
		guard:   newGuard("OpenAI", cfg),
	}
}

// Name implements Translator.
func (o *OpenAI) Name() string { return "OpenAI" }

// WithDelimiter implements DelimiterAware. The copy shares the breaker and
// rate limiter with o.
func (o *OpenAI) WithDelimiter(delim string) Translator {
	c := *o
	c.delim = delim
	return &c
}

// Translate implements Translator.
func (o *OpenAI) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return o.guard.do(ctx, func(ctx context.Context) (string, error) {
		return o.call(ctx, text, targetLang)
	})
}

func (o *OpenAI) call(ctx context.Context, text, targetLang string) (string, error) {
	langName := fmt.Sprintf("%s (%s)", langmeta.EnglishName(targetLang), targetLang)
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(openAISystemPrompt, langName, o.delim),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	}

	if o.verbose {
		log.Printf("[DEBUG] OpenAI: chat completion %s at %s (%d bytes, target %s)", o.model, o.baseURL, len(text), targetLang)
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", o.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &DecodeError{Provider: o.Name(), Reason: "response has no choices"}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &DecodeError{Provider: o.Name(), Reason: "empty completion"}
	}
	return content, nil
}

// classify maps go-openai errors onto the provider error taxonomy.
func (o *OpenAI) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   o.Name(),
			StatusCode: apiErr.HTTPStatusCode,
			Body:       truncate(apiErr.Message, 500),
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		body := ""
		if reqErr.Err != nil {
			body = truncate(reqErr.Err.Error(), 500)
		}
		return &ProviderError{Provider: o.Name(), StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return &TransportError{Provider: o.Name(), Err: err}
}

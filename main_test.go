package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/minios-linux/jsonlate/config"
	"github.com/minios-linux/jsonlate/provider"
	"github.com/minios-linux/jsonlate/translate"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{
			name:    "clamps below zero",
			percent: -10,
			width:   4,
			want:    colorRed + "░░░░" + colorReset + "   0%",
		},
		{
			name:    "mid range uses yellow",
			percent: 50,
			width:   4,
			want:    colorYellow + "██░░" + colorReset + "  50%",
		},
		{
			name:    "clamps above hundred",
			percent: 120,
			width:   4,
			want:    colorGreen + "████" + colorReset + " 100%",
		},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := percent(1, 4); got != 25 {
		t.Errorf("percent(1, 4) = %d", got)
	}
	if got := percent(0, 0); got != 100 {
		t.Errorf("percent(0, 0) = %d", got)
	}
}

func TestErrorHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config", &config.Error{Key: "api_key", Msg: "missing"}, ".jsonlate.yaml"},
		{"input", &translate.InputError{Path: "x", Err: os.ErrNotExist}, "valid JSON"},
		{"output", &translate.OutputError{Path: "x", Err: os.ErrPermission}, "writable"},
		{"auth", fmt.Errorf("batch 1/1: %w", &provider.ProviderError{StatusCode: 403}), "API key"},
		{"quota", &provider.ProviderError{StatusCode: 456}, "quota"},
		{"server", &provider.ProviderError{StatusCode: 503}, "resume"},
		{"transport", &provider.TransportError{Err: errors.New("refused")}, "resume"},
		{"decode", &provider.DecodeError{Reason: "empty body"}, "--batch-limit"},
		{"other", errors.New("boom"), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := errorHint(tc.err)
			if tc.want == "" {
				if got != "" {
					t.Fatalf("errorHint() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tc.want) {
				t.Fatalf("errorHint() = %q, want it to mention %q", got, tc.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	old := rootDir
	t.Cleanup(func() { rootDir = old })
	rootDir = "/project"

	if got := resolvePath("data/in.json"); got != filepath.Join("/project", "data", "in.json") {
		t.Errorf("relative: %q", got)
	}
	if got := resolvePath("/abs/in.json"); got != "/abs/in.json" {
		t.Errorf("absolute: %q", got)
	}
}

// isolate clears the configuration environment and the credential store.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, name := range []string{"DEEPL_API_KEY", "OPENAI_API_KEY", "TARGET_LANG",
		"JSONLATE_API_KEY", "JSONLATE_TARGET_LANG", "JSONLATE_PROVIDER", "JSONLATE_ENDPOINT",
		"JSONLATE_CACHE_DIR", "JSONLATE_OUTPUT_DIR", "JSONLATE_INPUT", "JSONLATE_BATCH_LIMIT"} {
		t.Setenv(name, "")
	}
}

func fakeDeepL(t *testing.T, dict map[string]string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var out strings.Builder
		for _, seg := range strings.Split(strings.TrimSuffix(r.PostForm.Get("text"), "::"), "::") {
			if tr, ok := dict[seg]; ok {
				out.WriteString(tr)
			} else {
				out.WriteString(seg)
			}
			out.WriteString("::")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"translations": []map[string]string{{"text": out.String()}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTranslateCommandEndToEnd(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	input := `{"greeting":"hello","menu":{"items":["world","hello"]},"count":3}`
	if err := os.WriteFile(filepath.Join(dir, "data", "input.json"), []byte(input), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DEEPL_API_KEY=test-key:fx\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var hits atomic.Int32
	srv := fakeDeepL(t, map[string]string{"hello": "bonjour", "world": "monde"}, &hits)

	if _, err := execute(t, "translate", "--root", dir, "--lang", "fr", "--endpoint", srv.URL); err != nil {
		t.Fatalf("translate: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("provider hits = %d, want 1", hits.Load())
	}

	outputs, _ := filepath.Glob(filepath.Join(dir, "data", "*_FR.json"))
	if len(outputs) != 1 {
		t.Fatalf("outputs = %v, want one file", outputs)
	}
	got, err := os.ReadFile(outputs[0])
	if err != nil {
		t.Fatal(err)
	}
	want := `{"greeting":"bonjour","menu":{"items":["monde","bonjour"]},"count":3}` + "\n"
	if string(got) != want {
		t.Errorf("output = %s, want %s", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "cache", "cache_FR.json")); err != nil {
		t.Errorf("cache file missing: %v", err)
	}

	// Second run is served from the cache.
	if _, err := execute(t, "translate", "--root", dir, "--lang", "fr", "--endpoint", srv.URL); err != nil {
		t.Fatalf("second translate: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("provider hits after cached run = %d, want 1", hits.Load())
	}
}

func TestTranslateCommandMissingKey(t *testing.T) {
	isolate(t)
	_, err := execute(t, "translate", "--root", t.TempDir(), "--lang", "de")
	var ce *config.Error
	if !errors.As(err, &ce) || ce.Key != config.KeyAPIKey {
		t.Fatalf("err = %v, want config error for api_key", err)
	}
}

func TestTranslateCommandDryRunNeedsNoKey(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.json")
	if err := os.WriteFile(input, []byte(`["a","b"]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "translate", input, "--root", dir, "--lang", "de", "--dry-run"); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "data", "*.json")); len(matches) != 0 {
		t.Errorf("dry run wrote %v", matches)
	}
}

func TestCacheAndAuthCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "data", "cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "cache_DE.json"), []byte(`{"a":"b","c":"d"}`), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "cache", "stats", "--root", dir)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	if !strings.Contains(out, "DE: 2 entries") {
		t.Errorf("cache stats output = %q", out)
	}

	if _, err := execute(t, "cache", "clear", "--root", dir, "--lang", "de"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "cache_DE.json")); !os.IsNotExist(err) {
		t.Errorf("cache file still present: %v", err)
	}

	if _, err := execute(t, "auth", "set-key", "--provider", "deepl", "abcdefghijkl:fx"); err != nil {
		t.Fatalf("auth set-key: %v", err)
	}
	out, err = execute(t, "auth", "list")
	if err != nil {
		t.Fatalf("auth list: %v", err)
	}
	if !strings.Contains(out, "abcd...l:fx") {
		t.Errorf("auth list output = %q", out)
	}
	if _, err := execute(t, "auth", "set-key", "--provider", "babelfish", "k"); err == nil {
		t.Error("set-key accepted an unknown provider")
	}
	if _, err := execute(t, "auth", "remove", "--provider", "deepl"); err != nil {
		t.Fatalf("auth remove: %v", err)
	}
}

func TestConfigInitAndLanguages(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	if _, err := execute(t, "config", "init", "--root", dir, "--lang", "pt-br"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "target_lang: PT-BR") {
		t.Errorf("template does not carry the language:\n%s", data)
	}
	if _, err := execute(t, "config", "init", "--root", dir); err == nil {
		t.Error("config init overwrote an existing file without --force")
	}

	out, err := execute(t, "languages")
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	if !strings.Contains(out, "DE") || !strings.Contains(out, "PT-BR") {
		t.Errorf("languages output lacks codes:\n%s", out)
	}
}

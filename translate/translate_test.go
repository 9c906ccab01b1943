package translate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/jsonlate/batch"
	"github.com/minios-linux/jsonlate/cache"
	"github.com/minios-linux/jsonlate/jsonvalue"
	"github.com/minios-linux/jsonlate/provider"
)

// fakeTranslator answers from a dictionary. Unknown segments are
// upper-cased. reply, when set, replaces the whole behaviour.
type fakeTranslator struct {
	delim string
	dict  map[string]string
	reply func(call int, text string) (string, error)

	calls    atomic.Int32
	mu       sync.Mutex
	payloads []string
}

func (f *fakeTranslator) Name() string { return "Fake" }

func (f *fakeTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	n := int(f.calls.Add(1))
	f.mu.Lock()
	f.payloads = append(f.payloads, text)
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(n, text)
	}
	delim := f.delim
	if delim == "" {
		delim = "::"
	}
	var b strings.Builder
	for _, seg := range strings.Split(strings.TrimSuffix(text, delim), delim) {
		if t, ok := f.dict[seg]; ok {
			b.WriteString(t)
		} else {
			b.WriteString(strings.ToUpper(seg))
		}
		b.WriteString(delim)
	}
	return b.String(), nil
}

func mustParse(t *testing.T, s string) jsonvalue.Value {
	t.Helper()
	v, err := jsonvalue.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(%s): %v", s, err)
	}
	return v
}

func mustMarshal(t *testing.T, v jsonvalue.Value) string {
	t.Helper()
	b, err := jsonvalue.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return string(b)
}

func TestTranslateFlatObject(t *testing.T) {
	fake := &fakeTranslator{dict: map[string]string{"hello": "bonjour", "world": "monde"}}
	store := cache.New("FR", nil)

	out, rep, err := Translate(context.Background(), mustParse(t, `{"a":"hello","b":"world"}`), Options{
		Translator: fake,
		Cache:      store,
		TargetLang: "FR",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if got := mustMarshal(t, out); got != `{"a":"bonjour","b":"monde"}` {
		t.Errorf("output = %s", got)
	}
	if !reflect.DeepEqual(fake.payloads, []string{"hello::world::"}) {
		t.Errorf("payloads = %q", fake.payloads)
	}
	if got, _ := store.Lookup("hello"); got != "bonjour" {
		t.Errorf("cache[hello] = %q", got)
	}
	if rep.Batches != 1 || rep.Calls != 1 || rep.Translated != 2 || rep.Pending != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestTranslateNestedArray(t *testing.T) {
	fake := &fakeTranslator{dict: map[string]string{"one": "eins", "two": "zwei"}}
	out, _, err := Translate(context.Background(), mustParse(t, `{"items":["one","two"]}`), Options{
		Translator: fake,
		TargetLang: "DE",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got := mustMarshal(t, out); got != `{"items":["eins","zwei"]}` {
		t.Errorf("output = %s", got)
	}
}

func TestTranslateCacheHitMakesNoCalls(t *testing.T) {
	fake := &fakeTranslator{}
	store := cache.New("FR", map[string]string{"hello": "bonjour"})

	out, rep, err := Translate(context.Background(), mustParse(t, `{"a":"hello"}`), Options{
		Translator: fake,
		Cache:      store,
		TargetLang: "FR",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if fake.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", fake.calls.Load())
	}
	if got := mustMarshal(t, out); got != `{"a":"bonjour"}` {
		t.Errorf("output = %s", got)
	}
	if rep.CacheHits != 1 || rep.Batches != 0 {
		t.Errorf("report = %+v", rep)
	}
}

func TestTranslateNonStringLeavesUntouched(t *testing.T) {
	fake := &fakeTranslator{}
	in := `{"n":1.50,"b":true,"z":null,"e":[],"o":{},"big":12345678901234567890}`

	out, rep, err := Translate(context.Background(), mustParse(t, in), Options{
		Translator: fake,
		TargetLang: "FR",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if fake.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", fake.calls.Load())
	}
	if got := mustMarshal(t, out); got != in {
		t.Errorf("output = %s, want %s", got, in)
	}
	if rep.Strings != 0 {
		t.Errorf("Strings = %d", rep.Strings)
	}
}

func TestTranslateBlankAndDuplicateStrings(t *testing.T) {
	fake := &fakeTranslator{}
	in := `{"a":"hi","b":"","c":"  ","d":["hi","hi"]}`

	out, rep, err := Translate(context.Background(), mustParse(t, in), Options{
		Translator: fake,
		TargetLang: "FR",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !reflect.DeepEqual(fake.payloads, []string{"hi::"}) {
		t.Errorf("payloads = %q, want one distinct string", fake.payloads)
	}
	if got := mustMarshal(t, out); got != `{"a":"HI","b":"","c":"  ","d":["HI","HI"]}` {
		t.Errorf("output = %s", got)
	}
	if rep.Blank != 2 || rep.Pending != 1 {
		t.Errorf("report = %+v", rep)
	}
}

func TestTranslateIdempotentWithCache(t *testing.T) {
	store := cache.New("DE", nil)
	doc := mustParse(t, `{"title":"Hello","menu":{"items":["Open","Close"]}}`)

	first := &fakeTranslator{}
	out1, _, err := Translate(context.Background(), doc, Options{Translator: first, Cache: store, TargetLang: "DE"})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &fakeTranslator{}
	out2, _, err := Translate(context.Background(), doc, Options{Translator: second, Cache: store, TargetLang: "DE"})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.calls.Load() != 0 {
		t.Errorf("second run made %d calls", second.calls.Load())
	}
	if !jsonvalue.Equal(out1, out2) {
		t.Errorf("outputs differ: %s vs %s", mustMarshal(t, out1), mustMarshal(t, out2))
	}
}

func TestTranslateBatchesRespectLimit(t *testing.T) {
	fake := &fakeTranslator{}
	doc := mustParse(t, `["aaaa","bbbb","cccc","dd","e"]`)

	out, rep, err := Translate(context.Background(), doc, Options{
		Translator: fake,
		TargetLang: "FR",
		BatchLimit: 12,
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := []string{"aaaa::bbbb::", "cccc::dd::", "e::"}
	if !reflect.DeepEqual(fake.payloads, want) {
		t.Errorf("payloads = %q, want %q", fake.payloads, want)
	}
	if got := mustMarshal(t, out); got != `["AAAA","BBBB","CCCC","DD","E"]` {
		t.Errorf("output = %s", got)
	}
	if !reflect.DeepEqual(rep.Sizes, []int{12, 10, 3}) {
		t.Errorf("sizes = %v", rep.Sizes)
	}
}

func TestTranslateDelimiterFallback(t *testing.T) {
	fake := &fakeTranslator{delim: "||"}
	var warned bool

	out, rep, err := Translate(context.Background(), mustParse(t, `{"a":"std::string","b":"x"}`), Options{
		Translator: fake,
		TargetLang: "FR",
		OnError:    func(string, ...any) { warned = true },
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if rep.Delimiter != "||" || !warned {
		t.Errorf("delimiter = %q, warned = %v", rep.Delimiter, warned)
	}
	if got := mustMarshal(t, out); got != `{"a":"STD::STRING","b":"X"}` {
		t.Errorf("output = %s", got)
	}
}

func TestTranslateIdentityKeepsDelimiterEdges(t *testing.T) {
	echo := &fakeTranslator{reply: func(_ int, text string) (string, error) { return text, nil }}
	store := cache.New("FR", nil)
	in := `{"label":"Name:","value":"world",":lead":":tail","pipe":"a|"}`

	out, rep, err := Translate(context.Background(), mustParse(t, in), Options{
		Translator: echo,
		Cache:      store,
		TargetLang: "FR",
		Mismatch:   batch.MismatchStrict,
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if rep.Delimiter != "##" {
		t.Errorf("delimiter = %q, want %q", rep.Delimiter, "##")
	}
	if got := mustMarshal(t, out); got != in {
		t.Errorf("output = %s, want %s", got, in)
	}
	for _, src := range []string{"Name:", "world", ":tail", "a|"} {
		if got, _ := store.Lookup(src); got != src {
			t.Errorf("cache[%q] = %q", src, got)
		}
	}
}

func TestTranslateRestoresSpacing(t *testing.T) {
	fake := &fakeTranslator{reply: func(int, string) (string, error) {
		return "bonjour :: monde ::", nil
	}}
	out, _, err := Translate(context.Background(), mustParse(t, `["hello","world"]`), Options{
		Translator: fake,
		TargetLang: "FR",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got := mustMarshal(t, out); got != `["bonjour","monde"]` {
		t.Errorf("output = %s", got)
	}
}

func TestTranslateMismatch(t *testing.T) {
	reply := func(int, string) (string, error) { return "un::", nil }
	doc := `["one","two"]`

	t.Run("truncate", func(t *testing.T) {
		store := cache.New("FR", nil)
		var warnings int
		out, rep, err := Translate(context.Background(), mustParse(t, doc), Options{
			Translator: &fakeTranslator{reply: reply},
			Cache:      store,
			TargetLang: "FR",
			OnError:    func(string, ...any) { warnings++ },
		})
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if got := mustMarshal(t, out); got != `["un","two"]` {
			t.Errorf("output = %s", got)
		}
		if rep.Missing != 1 || warnings != 1 {
			t.Errorf("missing = %d, warnings = %d", rep.Missing, warnings)
		}
		if _, ok := store.Lookup("two"); ok {
			t.Error("untranslated string was cached")
		}
	})

	t.Run("strict", func(t *testing.T) {
		store := cache.New("FR", nil)
		_, _, err := Translate(context.Background(), mustParse(t, doc), Options{
			Translator: &fakeTranslator{reply: reply},
			Cache:      store,
			TargetLang: "FR",
			Mismatch:   batch.MismatchStrict,
		})
		var de *provider.DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("err = %v, want *provider.DecodeError", err)
		}
		var mm *batch.MismatchError
		if !errors.As(err, &mm) || mm.Want != 2 || mm.Got != 1 {
			t.Fatalf("err = %v, want wrapped *batch.MismatchError", err)
		}
		if store.Len() != 0 {
			t.Errorf("cache has %d entries after strict mismatch", store.Len())
		}
	})
}

func TestTranslateFailureKeepsEarlierBatches(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.Open(cache.NewFileBackend(dir), "FR")
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}

	fail := &provider.ProviderError{Provider: "Fake", StatusCode: 500}
	fake := &fakeTranslator{}
	fake.reply = func(call int, text string) (string, error) {
		if call == 2 {
			return "", fail
		}
		return strings.ToUpper(text), nil
	}

	_, rep, err := Translate(context.Background(), mustParse(t, `["aaaa","bbbb","cccc"]`), Options{
		Translator: fake,
		Cache:      store,
		TargetLang: "FR",
		BatchLimit: 6,
	})
	var pe *provider.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *provider.ProviderError", err)
	}
	if fake.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (run stops at the failure)", fake.calls.Load())
	}
	if rep.Translated != 1 {
		t.Errorf("Translated = %d, want 1", rep.Translated)
	}

	reopened, err := cache.Open(cache.NewFileBackend(dir), "FR")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, ok := reopened.Lookup("aaaa"); !ok || got != "AAAA" {
		t.Errorf("first batch not persisted: %q %v", got, ok)
	}
}

func TestTranslateParallel(t *testing.T) {
	var inFlight, peak atomic.Int32
	fake := &fakeTranslator{}
	fake.reply = func(_ int, text string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return strings.ToUpper(text), nil
	}

	var items []string
	for i := 0; i < 12; i++ {
		items = append(items, `"s`+string(rune('a'+i))+`"`)
	}
	doc := mustParse(t, "["+strings.Join(items, ",")+"]")

	var progress []int
	var mu sync.Mutex
	out, rep, err := Translate(context.Background(), doc, Options{
		Translator:    fake,
		TargetLang:    "FR",
		BatchLimit:    4,
		MaxConcurrent: 3,
		OnProgress: func(done, total int) {
			mu.Lock()
			progress = append(progress, done)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if rep.Batches != 12 || rep.Calls != 12 {
		t.Errorf("report = %+v", rep)
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
	sort.Ints(progress)
	if len(progress) != 12 || progress[0] != 1 || progress[11] != 12 {
		t.Errorf("progress = %v", progress)
	}
	for i, item := range out.Items() {
		want := strings.ToUpper("s" + string(rune('a'+i)))
		if item.Str() != want {
			t.Errorf("item %d = %q, want %q", i, item.Str(), want)
		}
	}
}

func TestTranslateParallelStopsOnError(t *testing.T) {
	boom := &provider.TransportError{Provider: "Fake", Err: errors.New("connection refused")}
	fake := &fakeTranslator{}
	fake.reply = func(call int, text string) (string, error) {
		if call == 1 {
			return "", boom
		}
		time.Sleep(5 * time.Millisecond)
		return text, nil
	}

	_, _, err := Translate(context.Background(), mustParse(t, `["a","b","c","d","e","f","g","h"]`), Options{
		Translator:    fake,
		TargetLang:    "FR",
		BatchLimit:    1,
		MaxConcurrent: 2,
	})
	var te *provider.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *provider.TransportError", err)
	}
}

func TestTranslateStages(t *testing.T) {
	var stages []Stage
	_, _, err := Translate(context.Background(), mustParse(t, `{"a":"x"}`), Options{
		Translator: &fakeTranslator{},
		TargetLang: "FR",
		OnStage:    func(s Stage) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := []Stage{Flattened, CacheFiltered, Batched, Translating, Merged, Rebuilt}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestTranslateDryRun(t *testing.T) {
	fake := &fakeTranslator{}
	doc := mustParse(t, `{"a":"x","b":"y"}`)
	out, rep, err := Translate(context.Background(), doc, Options{
		Translator: fake,
		TargetLang: "FR",
		DryRun:     true,
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if fake.calls.Load() != 0 || rep.Batches != 1 || rep.Pending != 2 {
		t.Errorf("calls = %d, report = %+v", fake.calls.Load(), rep)
	}
	if !jsonvalue.Equal(out, doc) {
		t.Error("dry run changed the document")
	}
}

func TestTranslateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Translate(ctx, mustParse(t, `["a"]`), Options{Translator: &fakeTranslator{}, TargetLang: "FR"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunWritesOutputAndCache(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.json")
	if err := os.WriteFile(input, []byte(`{"a":"hello","n":[1,2]}`), 0644); err != nil {
		t.Fatal(err)
	}
	backend := cache.NewFileBackend(filepath.Join(dir, "cache"))
	store, err := cache.Open(backend, "FR")
	if err != nil {
		t.Fatal(err)
	}

	stamp := time.Unix(1700000000, 0)
	var last Stage
	rep, err := Run(context.Background(), Job{
		Input:     input,
		OutputDir: filepath.Join(dir, "out"),
		Indent:    true,
		Now:       func() time.Time { return stamp },
	}, Options{
		Translator: &fakeTranslator{dict: map[string]string{"hello": "bonjour"}},
		Cache:      store,
		TargetLang: "FR",
		OnStage:    func(s Stage) { last = s },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantPath := filepath.Join(dir, "out", "1700000000_FR.json")
	if rep.Output != wantPath {
		t.Errorf("Output = %q, want %q", rep.Output, wantPath)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := "{\n  \"a\": \"bonjour\",\n  \"n\": [\n    1,\n    2\n  ]\n}\n"
	if string(data) != want {
		t.Errorf("output =\n%s\nwant\n%s", data, want)
	}
	if last != Persisted {
		t.Errorf("last stage = %v, want %v", last, Persisted)
	}

	entries, err := backend.Load("FR")
	if err != nil || entries["hello"] != "bonjour" {
		t.Errorf("cache file = %v, %v", entries, err)
	}
}

func TestRunInputErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"a":`), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.json"), bad} {
		_, err := Run(context.Background(), Job{Input: path, OutputDir: dir}, Options{
			Translator: &fakeTranslator{},
			TargetLang: "FR",
		})
		var ie *InputError
		if !errors.As(err, &ie) || ie.Path != path {
			t.Errorf("Run(%s) err = %v, want *InputError", filepath.Base(path), err)
		}
	}
}

func TestRunFailureWritesNoOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.json")
	if err := os.WriteFile(input, []byte(`["a"]`), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	_, err := Run(context.Background(), Job{Input: input, OutputDir: out}, Options{
		Translator: &fakeTranslator{reply: func(int, string) (string, error) {
			return "", &provider.ProviderError{Provider: "Fake", StatusCode: 403}
		}},
		TargetLang: "FR",
	})
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output directory created on failure: %v", statErr)
	}
}

func TestRunOutputError(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.json")
	if err := os.WriteFile(input, []byte(`["a"]`), 0644); err != nil {
		t.Fatal(err)
	}
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), Job{Input: input, OutputDir: filepath.Join(blocker, "out")}, Options{
		Translator: &fakeTranslator{},
		TargetLang: "FR",
	})
	var oe *OutputError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want *OutputError", err)
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("data", "pt-br", time.Unix(42, 0))
	if want := filepath.Join("data", "42_PT-BR.json"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
}

func TestStageString(t *testing.T) {
	if Translating.String() != "translating" || Stage(99).String() != "stage(99)" {
		t.Errorf("unexpected stage names %q %q", Translating, Stage(99))
	}
}

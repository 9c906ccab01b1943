// jsonlate translates the string values of a JSON document through DeepL or
// an OpenAI-compatible service, keeping the document's structure and a
// per-language translation cache.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/minios-linux/jsonlate/cache"
	"github.com/minios-linux/jsonlate/config"
	"github.com/minios-linux/jsonlate/i18n"
	"github.com/minios-linux/jsonlate/langmeta"
	"github.com/minios-linux/jsonlate/provider"
	"github.com/minios-linux/jsonlate/settings"
	"github.com/minios-linux/jsonlate/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configFile string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jsonlate",
		Short: i18n.T("Translate the strings of a JSON document"),
		Long: `jsonlate translates every string value of a JSON document into a target
language and writes a document of identical shape. Keys, numbers, booleans
and nulls are never touched. Translations are cached per language so a
second run over the same document makes no API calls.

Commands:
  translate   Translate a JSON document
  cache       Inspect or reset the translation cache
  auth        Manage stored API keys
  config      Create a .jsonlate.yaml template
  languages   List supported target languages

Providers:
  deepl       DeepL API (default, DEEPL_API_KEY)
  openai      Any OpenAI-compatible chat completion endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project directory (searched for .env and .jsonlate.yaml)")
	root.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (default: <root>/.jsonlate.yaml)")

	root.AddCommand(
		newTranslateCmd(),
		newCacheCmd(),
		newAuthCmd(),
		newConfigCmd(),
		newLanguagesCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		if hint := errorHint(err); hint != "" {
			logInfo("%s", hint)
		}
		os.Exit(1)
	}
}

// errorHint suggests a fix for the error classes of a run.
func errorHint(err error) string {
	var (
		ce *config.Error
		ie *translate.InputError
		oe *translate.OutputError
		te *provider.TransportError
		pe *provider.ProviderError
		de *provider.DecodeError
	)
	switch {
	case errors.As(err, &ce):
		return i18n.T("Check the command-line flags, the environment, .env and .jsonlate.yaml")
	case errors.As(err, &ie):
		return i18n.T("Check that the input file exists and contains valid JSON")
	case errors.As(err, &oe):
		return i18n.T("Check that the output and cache directories are writable")
	case errors.As(err, &pe) && (pe.StatusCode == 401 || pe.StatusCode == 403):
		return i18n.T("The API key was rejected; check it with 'jsonlate auth list'")
	case errors.As(err, &pe) && pe.StatusCode == 456:
		return i18n.T("The translation quota is exhausted")
	case errors.As(err, &pe), errors.As(err, &te):
		return i18n.T("Completed batches are cached; run the command again to resume")
	case errors.As(err, &de):
		return i18n.T("The service returned an unexpected response; try a smaller --batch-limit")
	case errors.Is(err, context.DeadlineExceeded):
		return i18n.T("The run deadline was reached; raise it with --deadline")
	}
	return ""
}

// resolvePath interprets p relative to the project directory.
func resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootDir, p)
}

// loadConfig resolves the configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Sources{
		Dir:        rootDir,
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}
	cfg.Input = resolvePath(cfg.Input)
	cfg.OutputDir = resolvePath(cfg.OutputDir)
	cfg.CacheDir = resolvePath(cfg.CacheDir)
	return cfg, nil
}

// openCacheBackend returns the backend selected by cfg.
func openCacheBackend(cfg *config.Config) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		return cache.OpenSQLite(filepath.Join(cfg.CacheDir, cache.SQLiteFileName))
	default:
		return cache.NewFileBackend(cfg.CacheDir), nil
	}
}

// openStore opens the cache of lang. A damaged cache is reported and
// replaced by an empty one.
func openStore(backend cache.Backend, lang string) (*cache.Store, error) {
	store, err := cache.Open(backend, lang)
	var le *cache.LoadError
	if errors.As(err, &le) {
		logWarning(i18n.T("Ignoring unreadable cache: %v"), le)
		return store, nil
	}
	return store, err
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jsonlate version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "translate [input.json]",
		Short: "Translate a JSON document",
		Long: `Translate every string value of a JSON document.

The input defaults to data/input.json. The result is written to
<output-dir>/<unix-seconds>_<LANG>.json. Strings found in the cache are
not sent again; strings that are empty or only whitespace are kept as-is.

Examples:
  # Translate data/input.json into German with DeepL
  DEEPL_API_KEY=... jsonlate translate --lang de

  # Translate a specific file with an OpenAI-compatible endpoint
  jsonlate translate ui.json --lang fr --provider openai --model gpt-4o-mini

  # Show the batches that would be sent
  jsonlate translate --lang ja --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Input = args[0]
			}
			return runTranslate(cmd.Context(), cfg, dryRun)
		},
	}

	f := cmd.Flags()
	f.StringP("lang", "l", "", "Target language code (or TARGET_LANG)")
	f.String("api-key", "", "API key (or DEEPL_API_KEY)")
	f.String("output-dir", "", "Output directory (default: data)")
	f.Bool("indent", false, "Pretty-print the output")

	f.String("provider", "", "Translation service: deepl, openai")
	f.String("endpoint", "", "Service base URL")
	f.String("model", "", "Chat model (openai provider)")
	f.String("proxy", "", "HTTP/HTTPS proxy URL")

	f.String("cache-dir", "", "Cache directory (default: data/cache)")
	f.String("cache-backend", "", "Cache backend: json, sqlite")

	f.String("delimiter", "", "Segment delimiter inside a batch (default: ::)")
	f.Int("batch-limit", 0, "Maximum batch payload in bytes (default: 1500)")
	f.String("mismatch", "", "Segment count mismatch policy: truncate, strict")

	f.Duration("timeout", 0, "Per-request timeout (default: 60s)")
	f.Duration("deadline", 0, "Deadline for the whole run (default: 10m)")
	f.Int("max-retries", 0, "Retries per request on 429, 5xx and network errors (default: 3)")
	f.Float64("rps", 0, "Maximum requests per second (0 = unlimited)")
	f.Int("max-concurrent", 0, "Batches in flight (default: 1)")

	f.BoolP("verbose", "v", false, "Enable detailed logging")
	f.BoolVar(&dryRun, "dry-run", false, "Show the batches without calling the service")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"deepl\tDeepL API",
			"openai\tOpenAI-compatible chat completion",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("lang", completeLanguages)
	_ = cmd.RegisterFlagCompletionFunc("cache-backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{config.CacheBackendJSON, config.CacheBackendSQLite}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func completeLanguages(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, code := range langmeta.Codes() {
		out = append(out, code+"\t"+langmeta.Resolve(code).Name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func runTranslate(parent context.Context, cfg *config.Config, dryRun bool) error {
	if cfg.APIKey == "" {
		cfg.APIKey = settings.ResolveAPIKey(cfg.Provider, "")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = settings.GetEndpoint(cfg.Provider)
	}
	if dryRun {
		if cfg.TargetLang == "" {
			return &config.Error{Key: config.KeyTargetLang, Msg: fmt.Sprintf("no target language (set %s or use --lang)", config.EnvTargetLang)}
		}
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.FileUsed != "" {
		logInfo(i18n.T("Using configuration %s"), cfg.FileUsed)
	}
	if cfg.EnvFileUsed != "" && cfg.Verbose {
		logInfo(i18n.T("Loaded environment from %s"), cfg.EnvFileUsed)
	}
	if !cfg.KnownLang {
		logWarning(i18n.T("Language %s is not in the list of known languages; sending it as-is"), cfg.TargetLang)
	}

	backend, err := openCacheBackend(cfg)
	if err != nil {
		return &translate.OutputError{Path: cfg.CacheDir, Err: err}
	}
	defer backend.Close()

	store, err := openStore(backend, cfg.TargetLang)
	if err != nil {
		return err
	}
	logInfo("%s", store.Summary())

	var tr provider.Translator
	if !dryRun {
		tr, err = provider.New(cfg.ProviderConfig())
		if err != nil {
			return &config.Error{Key: config.KeyProvider, Msg: "cannot create client", Err: err}
		}
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, cfg.Deadline)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, saving progress..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	opts := translate.Options{
		Translator:    tr,
		Cache:         store,
		TargetLang:    cfg.TargetLang,
		Delimiter:     cfg.Delimiter,
		BatchLimit:    cfg.BatchLimit,
		Mismatch:      cfg.Mismatch,
		MaxConcurrent: cfg.MaxConcurrent,
		DryRun:        dryRun,
		Verbose:       cfg.Verbose,
		OnProgress: func(done, total int) {
			logInfo("  %s %d/%d", progressBar(percent(done, total), 20), done, total)
		},
		OnLog: func(format string, args ...any) {
			logInfo(format, args...)
		},
		OnError: func(format string, args ...any) {
			logWarning(format, args...)
		},
	}
	if cfg.Verbose {
		opts.OnStage = func(s translate.Stage) {
			logInfo("[%s]", s)
		}
	}

	start := time.Now()
	rep, err := translate.Run(ctx, translate.Job{
		Input:     cfg.Input,
		OutputDir: cfg.OutputDir,
		Indent:    cfg.Indent,
	}, opts)
	if err != nil {
		return err
	}

	if dryRun {
		printDryRun(os.Stdout, rep)
		return nil
	}

	logSuccess(i18n.T("Wrote %s in %s"), rep.Output, time.Since(start).Round(time.Millisecond))
	logInfo(i18n.T("%d string(s): %d from cache, %d translated, %d batch(es)"),
		rep.Strings, rep.CacheHits, rep.Translated, rep.Batches)
	if rep.Missing > 0 {
		logWarning(i18n.N("%d string was left untranslated", "%d strings were left untranslated", rep.Missing), rep.Missing)
	}
	return nil
}

func printDryRun(w io.Writer, rep *translate.Report) {
	fmt.Fprintf(w, i18n.T("Strings: %d (blank %d, cached %d, to send %d)\n"),
		rep.Strings, rep.Blank, rep.CacheHits, rep.Pending)
	fmt.Fprintf(w, i18n.T("Delimiter: %q\n"), rep.Delimiter)
	fmt.Fprintf(w, i18n.T("Batches: %d\n"), rep.Batches)
	for i, size := range rep.Sizes {
		fmt.Fprintf(w, "  #%-4d %6d bytes\n", i+1, size)
	}
}

// percent returns done/total in percent, 100 for an empty total.
func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}

// progressBar renders a colored bar followed by the percentage.
func progressBar(pct, width int) string {
	pct = max(0, min(pct, 100))
	filled := pct * width / 100

	color := colorYellow
	switch {
	case pct < 30:
		color = colorRed
	case pct == 100:
		color = colorGreen
	}
	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset +
		fmt.Sprintf(" %3d%%", pct)
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the translation cache",
		Long: `Inspect or reset the per-language translation cache.

Examples:
  jsonlate cache stats              Entry count of every cached language
  jsonlate cache stats --lang de    Entry count of German
  jsonlate cache clear --lang de    Forget all German translations`,
	}

	cmd.PersistentFlags().String("cache-dir", "", "Cache directory (default: data/cache)")
	cmd.PersistentFlags().String("cache-backend", "", "Cache backend: json, sqlite")

	cmd.AddCommand(newCacheStatsCmd(), newCacheClearCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			backend, err := openCacheBackend(cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			var langs []string
			if lang != "" {
				code, _, err := langmeta.Normalize(lang)
				if err != nil {
					return &config.Error{Key: config.KeyTargetLang, Msg: fmt.Sprintf("invalid value %q", lang), Err: err}
				}
				langs = []string{code}
			} else if langs, err = backend.Languages(); err != nil {
				return err
			}

			if len(langs) == 0 {
				logInfo(i18n.T("Cache %s is empty"), cfg.CacheDir)
				return nil
			}
			for _, l := range langs {
				store, err := openStore(backend, l)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), store.Summary())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Language to show (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("lang", completeLanguages)
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the cached translations of a language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := langmeta.Normalize(lang)
			if err != nil {
				return &config.Error{Key: config.KeyTargetLang, Msg: fmt.Sprintf("invalid value %q", lang), Err: err}
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			backend, err := openCacheBackend(cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			store, err := openStore(backend, code)
			if err != nil {
				return err
			}
			n := store.Len()
			if err := store.Clear(); err != nil {
				return err
			}
			logSuccess(i18n.N("Removed %d cached translation for %s", "Removed %d cached translations for %s", n), n, code)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Language to clear (required)")
	_ = cmd.MarkFlagRequired("lang")
	_ = cmd.RegisterFlagCompletionFunc("lang", completeLanguages)
	return cmd
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored API keys",
		Long: `Manage API keys stored in ` + "`$XDG_DATA_HOME/jsonlate/auth.json`" + `.

A stored key is used when neither --api-key nor the environment provides one.

Examples:
  jsonlate auth set-key --provider deepl          Prompt for a DeepL key
  jsonlate auth set-key --provider openai sk-...  Store an OpenAI key
  jsonlate auth remove --provider deepl           Remove the DeepL key
  jsonlate auth remove                            Remove all keys
  jsonlate auth list                              Show stored keys`,
	}

	cmd.AddCommand(newAuthSetKeyCmd(), newAuthRemoveCmd(), newAuthListCmd())
	return cmd
}

func validProvider(id string) error {
	for _, p := range provider.IDs() {
		if id == p {
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q (valid: %s)", id, strings.Join(provider.IDs(), ", "))
}

func newAuthSetKeyCmd() *cobra.Command {
	var (
		providerID string
		endpoint   string
	)

	cmd := &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store an API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validProvider(providerID); err != nil {
				return err
			}

			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Fprintf(os.Stderr, i18n.T("Enter %s API key: "), providerID)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("reading key: %w", err)
				}
				key = strings.TrimSpace(line)
			}

			if err := settings.SetAPIKey(providerID, key, endpoint); err != nil {
				return err
			}
			logSuccess(i18n.T("Stored %s key %s in %s"), providerID, settings.MaskKey(key), settings.FilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", provider.ProviderDeepL, "Provider: deepl, openai")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Base URL to use with this key")
	return cmd
}

func newAuthRemoveCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm"},
		Short:   "Remove stored API keys",
		Long:    `Remove the key of one provider, or all keys when --provider is not given.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("%s", i18n.T("All stored credentials removed"))
				return nil
			}
			if err := validProvider(providerID); err != nil {
				return err
			}
			if err := settings.Remove(providerID); err != nil {
				return err
			}
			logSuccess(i18n.T("%s credentials removed"), providerID)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to remove (default: all)")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored keys",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
			fmt.Fprintln(w, strings.Repeat("─", 60))

			for _, id := range provider.IDs() {
				key := settings.GetAPIKey(id)
				if key == "" {
					fmt.Fprintf(w, "  %-10s %s%s%s\n", id, colorRed, i18n.T("not configured"), colorReset)
					continue
				}
				fmt.Fprintf(w, "  %-10s %s%s%s (key: %s)\n", id, colorGreen, i18n.T("configured"), colorReset, settings.MaskKey(key))
				if ep := settings.GetEndpoint(id); ep != "" {
					fmt.Fprintf(w, "  %10s endpoint: %s\n", "", ep)
				}
			}

			fmt.Fprintf(w, "\n  %s%s%s\n", colorYellow, i18n.T("Environment Variables"), colorReset)
			for _, id := range provider.IDs() {
				env := settings.EnvVarForProvider(id)
				if v := os.Getenv(env); v != "" {
					fmt.Fprintf(w, "  %s: %s%s%s (overrides stored key)\n", env, colorGreen, settings.MaskKey(v), colorReset)
				} else {
					fmt.Fprintf(w, "  %s: %s%s%s\n", env, colorRed, i18n.T("not set"), colorReset)
				}
			}
			fmt.Fprintln(w)
		},
	}
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the project configuration file",
	}

	var (
		lang  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented .jsonlate.yaml with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lang != "" {
				code, _, err := langmeta.Normalize(lang)
				if err != nil {
					return &config.Error{Key: config.KeyTargetLang, Msg: fmt.Sprintf("invalid value %q", lang), Err: err}
				}
				lang = code
			}
			path, err := config.WriteTemplate(rootDir, lang, force)
			if err != nil {
				return err
			}
			logSuccess(i18n.T("Created %s"), path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&lang, "lang", "l", "", "Target language to put in the file")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

// ---------------------------------------------------------------------------
// languages
// ---------------------------------------------------------------------------

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, code := range langmeta.Codes() {
				meta := langmeta.Resolve(code)
				fmt.Fprintf(w, "%-8s %s  %-22s %s\n", code, meta.Flag, meta.Name, langmeta.EnglishName(code))
			}
		},
	}
}

package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minios-linux/jsonlate/jsonvalue"
)

// Job names the files of a run.
type Job struct {
	// Input is the JSON document to translate.
	Input string
	// OutputDir receives <unix-seconds>_<LANG>.json.
	OutputDir string
	// Indent pretty-prints the output with two spaces.
	Indent bool
	// Now stamps the output file name (default time.Now).
	Now func() time.Time
}

// OutputPath returns the file a run finishing at t writes for lang.
func OutputPath(dir, lang string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%s.json", t.Unix(), strings.ToUpper(lang)))
}

// Run reads job.Input, translates it and writes the result to
// job.OutputDir. The cache is flushed after the output is written; nothing
// is written when translation fails or when opts.DryRun is set.
func Run(ctx context.Context, job Job, opts Options) (*Report, error) {
	data, err := os.ReadFile(job.Input)
	if err != nil {
		return nil, &InputError{Path: job.Input, Err: err}
	}
	doc, err := jsonvalue.Parse(data)
	if err != nil {
		return nil, &InputError{Path: job.Input, Err: err}
	}
	opts.stage(Loaded)
	if opts.Verbose {
		opts.log("Loaded %s (%d bytes)", job.Input, len(data))
	}

	out, rep, err := Translate(ctx, doc, opts)
	if err != nil || opts.DryRun {
		return rep, err
	}

	var encoded []byte
	if job.Indent {
		encoded, err = jsonvalue.MarshalIndent(out, "", "  ")
	} else {
		encoded, err = jsonvalue.Marshal(out)
	}
	if err != nil {
		return rep, fmt.Errorf("encoding output: %w", err)
	}
	encoded = append(encoded, '\n')

	now := time.Now
	if job.Now != nil {
		now = job.Now
	}
	path := OutputPath(job.OutputDir, opts.TargetLang, now())
	if err := writeFileAtomic(path, encoded); err != nil {
		return rep, &OutputError{Path: path, Err: err}
	}
	rep.Output = path

	if opts.Cache != nil {
		if err := opts.Cache.Flush(); err != nil {
			return rep, &OutputError{Path: opts.Cache.Location(), Err: err}
		}
	}
	opts.stage(Persisted)
	return rep, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".jsonlate-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

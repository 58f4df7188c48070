// Package app drives the detect, convert and show modes over a resolved
// configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/verte-zerg/txtconv/internal/convert"
	"github.com/verte-zerg/txtconv/internal/format"
	"github.com/verte-zerg/txtconv/internal/model"
	"github.com/verte-zerg/txtconv/internal/resolve"
	"github.com/verte-zerg/txtconv/internal/sniff"
	"github.com/verte-zerg/txtconv/internal/store"
	"github.com/verte-zerg/txtconv/internal/walk"
)

// Journal records finished runs.
type Journal interface {
	RecordRun(ctx context.Context, run store.Run, outcomes []store.Outcome) (string, error)
}

// Options configures an App. Zero values select defaults.
type Options struct {
	Sniffer   sniff.Sniffer
	Threshold float64
	Confirmer convert.Confirmer
	Journal   Journal
	Logger    *slog.Logger
	Now       func() time.Time
}

// App runs the tool's modes against a filesystem.
type App struct {
	converter *convert.Converter
	walker    *walk.Walker
	fs        afero.Fs
	confirm   convert.Confirmer
	journal   Journal
	log       *slog.Logger
	now       func() time.Time
}

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	Outcome model.ConversionOutcome
	Err     error
}

// BatchResult is the outcome of a convert or show batch.
type BatchResult struct {
	Files     []FileResult
	Total     model.GrandTotal
	Conflicts []string
	Aborted   bool
}

// New constructs an App on fs.
func New(fs afero.Fs, opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sn := opts.Sniffer
	if sn == nil {
		sn = sniff.NewChardet()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	res := resolve.New(sn, resolve.WithThreshold(opts.Threshold))
	log.Debug("resolver ready", "threshold", res.Threshold())
	convOpts := []convert.Option{convert.WithLogger(log)}
	if opts.Confirmer != nil {
		convOpts = append(convOpts, convert.WithConfirmer(opts.Confirmer))
	}
	return &App{
		converter: convert.New(fs, res, convOpts...),
		walker:    walk.New(fs, walk.WithLogger(log)),
		fs:        fs,
		confirm:   opts.Confirmer,
		journal:   opts.Journal,
		log:       log,
		now:       now,
	}
}

// DetectOne resolves the encoding of a single file.
func (a *App) DetectOne(path string) (model.ConversionOutcome, error) {
	started := a.now()
	out, err := a.converter.Detect(path)
	a.record(model.ModeDetectOne, path, "", started, []FileResult{{Outcome: out, Err: err}})
	return out, err
}

// ConvertOne converts a single file. Errors are terminal.
func (a *App) ConvertOne(cfg model.RunConfig) (model.ConversionOutcome, error) {
	target, err := format.Parse(cfg.Format)
	if err != nil {
		return model.ConversionOutcome{SourcePath: cfg.SourcePath}, err
	}
	started := a.now()
	out, err := a.converter.Convert(convert.Request{
		Source:    cfg.SourcePath,
		Dest:      cfg.DestPath,
		Target:    &target,
		Suffix:    cfg.Suffix,
		Overwrite: cfg.Overwrite,
	})
	a.record(model.ModeConvertOne, cfg.SourcePath, string(target), started, []FileResult{{Outcome: out, Err: err}})
	return out, err
}

// ConvertBatch converts every matching file under cfg.Directory. Existing
// destinations are collected up front and confirmed once for the whole batch.
func (a *App) ConvertBatch(cfg model.RunConfig) (BatchResult, error) {
	target, err := format.Parse(cfg.Format)
	if err != nil {
		return BatchResult{}, err
	}
	started := a.now()

	files, err := a.walker.Files(cfg.Directory, cfg.Extension, cfg.Recursive)
	if err != nil {
		return BatchResult{}, err
	}
	var result BatchResult
	for _, f := range files {
		dest := convert.DestPath(f, target, cfg.Suffix)
		exists, err := afero.Exists(a.fs, dest)
		if err != nil {
			return result, fmt.Errorf("failed to stat %s: %w", dest, err)
		}
		if exists {
			result.Conflicts = append(result.Conflicts, dest)
		}
	}
	if len(result.Conflicts) > 0 && !cfg.Overwrite {
		if a.confirm == nil {
			return result, fmt.Errorf("%w: %d output file(s)", convert.ErrDestinationExists, len(result.Conflicts))
		}
		ok, err := a.confirm.ConfirmOverwrite(result.Conflicts)
		if err != nil {
			return result, fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			result.Aborted = true
			a.log.Info("batch aborted by user", "conflicts", len(result.Conflicts))
			return result, nil
		}
	}

	result.Total, err = a.walker.Walk(cfg.Directory, cfg.Extension, cfg.Recursive, func(path string, info os.FileInfo) (model.StatsEntry, error) {
		out, err := a.converter.Convert(convert.Request{
			Source:    path,
			Target:    &target,
			Suffix:    cfg.Suffix,
			Overwrite: true,
		})
		result.Files = append(result.Files, FileResult{Outcome: out, Err: err})
		if err != nil {
			return model.StatsEntry{}, err
		}
		return entryFor(path, info, out.Decode), nil
	})
	if err != nil {
		return result, err
	}
	a.record(model.ModeConvertBatch, cfg.Directory, string(target), started, result.Files)
	return result, nil
}

// ShowBatch resolves every matching file under cfg.Directory without writing.
func (a *App) ShowBatch(cfg model.RunConfig) (BatchResult, error) {
	started := a.now()
	var result BatchResult
	total, err := a.walker.Walk(cfg.Directory, cfg.Extension, cfg.Recursive, func(path string, info os.FileInfo) (model.StatsEntry, error) {
		out, err := a.converter.Detect(path)
		result.Files = append(result.Files, FileResult{Outcome: out, Err: err})
		if err != nil {
			return model.StatsEntry{}, err
		}
		return entryFor(path, info, out.Decode), nil
	})
	if err != nil {
		return result, err
	}
	result.Total = total
	a.record(model.ModeShowBatch, cfg.Directory, "", started, result.Files)
	return result, nil
}

// Run dispatches on cfg.Mode. Single-file modes return their outcome as the
// only file of the batch result.
func (a *App) Run(cfg model.RunConfig) (BatchResult, error) {
	switch cfg.Mode {
	case model.ModeDetectOne:
		out, err := a.DetectOne(cfg.SourcePath)
		return BatchResult{Files: []FileResult{{Outcome: out, Err: err}}}, err
	case model.ModeConvertOne:
		out, err := a.ConvertOne(cfg)
		return BatchResult{Files: []FileResult{{Outcome: out, Err: err}}}, err
	case model.ModeConvertBatch:
		return a.ConvertBatch(cfg)
	case model.ModeShowBatch:
		return a.ShowBatch(cfg)
	}
	return BatchResult{}, fmt.Errorf("unknown mode %q", cfg.Mode)
}

func entryFor(path string, info os.FileInfo, dec model.DecodeResult) model.StatsEntry {
	return model.StatsEntry{
		Path:            path,
		EncodingUsed:    dec.EncodingUsed,
		Confidence:      dec.Confidence,
		SizeBytes:       info.Size(),
		CreatedAt:       info.ModTime(),
		FallbackApplied: dec.FallbackApplied,
	}
}

func (a *App) record(mode model.Mode, root, target string, started time.Time, files []FileResult) {
	if a.journal == nil {
		return
	}
	outcomes := make([]store.Outcome, 0, len(files))
	for _, f := range files {
		o := store.Outcome{
			Source:       f.Outcome.SourcePath,
			Dest:         f.Outcome.DestPath,
			Encoding:     f.Outcome.Decode.EncodingUsed,
			Confidence:   f.Outcome.Decode.Confidence,
			Fallback:     f.Outcome.Decode.FallbackApplied,
			BytesWritten: f.Outcome.BytesWritten,
		}
		if f.Err != nil {
			o.Error = f.Err.Error()
		}
		outcomes = append(outcomes, o)
	}
	run := store.Run{StartedAt: started, Mode: string(mode), Root: root, Format: target}
	if _, err := a.journal.RecordRun(context.Background(), run, outcomes); err != nil {
		a.log.Warn("failed to record history", "err", err)
	}
}

// Package convert orchestrates detection and conversion of a single file.
package convert

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/verte-zerg/txtconv/internal/format"
	"github.com/verte-zerg/txtconv/internal/model"
	"github.com/verte-zerg/txtconv/internal/resolve"
)

// ErrDestinationExists is returned when the destination exists, overwrite was
// not requested and no Confirmer is available to ask.
var ErrDestinationExists = errors.New("destination already exists")

// UnreadableSourceError wraps a failure to read the source file.
type UnreadableSourceError struct {
	Path string
	Err  error
}

func (e *UnreadableSourceError) Error() string {
	return fmt.Sprintf("cannot read file %q: %v", e.Path, e.Err)
}

func (e *UnreadableSourceError) Unwrap() error { return e.Err }

// IsUnreadableSource reports whether err is an UnreadableSourceError.
func IsUnreadableSource(err error) bool {
	var e *UnreadableSourceError
	return errors.As(err, &e)
}

// Confirmer decides whether an existing destination may be overwritten.
type Confirmer interface {
	ConfirmOverwrite(paths []string) (bool, error)
}

// ConfirmFunc adapts a function to a Confirmer.
type ConfirmFunc func(paths []string) (bool, error)

// ConfirmOverwrite implements Confirmer.
func (f ConfirmFunc) ConfirmOverwrite(paths []string) (bool, error) {
	return f(paths)
}

// Request describes one conversion. A nil Target means detection only.
type Request struct {
	Source    string
	Dest      string
	Target    *format.TargetFormat
	Suffix    string
	Overwrite bool
}

// Converter reads, resolves and rewrites files.
type Converter struct {
	fs       afero.Fs
	resolver *resolve.Resolver
	confirm  Confirmer
	log      *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithConfirmer sets the overwrite confirmation port.
func WithConfirmer(c Confirmer) Option {
	return func(cv *Converter) { cv.confirm = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cv *Converter) {
		if l != nil {
			cv.log = l
		}
	}
}

// New constructs a Converter on fs.
func New(fs afero.Fs, r *resolve.Resolver, opts ...Option) *Converter {
	c := &Converter{
		fs:       fs,
		resolver: r,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DestPath derives "<base>_<SUFFIX><ext>" next to source. An empty suffix
// falls back to the format identifier. Leading dots of the file name do not
// start an extension, so ".bashrc" becomes ".bashrc_<SUFFIX>".
func DestPath(source string, target format.TargetFormat, suffix string) string {
	if suffix == "" {
		suffix = string(target)
	}
	ext := filepath.Ext(source)
	if !strings.Contains(strings.TrimLeft(filepath.Base(source), "."), ".") {
		ext = ""
	}
	return strings.TrimSuffix(source, ext) + "_" + suffix + ext
}

// Detect reads and resolves source without writing anything.
func (c *Converter) Detect(source string) (model.ConversionOutcome, error) {
	return c.Convert(Request{Source: source})
}

// Convert processes one request. On any error nothing is written.
func (c *Converter) Convert(req Request) (model.ConversionOutcome, error) {
	out := model.ConversionOutcome{SourcePath: req.Source}
	if req.Target != nil && !req.Target.Valid() {
		return out, &format.UnsupportedFormatError{Name: string(*req.Target)}
	}

	data, err := afero.ReadFile(c.fs, req.Source)
	if err != nil {
		return out, &UnreadableSourceError{Path: req.Source, Err: err}
	}

	out.Decode = c.resolver.Resolve(data)
	c.log.Debug("resolved encoding",
		"path", req.Source,
		"encoding", out.Decode.EncodingUsed,
		"confidence", out.Decode.Confidence,
		"fallback", out.Decode.FallbackApplied,
	)
	if out.Decode.Warning != nil {
		c.log.Warn("lossy decode", "path", req.Source, "warning", out.Decode.Warning.Error())
	}
	if req.Target == nil {
		return out, nil
	}

	target := *req.Target
	out.Target = string(target)
	out.DestPath = req.Dest
	if out.DestPath == "" {
		out.DestPath = DestPath(req.Source, target, req.Suffix)
	}

	var payload []byte
	if len(data) > 0 {
		payload, err = format.Serialize(out.Decode.Text, target)
		if err != nil {
			return out, err
		}
	}

	exists, err := afero.Exists(c.fs, out.DestPath)
	if err != nil {
		return out, fmt.Errorf("failed to stat destination: %w", err)
	}
	if exists && !req.Overwrite {
		if c.confirm == nil {
			return out, fmt.Errorf("%w: %s", ErrDestinationExists, out.DestPath)
		}
		ok, err := c.confirm.ConfirmOverwrite([]string{out.DestPath})
		if err != nil {
			return out, fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			out.Skipped = true
			c.log.Info("overwrite declined", "path", out.DestPath)
			return out, nil
		}
	}

	if err := afero.WriteFile(c.fs, out.DestPath, payload, 0o644); err != nil {
		return out, fmt.Errorf("failed to write %s: %w", out.DestPath, err)
	}
	out.BytesWritten = len(payload)
	out.Overwritten = exists
	c.log.Debug("wrote file", "path", out.DestPath, "format", target, "bytes", out.BytesWritten)
	return out, nil
}

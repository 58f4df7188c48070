// Package resolve turns raw bytes into decoded text and the encoding label
// that produced it.
package resolve

import (
	"github.com/verte-zerg/txtconv/internal/codec"
	"github.com/verte-zerg/txtconv/internal/model"
	"github.com/verte-zerg/txtconv/internal/sniff"
)

// DefaultThreshold is the confidence at which a sniffed guess is trusted
// without running the candidate chain.
const DefaultThreshold = 0.80

// Guesses in this set are always cross-checked against the candidate chain
// because detectors confuse them on short Polish samples.
var ambiguous = map[string]bool{
	codec.Windows1250: true,
	codec.ISO8859_2:   true,
	codec.ASCII:       true,
	codec.ISO8859_1:   true,
	codec.Windows1252: true,
	codec.ISO8859_15:  true,
	codec.Windows1254: true,
}

// Western pages accept every byte of a Polish file, so they get a glyph check
// against the Polish letter positions.
var westernPages = map[string]bool{
	codec.ISO8859_1:   true,
	codec.Windows1252: true,
	codec.ISO8859_15:  true,
	codec.Windows1254: true,
}

// candidate is one entry of the fallback chain.
type candidate struct {
	codec      codec.Codec
	consistent func(text string) bool
}

// Resolver runs the priority-based fallback chain.
type Resolver struct {
	sniffer   sniff.Sniffer
	threshold float64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold overrides the confidence threshold.
func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 && t <= 1 {
			r.threshold = t
		}
	}
}

// New constructs a Resolver around a sniffer.
func New(s sniff.Sniffer, opts ...Option) *Resolver {
	r := &Resolver{sniffer: s, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the configured confidence threshold.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve decodes data. It never fails: when no candidate decodes strictly the
// highest-priority candidate is used lossily and a warning is attached.
func (r *Resolver) Resolve(data []byte) model.DecodeResult {
	if len(data) == 0 {
		return model.DecodeResult{Text: "", EncodingUsed: codec.ASCII, Confidence: 1.0}
	}

	guess := r.sniffer.Guess(data)
	sniffed := codec.Canonical(guess.Name)

	if guess.Confidence >= r.threshold && sniffed != "" && !ambiguous[sniffed] {
		if c, ok := codec.Lookup(sniffed); ok {
			if text, bom, err := c.Strict(data); err == nil {
				return model.DecodeResult{
					Text:         text,
					EncodingUsed: c.Name,
					Confidence:   guess.Confidence,
					BOM:          bom,
				}
			}
		}
	}

	chain := candidates(sniffed, data)
	for _, cand := range chain {
		text, bom, err := cand.codec.Strict(data)
		if err != nil {
			continue
		}
		if cand.consistent != nil && !cand.consistent(text) {
			continue
		}
		return model.DecodeResult{
			Text:            text,
			EncodingUsed:    cand.codec.Name,
			Confidence:      guess.Confidence,
			FallbackApplied: cand.codec.Name != sniffed,
			BOM:             bom,
		}
	}

	tried := make([]string, len(chain))
	for i, cand := range chain {
		tried[i] = cand.codec.Name
	}
	first := chain[0].codec
	text, bom := first.Lossy(data)
	return model.DecodeResult{
		Text:            text,
		EncodingUsed:    first.Name,
		Confidence:      guess.Confidence,
		FallbackApplied: first.Name != sniffed,
		BOM:             bom,
		Warning:         &model.DecodeWarning{Used: first.Name, Tried: tried},
	}
}

// candidates builds the chain in priority order: sniffed, windows-1250,
// iso-8859-2, utf-8, utf-16 (only with a BOM), ascii.
func candidates(sniffed string, data []byte) []candidate {
	names := make([]string, 0, 6)
	if sniffed != "" {
		names = append(names, sniffed)
	}
	names = append(names, codec.Windows1250, codec.ISO8859_2, codec.UTF8)
	switch {
	case codec.HasBOM(data, codec.BOMUTF16LE):
		names = append(names, codec.UTF16LE)
	case codec.HasBOM(data, codec.BOMUTF16BE):
		names = append(names, codec.UTF16BE)
	}
	names = append(names, codec.ASCII)

	seen := make(map[string]bool, len(names))
	out := make([]candidate, 0, len(names))
	for _, name := range names {
		c, ok := codec.Lookup(name)
		if !ok || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, candidate{codec: c, consistent: consistencyCheck(c.Name)})
	}
	return out
}

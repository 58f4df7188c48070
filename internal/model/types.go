// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects what a run does.
type Mode string

const (
	ModeDetectOne    Mode = "detect-one"
	ModeConvertOne   Mode = "convert-one"
	ModeConvertBatch Mode = "convert-batch"
	ModeShowBatch    Mode = "show-batch"
)

// RunConfig is the resolved configuration handed to the run driver.
type RunConfig struct {
	Mode         Mode
	SourcePath   string
	DestPath     string
	Format       string
	Suffix       string
	Directory    string
	Extension    string
	Recursive    bool
	Overwrite    bool
	IncludeStats bool
}

// EncodingGuess is a statistical detector's best guess.
type EncodingGuess struct {
	Name       string
	Confidence float64
}

// DecodeWarning reports that no candidate decoded strictly and the text was
// recovered with replacement characters.
type DecodeWarning struct {
	Used  string
	Tried []string
}

func (w *DecodeWarning) Error() string {
	return fmt.Sprintf("no encoding decoded cleanly (tried %s); used %s with replacement characters",
		strings.Join(w.Tried, ", "), w.Used)
}

// DecodeResult is decoded text plus the encoding that produced it.
type DecodeResult struct {
	Text            string
	EncodingUsed    string
	Confidence      float64
	FallbackApplied bool
	// BOM is set when a Unicode byte order mark was found and stripped from Text.
	BOM     bool
	Warning *DecodeWarning
}

// Lossy reports whether the decode substituted invalid input.
func (r DecodeResult) Lossy() bool {
	return r.Warning != nil
}

// ConversionOutcome describes one processed file.
type ConversionOutcome struct {
	SourcePath   string
	DestPath     string
	Decode       DecodeResult
	Target       string // empty for detection only
	BytesWritten int
	Overwritten  bool
	Skipped      bool // overwrite declined
}

// StatsEntry is one file row in a directory listing.
type StatsEntry struct {
	Path            string
	EncodingUsed    string
	Confidence      float64
	SizeBytes       int64
	CreatedAt       time.Time
	FallbackApplied bool
	Err             error
}

// Failed reports whether the entry records a per-file failure.
func (e StatsEntry) Failed() bool {
	return e.Err != nil
}

// DirectoryStats accumulates the entries of one visited directory.
type DirectoryStats struct {
	Path       string
	Entries    []StatsEntry
	FileCount  int
	TotalBytes int64
}

// Add folds an entry into the directory subtotal. Failed entries are listed but
// not counted.
func (d *DirectoryStats) Add(e StatsEntry) {
	d.Entries = append(d.Entries, e)
	if e.Failed() {
		return
	}
	d.FileCount++
	d.TotalBytes += e.SizeBytes
}

// GrandTotal accumulates statistics across every visited directory.
type GrandTotal struct {
	Directories []DirectoryStats
	FileCount   int
	TotalBytes  int64
	Failed      int
}

// Add folds a finished directory into the grand total.
func (g *GrandTotal) Add(d DirectoryStats) {
	g.Directories = append(g.Directories, d)
	g.FileCount += d.FileCount
	g.TotalBytes += d.TotalBytes
	g.Failed += len(d.Entries) - d.FileCount
}

// Entries returns every entry in traversal order.
func (g GrandTotal) Entries() []StatsEntry {
	var out []StatsEntry
	for _, d := range g.Directories {
		out = append(out, d.Entries...)
	}
	return out
}

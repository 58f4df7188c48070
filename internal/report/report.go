// Package report renders results as text for the terminal.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/txtconv/internal/app"
	"github.com/verte-zerg/txtconv/internal/model"
	"github.com/verte-zerg/txtconv/internal/stats"
)

const (
	dateLayout = "2006-01-02 15:04:05"
	rule       = "==================================================================="
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C9DFF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#36CFC9"))
	sizeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D46BD6"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
)

// ShowOptions controls the show listing.
type ShowOptions struct {
	Root      string
	Extension string
	Recursive bool
	Stats     bool
	Align     bool
}

// Printer writes rendered results to w.
type Printer struct {
	w     io.Writer
	color bool
	err   error
}

// New returns a Printer. Colors are emitted only when color is true.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// Err returns the first write error, if any.
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) paint(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// FormatSize renders a byte count in IEC units.
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// FormatConfidence renders a confidence in [0,1] as a percentage.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}

// Detect prints the detection line for one file.
func (p *Printer) Detect(out model.ConversionOutcome) {
	p.printf("%s File '%s' detected encoding: %s (confidence %s)\n",
		p.paint(infoStyle, "[INFO]"),
		p.paint(pathStyle, out.SourcePath),
		p.paint(warnStyle, out.Decode.EncodingUsed),
		FormatConfidence(out.Decode.Confidence),
	)
	p.decodeNotes(out.Decode)
}

func (p *Printer) decodeNotes(d model.DecodeResult) {
	if d.FallbackApplied {
		p.printf("%s Used fallback '%s' for successful decoding.\n", p.paint(warnStyle, "[INFO]"), d.EncodingUsed)
	}
	if d.Lossy() {
		p.printf("%s %s\n", p.paint(warnStyle, "[WARN]"), d.Warning.Error())
	}
}

// Outcome prints the result of one conversion.
func (p *Printer) Outcome(out model.ConversionOutcome, err error) {
	switch {
	case err != nil:
		p.printf("%s %s\n", p.paint(errorStyle, "Error:"), err)
	case out.Skipped:
		p.printf("%s\n", p.paint(warnStyle, "Aborted by user. File not overwritten: "+out.DestPath))
	default:
		p.printf("%s Decoded %s as %s (confidence %s)\n",
			p.paint(infoStyle, "[INFO]"),
			p.paint(pathStyle, out.SourcePath),
			p.paint(warnStyle, out.Decode.EncodingUsed),
			FormatConfidence(out.Decode.Confidence),
		)
		p.decodeNotes(out.Decode)
		p.printf("%s Saved as %s (%s, %s)\n",
			p.paint(okStyle, "[OK]"),
			p.paint(pathStyle, out.DestPath),
			out.Target,
			FormatSize(int64(out.BytesWritten)),
		)
	}
}

// Conflicts lists existing outputs before asking to overwrite them.
func (p *Printer) Conflicts(paths []string) {
	p.printf("%s The following %d output file(s) already exist:\n", p.paint(errorStyle, "ERROR:"), len(paths))
	for _, path := range paths {
		p.printf("  - %s\n", path)
	}
}

// Batch prints a finished conversion batch.
func (p *Printer) Batch(res app.BatchResult, opts ShowOptions) {
	if res.Aborted {
		p.printf("%s\n", p.paint(warnStyle, "Aborted by user. No files were converted."))
		return
	}
	if len(res.Files) == 0 {
		p.noFiles(opts)
		return
	}
	p.printf("Processed %s file(s) with extension %s in %s\n",
		p.paint(warnStyle, fmt.Sprint(len(res.Files))),
		p.paint(sizeStyle, "."+strings.TrimPrefix(opts.Extension, ".")),
		p.paint(pathStyle, absPath(opts.Root)),
	)
	for _, f := range res.Files {
		p.Outcome(f.Outcome, f.Err)
	}
	p.printf("Batch conversion complete: %d converted, %d failed.\n", res.Total.FileCount, res.Total.Failed)
}

// Show prints the per-directory encoding listing with optional statistics.
func (p *Printer) Show(total model.GrandTotal, opts ShowOptions) {
	if len(total.Directories) == 0 {
		p.noFiles(opts)
		return
	}
	root := filepath.Clean(opts.Root)
	for _, dir := range total.Directories {
		if opts.Recursive || dir.Path != root {
			p.printf("\n%s %s\n", p.paint(headingStyle, "Directory:"), p.paint(pathStyle, absPath(dir.Path)))
		}
		p.showDirectory(dir, opts)
	}
	if opts.Stats && total.FileCount > 0 {
		p.printf("\n%s\n", p.paint(infoStyle, rule))
		p.printf("%s\n", p.paint(okStyle, fmt.Sprintf("Grand Total: %d file(s), Total cumulative size: %s", total.FileCount, FormatSize(total.TotalBytes))))
		if counts := stats.EncodingCounts(total); len(counts) > 0 {
			parts := make([]string, len(counts))
			for i, c := range counts {
				parts[i] = fmt.Sprintf("%s x%d (%s", c.Encoding, c.Files, FormatSize(c.Bytes))
				if c.Fallback > 0 {
					parts[i] += fmt.Sprintf(", %d via fallback", c.Fallback)
				}
				parts[i] += ")"
			}
			p.printf("%s\n", p.paint(mutedStyle, "Encodings: "+strings.Join(parts, ", ")))
		}
		p.printf("%s\n", p.paint(infoStyle, rule))
	}
}

func (p *Printer) showDirectory(dir model.DirectoryStats, opts ShowOptions) {
	rows := make([][]string, len(dir.Entries))
	for i, e := range dir.Entries {
		row := []string{filepath.Base(e.Path)}
		if e.Failed() {
			row = append(row, "error")
		} else {
			row = append(row, fmt.Sprintf("%s (%s)", e.EncodingUsed, FormatConfidence(e.Confidence)))
		}
		if opts.Stats && !e.Failed() {
			row = append(row, FormatSize(e.SizeBytes), e.CreatedAt.Format(dateLayout))
		}
		rows[i] = row
	}
	var widths []int
	if opts.Align {
		widths = columnWidths(nil, rows, 3)
	}
	cell := func(row []string, i int, right bool) string {
		if widths == nil {
			return row[i]
		}
		return padCell(row[i], widths[i], right)
	}

	for i, e := range dir.Entries {
		row := rows[i]
		line := "  -> " + p.paint(pathStyle, cell(row, 0, false)) + " | "
		if e.Failed() {
			line += p.paint(errorStyle, e.Err.Error())
			p.printf("%s\n", line)
			continue
		}
		line += p.paint(warnStyle, cell(row, 1, false))
		if opts.Stats {
			line += " | " + p.paint(sizeStyle, cell(row, 2, true)) + " | " + p.paint(mutedStyle, row[3])
		}
		p.printf("%s\n", strings.TrimRight(line, " "))
	}
	if opts.Stats && dir.FileCount > 0 {
		p.printf("%s\n", p.paint(warnStyle, fmt.Sprintf("--- Subtotal: %d file(s), Total size: %s ---", dir.FileCount, FormatSize(dir.TotalBytes))))
	}
}

// History prints recent runs and encoding tallies.
func (p *Printer) History(h stats.History) {
	if len(h.Runs) == 0 {
		p.printf("No history recorded yet.\n")
		return
	}
	rows := make([][]string, len(h.Runs))
	for i, r := range h.Runs {
		format := r.Format
		if format == "" {
			format = "-"
		}
		rows[i] = []string{
			shortID(r.ID),
			r.StartedAt.Local().Format(dateLayout),
			r.Mode,
			format,
			fmt.Sprint(r.Files),
			fmt.Sprint(r.Failed),
			r.Root,
		}
	}
	for i, line := range formatTable([]string{"ID", "Started", "Mode", "Format", "Files", "Failed", "Root"}, rows, map[int]bool{4: true, 5: true}) {
		if i == 0 {
			line = p.paint(mutedStyle, line)
		}
		p.printf("%s\n", line)
	}
	if len(h.Encodings) == 0 {
		return
	}
	p.printf("\n")
	encRows := make([][]string, len(h.Encodings))
	for i, c := range h.Encodings {
		encRows[i] = []string{c.Encoding, fmt.Sprint(c.Files)}
	}
	for i, line := range formatTable([]string{"Encoding", "Files"}, encRows, map[int]bool{1: true}) {
		if i == 0 {
			line = p.paint(mutedStyle, line)
		}
		p.printf("%s\n", line)
	}
}

// RunDetail prints the per-file outcomes of one recorded run.
func (p *Printer) RunDetail(d stats.RunDetail) {
	r := d.Run
	p.printf("Run %s  %s  %s  %s\n", r.ID, r.StartedAt.Local().Format(dateLayout), r.Mode, r.Root)
	if len(d.Outcomes) == 0 {
		p.printf("No files recorded.\n")
		return
	}
	rows := make([][]string, len(d.Outcomes))
	for i, o := range d.Outcomes {
		result := o.Dest
		if o.Error != "" {
			result = "error: " + o.Error
		}
		encoding := o.Encoding
		if o.Fallback {
			encoding += " *"
		}
		rows[i] = []string{o.Source, encoding, FormatConfidence(o.Confidence), FormatSize(int64(o.BytesWritten)), result}
	}
	for i, line := range formatTable([]string{"Source", "Encoding", "Conf", "Written", "Result"}, rows, map[int]bool{2: true, 3: true}) {
		if i == 0 {
			line = p.paint(mutedStyle, line)
		}
		p.printf("%s\n", line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Formats prints the supported target formats and their byte layout.
func (p *Printer) Formats(rows [][]string) {
	for i, line := range formatTable([]string{"Format", "Charset", "BOM"}, rows, nil) {
		if i == 0 {
			line = p.paint(mutedStyle, line)
		}
		p.printf("%s\n", line)
	}
}

func (p *Printer) noFiles(opts ShowOptions) {
	p.printf("No files found with extension .%s in %s\n", strings.TrimPrefix(opts.Extension, "."), absPath(opts.Root))
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

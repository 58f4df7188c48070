package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/txtconv/internal/app"
	"github.com/verte-zerg/txtconv/internal/model"
	"github.com/verte-zerg/txtconv/internal/stats"
	"github.com/verte-zerg/txtconv/internal/store"
)

var stamp = time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

func sampleTotal() model.GrandTotal {
	var total model.GrandTotal
	d := model.DirectoryStats{Path: "/data"}
	d.Add(model.StatsEntry{Path: "/data/a.txt", EncodingUsed: "utf-8", Confidence: 1, SizeBytes: 1024, CreatedAt: stamp})
	d.Add(model.StatsEntry{Path: "/data/bb.txt", EncodingUsed: "windows-1250", Confidence: 0.9, SizeBytes: 15360, CreatedAt: stamp, FallbackApplied: true})
	total.Add(d)
	return total
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:     "0 B",
		512:   "512 B",
		1024:  "1.0 KiB",
		15360: "15 KiB",
	}
	for n, want := range cases {
		if got := FormatSize(n); got != want {
			t.Fatalf("FormatSize(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestDetectReportsFallback(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Detect(model.ConversionOutcome{
		SourcePath: "note.txt",
		Decode:     model.DecodeResult{EncodingUsed: "windows-1250", Confidence: 0.42, FallbackApplied: true},
	})
	out := buf.String()
	if !strings.Contains(out, "[INFO] File 'note.txt' detected encoding: windows-1250 (confidence 42.0%)") {
		t.Fatalf("unexpected detect line: %q", out)
	}
	if !strings.Contains(out, "Used fallback 'windows-1250'") {
		t.Fatalf("expected fallback note, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no escape codes without color: %q", out)
	}
}

func TestOutcomeVariants(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Outcome(model.ConversionOutcome{}, errors.New("boom"))
	p.Outcome(model.ConversionOutcome{DestPath: "a_UTF8.txt", Skipped: true}, nil)
	p.Outcome(model.ConversionOutcome{
		SourcePath:   "a.txt",
		DestPath:     "a_UTF8.txt",
		Target:       "UTF8",
		BytesWritten: 4,
		Decode:       model.DecodeResult{EncodingUsed: "iso-8859-2", Confidence: 0.5},
	}, nil)
	if p.Err() != nil {
		t.Fatalf("unexpected write error: %v", p.Err())
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"Error: boom",
		"Aborted by user. File not overwritten: a_UTF8.txt",
		"[INFO] Decoded a.txt as iso-8859-2 (confidence 50.0%)",
		"[OK] Saved as a_UTF8.txt (UTF8, 4 B)",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestShowWithStats(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Show(sampleTotal(), ShowOptions{Root: "/data", Extension: "txt", Stats: true})
	out := buf.String()

	for _, want := range []string{
		"  -> a.txt | utf-8 (100.0%) | 1.0 KiB | 2024-03-09 14:05:00\n",
		"  -> bb.txt | windows-1250 (90.0%) | 15 KiB | 2024-03-09 14:05:00\n",
		"--- Subtotal: 2 file(s), Total size: 16 KiB ---\n",
		"Grand Total: 2 file(s), Total cumulative size: 16 KiB\n",
		"Encodings: utf-8 x1 (1.0 KiB), windows-1250 x1 (15 KiB, 1 via fallback)\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Directory:") {
		t.Fatalf("root heading should be omitted without recursion:\n%s", out)
	}
}

func TestShowAligned(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Show(sampleTotal(), ShowOptions{Root: "/data", Extension: "txt", Stats: true, Align: true, Recursive: true})
	out := buf.String()

	if !strings.Contains(out, "Directory: /data\n") {
		t.Fatalf("expected directory heading:\n%s", out)
	}
	if !strings.Contains(out, "  -> a.txt  | utf-8 (100.0%)       | 1.0 KiB | 2024-03-09 14:05:00\n") {
		t.Fatalf("expected aligned row:\n%s", out)
	}
	if !strings.Contains(out, "  -> bb.txt | windows-1250 (90.0%) |  15 KiB | 2024-03-09 14:05:00\n") {
		t.Fatalf("expected aligned row:\n%s", out)
	}
}

func TestShowWithoutStatsAndFailures(t *testing.T) {
	var total model.GrandTotal
	d := model.DirectoryStats{Path: "/data"}
	d.Add(model.StatsEntry{Path: "/data/a.txt", EncodingUsed: "ascii", Confidence: 1})
	d.Add(model.StatsEntry{Path: "/data/b.txt", Err: errors.New("permission denied")})
	total.Add(d)

	var buf bytes.Buffer
	New(&buf, false).Show(total, ShowOptions{Root: "/data", Extension: "txt"})
	want := "  -> a.txt | ascii (100.0%)\n  -> b.txt | permission denied\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestShowEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Show(model.GrandTotal{}, ShowOptions{Root: "/data", Extension: ".txt"})
	if buf.String() != "No files found with extension .txt in /data\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Batch(app.BatchResult{Aborted: true}, ShowOptions{Root: "/data", Extension: "txt"})
	if !strings.Contains(buf.String(), "No files were converted") {
		t.Fatalf("unexpected abort output %q", buf.String())
	}

	buf.Reset()
	res := app.BatchResult{
		Files: []app.FileResult{
			{Outcome: model.ConversionOutcome{SourcePath: "/data/a.txt", DestPath: "/data/a_UTF8.txt", Target: "UTF8"}},
			{Outcome: model.ConversionOutcome{SourcePath: "/data/b.txt"}, Err: errors.New("unreadable")},
		},
		Total: model.GrandTotal{FileCount: 1, Failed: 1},
	}
	p.Batch(res, ShowOptions{Root: "/data", Extension: "txt"})
	out := buf.String()
	if !strings.HasPrefix(out, "Processed 2 file(s) with extension .txt in /data\n") {
		t.Fatalf("unexpected header %q", out)
	}
	if !strings.HasSuffix(out, "Batch conversion complete: 1 converted, 1 failed.\n") {
		t.Fatalf("unexpected footer %q", out)
	}
}

func TestConflicts(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Conflicts([]string{"a_UTF8.txt", "b_UTF8.txt"})
	want := "ERROR: The following 2 output file(s) already exist:\n  - a_UTF8.txt\n  - b_UTF8.txt\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.History(stats.History{})
	if buf.String() != "No history recorded yet.\n" {
		t.Fatalf("unexpected empty history %q", buf.String())
	}

	buf.Reset()
	p.History(stats.History{
		Runs: []store.Run{
			{ID: "0f3c2a9e-1111-2222-3333-444455556666", StartedAt: stamp, Mode: "convert-batch", Root: "/data", Format: "UTF8", Files: 12, Failed: 1},
			{StartedAt: stamp, Mode: "detect-one", Root: "a.txt", Files: 1},
		},
		Encodings: []store.EncodingCount{{Encoding: "windows-1250", Files: 9}},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.HasSuffix(lines[0], "Root") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[2], "detect-one    -") {
		t.Fatalf("expected placeholder format, got %q", lines[2])
	}
	if !strings.HasPrefix(lines[1], "0f3c2a9e ") {
		t.Fatalf("expected short run id, got %q", lines[1])
	}
	if lines[4] != "Encoding     Files" || lines[5] != "windows-1250     9" {
		t.Fatalf("unexpected encoding table %q", lines[4:])
	}
}

func TestRunDetail(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).RunDetail(stats.RunDetail{
		Run: store.Run{ID: "run-1", StartedAt: stamp, Mode: "convert-batch", Root: "/data"},
		Outcomes: []store.Outcome{
			{Source: "/data/a.txt", Dest: "/data/a_UTF8.txt", Encoding: "windows-1250", Confidence: 0.5, Fallback: true, BytesWritten: 4},
			{Source: "/data/b.txt", Error: "unreadable"},
		},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "Run run-1 ") {
		t.Fatalf("unexpected heading %q", lines[0])
	}
	if !strings.Contains(lines[2], "windows-1250 *") || !strings.HasSuffix(lines[2], "/data/a_UTF8.txt") {
		t.Fatalf("unexpected outcome row %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "error: unreadable") {
		t.Fatalf("unexpected failed row %q", lines[3])
	}
}

func TestDetectReportsLossyDecode(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Detect(model.ConversionOutcome{
		SourcePath: "bin.dat",
		Decode: model.DecodeResult{
			EncodingUsed: "windows-1250",
			Warning:      &model.DecodeWarning{Used: "windows-1250", Tried: []string{"windows-1250", "ascii"}},
		},
	})
	if !strings.Contains(buf.String(), "[WARN] no encoding decoded cleanly (tried windows-1250, ascii)") {
		t.Fatalf("expected lossy warning, got %q", buf.String())
	}
}

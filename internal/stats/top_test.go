package stats

import (
	"errors"
	"testing"

	"github.com/verte-zerg/txtconv/internal/model"
)

func TestEncodingCounts(t *testing.T) {
	var total model.GrandTotal
	d := model.DirectoryStats{Path: "/d"}
	d.Add(model.StatsEntry{Path: "a", EncodingUsed: "utf-8", SizeBytes: 3})
	d.Add(model.StatsEntry{Path: "b", EncodingUsed: "windows-1250", SizeBytes: 5, FallbackApplied: true})
	d.Add(model.StatsEntry{Path: "c", EncodingUsed: "windows-1250", SizeBytes: 7})
	d.Add(model.StatsEntry{Path: "d", Err: errors.New("boom")})
	total.Add(d)
	e := model.DirectoryStats{Path: "/d/e"}
	e.Add(model.StatsEntry{Path: "e", EncodingUsed: "ascii", SizeBytes: 1})
	total.Add(e)

	counts := EncodingCounts(total)
	if len(counts) != 3 {
		t.Fatalf("expected 3 encodings, got %+v", counts)
	}
	if counts[0].Encoding != "windows-1250" || counts[0].Files != 2 || counts[0].Bytes != 12 || counts[0].Fallback != 1 {
		t.Fatalf("unexpected first count %+v", counts[0])
	}
	if counts[1].Encoding != "ascii" || counts[2].Encoding != "utf-8" {
		t.Fatalf("unexpected tie order: %+v", counts)
	}

	if total.Failed != 1 || total.FileCount != 4 || total.TotalBytes != 16 {
		t.Fatalf("unexpected totals %+v", total)
	}
}

// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"

	"github.com/verte-zerg/txtconv/internal/model"
)

// EncodingCount is how many files resolved to one encoding.
type EncodingCount struct {
	Encoding string
	Files    int
	Bytes    int64
	Fallback int
}

// EncodingCounts tallies the resolved encodings of a walk, most frequent
// first. Failed entries are skipped.
func EncodingCounts(total model.GrandTotal) []EncodingCount {
	byName := map[string]*EncodingCount{}
	for _, e := range total.Entries() {
		if e.Failed() {
			continue
		}
		c, ok := byName[e.EncodingUsed]
		if !ok {
			c = &EncodingCount{Encoding: e.EncodingUsed}
			byName[e.EncodingUsed] = c
		}
		c.Files++
		c.Bytes += e.SizeBytes
		if e.FallbackApplied {
			c.Fallback++
		}
	}
	items := make([]EncodingCount, 0, len(byName))
	for _, c := range byName {
		items = append(items, *c)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Files == items[j].Files {
			return items[i].Encoding < items[j].Encoding
		}
		return items[i].Files > items[j].Files
	})
	return items
}

package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/verte-zerg/txtconv/internal/store"
)

// History contains precomputed data for the history listing.
type History struct {
	Runs      []store.Run
	Encodings []store.EncodingCount
}

// BuildHistory loads the most recent runs and their encoding tallies.
func BuildHistory(ctx context.Context, st *store.Store, last int) (History, error) {
	runs, err := st.ListRuns(ctx, last)
	if err != nil {
		return History{}, err
	}
	counts, err := st.EncodingCounts(ctx, last)
	if err != nil {
		return History{}, err
	}
	return History{Runs: runs, Encodings: counts}, nil
}

// RunDetail is one run with its per-file outcomes.
type RunDetail struct {
	Run      store.Run
	Outcomes []store.Outcome
}

// BuildRunDetail loads the run whose id starts with prefix.
func BuildRunDetail(ctx context.Context, st *store.Store, prefix string) (RunDetail, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return RunDetail{}, fmt.Errorf("run id is empty")
	}
	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		return RunDetail{}, err
	}
	var match *store.Run
	for i := range runs {
		if !strings.HasPrefix(runs[i].ID, prefix) {
			continue
		}
		if match != nil {
			return RunDetail{}, fmt.Errorf("run id %q is ambiguous", prefix)
		}
		match = &runs[i]
	}
	if match == nil {
		return RunDetail{}, fmt.Errorf("no run matches %q", prefix)
	}
	outcomes, err := st.ListOutcomes(ctx, match.ID)
	if err != nil {
		return RunDetail{}, err
	}
	return RunDetail{Run: *match, Outcomes: outcomes}, nil
}

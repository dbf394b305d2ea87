// Package store persists comparison runs.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-compare/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Vendor string `json:"vendor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for comparison runs.
type Store interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// ListRuns returns run headers, newest first, without their analysis.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	DeleteRun(ctx context.Context, runID string) error

	Migrate(ctx context.Context) error
	Close() error
}

// NewRun builds a run record for an analysis of the given input artifact.
// Vendors lists the ranked vendors followed by any vendor that appears only
// on excluded plans, so every bidder in the input can be searched for.
func NewRun(input string, a *model.Analysis) *model.Run {
	run := &model.Run{
		ID:        uuid.New().String(),
		Input:     input,
		Vendors:   []string{},
		Winners:   []string{},
		Analysis:  a,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if a == nil {
		return run
	}
	seen := make(map[string]bool, len(a.Overall.Vendors))
	for _, v := range a.Overall.Vendors {
		run.Vendors = append(run.Vendors, v.Vendor)
		seen[v.Vendor] = true
	}
	var extra []string
	for _, x := range a.Excluded {
		if x.Vendor != "" && !seen[x.Vendor] {
			extra = append(extra, x.Vendor)
			seen[x.Vendor] = true
		}
	}
	sort.Strings(extra)
	run.Vendors = append(run.Vendors, extra...)
	run.Winners = append(run.Winners, a.Overall.Winners...)
	run.Tie = a.Overall.Tie
	return run
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}

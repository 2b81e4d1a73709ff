package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/errors"
)

// StatsOutput contains totals across every cached user.
type StatsOutput struct {
	Users   int `json:"users"`
	Folders int `json:"folders"`
	Photos  int `json:"photos"`
}

// Stats sums folder and photo counts over the cache. No durable reads.
func (e *Engine) Stats(ctx context.Context) (*StatsOutput, error) {
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("stats")
	}

	out := &StatsOutput{}
	for _, u := range e.dir.Snapshot() {
		out.Users++
		out.Folders += u.FolderCount
		out.Photos += u.PhotoCount
	}
	return out, nil
}

package tracker

import "context"

// Resolver computes the ordered set of commits strictly newer than a
// subscription's watermark.
type Resolver struct {
	source   Source
	lookback int // commits fetched per resolution, bounds stale-watermark scans
}

// NewResolver creates a delta resolver with the given lookback window.
func NewResolver(source Source, lookback int) *Resolver {
	return &Resolver{source: source, lookback: lookback}
}

// Resolve returns the commits newer than watermark, newest first.
//
// An empty watermark yields an empty delta: an uninitialized
// subscription must not trigger a backfill of unbounded history. If the
// watermark is not found within the lookback window (force-push,
// rotated history), everything fetched is returned.
func (r *Resolver) Resolve(ctx context.Context, owner, repo, branch, watermark string) ([]Commit, error) {
	if watermark == "" {
		return nil, nil
	}

	commits, err := r.source.ListCommits(ctx, owner, repo, branch, r.lookback)
	if err != nil {
		return nil, err
	}

	var delta []Commit
	for _, c := range commits {
		if c.SHA == watermark {
			break
		}
		delta = append(delta, c)
	}

	// Modified file lists are fetched only for commits that will
	// actually be reported.
	for i := range delta {
		if delta[i].Files != nil {
			continue
		}
		files, err := r.source.CommitFiles(ctx, owner, repo, delta[i].SHA)
		if err != nil {
			return nil, err
		}
		delta[i].Files = files
	}

	return delta, nil
}

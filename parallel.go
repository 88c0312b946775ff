package prismlate

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one document to translate as part of RunAll.
type Job struct {
	Name   string
	Source CandidateSource
	Run    *Run // Optional; a fresh run is created when nil
}

// JobResult is the outcome of a Job. Err holds a run-level failure such
// as ErrNoFields; per-field failures live in Result.
type JobResult struct {
	Name   string
	Result *RunResult
	Err    error
}

// RunAll translates independent documents concurrently, at most limit at
// a time. Each document is still processed field by field in order.
// Results are returned in job order. The returned error is non-nil only
// when ctx is cancelled.
func RunAll(ctx context.Context, r *Runner, jobs []Job, limit int) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	if len(jobs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = JobResult{Name: job.Name, Err: err}
				return nil
			}
			res, err := r.Translate(gctx, job.Run, job.Source, nil)
			results[i] = JobResult{Name: job.Name, Result: res, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results, ctx.Err()
}

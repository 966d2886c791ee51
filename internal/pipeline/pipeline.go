package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobsignal/internal/aggregate"
	"github.com/amishk599/jobsignal/internal/extract"
	"github.com/amishk599/jobsignal/internal/model"
	"github.com/amishk599/jobsignal/internal/notifier"
)

// snapshotChecker is implemented by stores that can tell whether today's
// snapshot already exists, letting a run skip the fetch entirely.
type snapshotChecker interface {
	HasSnapshot(ctx context.Context, date string) (bool, error)
}

// Result is the outcome of one analysis run.
type Result struct {
	State   *aggregate.State
	Fetched int
	Skipped int // records dropped for missing required fields
}

// Pipeline owns one analysis run: fetch → extract → aggregate, and for
// snapshot runs also persist → notify.
type Pipeline struct {
	source    model.JobSource
	extractor extract.Extractor
	store     model.SnapshotStore
	notifier  notifier.Notifier
	workers   int
	topN      int
	logger    *slog.Logger
	now       func() time.Time
}

// Options holds the optional parts of a Pipeline. A nil Store disables
// snapshots; a nil Notifier disables digests.
type Options struct {
	Store    model.SnapshotStore
	Notifier notifier.Notifier
	Workers  int
	TopN     int
}

// New creates a pipeline wired with all its dependencies.
func New(source model.JobSource, extractor extract.Extractor, opts Options, logger *slog.Logger) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		source:    source,
		extractor: extractor,
		store:     opts.Store,
		notifier:  opts.Notifier,
		workers:   workers,
		topN:      opts.TopN,
		logger:    logger,
		now:       time.Now,
	}
}

// Analyze fetches every listing and aggregates it. Records missing a required
// field are logged and skipped; any other failure aborts the run.
func (p *Pipeline) Analyze(ctx context.Context) (*Result, error) {
	start := p.now()

	records, err := p.source.FetchJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching listings: %w", err)
	}

	extractions, err := aggregate.ExtractAll(ctx, records, p.extractor, p.workers)
	if err != nil {
		return nil, fmt.Errorf("extracting terms: %w", err)
	}

	res := &Result{State: aggregate.NewState(), Fetched: len(records)}
	for i, rec := range records {
		err := res.State.Add(i, rec, extractions[i])
		var recErr *model.RecordError
		switch {
		case err == nil:
		case errors.As(err, &recErr):
			p.logger.Warn("skipping invalid listing", "index", recErr.Index, "id", recErr.ID, "field", recErr.Field)
			res.Skipped++
		default:
			return nil, err
		}
	}

	p.logger.Info("analyzed listings",
		"fetched", res.Fetched,
		"aggregated", res.State.Total,
		"skipped", res.Skipped,
		"duration", p.now().Sub(start).Round(time.Millisecond),
	)
	return res, nil
}

// Snapshot analyzes the market and stores today's snapshot. It returns
// saved=false without fetching when today is already recorded. A digest is
// sent only for newly saved snapshots; a failed digest is logged, not returned.
func (p *Pipeline) Snapshot(ctx context.Context) (saved bool, err error) {
	if p.store == nil {
		return false, errors.New("snapshot: no store configured")
	}
	date := p.now().Format(time.DateOnly)

	if c, ok := p.store.(snapshotChecker); ok {
		exists, err := c.HasSnapshot(ctx, date)
		if err != nil {
			return false, fmt.Errorf("snapshot %s: %w", date, err)
		}
		if exists {
			p.logger.Info("snapshot already taken today", "date", date)
			return false, nil
		}
	}

	res, err := p.Analyze(ctx)
	if err != nil {
		return false, fmt.Errorf("snapshot %s: %w", date, err)
	}

	snap := res.State.Snapshot(date)
	snap.CreatedAt = p.now()
	saved, err = p.store.SaveSnapshot(ctx, snap)
	if err != nil {
		return false, fmt.Errorf("snapshot %s: %w", date, err)
	}
	if !saved {
		p.logger.Info("snapshot already taken today", "date", date)
		return false, nil
	}
	p.logger.Info("snapshot saved", "date", date, "job_count", snap.JobCount)

	if p.notifier != nil {
		digest := notifier.NewDigest(date, res.State.Report(), p.topN)
		if err := p.notifier.Notify(ctx, digest); err != nil {
			p.logger.Error("digest notification failed", "date", date, "error", err)
		}
	}
	return true, nil
}

package notifier

import (
	"context"
	"time"

	"github.com/amishk599/jobsignal/internal/aggregate"
	"github.com/amishk599/jobsignal/internal/model"
)

// Notifier delivers a run digest somewhere a human will see it.
type Notifier interface {
	Notify(ctx context.Context, d Digest) error
}

// Digest summarises one analysis run.
type Digest struct {
	Date            string
	Total           int
	FullTime        int
	PartTime        int
	Remote          int
	OnSite          int
	TopTechnologies []aggregate.Count
	TopRoles        []aggregate.Count
	TopCompanies    []aggregate.Count
	Levels          []aggregate.Count
}

// NewDigest builds a digest from r keeping the topN entries of each ranking.
func NewDigest(date string, r aggregate.Report, topN int) Digest {
	return Digest{
		Date:            date,
		Total:           r.Total,
		FullTime:        r.FullTime,
		PartTime:        r.PartTime,
		Remote:          r.Remote,
		OnSite:          r.OnSite,
		TopTechnologies: aggregate.Top(r.Technologies, topN),
		TopRoles:        aggregate.Top(r.Roles, topN),
		TopCompanies:    aggregate.Top(r.Companies, topN),
		Levels:          r.Levels,
	}
}

// SendTestMessage sends a sample digest to verify the integration works.
func SendTestMessage(ctx context.Context, n Notifier) error {
	levels := make([]aggregate.Count, 0, len(model.Levels))
	for i, l := range model.Levels {
		levels = append(levels, aggregate.Count{Key: string(l), N: 3 - i%3})
	}
	return n.Notify(ctx, Digest{
		Date:            time.Now().Format(time.DateOnly),
		Total:           9,
		FullTime:        7,
		PartTime:        2,
		Remote:          4,
		OnSite:          5,
		TopTechnologies: []aggregate.Count{{Key: "Python", N: 4}, {Key: "Java", N: 3}},
		TopRoles:        []aggregate.Count{{Key: "Backend", N: 3}},
		TopCompanies:    []aggregate.Count{{Key: "jobsignal test", N: 9}},
		Levels:          levels,
	})
}

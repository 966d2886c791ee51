package notifier

import (
	"context"
	"log/slog"
)

// Ensure LogNotifier implements Notifier.
var _ Notifier = (*LogNotifier)(nil)

// LogNotifier writes the digest to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs the digest via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the headline counters and one line per top entry.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, d Digest) error {
	n.logger.Info("job market digest",
		"date", d.Date,
		"total", d.Total,
		"full_time", d.FullTime,
		"part_time", d.PartTime,
		"remote", d.Remote,
		"on_site", d.OnSite,
	)
	for _, c := range d.TopTechnologies {
		n.logger.Info("top technology", "term", c.Key, "count", c.N)
	}
	for _, c := range d.TopRoles {
		n.logger.Info("top role", "term", c.Key, "count", c.N)
	}
	for _, c := range d.Levels {
		n.logger.Info("level split", "name", c.Key, "count", c.N)
	}
	return nil
}

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/amishk599/jobsignal/internal/aggregate"
	"github.com/amishk599/jobsignal/internal/model"
)

// Width of the longest bar in a ranking.
const barWidth = 30

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252"))
)

// Options controls what Render prints.
type Options struct {
	TopN     int  // entries per ranking; 0 or less prints all
	ShowRows bool // include the per-listing table
}

// Render writes a human-readable report of r to w.
func Render(w io.Writer, r aggregate.Report, opts Options) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s job listings", humanize.Comma(int64(r.Total)))))
	b.WriteByte('\n')
	b.WriteString(mutedStyle.Render(fmt.Sprintf("full-time %s · part-time %s · remote %s · on-site %s",
		split(r.FullTime, r.Total), split(r.PartTime, r.Total), split(r.Remote, r.Total), split(r.OnSite, r.Total))))
	b.WriteByte('\n')

	writeRanking(&b, "Technologies", aggregate.Top(r.Technologies, topN(opts.TopN)))
	writeRanking(&b, "Roles", aggregate.Top(r.Roles, topN(opts.TopN)))
	writeRanking(&b, "Levels", r.Levels)
	writeRanking(&b, "Companies", aggregate.Top(r.Companies, topN(opts.TopN)))
	writeRanking(&b, "Locations", aggregate.Top(r.Locations, topN(opts.TopN)))

	if opts.ShowRows {
		writeRows(&b, r.Rows)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func topN(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

func split(n, total int) string {
	if total == 0 {
		return "0"
	}
	return fmt.Sprintf("%s (%d%%)", humanize.Comma(int64(n)), n*100/total)
}

func writeRanking(b *strings.Builder, title string, counts []aggregate.Count) {
	b.WriteString(sectionStyle.Render(title))
	b.WriteByte('\n')
	if len(counts) == 0 {
		b.WriteString(mutedStyle.Render("  (none)"))
		b.WriteByte('\n')
		return
	}

	keyWidth, maxN := 0, 0
	for _, c := range counts {
		keyWidth = max(keyWidth, lipgloss.Width(c.Key))
		maxN = max(maxN, c.N)
	}
	for _, c := range counts {
		bar := 0
		if maxN > 0 {
			bar = c.N * barWidth / maxN
		}
		if c.N > 0 && bar == 0 {
			bar = 1
		}
		fmt.Fprintf(b, "  %s  %s %s\n",
			lipgloss.NewStyle().Width(keyWidth).Render(c.Key),
			barStyle.Render(strings.Repeat("█", bar)),
			humanize.Comma(int64(c.N)),
		)
	}
}

func writeRows(b *strings.Builder, rows []aggregate.Row) {
	b.WriteString(sectionStyle.Render("Listings"))
	b.WriteByte('\n')
	if len(rows) == 0 {
		b.WriteString(mutedStyle.Render("  (no listings)"))
		b.WriteByte('\n')
		return
	}

	header := []string{"Title", "Company", "Date", "Type", "Remote", "Location", "Wage"}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		remote := "no"
		if r.Remote {
			remote = "yes"
		}
		cells = append(cells, []string{r.Title, r.Company, r.Date, r.JobType, remote, r.Location, r.Wage})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	pad := func(row []string) string {
		parts := make([]string, len(row))
		for i, c := range row {
			parts[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
		}
		return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
	}
	b.WriteString(tableHeaderStyle.Render(pad(header)))
	b.WriteByte('\n')
	for _, row := range cells {
		b.WriteString(pad(row))
		b.WriteByte('\n')
	}
}

// RenderHistory writes stored snapshots, newest first, with the day-over-day change.
func RenderHistory(w io.Writer, snaps []model.Snapshot, now time.Time) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Daily job counts"))
	b.WriteByte('\n')
	if len(snaps) == 0 {
		b.WriteString(mutedStyle.Render("  (no snapshots yet)"))
		b.WriteByte('\n')
	}
	for i, s := range snaps {
		delta := ""
		if i+1 < len(snaps) {
			d := s.JobCount - snaps[i+1].JobCount
			delta = fmt.Sprintf("%+d", d)
		}
		fmt.Fprintf(&b, "  %s  %7s  %6s  %s\n",
			s.Date,
			humanize.Comma(int64(s.JobCount)),
			delta,
			mutedStyle.Render("taken "+humanize.RelTime(s.CreatedAt, now, "ago", "from now")),
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

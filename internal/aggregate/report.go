package aggregate

import "github.com/amishk599/jobsignal/internal/model"

// Report is the finalized, serializable view of a State handed to
// presentation and storage.
type Report struct {
	Total        int     `json:"total"`
	FullTime     int     `json:"full_time"`
	PartTime     int     `json:"part_time"`
	Remote       int     `json:"remote"`
	OnSite       int     `json:"on_site"`
	Technologies []Count `json:"technologies"`
	Roles        []Count `json:"roles"`
	Levels       []Count `json:"levels"`
	Companies    []Count `json:"companies"`
	Locations    []Count `json:"locations"`
	Rows         []Row   `json:"rows"`
}

// Report snapshots the state's counters and rows.
func (s *State) Report() Report {
	return Report{
		Total:        s.Total,
		FullTime:     s.FullTime,
		PartTime:     s.PartTime,
		Remote:       s.Remote,
		OnSite:       s.OnSite,
		Technologies: s.TechCounts(),
		Roles:        s.RoleCounts(),
		Levels:       s.LevelCounts(),
		Companies:    s.CompanyCounts(),
		Locations:    s.LocationCounts(),
		Rows:         s.Rows(),
	}
}

// Snapshot converts the state into a dated snapshot for a SnapshotStore.
func (s *State) Snapshot(date string) model.Snapshot {
	snap := model.Snapshot{
		Date:     date,
		JobCount: s.Total,
		FullTime: s.FullTime,
		PartTime: s.PartTime,
		Remote:   s.Remote,
		OnSite:   s.OnSite,
	}
	add := func(kind string, counts []Count) {
		for _, c := range counts {
			snap.Terms = append(snap.Terms, model.TermCount{Kind: kind, Term: c.Key, Count: c.N})
		}
	}
	add("technology", s.TechCounts())
	add("role", s.RoleCounts())
	add("level", s.LevelCounts())
	add("company", s.CompanyCounts())
	add("location", s.LocationCounts())
	return snap
}

// Top returns at most n leading entries of counts.
func Top(counts []Count, n int) []Count {
	if n < 0 || len(counts) <= n {
		return counts
	}
	return counts[:n]
}

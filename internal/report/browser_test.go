package report

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobsignal/internal/aggregate"
	"github.com/amishk599/jobsignal/internal/model"
)

func browserReport() aggregate.Report {
	return aggregate.Report{
		Total:        3,
		Technologies: []aggregate.Count{{Key: "Python", N: 2}, {Key: "React", N: 1}},
		Roles:        []aggregate.Count{{Key: "Backend", N: 2}},
		Levels:       []aggregate.Count{{Key: "Senior", N: 2}, {Key: "Junior", N: 1}},
		Companies:    []aggregate.Count{{Key: "Acme", N: 2}, {Key: "Beta", N: 1}},
		Locations:    []aggregate.Count{{Key: "Lisboa", N: 3}, {Key: "Porto", N: 1}},
		Rows: []aggregate.Row{
			{Title: "Senior Python Dev", Company: "Acme", Location: "Lisboa, Porto", Level: model.LevelSenior,
				Technologies: []string{"Python"}, Roles: []string{"Backend"}, URL: "https://example.com/1"},
			{Title: "Senior Python Backend", Company: "Acme", Location: "Lisboa", Level: model.LevelSenior,
				Technologies: []string{"Python"}, Roles: []string{"Backend"}},
			{Title: "Junior React Dev", Company: "Beta", Location: "Lisboa", Level: model.LevelJunior,
				Technologies: []string{"React"}},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m browserModel, keys ...string) browserModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(browserModel)
	}
	return m
}

func newSizedBrowser(t *testing.T) browserModel {
	t.Helper()
	next, _ := newBrowserModel(browserReport()).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(browserModel)
}

func TestFilterRows(t *testing.T) {
	rows := browserReport().Rows
	tests := []struct {
		cat  category
		term string
		want int
	}{
		{catTechnologies, "", 3},
		{catTechnologies, "Python", 2},
		{catTechnologies, "Go", 0},
		{catRoles, "Backend", 2},
		{catLevels, "Junior", 1},
		{catCompanies, "Beta", 1},
		{catLocations, "Porto", 1},
		{catLocations, "Lisboa", 3},
	}
	for _, tt := range tests {
		if got := len(filterRows(rows, tt.cat, tt.term)); got != tt.want {
			t.Errorf("filterRows(%s, %q) = %d rows, want %d", tt.cat, tt.term, got, tt.want)
		}
	}
}

func TestBrowser_SelectTermFiltersListings(t *testing.T) {
	m := newSizedBrowser(t)

	// Cursor on "React", the second technology.
	m = press(t, m, "down", "enter")
	if m.filter != "React" || len(m.rows) != 1 {
		t.Fatalf("filter=%q rows=%d, want React/1", m.filter, len(m.rows))
	}

	// Selecting the same term again clears the filter.
	m = press(t, m, "enter")
	if m.filter != "" || len(m.rows) != 3 {
		t.Errorf("filter=%q rows=%d, want cleared", m.filter, len(m.rows))
	}
}

func TestBrowser_CycleCategoryResetsFilter(t *testing.T) {
	m := newSizedBrowser(t)
	m = press(t, m, "enter")
	if m.filter != "Python" {
		t.Fatalf("filter = %q, want Python", m.filter)
	}

	m = press(t, m, "c")
	if m.category != catRoles || m.filter != "" || len(m.rows) != 3 {
		t.Errorf("category=%s filter=%q rows=%d", m.category, m.filter, len(m.rows))
	}

	m = press(t, m, "c", "c", "c", "c")
	if m.category != catTechnologies {
		t.Errorf("category = %s, want wrap back to Technologies", m.category)
	}
}

func TestBrowser_DetailViewOpensURL(t *testing.T) {
	m := newSizedBrowser(t)
	var opened []string
	m.openURL = func(u string) { opened = append(opened, u) }

	m = press(t, m, "tab", "enter")
	if m.view != viewDetail || m.detailRow.Title != "Senior Python Dev" {
		t.Fatalf("view=%v row=%q", m.view, m.detailRow.Title)
	}
	m = press(t, m, "o", "esc")
	if len(opened) != 1 || opened[0] != "https://example.com/1" {
		t.Errorf("opened = %v", opened)
	}
	if m.view != viewList {
		t.Errorf("esc should return to the list view")
	}
}

func TestBrowser_CursorClamps(t *testing.T) {
	m := newSizedBrowser(t)
	m = press(t, m, "tab", "down", "down", "down", "down")
	if m.rowCursor != 2 {
		t.Errorf("rowCursor = %d, want 2", m.rowCursor)
	}
	m = press(t, m, "k", "k", "k", "k")
	if m.rowCursor != 0 {
		t.Errorf("rowCursor = %d, want 0", m.rowCursor)
	}
}

func TestRenderRowDetail(t *testing.T) {
	out := renderRowDetail(browserReport().Rows[0])
	for _, want := range []string{"Senior Python Dev", "Acme", "Python", "Backend", "https://example.com/1"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(renderRowDetail(browserReport().Rows[2]), "URL") {
		t.Error("row without URL should not render a URL field")
	}
}

func TestRenderCounts_Empty(t *testing.T) {
	if got := renderCounts(nil, 0, "", true); !strings.Contains(got, "(none)") {
		t.Errorf("renderCounts(nil) = %q", got)
	}
}

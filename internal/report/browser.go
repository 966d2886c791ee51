package report

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/amishk599/jobsignal/internal/aggregate"
)

// Lines per listing in the right pane (title + subtitle + blank separator).
const rowItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

type category int

const (
	catTechnologies category = iota
	catRoles
	catLevels
	catCompanies
	catLocations
	numCategories
)

func (c category) String() string {
	return [...]string{"Technologies", "Roles", "Levels", "Companies", "Locations"}[c]
}

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemStyle         = lipgloss.NewStyle().Bold(true)
	itemSubtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selectedItemStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(14)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)
)

type browserModel struct {
	report aggregate.Report

	category   category
	filter     string // selected term of category; "" shows every listing
	rows       []aggregate.Row
	activePane int // 0=ranking, 1=listings
	termCursor int
	rowCursor  int

	leftViewport  viewport.Model
	rightViewport viewport.Model
	width         int
	height        int
	ready         bool

	view           viewState
	detailRow      aggregate.Row
	detailViewport viewport.Model

	openURL func(string)
}

func newBrowserModel(r aggregate.Report) browserModel {
	return browserModel{report: r, rows: r.Rows, openURL: openURL}
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(renderRowDetail(m.detailRow))
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m browserModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
	case "c":
		m.category = (m.category + 1) % numCategories
		m.termCursor = 0
		m.setFilter("")
	case "esc":
		m.setFilter("")
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "enter":
		if m.activePane == 0 {
			counts := m.counts()
			if len(counts) > 0 {
				term := counts[m.termCursor].Key
				if term == m.filter {
					term = ""
				}
				m.setFilter(term)
			}
			break
		}
		if len(m.rows) > 0 {
			m.view = viewDetail
			m.detailRow = m.rows[m.rowCursor]
			m.detailViewport = viewport.New(m.width-4, m.height-4)
			m.detailViewport.SetContent(renderRowDetail(m.detailRow))
		}
		return m, nil
	default:
		// Forward other keys (pgup/pgdn/home/end) to the active viewport.
		var cmd tea.Cmd
		if m.activePane == 0 {
			m.leftViewport, cmd = m.leftViewport.Update(msg)
		} else {
			m.rightViewport, cmd = m.rightViewport.Update(msg)
		}
		return m, cmd
	}
	m.recalcContent()
	m.ensureCursorVisible()
	return m, nil
}

func (m browserModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if m.detailRow.URL != "" {
			m.openURL(m.detailRow.URL)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m browserModel) counts() []aggregate.Count {
	switch m.category {
	case catRoles:
		return m.report.Roles
	case catLevels:
		return m.report.Levels
	case catCompanies:
		return m.report.Companies
	case catLocations:
		return m.report.Locations
	default:
		return m.report.Technologies
	}
}

func (m *browserModel) setFilter(term string) {
	m.filter = term
	m.rows = filterRows(m.report.Rows, m.category, term)
	m.rowCursor = 0
}

// filterRows keeps the rows that carry term in category c.
func filterRows(rows []aggregate.Row, c category, term string) []aggregate.Row {
	if term == "" {
		return rows
	}
	var out []aggregate.Row
	for _, r := range rows {
		var ok bool
		switch c {
		case catTechnologies:
			ok = slices.Contains(r.Technologies, term)
		case catRoles:
			ok = slices.Contains(r.Roles, term)
		case catLevels:
			ok = string(r.Level) == term
		case catCompanies:
			ok = r.Company == term
		case catLocations:
			ok = slices.Contains(strings.Split(r.Location, ", "), term)
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

func (m *browserModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.termCursor = clamp(m.termCursor+delta, 0, max(len(m.counts())-1, 0))
	} else {
		m.rowCursor = clamp(m.rowCursor+delta, 0, max(len(m.rows)-1, 0))
	}
}

func (m *browserModel) ensureCursorVisible() {
	vp, top, height := &m.leftViewport, m.termCursor, 1
	if m.activePane == 1 {
		vp, top, height = &m.rightViewport, m.rowCursor*rowItemHeight, rowItemHeight
	}
	bottom := top + height - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m *browserModel) recalcLayout() {
	// Ranking pane takes a third; 2 border chars per pane + 1 gap.
	leftWidth := max((m.width-5)/3, 20)
	rightWidth := max(m.width-5-leftWidth, 20)
	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(leftWidth, paneHeight)
		m.rightViewport = viewport.New(rightWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width, m.leftViewport.Height = leftWidth, paneHeight
		m.rightViewport.Width, m.rightViewport.Height = rightWidth, paneHeight
	}
	m.recalcContent()
}

func (m *browserModel) recalcContent() {
	m.leftViewport.SetContent(renderCounts(m.counts(), m.termCursor, m.filter, m.activePane == 0))
	m.rightViewport.SetContent(renderRowList(m.rows, m.rowCursor, m.activePane == 1))
}

func (m browserModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		title := detailTitleStyle.Render("Listing")
		content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())
		status := statusBarStyle.Width(m.width).Render(" o open URL  esc/backspace back  ↑/↓ scroll  q quit")
		return title + "\n" + content + "\n" + status
	}

	leftHeader := fmt.Sprintf(" %s (%d)", m.category, len(m.counts()))
	rightHeader := fmt.Sprintf(" Listings (%s)", humanize.Comma(int64(len(m.rows))))
	if m.filter != "" {
		rightHeader = fmt.Sprintf(" Listings with %s (%s)", m.filter, humanize.Comma(int64(len(m.rows))))
	}

	leftH, rightH := inactiveHeaderStyle, activeHeaderStyle
	leftB, rightB := inactiveBorderStyle, activeBorderStyle
	if m.activePane == 0 {
		leftH, rightH = activeHeaderStyle, inactiveHeaderStyle
		leftB, rightB = activeBorderStyle, inactiveBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.leftViewport.Width+2).Render(leftH.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(m.rightViewport.Width+2).Render(rightH.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftB.Width(m.leftViewport.Width).Render(m.leftViewport.View()),
		" ",
		rightB.Width(m.rightViewport.Width).Render(m.rightViewport.View()),
	)
	status := statusBarStyle.Width(m.width).Render(fmt.Sprintf(
		" %s listings  Tab switch  c category  Enter filter/detail  Esc clear  q quit",
		humanize.Comma(int64(m.report.Total))))

	return headerRow + "\n" + panes + "\n" + status
}

func renderCounts(counts []aggregate.Count, cursor int, filter string, isActive bool) string {
	if len(counts) == 0 {
		return "  (none)"
	}
	var b strings.Builder
	for i, c := range counts {
		prefix := "  "
		if c.Key == filter {
			prefix = "* "
		}
		line := fmt.Sprintf("%s%s %s", prefix, c.Key, itemSubtitleStyle.Render(humanize.Comma(int64(c.N))))
		if isActive && i == cursor {
			line = selectedItemStyle.Render(fmt.Sprintf("> %s %s", c.Key, humanize.Comma(int64(c.N))))
		}
		b.WriteString(line)
		if i < len(counts)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderRowList(rows []aggregate.Row, cursor int, isActive bool) string {
	if len(rows) == 0 {
		return "  (no listings)"
	}
	var b strings.Builder
	for i, r := range rows {
		titleSt, subSt, prefix := itemStyle, itemSubtitleStyle, "  "
		if isActive && i == cursor {
			titleSt, subSt, prefix = selectedItemStyle, selectedSubtitleStyle, "> "
		}
		b.WriteString(prefix + titleSt.Render(r.Title) + "\n")
		b.WriteString(prefix + subSt.Render(fmt.Sprintf("%s · %s · %s", r.Company, r.Location, r.Date)) + "\n")
		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderRowDetail(r aggregate.Row) string {
	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label) + value + "\n")
	}
	remote := "no"
	if r.Remote {
		remote = "yes"
	}
	addField("Title", r.Title)
	addField("Company", r.Company)
	addField("Location", r.Location)
	addField("Date", r.Date)
	addField("Type", r.JobType)
	addField("Remote", remote)
	addField("Wage", r.Wage)
	b.WriteByte('\n')
	addField("Level", string(r.Level))
	addField("Technologies", strings.Join(r.Technologies, ", "))
	addField("Roles", strings.Join(r.Roles, ", "))
	if r.URL != "" {
		b.WriteByte('\n')
		addField("URL", r.URL)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunBrowser launches the interactive two-pane report browser.
func RunBrowser(r aggregate.Report) error {
	_, err := tea.NewProgram(newBrowserModel(r), tea.WithAltScreen()).Run()
	return err
}

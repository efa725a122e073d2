// Package board is a terminal view over a work item model: a scored table
// with type, state and area filters and a markdown detail pane.
package board

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/devboard/internal/workitem"
)

// LoadFunc fetches a fresh model.
type LoadFunc func(ctx context.Context) (*workitem.Model, error)

type loadedMsg struct {
	model *workitem.Model
}

type errMsg struct {
	err error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	filterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var columns = []table.Column{
	{Title: "ID", Width: 7},
	{Title: "Type", Width: 20},
	{Title: "State", Width: 12},
	{Title: "Score", Width: 5},
	{Title: "Parent", Width: 7},
	{Title: "Title", Width: 40},
	{Title: "Tags", Width: 24},
}

// Model is the bubbletea model of the board.
type Model struct {
	load  LoadFunc
	keys  KeyMap
	style string

	items *workitem.Model
	table table.Model

	typeIdx  int
	stateIdx int
	areaIdx  int

	detail  bool
	content string

	loading bool
	err     error
	width   int
	height  int
}

// New creates a board that fetches its data with load. style is the glamour
// style for the detail pane.
func New(load LoadFunc, style string) Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	return Model{
		load:    load,
		keys:    DefaultKeyMap,
		style:   style,
		table:   t,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.fetch()
}

func (m Model) fetch() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		model, err := load(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		return loadedMsg{model: model}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-6, 3))
		return m, nil

	case loadedMsg:
		m.loading = false
		m.err = nil
		m.items = msg.model
		m.typeIdx, m.stateIdx, m.areaIdx = 0, 0, 0
		m.applyFilter()
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case m.detail && key.Matches(msg, m.keys.Back, m.keys.Detail):
		m.detail = false
		return m, nil
	case m.detail:
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.fetch()
	}

	if m.items == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Detail):
		m.openDetail()
		return m, nil
	case key.Matches(msg, m.keys.CycleType):
		m.typeIdx = (m.typeIdx + 1) % (len(workitem.Types) + 1)
		m.applyFilter()
		return m, nil
	case key.Matches(msg, m.keys.CycleState):
		m.stateIdx = (m.stateIdx + 1) % (len(m.items.StateSet()) + 1)
		m.applyFilter()
		return m, nil
	case key.Matches(msg, m.keys.CycleArea):
		m.areaIdx = (m.areaIdx + 1) % (len(m.areas()) + 1)
		m.applyFilter()
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.typeIdx, m.stateIdx, m.areaIdx = 0, 0, 0
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// areas lists the area paths to cycle through: the configured ones, or the
// ones present on items when none were loaded.
func (m Model) areas() []string {
	if paths := m.items.AreaPaths(); len(paths) > 0 {
		return paths
	}
	seen := map[string]bool{}
	var out []string
	for _, item := range m.items.Items() {
		if item.AreaPath != "" && !seen[item.AreaPath] {
			seen[item.AreaPath] = true
			out = append(out, item.AreaPath)
		}
	}
	slices.Sort(out)
	return out
}

// Filter returns the filter the board currently applies.
func (m Model) Filter() workitem.FilterSpec {
	var spec workitem.FilterSpec
	if m.typeIdx > 0 {
		spec.WorkItemType = string(workitem.Types[m.typeIdx-1])
	}
	if m.items == nil {
		return spec
	}
	if states := m.items.StateSet(); m.stateIdx > 0 && m.stateIdx <= len(states) {
		spec.SelectedStates = []string{states[m.stateIdx-1]}
	}
	if areas := m.areas(); m.areaIdx > 0 && m.areaIdx <= len(areas) {
		spec.AreaPath = areas[m.areaIdx-1]
	}
	return spec
}

func (m *Model) applyFilter() {
	m.items.SetFilter(m.Filter())
	views := m.items.Views()
	rows := make([]table.Row, 0, len(views))
	for _, v := range views {
		parent := ""
		if v.ParentID != 0 {
			parent = strconv.Itoa(v.ParentID)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(v.ID),
			string(v.Type),
			v.State,
			strconv.Itoa(v.Score),
			parent,
			v.Title,
			strings.Join(workitem.StripCategoryTags(v.Tags), ", "),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Selected returns the id under the cursor.
func (m Model) Selected() (int, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(row[0])
	return id, err == nil
}

func (m *Model) openDetail() {
	id, ok := m.Selected()
	if !ok {
		return
	}
	v, ok := m.items.View(id)
	if !ok {
		return
	}
	md := Markdown(v)
	out, err := Render(md, m.style, m.width)
	if err != nil {
		out = md
	}
	m.content = out
	m.detail = true
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("devboard"))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case m.loading && m.items == nil:
		b.WriteString("Loading work items...\n")
		return b.String()
	}
	if m.items == nil {
		return b.String()
	}
	if m.detail {
		b.WriteString(m.content)
		b.WriteString(helpStyle.Render("esc back • q quit"))
		return b.String()
	}

	b.WriteString(filterStyle.Render(describeFilter(m.Filter())))
	b.WriteString("\n")
	if len(m.table.Rows()) == 0 {
		b.WriteString("No work items match the filter.\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d of %d items\n", len(m.table.Rows()), len(m.items.Items()))
	b.WriteString(helpStyle.Render(helpLine(m.keys)))
	return b.String()
}

func describeFilter(spec workitem.FilterSpec) string {
	if spec.Empty() {
		return "filter: none"
	}
	var parts []string
	if spec.WorkItemType != "" {
		parts = append(parts, "type="+spec.WorkItemType)
	}
	if len(spec.SelectedStates) > 0 {
		parts = append(parts, "state="+strings.Join(spec.SelectedStates, ","))
	}
	if spec.AreaPath != "" {
		parts = append(parts, "area="+spec.AreaPath)
	}
	return "filter: " + strings.Join(parts, " ")
}

func helpLine(k KeyMap) string {
	bindings := k.help()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

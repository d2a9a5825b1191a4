// Package tui provides the BubbleTea-based overlay stack inspector.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeHelp
)

// DefaultRefreshInterval is how often the stack is re-read.
const DefaultRefreshInterval = 500 * time.Millisecond

// Model is the main TUI model.
type Model struct {
	ctx     context.Context
	src     Source
	refresh time.Duration

	// Current mode
	mode Mode

	// Components
	list     list.Model
	viewport viewport.Model
	help     help.Model

	// State
	snap   Snapshot
	width  int
	height int
	ready  bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool
}

// entryItem wraps a stack entry for the list component.
type entryItem struct {
	entry Entry
}

func (i entryItem) Title() string {
	return i.entry.Name
}

func (i entryItem) Description() string {
	parts := []string{"[" + i.entry.Kind + "]"}
	if !i.entry.Attached {
		parts = append(parts, "detached")
	}
	if i.entry.Disabled {
		parts = append(parts, "disabled")
	}
	if i.entry.Focused {
		parts = append(parts, "focused")
	}
	if i.entry.External {
		parts = append(parts, "external")
	}
	b := i.entry.Bounds
	parts = append(parts, fmt.Sprintf("%dx%d at %d,%d", b.Dx(), b.Dy(), b.Min.X, b.Min.Y))
	return strings.Join(parts, " ")
}

func (i entryItem) FilterValue() string {
	return i.entry.Name + " " + i.entry.Kind
}

// entryDelegate dims entries that cannot receive input.
type entryDelegate struct {
	list.DefaultDelegate
}

func newEntryDelegate() entryDelegate {
	return entryDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

// Render renders a list item, graying out detached and disabled entries.
func (d entryDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ei, ok := item.(entryItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	isSelected := index == m.Index()
	inactive := !ei.entry.Attached || ei.entry.Disabled
	itemWidth := m.Width() - d.DefaultDelegate.Styles.NormalTitle.GetHorizontalPadding()

	titleStyle, descStyle := d.DefaultDelegate.Styles.NormalTitle, d.DefaultDelegate.Styles.NormalDesc
	if isSelected {
		titleStyle, descStyle = d.DefaultDelegate.Styles.SelectedTitle, d.DefaultDelegate.Styles.SelectedDesc
	}
	if inactive {
		titleStyle = titleStyle.Foreground(lipgloss.Color("8"))
		descStyle = descStyle.Foreground(lipgloss.Color("8"))
	}

	title := ei.Title()
	if ei.entry.Focused {
		title = "* " + title
	}
	if itemWidth > 0 && len(title) > itemWidth {
		title = title[:itemWidth-1] + "…"
	}
	desc := ei.Description()
	if itemWidth > 0 && len(desc) > itemWidth {
		desc = desc[:itemWidth-1] + "…"
	}

	fmt.Fprint(w, titleStyle.Render(title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

// New creates a new TUI model.
func New(ctx context.Context, src Source) Model {
	l := list.New(nil, newEntryDelegate(), 0, 0)
	l.Title = "Overlay Stack"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		ctx:     ctx,
		src:     src,
		refresh: DefaultRefreshInterval,
		mode:    ModeList,
		list:    l,
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch, m.tick())
}

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type tickMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

func (m Model) fetch() tea.Msg {
	snap, err := m.src.Snapshot(m.ctx)
	return snapshotMsg{snap: snap, err: err}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

// act runs a source command and reports its outcome in the status bar.
func (m Model) act(done string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(m.ctx); err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		return statusMsg{text: done}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch, m.tick())

	case snapshotMsg:
		if msg.err != nil {
			m.statusMsg = "Snapshot failed: " + msg.err.Error()
			m.statusErr = true
			return m, nil
		}
		m.snap = msg.snap
		m.list.SetItems(m.buildListItems())
		return m, nil

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Batch(m.fetch, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		}))

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModeDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeDetail, ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
			return m, nil
		}
		if m.mode == ModeDetail {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item, selected := m.list.SelectedItem().(entryItem)
	name := item.entry.Name

	switch {
	case key.Matches(msg, m.keys.Enter):
		if selected {
			m.mode = ModeDetail
			m.viewport.SetContent(m.renderDetail(item.entry))
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Attach):
		if selected {
			return m, m.act("Attached "+name, func(ctx context.Context) error { return m.src.Attach(ctx, name) })
		}
		return m, nil

	case key.Matches(msg, m.keys.Detach):
		if selected {
			return m, m.act("Detached "+name, func(ctx context.Context) error { return m.src.Detach(ctx, name) })
		}
		return m, nil

	case key.Matches(msg, m.keys.Raise):
		if selected {
			return m, m.act("Raised "+name, func(ctx context.Context) error { return m.src.Raise(ctx, name) })
		}
		return m, nil

	case key.Matches(msg, m.keys.External):
		if selected {
			return m, m.act("Toggled "+name, func(ctx context.Context) error { return m.src.ToggleExternal(ctx, name) })
		}
		return m, nil

	case key.Matches(msg, m.keys.Frame):
		return m, m.act("Frame rendered", m.src.Frame)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch

	case key.Matches(msg, m.keys.Dump):
		data, err := yaml.Marshal(m.snap)
		if err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: "Failed to marshal YAML: " + err.Error(), isErr: true}
			}
		}
		m.mode = ModeDetail
		m.viewport.SetContent(string(data))
		m.viewport.GotoTop()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) buildListItems() []list.Item {
	items := make([]list.Item, len(m.snap.Stack))
	for i, e := range m.snap.Stack {
		items[i] = entryItem{entry: e}
	}
	return items
}

// renderDetail renders the detail view for an entry.
func (m Model) renderDetail(e Entry) string {
	var s string

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	s += headerStyle.Render(e.Name) + "\n\n"

	s += labelStyle.Render("Kind: ") + e.Kind + "\n"
	if e.ID != "" {
		s += labelStyle.Render("ID: ") + e.ID + "\n"
	}
	s += labelStyle.Render("Bounds: ") + e.Bounds.String() + "\n"
	s += labelStyle.Render("Attached: ") + fmt.Sprint(e.Attached)
	if !e.AttachedAt.IsZero() {
		s += " (" + humanize.Time(e.AttachedAt) + ")"
	}
	s += "\n"
	s += labelStyle.Render("Disabled: ") + fmt.Sprint(e.Disabled) + "\n"
	s += labelStyle.Render("Focused: ") + fmt.Sprint(e.Focused) + "\n"
	s += labelStyle.Render("External: ") + fmt.Sprint(e.External) + "\n"

	s += "\n" + labelStyle.Render("Manager:") + "\n"
	s += fmt.Sprintf("  Attached surfaces: %d\n", m.snap.Stats.Attached)
	s += fmt.Sprintf("  Reconciliation passes: %s\n", humanize.Comma(int64(m.snap.Stats.Passes)))
	s += fmt.Sprintf("  Suppressed notifications: %s\n", humanize.Comma(int64(m.snap.Stats.Suppressed)))
	s += fmt.Sprintf("  Frame: v%d, %s\n", m.snap.FrameVersion, humanize.Bytes(uint64(m.snap.FrameBytes)))

	return s
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeDetail:
		return m.viewDetail()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

func (m Model) viewList() string {
	s := m.list.View()

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else {
		s += "\n" + m.buildKeybindBar(m.width, "list")
	}

	return s
}

func (m Model) viewDetail() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	header := headerStyle.Render("Surface Detail")

	return header + "\n" + m.viewport.View() + "\n" + m.buildKeybindBar(m.width, "detail")
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp())
	s += "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? or esc to return")

	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "list" or "detail".
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "list":
		binds = []keybind{
			{"q", "quit", 1},
			{"enter", "view", 2},
			{"?", "help", 3},
			{"a", "attach", 4},
			{"d", "detach", 5},
			{"r", "raise", 6},
			{"x", "external", 7},
			{"f", "frame", 8},
			{"y", "yaml", 9},
		}
	case "detail":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"j/k", "scroll", 3},
		}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		plainItem := b.key + " " + b.desc
		testLen := len(result) + len(separator) + len(plainItem)
		if result != "" {
			testLen = len(stripANSI(result)) + len(separator) + len(plainItem)
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return style.Render(result)
}

// stripANSI removes ANSI escape codes for length calculation.
func stripANSI(s string) string {
	result := make([]byte, 0, len(s))
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result = append(result, s[i])
	}
	return string(result)
}

// Run starts the inspector on src until the user quits or ctx is done.
func Run(ctx context.Context, src Source) error {
	p := tea.NewProgram(New(ctx, src), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/inventory"
)

// hostItem implements list.Item for an inventory record.
type hostItem struct {
	host inventory.HostRecord
}

func (i hostItem) Title() string {
	return i.host.DisplayName()
}

func (i hostItem) Description() string {
	parts := []string{i.host.ID, i.host.State}
	if i.host.Region != "" {
		parts = append(parts, i.host.Region)
	}
	if addr := i.host.PublicAddr; addr != "" {
		parts = append(parts, addr)
	} else if i.host.PrivateAddr != "" {
		parts = append(parts, i.host.PrivateAddr+" (private)")
	}
	return strings.Join(parts, " | ")
}

func (i hostItem) FilterValue() string {
	// Searchable by name, instance ID and region.
	return strings.Join([]string{i.host.Name, i.host.ID, i.host.Region}, " ")
}

// HostPickerModel is a Bubble Tea model for selecting an inventory host.
type HostPickerModel struct {
	list     list.Model
	selected *inventory.HostRecord
	quitting bool
}

type pickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var pickerKeys = pickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "connect"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewHostPickerModel creates a picker over the given hosts.
func NewHostPickerModel(hosts []inventory.HostRecord) HostPickerModel {
	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = hostItem{host: h}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color(string(ColorPrimary))).
		BorderForeground(lipgloss.Color(string(ColorSecondary)))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color(string(ColorMuted)))

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select a host"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color(string(ColorPrimary))).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorMuted)))

	return HostPickerModel{list: l}
}

// Init implements tea.Model.
func (m HostPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HostPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Filtering owns the keyboard while active.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, pickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				host := item.host
				m.selected = &host
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, pickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HostPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the chosen host, or nil if cancelled.
func (m HostPickerModel) Selected() *inventory.HostRecord {
	return m.selected
}

// PickHost displays an interactive picker and returns the selected host.
// Returns nil without error if the user cancels.
func PickHost(hosts []inventory.HostRecord) (*inventory.HostRecord, error) {
	return PickHostWithIO(hosts, os.Stdout, os.Stdin)
}

// PickHostWithIO displays the picker using custom I/O streams.
func PickHostWithIO(hosts []inventory.HostRecord, output io.Writer, input io.Reader) (*inventory.HostRecord, error) {
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrCache, "No hosts to pick from",
			"Run 'hop list --refresh' to fetch the inventory.")
	}

	if len(hosts) == 1 {
		return &hosts[0], nil
	}

	model := NewHostPickerModel(hosts)
	p := tea.NewProgram(model, tea.WithOutput(output), tea.WithInput(input))

	finalModel, err := p.Run()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH, "Host picker failed",
			"Pass the host name or instance ID directly instead.")
	}

	if m, ok := finalModel.(HostPickerModel); ok {
		return m.Selected(), nil
	}
	return nil, nil
}

// IsTerminal reports whether the file is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

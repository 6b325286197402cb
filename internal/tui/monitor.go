package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/discovery"
	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/protocol"
	"github.com/muurk/devmon/internal/ui"
)

// Source is what the monitor needs from the discovery service
type Source interface {
	Devices() []protocol.DeviceRecord
	Discover() error
	Clear()
	Subscribe(buffer int) (<-chan discovery.Event, func())
}

// Messages for async operations
type deviceEventMsg struct{ event discovery.Event }
type eventsClosedMsg struct{}
type discoverResultMsg struct{ err error }
type openResultMsg struct {
	url string
	err error
}
type copyResultMsg struct {
	url string
	err error
}
type tickMsg time.Time

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Discover key.Binding
	Clear    key.Binding
	Open     key.Binding
	Copy     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Discover, k.Clear, k.Open, k.Copy, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Copy},
		{k.Discover, k.Clear, k.Quit},
	}
}

func newMonitorKeyMap() monitorKeyMap {
	return monitorKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Discover: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "discover"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "o"),
			key.WithHelp("enter", "open"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy url"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// deviceItem wraps a DeviceRecord for use with bubbles/list
type deviceItem struct {
	device protocol.DeviceRecord
}

func (d deviceItem) FilterValue() string {
	return d.device.IP + " " + d.device.MACString()
}

// Column widths for the device rows, matching ui.DeviceColumns
var columnWidths = []int{4, 16, 18, 9, 9, 10}

func formatColumns(cells []string) string {
	var b strings.Builder
	for i, c := range cells {
		if i < len(columnWidths) {
			b.WriteString(fmt.Sprintf("%-*s", columnWidths[i], c))
			continue
		}
		b.WriteString(c)
	}
	return strings.TrimRight(b.String(), " ")
}

// deviceDelegate renders one device per line
type deviceDelegate struct{}

func (d deviceDelegate) Height() int { return 1 }

func (d deviceDelegate) Spacing() int { return 0 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}

	row := formatColumns(ui.DeviceRow(di.device, time.Now()))
	if index == m.Index() {
		fmt.Fprint(w, SelectedRowStyle.Render("→ "+row))
		return
	}
	fmt.Fprint(w, RowStyle.Render("  "+row))
}

// MonitorOption customises a MonitorModel
type MonitorOption func(*MonitorModel)

// WithOpener replaces the function used to open a device page
func WithOpener(fn func(url string) error) MonitorOption {
	return func(m *MonitorModel) { m.openURL = fn }
}

// WithClipboard replaces the function used to copy a device URL
func WithClipboard(fn func(text string) error) MonitorOption {
	return func(m *MonitorModel) { m.copyText = fn }
}

// MonitorModel is the live device table. It subscribes to the registry on
// creation and redraws on every change.
type MonitorModel struct {
	source      Source
	events      <-chan discovery.Event
	unsubscribe func()

	DeviceList list.Model
	Help       help.Model
	Keys       monitorKeyMap

	Width  int
	Height int

	status      string
	statusIsErr bool

	openURL  func(url string) error
	copyText func(text string) error
}

// NewMonitorModel creates the monitor for src. The subscription is taken
// before the initial snapshot so no change is missed.
func NewMonitorModel(src Source, opts ...MonitorOption) MonitorModel {
	events, unsubscribe := src.Subscribe(0)

	deviceList := list.New([]list.Item{}, deviceDelegate{}, 0, 0)
	deviceList.SetShowTitle(false)
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(false)
	deviceList.SetShowHelp(false)

	m := MonitorModel{
		source:      src,
		events:      events,
		unsubscribe: unsubscribe,
		DeviceList:  deviceList,
		Help:        help.New(),
		Keys:        newMonitorKeyMap(),
		openURL:     OpenBrowser,
		copyText:    clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.setDevices(src.Devices())
	return m
}

// Init starts listening for registry events and the age ticker
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tick())
}

// Close releases the registry subscription. Safe to call more than once.
func (m MonitorModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Update handles messages and updates the model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width - 6
		m.DeviceList.SetWidth(msg.Width - 6)
		m.DeviceList.SetHeight(ListHeight(msg.Height))

	case deviceEventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.events = nil

	case discoverResultMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Discovery failed: %v", msg.err), true)
		} else {
			m.setStatus("Discovery request sent", false)
		}

	case openResultMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Could not open %s: %v", msg.url, msg.err), true)
		} else {
			m.setStatus("Opened "+msg.url, false)
		}

	case copyResultMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Copy failed: %v", msg.err), true)
		} else {
			m.setStatus("Copied "+msg.url, false)
		}

	case tickMsg:
		// Redraw so the last-seen ages advance
		return m, tick()
	}

	return m, nil
}

func (m MonitorModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Discover):
		src := m.source
		m.setStatus("Sending discovery request...", false)
		return m, func() tea.Msg { return discoverResultMsg{err: src.Discover()} }

	case key.Matches(msg, m.Keys.Clear):
		m.source.Clear()
		m.setDevices(nil)
		m.setStatus("Device list cleared", false)
		return m, nil

	case key.Matches(msg, m.Keys.Open):
		dev, ok := m.SelectedDevice()
		if !ok {
			return m, nil
		}
		url, open := dev.URL(), m.openURL
		return m, func() tea.Msg { return openResultMsg{url: url, err: open(url)} }

	case key.Matches(msg, m.Keys.Copy):
		dev, ok := m.SelectedDevice()
		if !ok {
			return m, nil
		}
		url, copyText := dev.URL(), m.copyText
		return m, func() tea.Msg { return copyResultMsg{url: url, err: copyText(url)} }

	case key.Matches(msg, m.Keys.Up, m.Keys.Down):
		m.DeviceList, cmd = m.DeviceList.Update(msg)
	}

	return m, cmd
}

// applyEvent refreshes the list from the source, keeping the selected device
func (m *MonitorModel) applyEvent(evt discovery.Event) {
	logging.Debug("Monitor received registry event",
		zap.String("event", evt.Type.String()),
		zap.String("ip", evt.Device.IP),
	)
	if evt.Type == discovery.EventCleared {
		m.setDevices(nil)
		return
	}
	m.setDevices(m.source.Devices())
}

func (m *MonitorModel) setDevices(devices []protocol.DeviceRecord) {
	selected, hadSelection := m.SelectedDevice()

	items := make([]list.Item, len(devices))
	index := 0
	for i, d := range devices {
		items[i] = deviceItem{device: d}
		if hadSelection && d.IP == selected.IP {
			index = i
		}
	}
	m.DeviceList.SetItems(items)
	if len(items) > 0 {
		m.DeviceList.Select(index)
	}
}

func (m *MonitorModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusIsErr = isErr
}

// SelectedDevice returns the highlighted device, if any
func (m MonitorModel) SelectedDevice() (protocol.DeviceRecord, bool) {
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device, true
	}
	return protocol.DeviceRecord{}, false
}

// Status returns the current status line text
func (m MonitorModel) Status() string {
	return m.status
}

// View renders the monitor screen
func (m MonitorModel) View() string {
	var b strings.Builder

	if len(m.DeviceList.Items()) == 0 {
		b.WriteString(EmptyStateStyle.Render("No devices yet. Press g to broadcast a discovery request."))
	} else {
		b.WriteString(ColumnHeaderStyle.Render("  " + formatColumns(ui.DeviceColumns)))
		b.WriteString("\n")
		b.WriteString(m.DeviceList.View())
	}

	content := lipgloss.JoinVertical(lipgloss.Left, b.String(), "", m.renderStatus())
	summary := fmt.Sprintf("%d device(s)", len(m.DeviceList.Items()))

	return RenderApplicationContainer(content, summary, m.Help.View(m.Keys), m.Width, m.Height)
}

func (m MonitorModel) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusIsErr {
		return StatusErrorStyle.Render("✗ " + m.status)
	}
	return StatusOKStyle.Render("✓ " + m.status)
}

// waitForEvent blocks on the subscription and turns the next event into a message
func waitForEvent(ch <-chan discovery.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return deviceEventMsg{event: evt}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

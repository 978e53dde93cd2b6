// package ui implements the terminal catalog browser.
//
// The browser is a two-level view: the organization's tracks, and the split
// sheet for one selected track with running totals per rights category.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/splits"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	SplitsView
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track *models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Status
	if desc == "" {
		desc = "no status"
	}
	if i.track.ISRC != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.ISRC)
	}
	return desc
}

type tracksLoadedMsg struct {
	tracks []*models.Track
	err    error
}

type trackLoadedMsg struct {
	track *models.Track
	err   error
}

// Model represents the TUI application state.
type Model struct {
	view           ViewState
	organizationID string
	tracks         *repositories.TrackRepository
	width          int
	height         int
	trackList      list.Model
	selected       *models.Track
	err            error
	help           help.Model
	keys           keyMap
}

// NewModel creates a catalog browser over the track repository.
func NewModel(tracks *repositories.TrackRepository, organizationID string) *Model {
	return &Model{
		view:           TrackListView,
		organizationID: organizationID,
		tracks:         tracks,
		help:           help.New(),
		keys:           newKeyMap(),
	}
}

// Init loads the track list.
func (m *Model) Init() tea.Cmd {
	return m.loadTracks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case SplitsView:
			return m.handleSplitsKeys(msg)
		}

	case tracksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = "Catalog"
		m.trackList.SetSize(m.width-4, m.height-8)
		return m, nil

	case trackLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = TrackListView
			return m, nil
		}
		m.selected = msg.track
		m.view = SplitsView
		return m, nil
	}

	if m.view == TrackListView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case TrackListView:
		return m.renderTrackList()
	case SplitsView:
		return m.renderSplits()
	default:
		return ""
	}
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.loadTracks()
	case "enter":
		selected := m.trackList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(trackItem); ok {
				return m, m.loadTrack(item.track.ID)
			}
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleSplitsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TrackListView
		m.selected = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) loadTracks() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.tracks.List(map[string]any{"organization_id": m.organizationID})
		return tracksLoadedMsg{tracks: tracks, err: err}
	}
}

func (m *Model) loadTrack(id string) tea.Cmd {
	return func() tea.Msg {
		track, err := m.tracks.Get(id)
		return trackLoadedMsg{track: track, err: err}
	}
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderSplits() string {
	title := styles.title.Render(fmt.Sprintf("Splits for '%s'", m.selected.Title))

	body := ""
	if len(m.selected.Collaborators) == 0 {
		body = styles.warn.Render("No split rows on this track.")
	} else {
		for _, row := range m.selected.Collaborators {
			name := row.CollaboratorName
			if name == "" {
				name = row.CollaboratorID
			}
			body += fmt.Sprintf("  %-28s %-10s SW %6.2f  PUB %6.2f  MST %6.2f\n",
				name, row.Role, row.SongwritingSplit, row.PublishingSplit, row.MasterSplit)
		}
	}

	sheet := splits.NewSheet(m.selected)
	totals := "\n"
	for _, total := range sheet.Totals() {
		line := fmt.Sprintf("  %-12s %6.2f%%", total.Category, total.Sum)
		if total.Balance == splits.BalanceExact {
			totals += styles.ok.Render(line) + "\n"
		} else {
			totals += styles.warn.Render(fmt.Sprintf("%s (%s)", line, total.Balance)) + "\n"
		}
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n%s", title, body, totals, helpView)
}

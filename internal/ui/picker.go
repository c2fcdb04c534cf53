// Package ui implements the interactive album picker for the write flow.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tapdeck/tapdeck/internal/spotify"
)

var _ list.Item = albumItem{}

// albumItem wraps [spotify.Album] to implement [list.Item].
type albumItem struct {
	album spotify.Album
}

func (i albumItem) FilterValue() string { return i.album.Name }
func (i albumItem) Title() string       { return i.album.Name }
func (i albumItem) Description() string {
	desc := i.album.ArtistNames()
	if i.album.ReleaseDate != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.album.ReleaseDate)
	}
	return desc
}

// keyMap defines the key bindings for the picker.
type keyMap struct {
	enter key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PickerModel is the bubbletea model for album selection.
type PickerModel struct {
	albumList list.Model
	keys      keyMap
	choice    *spotify.Album
	quitting  bool
}

// NewPicker creates a picker over the given search results.
func NewPicker(albums []spotify.Album) PickerModel {
	items := make([]list.Item, len(albums))
	for i, album := range albums {
		items[i] = albumItem{album: album}
	}

	delegate := list.NewDefaultDelegate()
	albumList := list.New(items, delegate, 0, 14)
	albumList.Title = "Select an album to write"
	albumList.Styles.Title = styles.title
	albumList.SetShowStatusBar(false)

	return PickerModel{
		albumList: albumList,
		keys:      newKeyMap(),
	}
}

func (m PickerModel) Init() tea.Cmd {
	return nil
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.albumList.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.albumList.SelectedItem().(albumItem); ok {
				album := item.album
				m.choice = &album
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.albumList, cmd = m.albumList.Update(msg)
	return m, cmd
}

func (m PickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.albumList.View()
}

// Choice returns the selected album, or nil when the picker was
// dismissed without a selection.
func (m PickerModel) Choice() *spotify.Album {
	return m.choice
}

// PickAlbum runs the interactive picker and returns the selection.
// A nil album with a nil error means the operator cancelled.
func PickAlbum(albums []spotify.Album) (*spotify.Album, error) {
	program := tea.NewProgram(NewPicker(albums))

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("album picker failed: %w", err)
	}

	model, ok := final.(PickerModel)
	if !ok {
		return nil, fmt.Errorf("unexpected picker model type")
	}

	return model.Choice(), nil
}

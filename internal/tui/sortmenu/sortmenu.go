// ABOUTME: Sort field selection for the product table
// ABOUTME: A huh select over the catalog fields embedded as a bubbletea model

package sortmenu

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/markalston/catalog-browser/internal/catalog"
	"github.com/markalston/catalog-browser/internal/tui/icons"
	"github.com/markalston/catalog-browser/internal/tui/styles"
)

// SelectedMsg is sent when a field is chosen
type SelectedMsg struct {
	Field catalog.Field
}

// CancelledMsg is sent when the menu is dismissed with esc
type CancelledMsg struct{}

// Menu lets the user pick the field to sort by.
type Menu struct {
	form     *huh.Form
	selected catalog.Field
	done     bool
}

// New creates a menu with current preselected.
func New(current catalog.Field) *Menu {
	m := &Menu{selected: current}

	options := make([]huh.Option[catalog.Field], 0, len(catalog.Fields()))
	for _, f := range catalog.Fields() {
		options = append(options, huh.NewOption(f.Label(), f))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[catalog.Field]().
				Title(icons.Sort.String()+" Sort by").
				Description("Use ↑/↓ to select, Enter to confirm").
				Options(options...).
				Value(&m.selected),
		),
	).WithTheme(styles.FormTheme()).WithShowHelp(false)
	return m
}

// Selected returns the highlighted field.
func (m *Menu) Selected() catalog.Field {
	return m.selected
}

// Init implements tea.Model
func (m *Menu) Init() tea.Cmd {
	return m.form.Init()
}

// Update implements tea.Model
func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	if m.done {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.done = true
		field := m.selected
		return m, func() tea.Msg { return SelectedMsg{Field: field} }
	}
	return m, cmd
}

// View implements tea.Model
func (m *Menu) View() string {
	return m.form.View()
}

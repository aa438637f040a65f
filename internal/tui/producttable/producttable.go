// ABOUTME: Product table component rendering the catalog view
// ABOUTME: Projects products onto a bubbles table sized to the terminal

package producttable

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/catalog-browser/internal/catalog"
	"github.com/markalston/catalog-browser/internal/tui/styles"
)

// Minimum column widths, in field order.
var minWidths = map[catalog.Field]int{
	catalog.FieldID:       4,
	catalog.FieldName:     12,
	catalog.FieldCompany:  10,
	catalog.FieldWebsite:  10,
	catalog.FieldCategory: 8,
	catalog.FieldAddress:  10,
}

// Share of the remaining width each column takes.
var weights = map[catalog.Field]int{
	catalog.FieldID:       0,
	catalog.FieldName:     3,
	catalog.FieldCompany:  2,
	catalog.FieldWebsite:  2,
	catalog.FieldCategory: 1,
	catalog.FieldAddress:  3,
}

// Table displays products.
type Table struct {
	model    table.Model
	products []catalog.Product
	width    int
	height   int
}

// New creates an empty table of the given size.
func New(width, height int) *Table {
	t := &Table{
		model: table.New(
			table.WithColumns(Columns(width)),
			table.WithFocused(true),
			table.WithStyles(styles.TableStyles()),
		),
	}
	t.SetSize(width, height)
	return t
}

// SetProducts replaces the displayed rows.
func (t *Table) SetProducts(products []catalog.Product) {
	t.products = products
	t.model.SetRows(Rows(products))
	if t.model.Cursor() >= len(products) {
		t.model.SetCursor(0)
	}
}

// SetSize updates the table dimensions
func (t *Table) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.model.SetColumns(Columns(width))
	t.model.SetWidth(width)
	// Header row and its border take two lines
	if h := height - 2; h > 0 {
		t.model.SetHeight(h)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.products)
}

// Selected returns the product under the cursor.
func (t *Table) Selected() (catalog.Product, bool) {
	i := t.model.Cursor()
	if i < 0 || i >= len(t.products) {
		return catalog.Product{}, false
	}
	return t.products[i], true
}

// Update forwards navigation keys to the table.
func (t *Table) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.model, cmd = t.model.Update(msg)
	return cmd
}

// View renders the table, or a placeholder when there are no rows.
func (t *Table) View() string {
	if len(t.products) == 0 {
		return lipgloss.NewStyle().
			Width(t.width).
			Foreground(styles.Muted).
			Render("No products to show")
	}
	return t.model.View()
}

// Columns lays out one column per catalog field across width.
func Columns(width int) []table.Column {
	fields := catalog.Fields()

	// Each cell is padded by one space on both sides
	remaining := width - 2*len(fields)
	totalWeight := 0
	for _, f := range fields {
		remaining -= minWidths[f]
		totalWeight += weights[f]
	}
	if remaining < 0 {
		remaining = 0
	}

	cols := make([]table.Column, 0, len(fields))
	for _, f := range fields {
		w := minWidths[f]
		if totalWeight > 0 {
			w += remaining * weights[f] / totalWeight
		}
		cols = append(cols, table.Column{Title: f.Label(), Width: w})
	}
	return cols
}

// Rows converts products to table rows in field order.
func Rows(products []catalog.Product) []table.Row {
	fields := catalog.Fields()
	rows := make([]table.Row, 0, len(products))
	for _, p := range products {
		row := make(table.Row, 0, len(fields))
		for _, f := range fields {
			row = append(row, f.Value(p))
		}
		rows = append(rows, row)
	}
	return rows
}

// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Drives the session controller and catalog view-model and routes input to screens

package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/catalog-browser/internal/catalog"
	"github.com/markalston/catalog-browser/internal/session"
	"github.com/markalston/catalog-browser/internal/tui/icons"
	"github.com/markalston/catalog-browser/internal/tui/loginform"
	"github.com/markalston/catalog-browser/internal/tui/producttable"
	"github.com/markalston/catalog-browser/internal/tui/recentlogins"
	"github.com/markalston/catalog-browser/internal/tui/sortmenu"
	"github.com/markalston/catalog-browser/internal/tui/styles"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenOTP
	ScreenCatalog
	ScreenSort
)

// Layout constants
const (
	minTerminalWidth = 80
	frameOverhead    = 6 // header, footer, status line and the blank lines between them
)

// loginDoneMsg is sent when a login submission returns
type loginDoneMsg struct {
	email string
	err   error
}

// otpDoneMsg is sent when an OTP submission returns
type otpDoneMsg struct {
	err error
}

// productsLoadedMsg is sent when a catalog fetch returns
type productsLoadedMsg struct {
	err error
}

// App is the root model for the TUI
type App struct {
	ctx     context.Context
	session *session.Controller
	catalog *catalog.ViewModel
	recent  *recentlogins.RecentLogins
	log     *slog.Logger

	screen Screen
	width  int
	height int
	busy   bool
	notice string

	spinner   spinner.Model
	search    textinput.Model
	searching bool

	// Child models
	form     *loginform.Form
	sortMenu *sortmenu.Menu
	table    *producttable.Table
}

// New creates a new TUI application on the login screen
func New(sc *session.Controller, vm *catalog.ViewModel, recent *recentlogins.RecentLogins, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	if recent == nil {
		recent = recentlogins.New("")
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	search := textinput.New()
	search.Prompt = icons.Search.String() + " "
	search.Placeholder = "Search product names"
	search.CharLimit = 100

	return &App{
		ctx:     context.Background(),
		session: sc,
		catalog: vm,
		recent:  recent,
		log:     log.With("component", "tui"),
		screen:  ScreenLogin,
		spinner: sp,
		search:  search,
		form:    loginform.NewEmail(recent.List()),
		table:   producttable.New(minTerminalWidth, 10),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.form.Init()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.table.SetSize(a.contentWidth(), a.tableHeight())
		a.search.Width = a.contentWidth() - 4
		if a.form != nil {
			a.form.SetWidth(a.contentWidth())
		}
		return a.forwardToChild(msg)

	case tea.KeyMsg:
		// Handle global quit
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.screen {
		case ScreenLogin, ScreenOTP:
			if a.busy {
				return a, nil
			}
			return a.updateForm(msg)
		case ScreenCatalog:
			return a.updateCatalog(msg)
		case ScreenSort:
			return a.updateSortMenu(msg)
		}

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case loginform.EmailSubmittedMsg:
		return a.startBusy(a.submitLogin(msg.Email))

	case loginform.OTPSubmittedMsg:
		return a.startBusy(a.submitOTP(msg.Code))

	case loginform.CancelledMsg:
		return a.handleFormCancelled(msg)

	case loginDoneMsg:
		return a.handleLoginDone(msg)

	case otpDoneMsg:
		return a.handleOTPDone(msg)

	case productsLoadedMsg:
		return a.handleProductsLoaded(msg)

	case sortmenu.SelectedMsg:
		a.sortMenu = nil
		a.screen = ScreenCatalog
		if err := a.catalog.SortBy(msg.Field.Key()); err != nil {
			a.log.Warn("Sort rejected", "field", msg.Field.Key(), "error", err)
		}
		a.syncTable()
		return a, nil

	case sortmenu.CancelledMsg:
		a.sortMenu = nil
		a.screen = ScreenCatalog
		return a, nil

	default:
		// Forward unknown messages to the active form (needed for huh form internals)
		return a.forwardToChild(msg)
	}

	return a, nil
}

func (a *App) forwardToChild(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch a.screen {
	case ScreenLogin, ScreenOTP:
		return a.updateForm(msg)
	case ScreenSort:
		return a.updateSortMenu(msg)
	}
	return a, nil
}

func (a *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.form == nil {
		return a, nil
	}
	model, cmd := a.form.Update(msg)
	a.form = model.(*loginform.Form)
	return a, cmd
}

func (a *App) updateSortMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.sortMenu == nil {
		return a, nil
	}
	model, cmd := a.sortMenu.Update(msg)
	a.sortMenu = model.(*sortmenu.Menu)
	return a, cmd
}

func (a *App) updateCatalog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.searching {
		return a.updateSearch(msg)
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "r":
		if a.busy {
			return a, nil
		}
		return a.startBusy(a.fetchProducts())
	case "s":
		a.sortMenu = sortmenu.New(a.catalog.Snapshot().SortField)
		a.screen = ScreenSort
		return a, a.sortMenu.Init()
	case "/":
		a.searching = true
		a.search.SetValue(a.catalog.Snapshot().Query)
		a.search.CursorEnd()
		return a, a.search.Focus()
	case "c":
		a.catalog.Search("")
		a.syncTable()
		return a, nil
	case "L":
		return a.logout()
	}

	return a, a.table.Update(msg)
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.searching = false
		a.search.Blur()
		a.catalog.Search(a.search.Value())
		a.syncTable()
		return a, nil
	case "esc":
		a.searching = false
		a.search.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return a, cmd
}

func (a *App) startBusy(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	a.busy = true
	a.notice = ""
	return a, tea.Batch(cmd, a.spinner.Tick)
}

func (a *App) handleFormCancelled(msg loginform.CancelledMsg) (tea.Model, tea.Cmd) {
	if msg.Stage == loginform.StageEmail {
		return a, tea.Quit
	}
	if err := a.session.CancelOTP(); err != nil {
		a.log.Warn("Cancel OTP rejected", "error", err)
	}
	a.busy = false
	return a.showEmailForm()
}

func (a *App) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, session.ErrSuperseded) {
		return a, nil
	}
	a.busy = false
	if msg.err != nil {
		return a, a.form.Retry(a.session.Snapshot().ErrMessage)
	}

	if err := a.recent.Add(msg.email); err != nil {
		a.log.Warn("Failed to save recent login", "error", err)
	}
	a.screen = ScreenOTP
	a.form = loginform.NewOTP(msg.email)
	a.form.SetWidth(a.contentWidth())
	return a, a.form.Init()
}

func (a *App) handleOTPDone(msg otpDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, session.ErrSuperseded) {
		return a, nil
	}
	a.busy = false
	if msg.err != nil {
		return a, a.form.Retry(a.session.Snapshot().ErrMessage)
	}

	a.form = nil
	a.screen = ScreenCatalog
	a.syncTable()
	return a.startBusy(a.fetchProducts())
}

func (a *App) handleProductsLoaded(msg productsLoadedMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, catalog.ErrSuperseded) {
		return a, nil
	}
	a.busy = false
	if msg.err == nil {
		a.notice = fmt.Sprintf("Loaded %d products", len(a.catalog.Source()))
	}
	a.syncTable()
	return a, nil
}

func (a *App) logout() (tea.Model, tea.Cmd) {
	a.session.Logout()
	a.catalog.Reset()
	a.busy = false
	a.searching = false
	a.search.SetValue("")
	a.notice = ""
	a.syncTable()
	return a.showEmailForm()
}

func (a *App) showEmailForm() (tea.Model, tea.Cmd) {
	a.screen = ScreenLogin
	a.form = loginform.NewEmail(a.recent.List())
	a.form.SetWidth(a.contentWidth())
	return a, a.form.Init()
}

// syncTable copies the view-model's current view into the table.
func (a *App) syncTable() {
	a.table.SetProducts(a.catalog.View())
}

// submitLogin creates a command that starts a login
func (a *App) submitLogin(email string) tea.Cmd {
	return func() tea.Msg {
		err := a.session.SubmitLogin(a.ctx, email)
		return loginDoneMsg{email: email, err: err}
	}
}

// submitOTP creates a command that validates an OTP
func (a *App) submitOTP(code string) tea.Cmd {
	return func() tea.Msg {
		return otpDoneMsg{err: a.session.SubmitOTP(a.ctx, code)}
	}
}

// fetchProducts creates a command that loads the catalog with the current credential
func (a *App) fetchProducts() tea.Cmd {
	credential, _ := a.session.Credential()
	return func() tea.Msg {
		return productsLoadedMsg{err: a.catalog.Fetch(a.ctx, credential)}
	}
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenLogin, ScreenOTP:
		content = a.viewForm()
	case ScreenCatalog:
		content = a.viewCatalog()
	case ScreenSort:
		content = a.viewSortMenu()
	}

	return a.wrapWithFrame(content)
}

func (a *App) viewForm() string {
	if a.form == nil {
		return ""
	}
	view := a.form.View()
	if a.busy {
		label := "Sending OTP..."
		if a.screen == ScreenOTP {
			label = "Verifying..."
		}
		view += "\n" + a.spinner.View() + " " + label
	}
	return styles.ActivePanel.Width(a.contentWidth() - 2).Render(view)
}

func (a *App) viewSortMenu() string {
	if a.sortMenu == nil {
		return ""
	}
	return styles.ActivePanel.Width(a.contentWidth() - 2).Render(a.sortMenu.View())
}

func (a *App) viewCatalog() string {
	snap := a.catalog.Snapshot()

	var sb strings.Builder
	sb.WriteString(a.statusLine(snap))
	sb.WriteString("\n")

	if a.searching {
		sb.WriteString(a.search.View())
		sb.WriteString("\n")
	}

	switch {
	case a.busy:
		sb.WriteString(a.spinner.View() + " Loading products...")
		sb.WriteString("\n")
	case snap.ErrMessage != "":
		sb.WriteString(styles.ErrorLine(icons.Critical.String(), snap.ErrMessage))
		sb.WriteString("\n")
	case a.notice != "":
		sb.WriteString(styles.StatusOK.Render(icons.CheckOK.String() + " " + a.notice))
		sb.WriteString("\n")
	}

	if len(snap.View) == 0 && snap.Transform == catalog.TransformSearch {
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf("No products match %q", snap.Query)))
		return sb.String()
	}
	sb.WriteString(a.table.View())
	return sb.String()
}

// statusLine summarizes the view: row counts and the active sort or search.
func (a *App) statusLine(snap catalog.Snapshot) string {
	count := styles.ValueStyle.Render(fmt.Sprintf("%d", len(snap.View))) +
		lipgloss.NewStyle().Foreground(styles.Muted).Render(fmt.Sprintf(" of %d products", len(snap.Source)))

	switch snap.Transform {
	case catalog.TransformSort:
		return count + "  " + styles.Chip.Render(icons.Sort.String()+" "+snap.SortField.Label())
	case catalog.TransformSearch:
		return count + "  " + styles.Chip.Render(icons.Search.String()+" "+snap.Query)
	}
	return count
}

// frameWidth is the width of the header and footer. One column is left free to
// prevent wrapping on some terminals.
func (a *App) frameWidth() int {
	width := a.width - 1
	if width < minTerminalWidth {
		width = minTerminalWidth
	}
	return width
}

// contentWidth is the width available inside the frame
func (a *App) contentWidth() int {
	return a.frameWidth() - 2
}

// tableHeight is the number of lines left for the table
func (a *App) tableHeight() int {
	h := a.height - frameOverhead
	if h < 3 {
		h = 3
	}
	return h
}

// renderHeader creates the header bar with app branding and context
func (a *App) renderHeader() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("Catalog Browser"))

	rightText := ""
	if snap := a.session.Snapshot(); snap.Email != "" {
		label := snap.Email
		if snap.Phase == session.PhaseOTPPending {
			label += " (awaiting OTP)"
		}
		rightText = " " + contextStyle.Render(icons.User.String()+" "+label) + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText) // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		// Context is dropped before the title
		fillWidth += lipgloss.Width(rightText)
		rightText = ""
	}
	if fillWidth < 0 {
		fillWidth = 0
	}

	header := "╭─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╮"
	return borderStyle.Render(header)
}

// renderFooter creates the footer with keyboard shortcuts and status
func (a *App) renderFooter() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	shortcuts := a.shortcuts()

	var styledShortcuts []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		if len(parts) == 2 {
			styledShortcuts = append(styledShortcuts, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
		} else {
			styledShortcuts = append(styledShortcuts, s)
		}
	}

	leftText := " " + strings.Join(styledShortcuts, "  ") + " "
	leftPlainText := " " + strings.Join(shortcuts, "  ") + " "

	// Right side status (last fetch time)
	rightText := ""
	rightPlainText := ""
	if fetched := a.catalog.Snapshot().FetchedAt; !fetched.IsZero() && a.screen == ScreenCatalog {
		elapsed := formatTimeSince(fetched)
		rightText = " " + statusStyle.Render("Updated "+elapsed) + " "
		rightPlainText = " Updated " + elapsed + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftPlainText) - lipgloss.Width(rightPlainText) // -4 for ╰─ and ─╯
	if fillWidth < 0 {
		// Status is dropped before shortcuts
		fillWidth += lipgloss.Width(rightPlainText)
		rightText = ""
	}
	if fillWidth < 0 {
		fillWidth = 0
	}

	footer := "╰─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╯"
	return borderStyle.Render(footer)
}

// shortcuts lists the keys available on the current screen
func (a *App) shortcuts() []string {
	switch a.screen {
	case ScreenLogin:
		return []string{"Enter Send OTP", "Esc Quit"}
	case ScreenOTP:
		return []string{"Enter Verify", "Esc Back"}
	case ScreenSort:
		return []string{"↑↓ Select", "Enter Sort", "Esc Cancel"}
	case ScreenCatalog:
		if a.searching {
			return []string{"Enter Search", "Esc Cancel"}
		}
		return []string{"↑↓ Scroll", "s Sort", "/ Search", "c Clear", "r Refresh", "L Logout", "q Quit"}
	}
	return nil
}

// formatTimeSince formats a duration since the given time in human-readable form
func formatTimeSince(t time.Time) string {
	d := time.Since(t)

	if d < time.Minute {
		secs := int(d.Seconds())
		if secs < 5 {
			return "just now"
		}
		return fmt.Sprintf("%ds ago", secs)
	}

	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}

	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// Run starts the TUI and blocks until the user quits or ctx is done. Requests in
// flight are cancelled with ctx.
func Run(ctx context.Context, sc *session.Controller, vm *catalog.ViewModel, recent *recentlogins.RecentLogins, log *slog.Logger) error {
	app := New(sc, vm, recent, log)
	app.ctx = ctx

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

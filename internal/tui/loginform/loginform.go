// ABOUTME: Email and OTP entry forms as a bubbletea model
// ABOUTME: Wraps huh inputs and reports submissions to the app as messages

package loginform

import (
	"errors"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/markalston/catalog-browser/internal/tui/icons"
	"github.com/markalston/catalog-browser/internal/tui/styles"
)

// Stage is the step of the login flow a form collects input for.
type Stage int

const (
	StageEmail Stage = iota
	StageOTP
)

// EmailSubmittedMsg is sent when the email form is completed
type EmailSubmittedMsg struct {
	Email string
}

// OTPSubmittedMsg is sent when the OTP form is completed
type OTPSubmittedMsg struct {
	Code string
}

// CancelledMsg is sent when the user presses esc
type CancelledMsg struct {
	Stage Stage
}

// Form collects either an email address or an OTP.
type Form struct {
	stage     Stage
	form      *huh.Form
	email     string
	code      string
	recent    []string
	errMsg    string
	submitted bool
	width     int
}

// NewEmail creates the email form. The most recent address is prefilled and all recent
// addresses are offered as suggestions.
func NewEmail(recent []string) *Form {
	f := &Form{stage: StageEmail, recent: recent}
	if len(recent) > 0 {
		f.email = recent[0]
	}
	f.form = f.build()
	return f
}

// NewOTP creates the OTP form for the address a code was sent to.
func NewOTP(email string) *Form {
	f := &Form{stage: StageOTP, email: email}
	f.form = f.build()
	return f
}

func (f *Form) build() *huh.Form {
	if f.stage == StageOTP {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(icons.Key.String()+" One-time password").
					Description("Enter the code sent to "+f.email).
					Placeholder("123456").
					CharLimit(12).
					Value(&f.code).
					Validate(ValidateOTP),
			).Title("Verify OTP"),
		).WithTheme(styles.FormTheme()).WithShowHelp(false)
	}

	input := huh.NewInput().
		Title(icons.Email.String()+" Email").
		Description("We will send a one-time password to this address").
		Placeholder("you@example.com").
		CharLimit(254).
		Value(&f.email).
		Validate(ValidateEmail)
	if len(f.recent) > 0 {
		input = input.Suggestions(f.recent)
	}
	return huh.NewForm(
		huh.NewGroup(input).Title("Log in"),
	).WithTheme(styles.FormTheme()).WithShowHelp(false)
}

// ValidateEmail rejects blank and malformed addresses before a request is made.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

// ValidateOTP rejects a blank code.
func ValidateOTP(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("OTP is required")
	}
	return nil
}

// Stage returns which input the form collects.
func (f *Form) Stage() Stage {
	return f.stage
}

// Email returns the current email value.
func (f *Form) Email() string {
	return strings.TrimSpace(f.email)
}

// Error returns the message shown under the form, if any.
func (f *Form) Error() string {
	return f.errMsg
}

// Retry shows msg under a fresh copy of the form, keeping the email and clearing the
// code, so the user can resubmit.
func (f *Form) Retry(msg string) tea.Cmd {
	f.errMsg = msg
	f.code = ""
	f.submitted = false
	f.form = f.build()
	return f.form.Init()
}

// SetWidth sets the form width for proper rendering
func (f *Form) SetWidth(width int) {
	f.width = width
	f.form = f.form.WithWidth(width)
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		stage := f.stage
		return f, func() tea.Msg { return CancelledMsg{Stage: stage} }
	}
	if f.submitted {
		return f, nil
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted {
		f.submitted = true
		f.errMsg = ""
		if f.stage == StageOTP {
			code := strings.TrimSpace(f.code)
			return f, func() tea.Msg { return OTPSubmittedMsg{Code: code} }
		}
		email := strings.TrimSpace(f.email)
		return f, func() tea.Msg { return EmailSubmittedMsg{Email: email} }
	}

	return f, cmd
}

// View implements tea.Model
func (f *Form) View() string {
	var sb strings.Builder
	sb.WriteString(f.form.View())
	if f.errMsg != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.ErrorLine(icons.Critical.String(), f.errMsg))
	}
	return sb.String()
}

// ABOUTME: Products command for scripted catalog access
// ABOUTME: Logs in with email and OTP, fetches the catalog and prints it sorted or filtered

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/markalston/catalog-browser/internal/catalog"
	"github.com/markalston/catalog-browser/internal/client"
	"github.com/markalston/catalog-browser/internal/logger"
	"github.com/markalston/catalog-browser/internal/session"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

type productsOptions struct {
	email  string
	otp    string
	sort   string
	search string
}

var productsOpts productsOptions

// logOutput receives logs of non-interactive commands
var logOutput io.Writer = os.Stderr

// promptOTP asks for the code sent to email when --otp is not given
var promptOTP = func(email string) (string, error) {
	var code string
	err := huh.NewInput().
		Title("One-time password").
		Description("Enter the code sent to " + email).
		Value(&code).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("OTP is required")
			}
			return nil
		}).
		Run()
	return strings.TrimSpace(code), err
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Print the product catalog",
	Long: `Log in, fetch the product catalog and print it.

The OTP is prompted for unless --otp is given. --sort and --search are mutually exclusive,
matching the browser where the last applied one wins.

Product ids are handled as text. --json prints product_id as a string even when the
backend sent a number, and --sort id compares ids as text, so "10" sorts before "9".

Exit codes: 0 success, 1 login or fetch failed, 2 usage or configuration error.`,
	Example: `  catalog-browser products --email me@example.com --sort name
  catalog-browser products --email me@example.com --otp 123456 --search router --json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runProducts(ctx, os.Stdout, productsOpts)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	productsCmd.Flags().StringVar(&productsOpts.email, "email", "", "Email address to log in with (required)")
	productsCmd.Flags().StringVar(&productsOpts.otp, "otp", "", "One-time password (prompted if omitted)")
	productsCmd.Flags().StringVar(&productsOpts.sort, "sort", "", "Sort by field, compared as text: "+strings.Join(fieldKeys(), ", "))
	productsCmd.Flags().StringVar(&productsOpts.search, "search", "", "Only show products whose name contains this text")
	rootCmd.AddCommand(productsCmd)
}

func fieldKeys() []string {
	keys := make([]string, 0, len(catalog.Fields()))
	for _, f := range catalog.Fields() {
		keys = append(keys, f.Key())
	}
	return keys
}

// runProducts executes the login and fetch and returns the exit code
func runProducts(ctx context.Context, w io.Writer, opts productsOptions) int {
	email := strings.TrimSpace(opts.email)
	if email == "" {
		fmt.Fprintln(w, "Error: --email is required")
		return exitUsage
	}
	if opts.sort != "" && opts.search != "" {
		fmt.Fprintln(w, "Error: --sort and --search cannot be combined")
		return exitUsage
	}
	if opts.sort != "" {
		if _, ok := catalog.ParseField(opts.sort); !ok {
			fmt.Fprintf(w, "Error: unknown sort field %q (valid: %s)\n", opts.sort, strings.Join(fieldKeys(), ", "))
			return exitUsage
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}

	log := logger.New(logOutput, cfg.Log.Level, cfg.Log.Format)
	c := client.New(cfg.API.URL, append(cfg.API.ClientOptions(), client.WithLogger(log))...)

	sc := session.New(c, log)
	if err := sc.SubmitLogin(ctx, email); err != nil {
		fmt.Fprintf(w, "Error: %s\n", sc.Snapshot().ErrMessage)
		return exitFail
	}

	code := strings.TrimSpace(opts.otp)
	if code == "" {
		code, err = promptOTP(email)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitFail
		}
	}
	if err := sc.SubmitOTP(ctx, code); err != nil {
		fmt.Fprintf(w, "Error: %s\n", sc.Snapshot().ErrMessage)
		return exitFail
	}

	credential, _ := sc.Credential()
	vm := catalog.New(c, log)
	if err := vm.Fetch(ctx, credential); err != nil {
		fmt.Fprintf(w, "Error: %s\n", vm.Snapshot().ErrMessage)
		return exitFail
	}

	switch {
	case opts.sort != "":
		if err := vm.SortBy(opts.sort); err != nil {
			fmt.Fprintf(w, "Error: %s\n", vm.Snapshot().ErrMessage)
			return exitUsage
		}
	case opts.search != "":
		vm.Search(opts.search)
	}

	snap := vm.Snapshot()
	if IsJSONOutput() {
		fmt.Fprintln(w, formatProductsJSON(snap.View))
	} else {
		fmt.Fprintln(w, formatProductsHuman(snap))
	}
	return exitOK
}

// formatProductsHuman renders the view as a table with a summary line
func formatProductsHuman(snap catalog.Snapshot) string {
	summary := fmt.Sprintf("%d of %d products", len(snap.View), len(snap.Source))
	switch snap.Transform {
	case catalog.TransformSort:
		summary += fmt.Sprintf(", sorted by %s", snap.SortField.Label())
	case catalog.TransformSearch:
		summary += fmt.Sprintf(", matching %q", snap.Query)
	}
	if len(snap.View) == 0 {
		return summary
	}

	fields := catalog.Fields()
	headers := make([]string, 0, len(fields))
	for _, f := range fields {
		headers = append(headers, f.Label())
	}
	rows := make([][]string, 0, len(snap.View))
	for _, p := range snap.View {
		row := make([]string, 0, len(fields))
		for _, f := range fields {
			row = append(row, f.Value(p))
		}
		rows = append(rows, row)
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.String() + "\n" + summary
}

// formatProductsJSON formats products as a JSON array
func formatProductsJSON(products []catalog.Product) string {
	if products == nil {
		products = []catalog.Product{}
	}
	data, _ := json.MarshalIndent(products, "", "  ")
	return string(data)
}

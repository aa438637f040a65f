// ABOUTME: Browse command starting the interactive catalog browser
// ABOUTME: Wires config, file logging, the HTTP client and the TUI together

package cmd

import (
	"context"
	"fmt"

	"github.com/markalston/catalog-browser/internal/catalog"
	"github.com/markalston/catalog-browser/internal/client"
	"github.com/markalston/catalog-browser/internal/logger"
	"github.com/markalston/catalog-browser/internal/session"
	"github.com/markalston/catalog-browser/internal/tui"
	"github.com/markalston/catalog-browser/internal/tui/recentlogins"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Start the interactive catalog browser",
	Long: `Start the full-screen browser: log in with your email, enter the OTP you receive,
then sort (s) or search (/) the product table. Logs go to debug.log in the config directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowse(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

// runBrowse runs the TUI until the user quits
func runBrowse(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file
	log, closeLog, err := logger.OpenFile(cfg.ConfigDir, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer closeLog()

	opts := append(cfg.API.ClientOptions(), client.WithLogger(log))
	c := client.New(cfg.API.URL, opts...)
	log.Info("Starting browser", "api_url", c.BaseURL())

	return tui.Run(
		ctx,
		session.New(c, log),
		catalog.New(c, log),
		recentlogins.New(cfg.ConfigDir),
		log,
	)
}

// ABOUTME: Root command for the catalog-browser CLI
// ABOUTME: Handles global flags and configuration and launches the TUI by default

package cmd

import (
	"fmt"
	"os"

	"github.com/markalston/catalog-browser/internal/client"
	"github.com/markalston/catalog-browser/internal/config"
	"github.com/spf13/cobra"
)

var (
	apiURL     string
	jsonOutput bool
	logLevel   string
	envFile    string
)

// EnvAPIURL overrides the backend URL when --api-url is not given.
const EnvAPIURL = "CATALOG_API_URL"

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "catalog-browser",
	Short: "Browse the product catalog from the terminal",
	Long: `catalog-browser signs in with an email address and a one-time password
and shows the product catalog, which can be sorted by any column or searched by name.

Run without a subcommand to start the interactive browser.

Environment Variables:
  CATALOG_API_URL       Backend API URL (default: http://localhost:8001)
  CATALOG_LANGUAGE_ID   language-id header sent with the login request (default: 1)
  CATALOG_HTTP_TIMEOUT  Request timeout (default: 30s)
  CATALOG_CONFIG_DIR    Directory for recent logins and the debug log
  LOG_LEVEL, LOG_FORMAT Logging level (debug|info|warn|error) and format (text|json)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowse(cmd.Context())
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides "+EnvAPIURL+")")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env (the file must exist)")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv(EnvAPIURL); envURL != "" {
		return envURL
	}
	return client.DefaultBaseURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads .env and the environment, then applies flag overrides.
func loadConfig() (config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, err
	}

	cfg.API.URL = GetAPIURL()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	cfg.Sanitize()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

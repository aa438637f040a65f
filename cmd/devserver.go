// ABOUTME: Devserver command running a local stand-in backend
// ABOUTME: Serves the login, OTP and catalogue endpoints until interrupted

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/markalston/catalog-browser/internal/devserver"
	"github.com/markalston/catalog-browser/internal/logger"
	"github.com/spf13/cobra"
)

var (
	devserverAddr string
	devserverOTP  string
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local backend for development",
	Long: `Run an in-memory backend implementing the login, OTP validation and product list
endpoints. Every login is accepted, the OTP is fixed (DEVSERVER_OTP, default 123456) and a
built-in sample catalog is served.

Environment Variables:
  DEVSERVER_ADDR         Listen address (default: :8001)
  DEVSERVER_OTP          Accepted OTP (default: 123456)
  DEVSERVER_SIGNING_KEY  HS256 key for access tokens (random per run if unset)
  DEVSERVER_PENDING_TTL  Lifetime of a pending login (default: 5m)
  DEVSERVER_TOKEN_TTL    Lifetime of an access token (default: 1h)
  DEVSERVER_RATE_LIMIT   Login attempts per email and OTP attempts per pending login,
                         per minute, 0 disables (default: 10)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runDevserver(ctx, os.Stdout)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", "", "Listen address (overrides DEVSERVER_ADDR)")
	devserverCmd.Flags().StringVar(&devserverOTP, "otp", "", "Accepted OTP (overrides DEVSERVER_OTP)")
	rootCmd.AddCommand(devserverCmd)
}

// runDevserver serves until ctx is done and returns the exit code
func runDevserver(ctx context.Context, w io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	if devserverAddr != "" {
		cfg.DevServer.Addr = devserverAddr
	}
	if devserverOTP != "" {
		cfg.DevServer.OTP = devserverOTP
	}

	log := logger.New(logOutput, cfg.Log.Level, cfg.Log.Format)
	s, err := devserver.New(cfg.DevServer, log)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFail
	}

	fmt.Fprintf(w, "Dev server on %s (OTP %s). Press Ctrl+C to stop.\n", cfg.DevServer.Addr, cfg.DevServer.OTP)
	if err := s.Run(ctx); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFail
	}
	return exitOK
}

// ABOUTME: Entry point for the catalog-browser CLI
// ABOUTME: Terminal client for the OTP-authenticated product catalog

package main

import (
	"fmt"
	"os"

	"github.com/markalston/catalog-browser/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

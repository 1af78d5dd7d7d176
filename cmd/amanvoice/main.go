// Package main provides the entry point for the amanvoice CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/amanvoice/cmd/amanvoice/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

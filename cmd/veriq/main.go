// Package main provides the CLI for the Veriq data quality engine.
package main

import (
	"os"

	"github.com/veriq-labs/veriq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

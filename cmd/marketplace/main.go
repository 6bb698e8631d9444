// Package main is the entry point for the marketplace CLI.
package main

import (
	"os"

	"github.com/opspawn/hedera-apex-marketplace/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

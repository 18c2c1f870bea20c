// Package main provides the wq command-line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/wq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

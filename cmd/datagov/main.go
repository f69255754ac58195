// Package main provides the CLI for the datagov governed pipeline.
package main

import (
	"os"

	"github.com/leapstack-labs/datagov/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the repoql CLI.
package main

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/repoql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main is the entry point for the devroom admin CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/devroom/cmd/devctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

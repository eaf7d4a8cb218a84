// Package main is the entry point for the tvee application.
package main

import (
	"os"

	"github.com/jmylchreest/tvee/cmd/tvee/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}

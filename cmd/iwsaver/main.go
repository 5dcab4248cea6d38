// Package main is the entry point for the iwsaver CLI.
package main

import (
	"os"

	"github.com/jmylchreest/iwsaver/cmd/iwsaver/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

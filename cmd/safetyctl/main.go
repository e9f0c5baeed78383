// Package main is the entry point for the safetyctl CLI.
package main

import (
	"os"

	"safetyband-cloud/cmd/safetyctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

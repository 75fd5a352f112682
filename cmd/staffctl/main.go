// Package main is the entry point for the staffctl CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/staffplan/cmd/staffctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

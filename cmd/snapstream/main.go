// Package main is the entry point for the snapstream application.
package main

import (
	"os"

	"github.com/madhusudan785/SnapStream/cmd/snapstream/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the entry point for the docsync CLI.
package main

import (
	"os"

	"github.com/hyperjump/docsync/cmd/docsync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

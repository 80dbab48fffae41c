// Package main provides the entry point for the ipowatcher CLI.
package main

import (
	"IPOWatcher/internal/cli"
)

func main() {
	cli.Execute()
}

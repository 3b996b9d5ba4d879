// Command artlens clusters artwork embeddings and captions them.
//
// Usage:
//
//	artlens [flags] <command> [args]
//
// Commands:
//
//	cluster   - Build clusters from a dataset and optionally save a snapshot
//	caption   - Caption records or a new vector from a saved snapshot
//	inspect   - Print a saved model or the list of saved runs
//	version   - Show version information
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

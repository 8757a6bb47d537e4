// Command enactctl is the operator-facing entry point for an Enact
// resource store: commit, checkout, invoke, replay and rewind against a
// memory, filesystem or pebble-backed store, either as one-shot cobra
// subcommands or from an interactive REPL.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

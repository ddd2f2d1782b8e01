// resumectl is the operational CLI for the context budget and resume log
// engine: pause a session on demand, check whether a prior resume log is
// available to load, and report current occupancy. Grounded on
// cmd/tarsy/main.go's flag/env/.env loading sequence, adapted from a long
// running HTTP server to a one-shot CLI built on cobra.
package main

import (
	"fmt"
	"os"

	"github.com/codeready-toolchain/tarsy/cmd/resumectl/commands"
)

func main() {
	root := commands.NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(commands.ExitCodeForError(err))
	}
}

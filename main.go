// The main package for the guardian-ingest executable.
package main

import (
	"github.com/newsflow/guardian-ingest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}

// Command continual-learning is the stop hook that decides when an agent
// should consolidate recent transcripts into AGENTS.md.
package main

import (
	"os"

	"github.com/roach88/continual-learning/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

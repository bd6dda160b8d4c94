// Command antidup keeps only the input lines it has never accepted before.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/antidup/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

// Command quorum runs the community governance ledger.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/quorum/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

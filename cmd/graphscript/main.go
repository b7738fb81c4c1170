// Command graphscript compiles and simulates node-graph script classes.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/graphscript/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/theauditor/auditor-core/cmd"
	"github.com/theauditor/auditor-core/internal/exitcode"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(exitcode.FromError(err)))
	}
}

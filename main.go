package main

import (
	"fmt"
	"os"

	"github.com/shipmate-cli/shipmate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

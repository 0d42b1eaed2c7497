package main

import (
	"fmt"
	"os"

	"github.com/kilianp07/erdispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erdispatch:", err)
		os.Exit(1)
	}
}

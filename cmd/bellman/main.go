package main

import (
	"os"

	"github.com/sw965/bellman/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/brainquest/brainquest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

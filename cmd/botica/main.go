package main

import (
	"os"

	"github.com/botica-labs/botica/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

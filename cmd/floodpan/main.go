package main

import (
	"os"

	"github.com/ppiankov/floodpan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

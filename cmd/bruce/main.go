package main

import (
	"os"

	"github.com/brucedev/bruce/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

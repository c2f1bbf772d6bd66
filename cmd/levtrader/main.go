package main

import (
	"os"

	"github.com/rustyeddy/levtrader/cmd/levtrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

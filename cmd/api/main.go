package main

import (
	"os"

	"github.com/skyserver1508/skyserver-hosting/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

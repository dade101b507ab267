package main

import (
	"os"

	"github.com/guilleripa/itau-cli/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"cachet/cmd/cachet/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

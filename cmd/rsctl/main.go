package main

import (
	"os"

	"github.com/risksense/RSClientGo/cmd/rsctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"neurotwin-backend/cmd/neurotwin/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

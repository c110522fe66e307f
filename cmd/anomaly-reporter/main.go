package main

import (
	"os"

	"github.com/miradorstack/anomaly-reporter/cmd/anomaly-reporter/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/spigell/question-analyzer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

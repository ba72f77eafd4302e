package main

import (
	"os"

	"github.com/michaelssavage/spanish-worksheets/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/conneroisu/componentry/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

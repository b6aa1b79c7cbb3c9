package main

import (
	"os"

	"github.com/longformhq/longform/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/atozfamily/homescholar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

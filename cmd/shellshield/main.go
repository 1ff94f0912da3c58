package main

import (
	"fmt"
	"os"

	"github.com/shellshield/shellshield/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shellshield: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

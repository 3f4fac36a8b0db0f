package main

import (
	"os"

	"github.com/nounverse/verbs/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/haoyang/ant/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

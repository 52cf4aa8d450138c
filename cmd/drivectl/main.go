package main

import (
	"os"

	"github.com/docshare/drive/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

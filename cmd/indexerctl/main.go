package main

import (
	"os"

	"github.com/0xPuncker/evm-indexer/cmd/indexerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

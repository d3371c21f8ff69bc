package main

import (
	"os"

	"github.com/vialabs/tronbridge/cmd/tronbridge/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

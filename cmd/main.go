package main

import (
	"os"

	"github.com/alejandrocid0/alagloria-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/orderdesk/orderdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

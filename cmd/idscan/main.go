package main

import (
	"fmt"
	"os"

	"github.com/gmsas95/idscan/internal/cli"
	"github.com/gmsas95/idscan/internal/config"
)

var version = "dev"

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	cli.Version = version
	os.Exit(cli.Run(os.Args[1:]))
}

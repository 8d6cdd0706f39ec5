package main

import (
	"fmt"
	"os"

	"doc-tracker/internal/cli"
	"doc-tracker/internal/logger"
)

func main() {
	log, err := logger.New(os.Getenv("ENV"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cli.NewRootCmd(cli.DefaultEnv(log)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"stockwatch/internal/cli"
	"stockwatch/internal/logging"
)

func main() {
	app := &cli.App{Logger: logging.NewLogger()}
	root := cli.NewRootCmd(app)

	if err := root.Execute(); err != nil {
		app.Close()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

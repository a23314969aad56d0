// Package main is the ctrl command itself.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/silver2row/ctrl/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, nil)
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

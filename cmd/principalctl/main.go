// Package main is the entry point for the principalctl binary.
package main

import (
	"os"

	cli "principal-registry/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

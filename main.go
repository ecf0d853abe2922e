//go:build !js

package main

import (
	"os"

	"sicasm/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"engagement-tracker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"github.com/kailas-cloud/kbquery/cmd/kbquery/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}

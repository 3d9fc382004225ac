package main

import (
	"os"

	"github.com/ryo246912/gh-review-triage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

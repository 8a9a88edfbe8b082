package main

import (
	"os"

	"github.com/infra-lang/infra/pkg/cli"
)

func main() {
	os.Exit(cli.Entry(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

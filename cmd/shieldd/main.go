package main

import (
	"context"
	"os"

	"github.com/raysh454/shieldsuite/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}

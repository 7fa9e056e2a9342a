package main

import (
	"os"

	"github.com/xonecas/outline/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

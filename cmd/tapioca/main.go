package main

import (
	"fmt"
	"os"

	"github.com/kbukum/tapioca/cmd/tapioca/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

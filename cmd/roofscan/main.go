package main

import (
	"context"
	"os"

	"go-roof-inspector/cmd/roofscan/cmd"
)

// Version is set at build time
var Version = "dev"

func main() {
	root := cmd.NewRootCmd(Version)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

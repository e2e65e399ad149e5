package main

import (
	"os"

	"ghl-oauth-manager/cmd/ghlctl/cmd"
	_ "ghl-oauth-manager/docs"
)

var version = "dev"

func main() {
	if err := cmd.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}

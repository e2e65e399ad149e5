package main

import (
	"log"

	_ "ghl-oauth-manager/docs"
	"ghl-oauth-manager/internal/app"
)

// @title GHL OAuth Installation Manager API
// @version 1.0
// @description Completes GoHighLevel marketplace installs, keeps access tokens fresh and converts Company tokens to Location tokens.
// @BasePath /
// @schemes http https

var version = "dev"

func main() {
	if err := app.Run(version); err != nil {
		log.Fatal(err)
	}
}

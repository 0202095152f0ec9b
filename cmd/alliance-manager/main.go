package main

import (
	"os"

	"github.com/alliancehq/alliance-manager/cmd/alliance-manager/app"
)

func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/codepair/codepair/lib/server"
	"github.com/codepair/codepair/lib/settings"
	"github.com/codepair/codepair/lib/utils"
)

func main() {
	setupLogger := utils.SetupLogger()
	defer setupLogger.Sync()

	if len(os.Args) > 1 && os.Args[1] == "config" {
		settings.HandleConfigCommand(setupLogger)
	}

	server.InitServer(setupLogger)
}

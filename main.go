package main

import (
	"os"

	_ "apphost/cmd"
	"apphost/cmd/root"
	"apphost/internal/logger"
)

func main() {
	err := root.RootCmd.Execute()
	code := root.ExitCode(err)
	if code != root.ExitOK {
		logger.Error(err)
	}
	os.Exit(code)
}

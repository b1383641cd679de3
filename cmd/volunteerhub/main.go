package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	// a local .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "volunteerhub",
		Usage: "Community volunteer website and member portal",
		Commands: []*cli.Command{
			serveCommand,
			seedCommand,
			cleanupCommand,
			nanoidCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}

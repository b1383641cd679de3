package main

import (
	"context"
	"fmt"

	"volunteerhub/internal/db"
	"volunteerhub/internal/seed"
	"volunteerhub/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Apply the schema and seed website details and sample events",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "YAML seed file, defaults to the built in seed",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Overwrite existing website details",
		},
		&cli.BoolFlag{
			Name:  "skip-events",
			Usage: "Do not insert sample events",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		seedFile, err := seed.Load(c.String("file"))
		if err != nil {
			return err
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger := logrus.StandardLogger()
		logger.Info("Connected to database")

		if err := db.ApplySchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("Schema applied")

		if err := seed.SeedWebsite(ctx, logger, store.NewWebsiteRepository(pool), seedFile.Website, c.Bool("force")); err != nil {
			return err
		}

		if c.Bool("skip-events") {
			return nil
		}

		if _, err := seed.SeedEvents(ctx, logger, store.NewEventRepository(pool), seedFile.Events); err != nil {
			return fmt.Errorf("failed to seed events: %w", err)
		}

		return nil
	},
}

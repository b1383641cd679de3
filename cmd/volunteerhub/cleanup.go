package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"volunteerhub/internal/db"
	"volunteerhub/internal/events"
	"volunteerhub/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var cleanupCommand = &cli.Command{
	Name:  "cleanup",
	Usage: "Remove stored images and waivers of past events",
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}

		buckets, err := newBuckets(cfg, awsConfig)
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		svc := events.NewService(logger, store.NewEventRepository(pool), store.NewSignupRepository(pool), buckets.Images, buckets.Waivers)

		report, err := svc.CleanupPastEventFiles(ctx)
		if err != nil {
			return err
		}

		if report.Failures > 0 {
			return fmt.Errorf("%d stored files could not be removed", report.Failures)
		}

		return nil
	},
}

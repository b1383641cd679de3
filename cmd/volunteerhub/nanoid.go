package main

import (
	"fmt"

	"volunteerhub/internal/utils"

	"github.com/urfave/cli/v2"
)

var nanoidCommand = &cli.Command{
	Name:  "nanoid",
	Usage: "Generate NanoIDs or storage object names for seed files",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.StringFlag{
			Name:  "object",
			Usage: "Print object names for this file name, e.g. flyer.png",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "Object name prefix used with --object, e.g. events or waivers",
		},
	},
	Action: func(c *cli.Context) error {
		file := c.String("object")
		for range c.Int("count") {
			if file == "" {
				fmt.Println(utils.NanoID())
				continue
			}
			fmt.Println(utils.ObjectName(c.String("prefix"), file))
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"
	"github.com/ariefcatur/nexus-inventory/internal/config"
	"github.com/ariefcatur/nexus-inventory/internal/postgres"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"os"
	"text/tabwriter"
	"time"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	cfg.SetupLogging()

	app := &cli.App{
		Name:  "nexusctl",
		Usage: "operate the inventory database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dsn", Value: cfg.PostgresDSN, Usage: "PostgreSQL DSN", EnvVars: []string{"POSTGRES_DSN"}},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply or roll back schema migrations",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Action: func(c *cli.Context) error { return postgres.MigrateUp(c.String("dsn")) },
					},
					{
						Name:  "down",
						Flags: []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1}},
						Action: func(c *cli.Context) error {
							return postgres.MigrateDown(c.String("dsn"), c.Int("steps"))
						},
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "upsert the starter product catalog",
				Action: seed,
			},
			{
				Name:   "products",
				Usage:  "list products with stock levels",
				Action: listProducts,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("nexusctl")
	}
}

func withStore(c *cli.Context, fn func(ctx context.Context, s *postgres.Store) error) error {
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, c.String("dsn"), 2)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, &postgres.Store{DB: db})
}

func seed(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, s *postgres.Store) error {
		ps, err := postgres.Seed(ctx, s)
		if err != nil {
			return err
		}
		log.WithField("products", len(ps)).Info("seed complete")
		return nil
	})
}

func listProducts(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, s *postgres.Store) error {
		ps, err := s.ListProducts(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSKU\tNAME\tPRICE\tSTOCK\tLOW")
		for _, p := range ps {
			low := ""
			if p.LowStock() {
				low = "!"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", p.ID, p.SKU, p.Name, p.Price.StringFixed(2), p.StockLevel, low)
		}
		return tw.Flush()
	})
}

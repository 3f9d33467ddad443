package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/park285/elo-ladder-bot/internal/adapter/elopresenter"
	appcfg "github.com/park285/elo-ladder-bot/internal/config"
	"github.com/park285/elo-ladder-bot/internal/elobuilder"
	"github.com/park285/elo-ladder-bot/internal/irisfast"
	"github.com/park285/elo-ladder-bot/internal/msgcat"
	svcelo "github.com/park285/elo-ladder-bot/internal/service/elo"
	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "elo-admin",
		Usage: "administer the Elo ladder store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}, Usage: "SQL store DSN"},
			&cli.StringFlag{Name: "database-driver", EnvVars: []string{"DATABASE_DRIVER"}, Value: "postgres", Usage: "postgres or sqlite3"},
			&cli.StringFlag{Name: "redis-url", EnvVars: []string{"REDIS_URL"}, Usage: "Redis store URL"},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply or revert the SQL schema",
				Subcommands: []*cli.Command{
					{Name: "up", Action: func(c *cli.Context) error { return runMigrate(c, false) }},
					{Name: "down", Action: func(c *cli.Context) error { return runMigrate(c, true) }},
				},
			},
			{
				Name:  "games",
				Usage: "list or register game types",
				Subcommands: []*cli.Command{
					{Name: "list", Flags: []cli.Flag{teamFlag()}, Action: listGames},
					{Name: "register", ArgsUsage: "<game>", Flags: []cli.Flag{teamFlag()}, Action: registerGame},
				},
			},
			{
				Name:      "leaderboard",
				Usage:     "print the leaderboard of a game",
				ArgsUsage: "<game>",
				Flags: []cli.Flag{
					teamFlag(),
					&cli.IntFlag{Name: "size", Value: 10, Usage: "rows per team size"},
				},
				Action: printLeaderboard,
			},
			{
				Name:  "iris-check",
				Usage: "check the Iris HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "base-url", EnvVars: []string{"IRIS_BASE_URL"}, Required: true},
				},
				Action: irisCheck,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, Version)
					return err
				},
			},
		},
	}
}

func teamFlag() cli.Flag {
	return &cli.StringFlag{Name: "team", Aliases: []string{"t"}, Usage: "team (or chat room) id", Required: true}
}

func storeConfig(c *cli.Context) *appcfg.AppConfig {
	return &appcfg.AppConfig{
		DatabaseURL:    c.String("database-url"),
		DatabaseDriver: c.String("database-driver"),
		RedisURL:       c.String("redis-url"),
	}
}

func openRepo(c *cli.Context) (svcelo.Repository, error) {
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()
	repo, _, err := elobuilder.OpenRepository(ctx, storeConfig(c), false)
	return repo, err
}

func runMigrate(c *cli.Context, down bool) error {
	cfg := storeConfig(c)
	if cfg.DatabaseURL == "" {
		return errors.New("--database-url is required")
	}
	db, err := svcelo.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := svcelo.Migrate(db, down); err != nil {
		return err
	}
	dir := "up"
	if down {
		dir = "down"
	}
	_, err = fmt.Fprintf(c.App.Writer, "migrations applied (%s)\n", dir)
	return err
}

func listGames(c *cli.Context) error {
	repo, err := openRepo(c)
	if err != nil {
		return err
	}
	defer repo.Close()
	games, err := repo.ListGameTypes(c.Context, c.String("team"))
	if err != nil {
		return err
	}
	for _, g := range games {
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", g.ID, g.Name)
	}
	return nil
}

func registerGame(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("game name is required")
	}
	repo, err := openRepo(c)
	if err != nil {
		return err
	}
	defer repo.Close()
	gt, err := repo.RegisterGameType(c.Context, c.String("team"), name)
	if errors.Is(err, svcelo.ErrGameTypeExists) {
		return fmt.Errorf("%s is already registered", name)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "registered %s (%s)\n", gt.Name, gt.ID)
	return err
}

func printLeaderboard(c *cli.Context) error {
	game := c.Args().First()
	if game == "" {
		return errors.New("game name is required")
	}
	repo, err := openRepo(c)
	if err != nil {
		return err
	}
	defer repo.Close()
	res, err := svcelo.NewLeaderboards(repo, c.Int("size")).Top(c.Context, c.String("team"), game)
	if err != nil {
		return err
	}
	if rej, ok := res.(elodto.Rejected); ok {
		return fmt.Errorf("%s is not registered", rej.GameType)
	}
	f := elopresenter.NewFormatter(msgcat.MustDefault(), "", elopresenter.TagPlain)
	_, err = fmt.Fprintln(c.App.Writer, elopresenter.Flatten(f.Format(res)))
	return err
}

func irisCheck(c *cli.Context) error {
	client := irisfast.NewClient(c.String("base-url"), irisfast.WithTimeout(8*time.Second))
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()
	cfg, err := client.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("iris /config: %w", err)
	}
	_, err = fmt.Fprintf(c.App.Writer, "iris ok: port=%d polling=%d rate=%d endpoint=%s\n",
		cfg.Port, cfg.PollingSpeed, cfg.MessageRate, cfg.WebserverEndpoint)
	return err
}

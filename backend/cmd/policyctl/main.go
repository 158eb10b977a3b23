// Command policyctl is the operator CLI for managing policies against a
// running authorization service's durable store directly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hodei-project/hodei-authz/backend/internal/config"
	"github.com/hodei-project/hodei-authz/backend/internal/invalidation"
	"github.com/hodei-project/hodei-authz/backend/internal/policystore"
	"github.com/hodei-project/hodei-authz/backend/internal/service"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "policyctl",
		Usage: "Manage policies stored by hodei-authz",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "database-url",
				Usage: "Postgres DSN, defaults to DATABASE_URL",
			},
			&cli.StringFlag{
				Name:  "redis-url",
				Usage: "Redis URL, defaults to REDIS_URL",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a policy from a Cedar file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "Path to a .cedar file"},
				},
				Action: actionCreate,
			},
			{
				Name:  "get",
				Usage: "Print one policy by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: actionGet,
			},
			{
				Name:   "list",
				Usage:  "List every stored policy",
				Action: actionList,
			},
			{
				Name:  "update",
				Usage: "Replace a policy's content",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: actionUpdate,
			},
			{
				Name:  "delete",
				Usage: "Delete a policy by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: actionDelete,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildFacade(ctx context.Context, cmd *cli.Command) (*service.Facade, func(), error) {
	cfg := config.Load()
	dsn := cmd.String("database-url")
	if dsn == "" {
		dsn = cfg.Database.URL
	}
	redisURL := cmd.String("redis-url")
	if redisURL == "" {
		redisURL = cfg.Cache.URL
	}

	store, err := policystore.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	bus, err := invalidation.NewRedisBus(redisURL, log.Default())
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	facade := service.New(store, bus)
	cleanup := func() {
		store.Close()
		bus.Close()
	}
	return facade, cleanup, nil
}

func actionCreate(ctx context.Context, cmd *cli.Command) error {
	content, err := os.ReadFile(cmd.String("file"))
	if err != nil {
		return err
	}
	facade, cleanup, err := buildFacade(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := facade.CreatePolicy(ctx, string(content))
	if err != nil {
		return err
	}
	fmt.Println(doc.ID)
	return nil
}

func actionGet(ctx context.Context, cmd *cli.Command) error {
	facade, cleanup, err := buildFacade(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := facade.GetPolicy(ctx, cmd.String("id"))
	if err != nil {
		return err
	}
	fmt.Println(doc.Content)
	return nil
}

func actionList(ctx context.Context, cmd *cli.Command) error {
	facade, cleanup, err := buildFacade(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := facade.ListPolicies(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		fmt.Printf("%s\t%s\n", d.ID, d.UpdatedAt)
	}
	return nil
}

func actionUpdate(ctx context.Context, cmd *cli.Command) error {
	content, err := os.ReadFile(cmd.String("file"))
	if err != nil {
		return err
	}
	facade, cleanup, err := buildFacade(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = facade.UpdatePolicy(ctx, cmd.String("id"), string(content))
	return err
}

func actionDelete(ctx context.Context, cmd *cli.Command) error {
	facade, cleanup, err := buildFacade(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return facade.DeletePolicy(ctx, cmd.String("id"))
}

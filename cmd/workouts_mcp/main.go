// Package main runs the dailyfit MCP server over stdio, for local AI clients.
// The main backend mounts the same server at /mcp over HTTP.
package main

import (
	"context"
	"flag"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/config"
	"github.com/2beens/dailyfit/internal/db"
	"github.com/2beens/dailyfit/internal/equipment"
	"github.com/2beens/dailyfit/internal/exercises"
	dailyfitmcp "github.com/2beens/dailyfit/internal/mcp"
	"github.com/2beens/dailyfit/internal/workout"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Repository != config.RepositoryPostgres {
		log.Fatalf("mcp server needs the postgres repository, got [%s]", cfg.Repository)
	}

	ctx := context.Background()
	secrets, err := config.LoadSecrets(ctx)
	if err != nil {
		log.Fatalf("load secrets: %v", err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     secrets.PostgresPassword,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	catalog := exercises.NewService(
		exercises.NewPgRepo(dbPool),
		equipment.NewPgRepo(dbPool),
		cfg.CatalogCacheSizeMB,
		cfg.CatalogCacheTTLSeconds,
	)
	server := dailyfitmcp.NewServer(dailyfitmcp.NewContextService(
		dailyfitmcp.NewPoolSchemaRepo(dbPool),
		workout.NewPgRepo(dbPool),
		auth.NewUsersRepo(dbPool),
		catalog,
	))

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}

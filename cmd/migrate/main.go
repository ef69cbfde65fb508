package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/academic-panel/internal/repository"
	"github.com/noah-isme/academic-panel/internal/service"
	"github.com/noah-isme/academic-panel/migrations"
	"github.com/noah-isme/academic-panel/pkg/config"
	"github.com/noah-isme/academic-panel/pkg/database"
	"github.com/noah-isme/academic-panel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db.DB, migrations.FS, ".", logr)
	if err != nil {
		log.Fatalf("failed to init migrator: %v", err)
	}

	cli := &commandLine{
		migrator: migrator,
		users:    service.NewAuthService(repository.NewUserRepository(db), validator.New(), logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret}),
		out:      os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

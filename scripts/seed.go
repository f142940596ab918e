//go:build ignore

// Seeds the database with the demo fixtures. Run with:
//
//	go run scripts/seed.go
package main

import (
	"log"

	"github.com/hugh/toga/internal/database"
	"github.com/hugh/toga/pkg/config"
	"github.com/hugh/toga/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	if err := database.Seed(db, logger); err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}

	logger.Info("seeding complete")
}

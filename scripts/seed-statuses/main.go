// Command seed-statuses provisions the default status catalog so a fresh
// deployment starts with every workflow stage defined. Safe to re-run:
// existing definitions are left untouched.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/openacademia/research-track-api/internal/repository"
	"github.com/openacademia/research-track-api/internal/service"
	"github.com/openacademia/research-track-api/pkg/config"
	"github.com/openacademia/research-track-api/pkg/database"
)

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall seeding timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	repo := repository.NewStatusDefinitionRepository(db)

	seeded := 0
	for name, defaults := range service.DefaultCatalog() {
		if _, err := repo.GetOrCreate(ctx, name, defaults); err != nil {
			log.Fatalf("failed to seed status %q: %v", name, err)
		}
		seeded++
	}

	log.Printf("status catalog ready, %d definitions ensured", seeded)
}

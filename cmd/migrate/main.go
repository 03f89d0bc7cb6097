package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Metsalill/grocery-backend/internal/db"
	"github.com/Metsalill/grocery-backend/internal/platform/envutil"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

// Host-process bootstrap: connect to Postgres and bring the schema up to
// date. The core services themselves are wired by whatever process embeds
// them; this binary owns only the migration step.
func main() {
	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Migration failed", "error", err)
	}
	log.Info("Migration complete")
}

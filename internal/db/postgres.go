package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Metsalill/grocery-backend/internal/domain"
	"github.com/Metsalill/grocery-backend/internal/platform/envutil"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "grocery")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: gormDB, log: serviceLog}, nil
}

// AutoMigrateAll creates the core tables and tries to install the optional
// extensions the upper query tiers can take advantage of. Extension
// failures are logged and tolerated: every query path degrades gracefully
// when a capability is missing, so a deployment without superuser rights
// still works.
func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&domain.Product{},
		&domain.ProductAlias{},
		&domain.ListingMapping{},
		&domain.PriceObservation{},
		&domain.CurrentPrice{},
		&domain.Store{},
		&domain.StoreHostMap{},
	)
	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	for _, ext := range []string{"cube", "earthdistance", "pg_trgm"} {
		if err := s.db.Exec(fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS %q;`, ext)).Error; err != nil {
			s.log.Warn("Optional extension unavailable, query tiers will degrade", "extension", ext, "error", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

package testutil

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Metsalill/grocery-backend/internal/domain"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error

	sqliteSeq uint64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// SQLiteDB opens a fresh in-memory database with the full schema. SQLite
// lacks the Postgres spatial and fuzzy functions, so tests running on it
// exercise the lower degradation tiers for real rather than through mocks.
func SQLiteDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddUint64(&sqliteSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := migrateAll(db); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// PostgresDB returns a shared connection to the database named by
// TEST_POSTGRES_DSN, skipping the test when it is unset. Use for behavior
// only Postgres can express (earthdistance tiers, pg_trgm, real
// concurrency).
func PostgresDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	pgOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			pgErr = errMissingDSN
			return
		}
		pgDB, pgErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if pgErr != nil {
			return
		}
		pgErr = migrateAll(pgDB)
	})

	if errors.Is(pgErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run Postgres integration tests")
	}
	if pgErr != nil {
		tb.Fatalf("init test db: %v", pgErr)
	}
	return pgDB
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func migrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Product{},
		&domain.ProductAlias{},
		&domain.ListingMapping{},
		&domain.PriceObservation{},
		&domain.CurrentPrice{},
		&domain.Store{},
		&domain.StoreHostMap{},
	)
}

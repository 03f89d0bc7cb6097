package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Metsalill/grocery-backend/internal/data/testutil"
	"github.com/Metsalill/grocery-backend/internal/domain"
	"gorm.io/gorm"
)

func seedStore(t *testing.T, db *gorm.DB, name string, lat, lon *float64) uuid.UUID {
	t.Helper()
	store := domain.Store{ID: uuid.New(), Name: name, Chain: name, Lat: lat, Lon: lon}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("seed store %q: %v", name, err)
	}
	return store.ID
}

func seedProduct(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	product := domain.Product{ID: uuid.New(), Name: name}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product %q: %v", name, err)
	}
	return product.ID
}

func currentPrice(t *testing.T, db *gorm.DB, productID, storeID uuid.UUID) domain.CurrentPrice {
	t.Helper()
	var row domain.CurrentPrice
	err := db.First(&row, "product_id = ? AND store_id = ?", productID, storeID).Error
	if err != nil {
		t.Fatalf("load current price: %v", err)
	}
	return row
}

func TestRecordPriceNewerObservationWins(t *testing.T) {
	t1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	orders := [][]struct {
		at     time.Time
		amount string
	}{
		{{t1, "1.50"}, {t2, "1.80"}},
		{{t2, "1.80"}, {t1, "1.50"}},
	}

	for _, order := range orders {
		db := testutil.SQLiteDB(t)
		svc := NewLedgerService(db, testutil.Logger(t))
		ctx := context.Background()
		productID := seedProduct(t, db, "Milk")
		storeID := seedStore(t, db, "Store A", nil, nil)

		for _, obs := range order {
			err := svc.RecordPrice(ctx, RecordPriceInput{
				ProductID:  productID,
				StoreID:    storeID,
				Amount:     decimal.RequireFromString(obs.amount),
				ObservedAt: obs.at,
			})
			if err != nil {
				t.Fatalf("RecordPrice: %v", err)
			}
		}

		row := currentPrice(t, db, productID, storeID)
		if !row.Amount.Equal(decimal.RequireFromString("1.80")) {
			t.Fatalf("current amount = %s, want 1.80 (call order %v)", row.Amount, order)
		}
	}
}

func TestRecordPriceLowerAmountWinsOnTimestampTie(t *testing.T) {
	at := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	for _, amounts := range [][]string{{"3.49", "2.99"}, {"2.99", "3.49"}} {
		db := testutil.SQLiteDB(t)
		svc := NewLedgerService(db, testutil.Logger(t))
		ctx := context.Background()
		productID := seedProduct(t, db, "Bread")
		storeID := seedStore(t, db, "Store A", nil, nil)

		for _, amount := range amounts {
			err := svc.RecordPrice(ctx, RecordPriceInput{
				ProductID:  productID,
				StoreID:    storeID,
				Amount:     decimal.RequireFromString(amount),
				ObservedAt: at,
			})
			if err != nil {
				t.Fatalf("RecordPrice: %v", err)
			}
		}

		row := currentPrice(t, db, productID, storeID)
		if !row.Amount.Equal(decimal.RequireFromString("2.99")) {
			t.Fatalf("current amount = %s, want 2.99 (call order %v)", row.Amount, amounts)
		}
	}
}

func TestRecordPriceAppendsHistoryEveryCall(t *testing.T) {
	db := testutil.SQLiteDB(t)
	svc := NewLedgerService(db, testutil.Logger(t))
	ctx := context.Background()
	productID := seedProduct(t, db, "Eggs")
	storeID := seedStore(t, db, "Store A", nil, nil)

	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := svc.RecordPrice(ctx, RecordPriceInput{
			ProductID:  productID,
			StoreID:    storeID,
			Amount:     decimal.RequireFromString("2.10"),
			ObservedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("RecordPrice %d: %v", i, err)
		}

		n, err := svc.ObservationCount(ctx, productID, storeID)
		if err != nil {
			t.Fatalf("ObservationCount: %v", err)
		}
		if n != int64(i+1) {
			t.Fatalf("observation count = %d after %d calls", n, i+1)
		}
	}

	// Exactly one projection row per pair, regardless of history length.
	var projections int64
	if err := db.Model(&domain.CurrentPrice{}).Count(&projections).Error; err != nil {
		t.Fatalf("count projections: %v", err)
	}
	if projections != 1 {
		t.Fatalf("projection rows = %d, want 1", projections)
	}
}

func TestRecordPriceValidation(t *testing.T) {
	db := testutil.SQLiteDB(t)
	svc := NewLedgerService(db, testutil.Logger(t))
	ctx := context.Background()

	err := svc.RecordPrice(ctx, RecordPriceInput{
		StoreID: uuid.New(),
		Amount:  decimal.RequireFromString("1.00"),
	})
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("missing product id: err = %v, want validation", err)
	}

	err = svc.RecordPrice(ctx, RecordPriceInput{
		ProductID: uuid.New(),
		StoreID:   uuid.New(),
		Amount:    decimal.Zero,
	})
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("zero amount: err = %v, want validation", err)
	}

	// Validation failures must not touch history.
	var observations int64
	if err := db.Model(&domain.PriceObservation{}).Count(&observations).Error; err != nil {
		t.Fatalf("count observations: %v", err)
	}
	if observations != 0 {
		t.Fatalf("observations = %d, want 0", observations)
	}
}

func TestLatestPricesHonorsHostStoreMap(t *testing.T) {
	db := testutil.SQLiteDB(t)
	svc := NewLedgerService(db, testutil.Logger(t))
	ctx := context.Background()

	productID := seedProduct(t, db, "Milk")
	physicalID := seedStore(t, db, "Rimi Tallinn", nil, nil)
	hostID := seedStore(t, db, "Wolt Rimi", nil, nil)

	hostMap := domain.StoreHostMap{
		ID: uuid.New(), StoreID: physicalID, HostStoreID: hostID,
		Active: true, Priority: 1,
	}
	if err := db.Create(&hostMap).Error; err != nil {
		t.Fatalf("seed host map: %v", err)
	}

	// Prices live on the host store, not the physical one.
	err := svc.RecordPrice(ctx, RecordPriceInput{
		ProductID:  productID,
		StoreID:    hostID,
		Amount:     decimal.RequireFromString("1.25"),
		ObservedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RecordPrice: %v", err)
	}

	rows, err := svc.LatestPrices(ctx, []uuid.UUID{productID}, []uuid.UUID{physicalID})
	if err != nil {
		t.Fatalf("LatestPrices: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].StoreID != physicalID {
		t.Fatalf("row store = %s, want physical %s", rows[0].StoreID, physicalID)
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("amount = %s, want 1.25", rows[0].Amount)
	}
}

func TestLatestPricesFallsBackToObservationHistory(t *testing.T) {
	db := testutil.SQLiteDB(t)
	svc := NewLedgerService(db, testutil.Logger(t))
	ctx := context.Background()

	productID := seedProduct(t, db, "Milk")
	storeID := seedStore(t, db, "Store A", nil, nil)

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for i, amount := range []string{"1.40", "1.20", "1.30"} {
		err := svc.RecordPrice(ctx, RecordPriceInput{
			ProductID:  productID,
			StoreID:    storeID,
			Amount:     decimal.RequireFromString(amount),
			ObservedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("RecordPrice: %v", err)
		}
	}

	// Drop the projection table: the read side must reconstruct the
	// latest price from raw history.
	if err := db.Migrator().DropTable(&domain.CurrentPrice{}); err != nil {
		t.Fatalf("drop current_prices: %v", err)
	}

	rows, err := svc.LatestPrices(ctx, []uuid.UUID{productID}, []uuid.UUID{storeID})
	if err != nil {
		t.Fatalf("LatestPrices: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("1.30")) {
		t.Fatalf("amount = %s, want most recent 1.30", rows[0].Amount)
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Metsalill/grocery-backend/internal/data/testutil"
	"github.com/Metsalill/grocery-backend/internal/domain"
)

func TestIngestListingEndToEnd(t *testing.T) {
	db := testutil.SQLiteDB(t)
	log := testutil.Logger(t)
	identity := NewIdentityService(db, log)
	ledger := NewLedgerService(db, log)
	svc := NewIngestService(identity, ledger, log)
	ctx := context.Background()

	storeID := seedStore(t, db, "Rimi Kristiine", ptr(59.427), ptr(24.723))

	listing := ScrapedListing{
		Source:     "rimi-scraper",
		ExternalID: "sku-100",
		StoreID:    storeID,
		RawName:    "Piim 2.5% 1L",
		RawBrand:   "Alma",
		RawSize:    "1 L",
		RawBarcode: "4740123456789",
		Amount:     decimal.RequireFromString("0.89"),
		CapturedAt: time.Date(2026, 8, 21, 8, 0, 0, 0, time.UTC),
	}

	productID, err := svc.IngestListing(ctx, listing)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	var product domain.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Barcode == nil || *product.Barcode != "4740123456789" {
		t.Fatalf("product barcode = %v, want 4740123456789", product.Barcode)
	}
	if product.Name != "Piim 2.5% 1L" || product.Brand != "Alma" {
		t.Fatalf("product attributes not carried: %+v", product)
	}

	row := currentPrice(t, db, productID, storeID)
	if !row.Amount.Equal(decimal.RequireFromString("0.89")) {
		t.Fatalf("current amount = %s, want 0.89", row.Amount)
	}
	if row.Currency != "EUR" {
		t.Fatalf("currency = %s, want the EUR default", row.Currency)
	}

	// Same listing observed again a day later at a new price: identity
	// converges, history grows, the projection follows.
	listing.Amount = decimal.RequireFromString("0.95")
	listing.CapturedAt = listing.CapturedAt.Add(24 * time.Hour)

	againID, err := svc.IngestListing(ctx, listing)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if againID != productID {
		t.Fatalf("second ingest resolved %s, want %s", againID, productID)
	}

	count, err := ledger.ObservationCount(ctx, productID, storeID)
	if err != nil {
		t.Fatalf("observation count: %v", err)
	}
	if count != 2 {
		t.Fatalf("observations = %d, want 2", count)
	}
	row = currentPrice(t, db, productID, storeID)
	if !row.Amount.Equal(decimal.RequireFromString("0.95")) {
		t.Fatalf("projected amount = %s, want the newer 0.95", row.Amount)
	}

	var mappings int64
	err = db.Model(&domain.ListingMapping{}).
		Where("source = ? AND external_id = ?", "rimi-scraper", "sku-100").
		Count(&mappings).Error
	if err != nil {
		t.Fatalf("count mappings: %v", err)
	}
	if mappings != 1 {
		t.Fatalf("mappings = %d, want exactly 1", mappings)
	}
}

func TestIngestListingRejectsBadPrice(t *testing.T) {
	db := testutil.SQLiteDB(t)
	log := testutil.Logger(t)
	svc := NewIngestService(NewIdentityService(db, log), NewLedgerService(db, log), log)

	storeID := seedStore(t, db, "Store", nil, nil)
	_, err := svc.IngestListing(context.Background(), ScrapedListing{
		Source:     "s",
		ExternalID: "x",
		StoreID:    storeID,
		RawName:    "Leib",
		Amount:     decimal.Zero,
	})
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

// ScrapedListing is the full payload a scraper collaborator hands over for
// one observed shelf price. The core never parses markup; everything here
// arrives pre-extracted.
type ScrapedListing struct {
	Source     string
	ExternalID string
	StoreID    uuid.UUID
	RawName    string
	RawBrand   string
	RawSize    string
	RawBarcode string
	Amount     decimal.Decimal
	Currency   string
	CapturedAt time.Time
	PriceType  *string
	SourceURL  *string
}

// IngestService is the ingestion-path facade: resolve the listing to a
// canonical identity, then record the price against it.
type IngestService struct {
	identity *IdentityService
	ledger   *LedgerService
	log      *logger.Logger
}

func NewIngestService(identity *IdentityService, ledger *LedgerService, baseLog *logger.Logger) *IngestService {
	return &IngestService{
		identity: identity,
		ledger:   ledger,
		log:      baseLog.With("service", "IngestService"),
	}
}

// IngestListing resolves the listing and appends its price observation,
// returning the canonical product id the listing landed on.
func (s *IngestService) IngestListing(ctx context.Context, listing ScrapedListing) (uuid.UUID, error) {
	productID, err := s.identity.ResolveOrCreate(ctx, ResolveInput{
		Source:     listing.Source,
		ExternalID: listing.ExternalID,
		RawName:    listing.RawName,
		RawBrand:   listing.RawBrand,
		RawSize:    listing.RawSize,
		RawBarcode: listing.RawBarcode,
	})
	if err != nil {
		return uuid.Nil, err
	}

	err = s.ledger.RecordPrice(ctx, RecordPriceInput{
		ProductID:  productID,
		StoreID:    listing.StoreID,
		Amount:     listing.Amount,
		Currency:   listing.Currency,
		ObservedAt: listing.CapturedAt,
		PriceType:  listing.PriceType,
		SourceURL:  listing.SourceURL,
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.log.Debug("listing ingested",
		"source", listing.Source, "external_id", listing.ExternalID,
		"product_id", productID, "store_id", listing.StoreID)
	return productID, nil
}

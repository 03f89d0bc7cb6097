package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Metsalill/grocery-backend/internal/domain"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

type RecordPriceInput struct {
	ProductID  uuid.UUID
	StoreID    uuid.UUID
	Amount     decimal.Decimal
	Currency   string
	ObservedAt time.Time
	PriceType  *string
	SourceURL  *string
}

// StorePrice is one latest-price row as the read side returns it.
type StorePrice struct {
	ProductID uuid.UUID       `gorm:"column:product_id"`
	StoreID   uuid.UUID       `gorm:"column:store_id"`
	Amount    decimal.Decimal `gorm:"column:amount"`
}

type LedgerService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerService(db *gorm.DB, baseLog *logger.Logger) *LedgerService {
	return &LedgerService{db: db, log: baseLog.With("service", "LedgerService")}
}

// RecordPrice appends one immutable observation and refreshes the
// (product, store) projection in the same transaction. The append is
// mandatory: if it fails, the whole call fails and the projection is
// untouched, so the projection can never run ahead of history. The
// projection write is a single conditional upsert guarded by the
// precedence predicate (strictly newer observed_at wins; on an exact
// timestamp tie the lower amount wins), which makes it safe under any
// number of concurrent writers without explicit locking.
func (s *LedgerService) RecordPrice(ctx context.Context, in RecordPriceInput) error {
	const op = "ledger.record_price"

	if in.ProductID == uuid.Nil || in.StoreID == uuid.Nil {
		return domain.NewError(domain.CodeValidation, op, "product id and store id are required", nil)
	}
	if !in.Amount.IsPositive() {
		return domain.NewError(domain.CodeValidation, op, "amount must be positive", nil)
	}
	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		currency = "EUR"
	}
	observedAt := in.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		observation := domain.PriceObservation{
			ID:         uuid.New(),
			ProductID:  in.ProductID,
			StoreID:    in.StoreID,
			Amount:     in.Amount,
			Currency:   currency,
			CapturedAt: observedAt,
			PriceType:  in.PriceType,
			SourceURL:  in.SourceURL,
		}
		if err := tx.Create(&observation).Error; err != nil {
			return err
		}

		return tx.Exec(`
INSERT INTO current_prices (product_id, store_id, amount, currency, observed_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (product_id, store_id) DO UPDATE
SET amount      = excluded.amount,
    currency    = excluded.currency,
    observed_at = excluded.observed_at,
    updated_at  = excluded.updated_at
WHERE excluded.observed_at > current_prices.observed_at
   OR (excluded.observed_at = current_prices.observed_at
       AND excluded.amount < current_prices.amount)
`, in.ProductID, in.StoreID, in.Amount, currency, observedAt, time.Now().UTC()).Error
	})
	if err != nil {
		return domain.Wrap(domain.CodeDataIntegrity, op, err)
	}
	return nil
}

// LatestPrices returns the latest price per (product, physical store) for
// the given id sets. Variants, most capable first: a current_prices read
// that honors store_host_map redirects, the same read without the map,
// and finally a window over the raw observation history when the
// projection table itself is absent.
func (s *LedgerService) LatestPrices(ctx context.Context, productIDs, storeIDs []uuid.UUID) ([]StorePrice, error) {
	const op = "ledger.latest_prices"

	if len(productIDs) == 0 || len(storeIDs) == 0 {
		return nil, nil
	}

	var rows []StorePrice
	err := runTiers(s.log, op, []queryTier{
		{name: "current_with_host_map", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
WITH effective_source AS (
  SELECT s.id AS physical_store_id,
         COALESCE(m.host_store_id, s.id) AS source_store_id
  FROM stores s
  LEFT JOIN (
    SELECT store_id, host_store_id
    FROM (
      SELECT shm.store_id, shm.host_store_id,
             ROW_NUMBER() OVER (
               PARTITION BY shm.store_id
               ORDER BY (CASE WHEN shm.active THEN 0 ELSE 1 END),
                        shm.priority, shm.host_store_id
             ) AS rn
      FROM store_host_map shm
    ) z
    WHERE rn = 1
  ) m ON m.store_id = s.id
  WHERE s.id IN ?
)
SELECT cp.product_id,
       es.physical_store_id AS store_id,
       cp.amount
FROM effective_source es
JOIN current_prices cp
  ON cp.store_id = es.source_store_id
 AND cp.product_id IN ?
`, storeIDs, productIDs).Scan(&rows).Error
		}},
		{name: "current_direct", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
SELECT product_id, store_id, amount
FROM current_prices
WHERE product_id IN ? AND store_id IN ?
`, productIDs, storeIDs).Scan(&rows).Error
		}},
		{name: "observation_window", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
SELECT product_id, store_id, amount
FROM (
  SELECT product_id, store_id, amount, captured_at,
         ROW_NUMBER() OVER (
           PARTITION BY product_id, store_id
           ORDER BY captured_at DESC, amount ASC
         ) AS rn
  FROM price_observations
  WHERE product_id IN ? AND store_id IN ?
) t
WHERE rn = 1
`, productIDs, storeIDs).Scan(&rows).Error
		}},
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ObservationCount reports how many observations exist for a pair. The
// count only ever grows: history is append-only.
func (s *LedgerService) ObservationCount(ctx context.Context, productID, storeID uuid.UUID) (int64, error) {
	const op = "ledger.observation_count"
	var n int64
	err := s.db.WithContext(ctx).
		Model(&domain.PriceObservation{}).
		Where("product_id = ? AND store_id = ?", productID, storeID).
		Count(&n).Error
	if err != nil {
		return 0, domain.Wrap(domain.CodeInternal, op, err)
	}
	return n, nil
}

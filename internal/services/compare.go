package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Metsalill/grocery-backend/internal/domain"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

const (
	maxBasketItems     = 50
	maxCompareRadiusKM = 15.0
	defaultRadiusKM    = 5.0
	defaultStoreLimit  = 50
)

type BasketItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type CompareRequest struct {
	Items           []BasketItem
	Lat             *float64
	Lon             *float64
	RadiusKM        float64
	LimitStores     int
	OffsetStores    int
	IncludeLines    bool
	RequireAllItems bool
}

type CompareLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type StoreTotal struct {
	StoreID        uuid.UUID       `json:"store_id"`
	StoreName      string          `json:"store_name"`
	Chain          string          `json:"chain"`
	DistanceKM     *float64        `json:"distance_km,omitempty"`
	ItemsFound     int             `json:"items_found"`
	ItemsRequested int             `json:"items_requested"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Lines          []CompareLine   `json:"lines,omitempty"`
}

type CompareResult struct {
	Stores          []StoreTotal `json:"stores"`
	MissingProducts []string     `json:"missing_products"`
	RadiusKM        float64      `json:"radius_km"`
}

type CompareService struct {
	db     *gorm.DB
	geo    *GeoService
	ledger *LedgerService
	log    *logger.Logger
}

func NewCompareService(db *gorm.DB, geo *GeoService, ledger *LedgerService, baseLog *logger.Logger) *CompareService {
	return &CompareService{
		db:     db,
		geo:    geo,
		ledger: ledger,
		log:    baseLog.With("service", "CompareService"),
	}
}

// Compare prices a basket across candidate stores and returns per-store
// totals ranked by ascending total price, ties broken by store id. A
// basket is either fully priceable or its gaps are reported: when any
// item name resolves to no canonical product and the caller did not ask
// for partial fulfillment, the result carries the missing names and no
// store totals. With RequireAllItems false, stores that price only part
// of the basket qualify too, and each reports how many of the requested
// items it actually priced.
func (s *CompareService) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	const op = "compare.compare"

	wanted, spelling, err := normalizeBasket(op, req.Items)
	if err != nil {
		return nil, err
	}

	radiusKM := req.RadiusKM
	if radiusKM == 0 {
		radiusKM = defaultRadiusKM
	}
	limit := req.LimitStores
	if limit == 0 {
		limit = defaultStoreLimit
	}
	if req.Lat != nil && req.Lon != nil && (radiusKM < minRadiusKM || radiusKM > maxCompareRadiusKM) {
		return nil, domain.NewError(domain.CodeValidation, op, "radius_km out of range", nil)
	}
	if limit < 1 || limit > maxGeoLimit {
		return nil, domain.NewError(domain.CodeValidation, op, "limit_stores out of range", nil)
	}
	if req.OffsetStores < 0 {
		return nil, domain.NewError(domain.CodeValidation, op, "offset_stores must be non-negative", nil)
	}

	// Product resolution and store candidates are independent reads.
	var resolved map[string]resolvedProduct
	var stores []candidateStore

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resolved, err = s.resolveBasketNames(gctx, keysOf(wanted))
		return err
	})
	g.Go(func() error {
		var err error
		stores, err = s.storeCandidates(gctx, req.Lat, req.Lon, radiusKM, limit, req.OffsetStores)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	missing := make([]string, 0)
	for key := range wanted {
		if _, ok := resolved[key]; !ok {
			missing = append(missing, spelling[key])
		}
	}
	sort.Strings(missing)

	result := &CompareResult{
		Stores:          []StoreTotal{},
		MissingProducts: missing,
		RadiusKM:        radiusKM,
	}
	if len(missing) > 0 && req.RequireAllItems {
		return result, nil
	}
	if len(resolved) == 0 {
		return result, nil
	}

	productIDs := make([]uuid.UUID, 0, len(resolved))
	for _, p := range resolved {
		productIDs = append(productIDs, p.ID)
	}
	storeIDs := make([]uuid.UUID, 0, len(stores))
	for _, st := range stores {
		storeIDs = append(storeIDs, st.ID)
	}

	prices, err := s.ledger.LatestPrices(ctx, productIDs, storeIDs)
	if err != nil {
		return nil, err
	}
	priceByStore := make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal, len(stores))
	for _, p := range prices {
		byProduct, ok := priceByStore[p.StoreID]
		if !ok {
			byProduct = make(map[uuid.UUID]decimal.Decimal)
			priceByStore[p.StoreID] = byProduct
		}
		byProduct[p.ProductID] = p.Amount
	}

	required := len(resolved)
	for _, st := range stores {
		byProduct := priceByStore[st.ID]
		total := decimal.Zero
		found := 0
		var lines []CompareLine

		for key, qty := range wanted {
			product, ok := resolved[key]
			if !ok {
				continue
			}
			unitPrice, ok := byProduct[product.ID]
			if !ok {
				continue
			}
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
			total = total.Add(lineTotal)
			found++
			if req.IncludeLines {
				lines = append(lines, CompareLine{
					ProductID:   product.ID,
					ProductName: product.Name,
					Quantity:    qty,
					UnitPrice:   unitPrice,
					LineTotal:   lineTotal,
				})
			}
		}

		if found == 0 {
			continue
		}
		if req.RequireAllItems && found < required {
			continue
		}

		result.Stores = append(result.Stores, StoreTotal{
			StoreID:        st.ID,
			StoreName:      st.Name,
			Chain:          st.Chain,
			DistanceKM:     st.DistanceKM,
			ItemsFound:     found,
			ItemsRequested: required,
			TotalPrice:     total.Round(2),
			Lines:          lines,
		})
	}

	sortStoreTotals(result.Stores)
	return result, nil
}

type resolvedProduct struct {
	ID   uuid.UUID
	Name string
}

type candidateStore struct {
	ID         uuid.UUID
	Name       string
	Chain      string
	DistanceKM *float64
}

// normalizeBasket lower-cases and trims item names, collapses duplicate
// lines by summing quantities, and remembers the caller's first spelling
// of each name for the missing-products report.
func normalizeBasket(op string, items []BasketItem) (map[string]int, map[string]string, error) {
	if len(items) == 0 {
		return nil, nil, domain.NewError(domain.CodeValidation, op, "basket is empty", nil)
	}
	if len(items) > maxBasketItems {
		return nil, nil, domain.NewError(domain.CodeValidation, op, "basket too large", nil)
	}

	wanted := make(map[string]int, len(items))
	spelling := make(map[string]string, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, nil, domain.NewError(domain.CodeValidation, op, "basket item name is empty", nil)
		}
		if it.Quantity < 1 {
			return nil, nil, domain.NewError(domain.CodeValidation, op, "basket item quantity must be at least 1", nil)
		}
		key := strings.ToLower(name)
		if _, seen := wanted[key]; !seen {
			spelling[key] = name
		}
		wanted[key] += it.Quantity
	}
	return wanted, spelling, nil
}

type resolutionRow struct {
	MatchKey string    `gorm:"column:match_key"`
	ID       uuid.UUID `gorm:"column:id"`
	Name     string    `gorm:"column:name"`
}

// resolveBasketNames maps normalized basket names to canonical products by
// exact case-insensitive match. The alias-aware variant is preferred;
// when the alias table is absent the products-only variant serves.
// Unresolved names that normalize to a usable barcode get one more chance
// as a direct barcode lookup, so a basket can mix names and EANs.
func (s *CompareService) resolveBasketNames(ctx context.Context, keys []string) (map[string]resolvedProduct, error) {
	const op = "compare.resolve_basket"

	if len(keys) == 0 {
		return map[string]resolvedProduct{}, nil
	}

	var rows []resolutionRow
	err := runTiers(s.log, op, []queryTier{
		{name: "products_and_aliases", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
SELECT LOWER(p.name) AS match_key, p.id, p.name
FROM products p
WHERE LOWER(p.name) IN ?
UNION
SELECT LOWER(a.alias) AS match_key, p.id, p.name
FROM products p
JOIN product_aliases a ON a.product_id = p.id
WHERE LOWER(a.alias) IN ?
`, keys, keys).Scan(&rows).Error
		}},
		{name: "products_only", run: func() error {
			rows = nil
			return s.db.WithContext(ctx).Raw(`
SELECT LOWER(p.name) AS match_key, p.id, p.name
FROM products p
WHERE LOWER(p.name) IN ?
`, keys).Scan(&rows).Error
		}},
	})
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]resolvedProduct, len(keys))
	for _, r := range rows {
		// Deterministic winner per key: the smallest product id.
		if existing, ok := resolved[r.MatchKey]; ok && existing.ID.String() <= r.ID.String() {
			continue
		}
		resolved[r.MatchKey] = resolvedProduct{ID: r.ID, Name: r.Name}
	}

	if err := s.resolveBarcodeKeys(ctx, op, keys, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolveBarcodeKeys handles basket entries that are barcode strings
// rather than names.
func (s *CompareService) resolveBarcodeKeys(ctx context.Context, op string, keys []string, resolved map[string]resolvedProduct) error {
	type barcodeKey struct {
		key     string
		barcode string
	}
	var pending []barcodeKey
	barcodes := make([]string, 0)
	for _, k := range keys {
		if _, ok := resolved[k]; ok {
			continue
		}
		if normalized, usable := NormalizeBarcode(k); usable && isDigits(k) {
			pending = append(pending, barcodeKey{key: k, barcode: normalized})
			barcodes = append(barcodes, normalized)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var products []domain.Product
	err := s.db.WithContext(ctx).
		Where("barcode IN ?", barcodes).
		Find(&products).Error
	if err != nil {
		return domain.Wrap(domain.CodeInternal, op, err)
	}
	byBarcode := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if p.Barcode != nil {
			byBarcode[*p.Barcode] = p
		}
	}
	for _, bk := range pending {
		if p, ok := byBarcode[bk.barcode]; ok {
			resolved[bk.key] = resolvedProduct{ID: p.ID, Name: p.Name}
		}
	}
	return nil
}

// storeCandidates returns the stores to price the basket against. With an
// origin the geo tiers apply; without one every store qualifies and
// distance is omitted.
func (s *CompareService) storeCandidates(ctx context.Context, lat, lon *float64, radiusKM float64, limit, offset int) ([]candidateStore, error) {
	const op = "compare.store_candidates"

	if lat != nil && lon != nil {
		nearby, err := s.geo.NearestStores(ctx, *lat, *lon, radiusKM, limit, offset)
		if err != nil {
			return nil, err
		}
		out := make([]candidateStore, 0, len(nearby))
		for _, n := range nearby {
			d := n.DistanceKM
			out = append(out, candidateStore{
				ID:         n.ID,
				Name:       n.Name,
				Chain:      n.Chain,
				DistanceKM: &d,
			})
		}
		return out, nil
	}

	var stores []domain.Store
	err := s.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&stores).Error
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	out := make([]candidateStore, 0, len(stores))
	for _, st := range stores {
		out = append(out, candidateStore{ID: st.ID, Name: st.Name, Chain: st.Chain})
	}
	return out, nil
}

func keysOf(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sortStoreTotals(stores []StoreTotal) {
	sort.Slice(stores, func(i, j int) bool {
		if cmp := stores[i].TotalPrice.Cmp(stores[j].TotalPrice); cmp != 0 {
			return cmp < 0
		}
		return stores[i].StoreID.String() < stores[j].StoreID.String()
	})
}

package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Metsalill/grocery-backend/internal/data/dberr"
	"github.com/Metsalill/grocery-backend/internal/domain"
	"github.com/Metsalill/grocery-backend/internal/platform/logger"
)

// ResolveInput is one scraped listing's identity fields, exactly as the
// scraper collaborator hands them over. Nothing here is assumed clean.
type ResolveInput struct {
	Source     string
	ExternalID string
	RawName    string
	RawBrand   string
	RawSize    string
	RawBarcode string
}

type IdentityService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdentityService(db *gorm.DB, baseLog *logger.Logger) *IdentityService {
	return &IdentityService{db: db, log: baseLog.With("service", "IdentityService")}
}

// ResolveOrCreate maps a listing to its canonical product id, creating the
// product when no match exists. A usable normalized barcode is the primary
// key for matching; without one, an exact case-insensitive name match
// bounds duplication. Losing a create race to a concurrent caller is an
// expected outcome and resolves by re-select, never by error.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, in ResolveInput) (uuid.UUID, error) {
	const op = "identity.resolve_or_create"

	name := strings.TrimSpace(in.RawName)
	barcode, hasBarcode := NormalizeBarcode(in.RawBarcode)
	if !hasBarcode && name == "" {
		return uuid.Nil, domain.NewError(domain.CodeValidation, op, "listing has neither a usable barcode nor a name", nil)
	}

	var productID uuid.UUID
	var err error
	if hasBarcode {
		productID, err = s.resolveByBarcode(ctx, op, barcode, name, in)
	} else {
		productID, err = s.resolveByName(ctx, op, name, in)
	}
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.upsertMapping(ctx, op, in, productID); err != nil {
		return uuid.Nil, err
	}
	return productID, nil
}

func (s *IdentityService) resolveByBarcode(ctx context.Context, op, barcode, name string, in ResolveInput) (uuid.UUID, error) {
	if id, err := s.findByBarcode(ctx, op, barcode); err != nil || id != uuid.Nil {
		return id, err
	}

	product := domain.Product{
		ID:       uuid.New(),
		Barcode:  &barcode,
		Name:     name,
		Brand:    strings.TrimSpace(in.RawBrand),
		SizeText: strings.TrimSpace(in.RawSize),
	}
	err := s.db.WithContext(ctx).Create(&product).Error
	if err == nil {
		s.log.Debug("created canonical product", "product_id", product.ID, "barcode", barcode)
		return product.ID, nil
	}
	if !dberr.IsUniqueViolation(err) {
		return uuid.Nil, domain.Wrap(domain.CodeDataIntegrity, op, err)
	}

	// Another caller inserted the same barcode between our select and
	// insert. The winner's row is the canonical one.
	id, selErr := s.findByBarcode(ctx, op, barcode)
	if selErr != nil {
		return uuid.Nil, selErr
	}
	if id == uuid.Nil {
		return uuid.Nil, domain.Wrap(domain.CodeDataIntegrity, op, err)
	}
	return id, nil
}

func (s *IdentityService) findByBarcode(ctx context.Context, op, barcode string) (uuid.UUID, error) {
	var product domain.Product
	err := s.db.WithContext(ctx).
		Where("barcode = ?", barcode).
		Limit(1).
		Find(&product).Error
	if err != nil {
		return uuid.Nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	return product.ID, nil
}

// resolveByName is the barcode-less fallback. It can fragment identity
// across stores that name the same good differently; that limitation is
// accepted, not papered over with a guessed similarity heuristic.
func (s *IdentityService) resolveByName(ctx context.Context, op, name string, in ResolveInput) (uuid.UUID, error) {
	var product domain.Product
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&product).Error
	if err != nil {
		return uuid.Nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	if product.ID != uuid.Nil {
		return product.ID, nil
	}

	product = domain.Product{
		ID:       uuid.New(),
		Name:     name,
		Brand:    strings.TrimSpace(in.RawBrand),
		SizeText: strings.TrimSpace(in.RawSize),
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return uuid.Nil, domain.Wrap(domain.CodeDataIntegrity, op, err)
	}
	s.log.Debug("created canonical product without barcode", "product_id", product.ID, "name", name)
	return product.ID, nil
}

// upsertMapping records which (source, external id) pair resolved to which
// product. Re-resolving the same pair is a no-op.
func (s *IdentityService) upsertMapping(ctx context.Context, op string, in ResolveInput, productID uuid.UUID) error {
	source := strings.TrimSpace(in.Source)
	externalID := strings.TrimSpace(in.ExternalID)
	if source == "" || externalID == "" {
		return nil
	}
	mapping := domain.ListingMapping{
		ID:         uuid.New(),
		Source:     source,
		ExternalID: externalID,
		ProductID:  productID,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "external_id"}},
			DoNothing: true,
		}).
		Create(&mapping).Error
	if err != nil {
		return domain.Wrap(domain.CodeDataIntegrity, op, err)
	}
	return nil
}

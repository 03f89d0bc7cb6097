package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Metsalill/grocery-backend/internal/domain"
)

const maxSearchLimit = 50

type ProductHit struct {
	ID   uuid.UUID `gorm:"column:id" json:"id"`
	Name string    `gorm:"column:name" json:"name"`
}

// SearchProducts serves typeahead lookups over product names. When the
// backend has a trigram similarity function installed the results are
// similarity-ranked with prefix matches first; otherwise a plain
// case-insensitive contains match serves. The variant is picked by
// catching the undefined-function error, like every optional capability.
func (s *IdentityService) SearchProducts(ctx context.Context, query string, limit int) ([]ProductHit, error) {
	const op = "identity.search_products"

	term := strings.TrimSpace(query)
	if term == "" || strings.Trim(term, "%*") == "" {
		return nil, domain.NewError(domain.CodeValidation, op, "query too broad", nil)
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, domain.NewError(domain.CodeValidation, op, "limit out of range", nil)
	}

	prefix := term + "%"
	contains := "%" + term + "%"

	var hits []ProductHit
	err := runTiers(s.log, op, []queryTier{
		{name: "trigram", run: func() error {
			hits = nil
			return s.db.WithContext(ctx).Raw(`
SELECT p.id, p.name
FROM products p
WHERE LOWER(p.name) LIKE LOWER(?)
   OR similarity(p.name, ?) > 0.3
ORDER BY
  CASE WHEN LOWER(p.name) LIKE LOWER(?) THEN 0 ELSE 1 END,
  similarity(p.name, ?) DESC,
  p.name ASC
LIMIT ?
`, prefix, term, prefix, term, limit).Scan(&hits).Error
		}},
		{name: "like", run: func() error {
			hits = nil
			return s.db.WithContext(ctx).Raw(`
SELECT id, name
FROM products
WHERE LOWER(name) LIKE LOWER(?)
ORDER BY name ASC
LIMIT ?
`, contains, limit).Scan(&hits).Error
		}},
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

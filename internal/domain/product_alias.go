package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductAlias is an alternate display name for a product, used by
// name-keyed resolution and search. The table is optional per deployment;
// queries that consult it fall back to products-only variants when it is
// absent.
type ProductAlias struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;column:product_id" json:"product_id"`
	Alias     string    `gorm:"not null;index;column:alias" json:"alias"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ProductAlias) TableName() string {
	return "product_aliases"
}

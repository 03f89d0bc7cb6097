package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is the single canonical identity that per-store listings are
// reconciled to. Barcode is the normalized EAN/GTIN when one is known;
// it is unique across products but optional (NULLs do not collide).
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Barcode   *string   `gorm:"uniqueIndex;column:barcode" json:"barcode,omitempty"`
	Name      string    `gorm:"not null;index;column:name" json:"name"`
	Brand     string    `gorm:"column:brand" json:"brand"`
	SizeText  string    `gorm:"column:size_text" json:"size_text"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

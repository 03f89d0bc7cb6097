package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingMapping links a scraper's (source, external id) pair to the
// canonical product it resolved to. Many listings map to one product;
// a given pair maps to exactly one.
type ListingMapping struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Source     string    `gorm:"not null;uniqueIndex:idx_listing_source_ext;column:source" json:"source"`
	ExternalID string    `gorm:"not null;uniqueIndex:idx_listing_source_ext;column:external_id" json:"external_id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index;column:product_id" json:"product_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (ListingMapping) TableName() string {
	return "listing_mappings"
}

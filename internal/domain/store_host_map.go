package domain

import (
	"time"

	"github.com/google/uuid"
)

// StoreHostMap redirects a physical store's price source to a host store,
// e.g. a delivery-platform storefront that carries the real shelf prices.
// The table is optional per deployment; price reads that honor it fall
// back to direct reads when it is absent. When several rows exist for one
// store, the active row with the lowest priority value wins.
type StoreHostMap struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StoreID     uuid.UUID `gorm:"type:uuid;not null;index;column:store_id" json:"store_id"`
	HostStoreID uuid.UUID `gorm:"type:uuid;not null;column:host_store_id" json:"host_store_id"`
	Active      bool      `gorm:"not null;default:true;column:active" json:"active"`
	Priority    int       `gorm:"not null;default:100;column:priority" json:"priority"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (StoreHostMap) TableName() string {
	return "store_host_map"
}

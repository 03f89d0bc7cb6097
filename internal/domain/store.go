package domain

import (
	"time"

	"github.com/google/uuid"
)

// Store is a physical or online outlet. Lat/Lon are optional: online-only
// stores have none and are excluded from geo-filtered queries.
type Store struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null;column:name" json:"name"`
	Chain     string    `gorm:"index;column:chain" json:"chain"`
	Lat       *float64  `gorm:"column:lat" json:"lat,omitempty"`
	Lon       *float64  `gorm:"column:lon" json:"lon,omitempty"`
	Online    bool      `gorm:"not null;default:false;column:online" json:"online"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Store) TableName() string {
	return "stores"
}

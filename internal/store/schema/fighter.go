package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Fighter represents the fighters table - one row per normalized fighter name
type Fighter struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name is the normalized fighter name (title markers, footnotes and odd spacing removed)
	Name string `gorm:"column:name;not null;uniqueIndex;type:text"`
	// WeightClass is the division of the first fight the fighter was seen in
	WeightClass *string `gorm:"column:weight_class;type:text"`
	// Record is the professional {wins, losses, draws} triple when known
	Record datatypes.JSON `gorm:"column:record;type:jsonb"`
	// CreatedAt is the timestamp when this fighter was first seen
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this fighter was last patched
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Fighter model
func (Fighter) TableName() string {
	return "fighters"
}

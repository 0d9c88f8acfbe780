package schema

import (
	"time"

	"gorm.io/datatypes"
)

// EventStatus represents the lifecycle state of an event or a fight
type EventStatus string

const (
	// EventStatusCompleted marks an event whose results are known
	EventStatusCompleted EventStatus = "completed"
	// EventStatusScheduled marks an event that has not happened yet
	EventStatusScheduled EventStatus = "scheduled"
)

// Event represents the events table - one row per UFC event, keyed by its unique name
type Event struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name is the event title as listed on the index page (e.g., "UFC 300: Pereira vs. Hill")
	Name string `gorm:"column:name;not null;uniqueIndex;type:text"`
	// Date is the civil date of the event; NULL when unknown
	Date *datatypes.Date `gorm:"column:date;type:date;index"`
	// Venue is the arena name
	Venue *string `gorm:"column:venue;type:text"`
	// Location is the city, region and country
	Location *string `gorm:"column:location;type:text"`
	// Status is the lifecycle state of the event
	Status EventStatus `gorm:"column:status;not null;type:text;default:completed"`
	// CreatedAt is the timestamp when this event was first ingested
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this event was last patched
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Fights []Fight `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "events"
}

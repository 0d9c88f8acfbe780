package schema

import (
	"time"
)

// Fight represents the fights table - one decided bout of an event card.
// (event_id, fight_order) is unique and each event has at most one main and one co-main event.
type Fight struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID references the event the bout belongs to
	EventID int64 `gorm:"column:event_id;not null;uniqueIndex:idx_fights_event_order,priority:1"`
	// Fighter1ID references the winner
	Fighter1ID *int64 `gorm:"column:fighter1_id"`
	// Fighter2ID references the loser
	Fighter2ID *int64 `gorm:"column:fighter2_id"`
	// WinnerName is the display name as printed on the card
	WinnerName string `gorm:"column:winner_name;not null;type:text"`
	// LoserName is the display name as printed on the card
	LoserName string `gorm:"column:loser_name;not null;type:text"`
	// WeightClass is the division text as printed, catchweights included
	WeightClass string `gorm:"column:weight_class;not null;type:text"`
	// Method is the finish or decision text
	Method string `gorm:"column:method;not null;type:text"`
	// Round is the round the bout ended in; NULL when not numeric
	Round *int `gorm:"column:round"`
	// Time is the clock time the bout ended at
	Time *string `gorm:"column:time;type:text"`
	// FightOrder is the 1-based position on the card, main event first
	FightOrder int `gorm:"column:fight_order;not null;uniqueIndex:idx_fights_event_order,priority:2"`
	// IsMainEvent is true for fight order 1
	IsMainEvent bool `gorm:"column:is_main_event;not null;default:false"`
	// IsCoMainEvent is true for fight order 2
	IsCoMainEvent bool `gorm:"column:is_co_main_event;not null;default:false"`
	// Status is the lifecycle state of the bout
	Status EventStatus `gorm:"column:status;not null;type:text;default:completed"`
	// CreatedAt is the timestamp when this bout was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Fighter1 *Fighter `gorm:"foreignKey:Fighter1ID;constraint:OnDelete:SET NULL"`
	Fighter2 *Fighter `gorm:"foreignKey:Fighter2ID;constraint:OnDelete:SET NULL"`
}

// TableName specifies the table name for the Fight model
func (Fight) TableName() string {
	return "fights"
}

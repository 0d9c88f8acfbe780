package domain

// Status represents the lifecycle state of an event or a fight
type Status string

const (
	StatusCompleted Status = "completed"
	StatusScheduled Status = "scheduled"
)

// Section represents the card grouping a fight was listed under on the event page
type Section string

const (
	SectionMainCard             Section = "main_card"
	SectionPreliminaryCard      Section = "preliminary_card"
	SectionEarlyPreliminaryCard Section = "early_preliminary_card"
	SectionUnknown              Section = "unknown"
)

// Event is a UFC event as persisted in the store. Name is the natural key.
type Event struct {
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Date     *Date   `json:"date"`
	Venue    *string `json:"venue"`
	Location *string `json:"location"`
	Status   Status  `json:"status"`
}

// FighterRecord is the professional win/loss/draw triple of a fighter
type FighterRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Fighter is keyed by its normalized name
type Fighter struct {
	ID          int64          `json:"id,omitempty"`
	Name        string         `json:"name"`
	WeightClass *string        `json:"weight_class,omitempty"`
	Record      *FighterRecord `json:"record,omitempty"`
}

// Fight is a single bout bound to an event. (EventID, FightOrder) is the natural key.
type Fight struct {
	ID            int64   `json:"id,omitempty"`
	EventID       int64   `json:"event_id"`
	Fighter1ID    *int64  `json:"fighter1_id"`
	Fighter2ID    *int64  `json:"fighter2_id"`
	WinnerName    string  `json:"winner_name"`
	LoserName     string  `json:"loser_name"`
	WeightClass   string  `json:"weight_class"`
	Method        string  `json:"method"`
	Round         *int    `json:"round"`
	Time          *string `json:"time"`
	FightOrder    int     `json:"fight_order"`
	IsMainEvent   bool    `json:"is_main_event"`
	IsCoMainEvent bool    `json:"is_co_main_event"`
	Status        Status  `json:"status"`
}

// IndexRecord is one row of the events index page. It lives for a single run.
type IndexRecord struct {
	Name     string
	Href     string
	Date     string
	Venue    string
	Location string
}

// Filled returns the number of non-empty columns of the record
func (r IndexRecord) Filled() int {
	n := 0
	for _, v := range []string{r.Href, r.Date, r.Venue, r.Location} {
		if v != "" {
			n++
		}
	}
	return n
}

// EventMetadata is what the event page info box tells about the event
type EventMetadata struct {
	Date     *Date
	Venue    *string
	Location *string
}

// ParsedFight is a decided bout as read from a fight-card table.
// WinnerName and LoserName keep the page text (title markers included),
// WinnerKey and LoserKey are the normalized names used to resolve fighters.
type ParsedFight struct {
	WeightClass   string
	WinnerName    string
	LoserName     string
	WinnerKey     string
	LoserKey      string
	Method        string
	Round         *int
	Time          *string
	Section       Section
	FightOrder    int
	IsMainEvent   bool
	IsCoMainEvent bool
}

// RowAnomaly describes a fight-card row the parser discarded
type RowAnomaly struct {
	Table  int
	Row    int
	Reason string
}

// ParsedEvent is the parser output for one event page
type ParsedEvent struct {
	Metadata  EventMetadata
	Fights    []ParsedFight
	Anomalies []RowAnomaly
}

// StringPtr returns nil for an empty string, a pointer to s otherwise
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

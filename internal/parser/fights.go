package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feral-file/ufc-indexer/internal/domain"
)

const (
	// fightRowCells is the column count of a results row:
	// weight class, winner, "def.", loser, method, round, time, notes
	fightRowCells = 8
	defeatMarker  = "def."
)

// ParseEvent reads the info box and the fight card of an event page
func ParseEvent(doc *goquery.Document) domain.ParsedEvent {
	fights, anomalies := parseFights(doc)

	return domain.ParsedEvent{
		Metadata:  ParseMetadata(doc),
		Fights:    fights,
		Anomalies: anomalies,
	}
}

// ParseFights returns the decided bouts of every fight-card table in document order.
// Order 1 is the first listed bout, i.e. the main event.
func ParseFights(doc *goquery.Document) []domain.ParsedFight {
	fights, _ := parseFights(doc)
	return fights
}

func parseFights(doc *goquery.Document) ([]domain.ParsedFight, []domain.RowAnomaly) {
	var fights []domain.ParsedFight
	var anomalies []domain.RowAnomaly
	order := 0

	tableIndex := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if !isFightTable(table) {
			return
		}
		t := tableIndex
		tableIndex++

		section := domain.SectionUnknown
		Rows(table).Each(func(r int, tr *goquery.Selection) {
			cells := Cells(tr)

			if cells.Length() == 1 {
				if s, ok := sectionOf(CellText(cells)); ok {
					section = s
				}
				return
			}
			if cells.Filter("th").Length() > 0 {
				return
			}

			fight, reason := parseFightRow(cells)
			if reason != "" {
				if cells.Length() > 0 {
					anomalies = append(anomalies, domain.RowAnomaly{Table: t, Row: r, Reason: reason})
				}
				return
			}

			order++
			fight.FightOrder = order
			fight.Section = section
			fights = append(fights, fight)
		})
	})

	for i := range fights {
		fights[i].IsMainEvent = fights[i].FightOrder == 1
		fights[i].IsCoMainEvent = fights[i].FightOrder == 2 && len(fights) >= 2
	}

	return fights, anomalies
}

// isFightTable reports whether the table's own rows carry a weight class header or a "def." cell
func isFightTable(table *goquery.Selection) bool {
	found := false
	Rows(table).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		Cells(tr).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			text := CellText(cell)
			if goquery.NodeName(cell) == "th" {
				found = strings.Contains(strings.ToLower(text), "weight class")
			} else {
				found = text == defeatMarker
			}
			return !found
		})
		return !found
	})
	return found
}

// sectionOf maps a card label row onto a section
func sectionOf(label string) (domain.Section, bool) {
	label = strings.ToLower(label)
	switch {
	case strings.Contains(label, "early prelim"):
		return domain.SectionEarlyPreliminaryCard, true
	case strings.Contains(label, "prelim"):
		return domain.SectionPreliminaryCard, true
	case strings.Contains(label, "main card"):
		return domain.SectionMainCard, true
	}
	return "", false
}

// parseFightRow reads a decided bout. A non-empty reason means the row is discarded.
func parseFightRow(cells *goquery.Selection) (domain.ParsedFight, string) {
	if cells.Length() != fightRowCells {
		return domain.ParsedFight{}, fmt.Sprintf("expected %d cells, got %d", fightRowCells, cells.Length())
	}

	text := make([]string, fightRowCells)
	for i := range text {
		text[i] = CellText(cells.Eq(i))
	}

	if text[2] != defeatMarker {
		return domain.ParsedFight{}, fmt.Sprintf("no decision marker, got %q", text[2])
	}

	winnerKey := domain.NormalizeName(text[1])
	loserKey := domain.NormalizeName(text[3])
	if winnerKey == "" || loserKey == "" {
		return domain.ParsedFight{}, "empty fighter name"
	}

	return domain.ParsedFight{
		WeightClass: text[0],
		WinnerName:  text[1],
		LoserName:   text[3],
		WinnerKey:   winnerKey,
		LoserKey:    loserKey,
		Method:      text[4],
		Round:       parseRound(text[5]),
		Time:        domain.StringPtr(text[6]),
	}, ""
}

// parseRound accepts digits only, anything else is unknown
func parseRound(s string) *int {
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

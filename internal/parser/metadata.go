package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feral-file/ufc-indexer/internal/domain"
)

// ParseMetadata reads date, venue and location from the first info box of the page.
// The first matching row of each label wins.
func ParseMetadata(doc *goquery.Document) domain.EventMetadata {
	var meta domain.EventMetadata

	infobox := doc.Find("table.infobox").First()
	if infobox.Length() == 0 {
		return meta
	}

	Rows(infobox).Each(func(_ int, tr *goquery.Selection) {
		label := strings.ToLower(CellText(tr.ChildrenFiltered("th")))
		value := CellText(tr.ChildrenFiltered("td"))
		if label == "" || value == "" {
			return
		}

		switch {
		case strings.Contains(label, "date"):
			if meta.Date == nil {
				meta.Date = domain.ParseDate(value)
			}
		case strings.Contains(label, "venue"):
			if meta.Venue == nil {
				meta.Venue = domain.StringPtr(value)
			}
		case strings.Contains(label, "location"), strings.Contains(label, "city"):
			if meta.Location == nil {
				meta.Location = domain.StringPtr(value)
			}
		}
	})

	return meta
}

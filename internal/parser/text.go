package parser

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/feral-file/ufc-indexer/internal/domain"
)

// hiddenSelector matches markup that renders nothing on the page but still carries text:
// sort keys, citation superscripts and display:none spans
const hiddenSelector = `sup.reference, .sortkey, .reference, [style*="display:none"], [style*="display: none"]`

// CellText returns the visible text of a table cell with footnotes removed and whitespace collapsed
func CellText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}

	clone := s.First().Clone()
	clone.Find(hiddenSelector).Remove()
	clone.Find("br").ReplaceWithHtml(" ")

	return domain.CleanText(clone.Text())
}

// Cells returns the direct td/th children of a row
func Cells(tr *goquery.Selection) *goquery.Selection {
	return tr.ChildrenFiltered("td, th")
}

// Rows returns the rows of table that do not belong to a nested table
func Rows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})
}

package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/fetcher"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/parser"
)

// Config holds the index discovery settings
type Config struct {
	// IndexURL is the page listing every past event
	IndexURL string
	// Threshold is the minimum number of event links the best table must carry
	Threshold int
}

// Discover fetches the index page and builds the run's name → href index
func Discover(ctx context.Context, f fetcher.Fetcher, cfg Config) (*Index, error) {
	if cfg.IndexURL == "" {
		cfg.IndexURL = domain.DEFAULT_INDEX_URL
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = domain.DEFAULT_INDEX_THRESHOLD
	}

	base, err := url.Parse(cfg.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index url %q: %w: %w", cfg.IndexURL, domain.ErrConfig, err)
	}

	doc, err := f.Fetch(ctx, cfg.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index page: %w: %w", domain.ErrIndexUnavailable, err)
	}

	records, err := ParseIndex(doc, base, cfg.Threshold)
	if err != nil {
		return nil, err
	}

	index := NewIndex(records)
	logger.InfoCtx(ctx, "Discovered events",
		zap.String("url", cfg.IndexURL),
		zap.Int("events", index.Len()),
	)

	return index, nil
}

// ParseIndex extracts the event records of the index page. The events table is the one
// holding the most same-host links whose text starts with "UFC". Its rows are then read by
// column position, so events of any name are kept.
func ParseIndex(doc *goquery.Document, base *url.URL, threshold int) ([]domain.IndexRecord, error) {
	var best *goquery.Selection
	bestCount := 0

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		count := 0
		parser.Rows(table).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if isEventLink(a, base) {
				count++
			}
		})
		if count > bestCount {
			best = table
			bestCount = count
		}
	})

	if best == nil || bestCount <= threshold {
		return nil, fmt.Errorf("failed to locate events table (%d links, need more than %d): %w",
			bestCount, threshold, domain.ErrIndexSchemaChanged)
	}

	column := eventColumn(best, base)

	var records []domain.IndexRecord
	seen := make(map[string]int)

	parser.Rows(best).Each(func(_ int, tr *goquery.Selection) {
		record, ok := parseIndexRow(tr, base, column)
		if !ok {
			return
		}

		if i, dup := seen[record.Name]; dup {
			if record.Filled() > records[i].Filled() {
				records[i] = record
			}
			return
		}
		seen[record.Name] = len(records)
		records = append(records, record)
	})

	return records, nil
}

// eventColumn returns the position of the Event column: the header cell reading "Event",
// else the column holding the most event links
func eventColumn(table *goquery.Selection, base *url.URL) int {
	column := -1
	parser.Rows(table).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		parser.Cells(tr).EachWithBreak(func(i int, cell *goquery.Selection) bool {
			if goquery.NodeName(cell) == "th" && strings.EqualFold(parser.CellText(cell), "Event") {
				column = i
				return false
			}
			return true
		})
		return column < 0
	})
	if column >= 0 {
		return column
	}

	counts := make(map[int]int)
	parser.Rows(table).Each(func(_ int, tr *goquery.Selection) {
		parser.Cells(tr).Each(func(i int, cell *goquery.Selection) {
			if cell.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
				return isEventLink(a, base)
			}).Length() > 0 {
				counts[i]++
			}
		})
	})

	column = 0
	for i, n := range counts {
		if n > counts[column] || (n == counts[column] && i < column) {
			column = i
		}
	}
	return column
}

// parseIndexRow reads a row positionally: event at column, then date, venue and location
func parseIndexRow(tr *goquery.Selection, base *url.URL, column int) (domain.IndexRecord, bool) {
	cells := parser.Cells(tr)
	cell := cells.Eq(column)

	a := cell.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return isSameHostLink(a, base)
	}).First()
	if a.Length() == 0 {
		return domain.IndexRecord{}, false
	}

	name := parser.CellText(cell)
	if name == "" {
		return domain.IndexRecord{}, false
	}

	href, _ := a.Attr("href")
	resolved, err := base.Parse(href)
	if err != nil {
		return domain.IndexRecord{}, false
	}

	return domain.IndexRecord{
		Name:     name,
		Href:     resolved.String(),
		Date:     parser.CellText(cells.Eq(column + 1)),
		Venue:    parser.CellText(cells.Eq(column + 2)),
		Location: parser.CellText(cells.Eq(column + 3)),
	}, true
}

// isEventLink reports whether a is a same-host link whose text starts with "UFC"
func isEventLink(a *goquery.Selection, base *url.URL) bool {
	return strings.HasPrefix(domain.CleanText(a.Text()), "UFC") && isSameHostLink(a, base)
}

// isSameHostLink reports whether a points to another page of the index's host
func isSameHostLink(a *goquery.Selection, base *url.URL) bool {
	href, ok := a.Attr("href")
	if !ok || strings.HasPrefix(href, "#") {
		return false
	}

	resolved, err := base.Parse(href)
	if err != nil {
		return false
	}

	return resolved.Host == base.Host
}

package discovery

import (
	"github.com/feral-file/ufc-indexer/internal/domain"
)

// Index maps event names to their page hrefs. It is read-only once built
// and safe to share between workers.
type Index struct {
	records    []domain.IndexRecord
	byName     map[string]int
	byShortKey map[string]int
}

// NewIndex builds the lookup tables. A short key shared by several names is ambiguous and dropped.
func NewIndex(records []domain.IndexRecord) *Index {
	idx := &Index{
		records:    records,
		byName:     make(map[string]int, len(records)),
		byShortKey: make(map[string]int, len(records)),
	}

	ambiguous := make(map[string]bool)
	for i, r := range records {
		name := domain.CleanText(r.Name)
		if _, ok := idx.byName[name]; !ok {
			idx.byName[name] = i
		}

		key := domain.ShortKey(r.Name)
		if key == "" || ambiguous[key] {
			continue
		}
		if j, ok := idx.byShortKey[key]; ok && domain.CleanText(records[j].Name) != name {
			delete(idx.byShortKey, key)
			ambiguous[key] = true
			continue
		}
		idx.byShortKey[key] = i
	}

	return idx
}

// Records returns the index rows in page order
func (idx *Index) Records() []domain.IndexRecord {
	return idx.records
}

// Len returns the number of indexed events
func (idx *Index) Len() int {
	return len(idx.records)
}

// Lookup returns the record for name, trying the exact name first and then the short key
func (idx *Index) Lookup(name string) (domain.IndexRecord, bool) {
	if i, ok := idx.byName[domain.CleanText(name)]; ok {
		return idx.records[i], true
	}
	if i, ok := idx.byShortKey[domain.ShortKey(name)]; ok {
		return idx.records[i], true
	}
	return domain.IndexRecord{}, false
}

// Resolve returns the page href for name
func (idx *Index) Resolve(name string) (string, bool) {
	r, ok := idx.Lookup(name)
	if !ok || r.Href == "" {
		return "", false
	}
	return r.Href, true
}

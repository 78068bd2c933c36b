package testsupport

import (
	"context"
	"fmt"
	"sync"

	"marquee/internal/media"
	"marquee/internal/services"
)

// FakeCatalog is an in-memory catalog provider. Search hits are returned
// stripped of credits and seasons so tests can tell when hydration ran.
type FakeCatalog struct {
	// PageSize splits search results into pages. Zero means 20.
	PageSize int
	// SearchErrors are returned, in order, by the next SearchTitles calls.
	SearchErrors []error
	// DetailErrors are returned, in order, by the next FetchDetails calls.
	DetailErrors []error

	mu          sync.Mutex
	records     map[int64]media.Candidate
	searches    map[string][]int64
	detailCalls map[int64]int
	searchLog   []string
}

// NewFakeCatalog returns an empty catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		records:     make(map[int64]media.Candidate),
		searches:    make(map[string][]int64),
		detailCalls: make(map[int64]int),
	}
}

// Add registers fully hydrated records.
func (f *FakeCatalog) Add(records ...media.Candidate) *FakeCatalog {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range records {
		f.records[record.ID] = record
	}
	return f
}

// OnSearch registers the ids returned for query at year.
func (f *FakeCatalog) OnSearch(query string, year int, ids ...int64) *FakeCatalog {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := searchKey(query, year)
	f.searches[key] = append(f.searches[key], ids...)
	return f
}

// SearchTitles implements the catalog provider contract.
func (f *FakeCatalog) SearchTitles(ctx context.Context, query string, year int, page int) (media.SearchPage, error) {
	if err := ctx.Err(); err != nil {
		return media.SearchPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := searchKey(query, year)
	f.searchLog = append(f.searchLog, fmt.Sprintf("%s#%d", key, page))
	if len(f.SearchErrors) > 0 {
		err := f.SearchErrors[0]
		f.SearchErrors = f.SearchErrors[1:]
		return media.SearchPage{}, err
	}
	size := f.PageSize
	if size <= 0 {
		size = 20
	}
	ids := f.searches[key]
	total := max(1, (len(ids)+size-1)/size)
	result := media.SearchPage{Page: page, TotalPages: total}
	start := (page - 1) * size
	for i := start; i < len(ids) && i < start+size; i++ {
		record, ok := f.records[ids[i]]
		if !ok {
			result.Results = append(result.Results, media.Candidate{ID: ids[i]})
			continue
		}
		result.Results = append(result.Results, media.Candidate{
			ID:          record.ID,
			Kind:        record.Kind,
			Title:       record.Title,
			Popularity:  record.Popularity,
			ReleaseDate: record.ReleaseDate,
			PosterPath:  record.PosterPath,
		})
	}
	return result, nil
}

// FetchDetails implements the catalog provider contract.
func (f *FakeCatalog) FetchDetails(ctx context.Context, id int64, _ bool) (media.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return media.Candidate{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls[id]++
	if len(f.DetailErrors) > 0 {
		err := f.DetailErrors[0]
		f.DetailErrors = f.DetailErrors[1:]
		return media.Candidate{}, err
	}
	record, ok := f.records[id]
	if !ok {
		return media.Candidate{}, services.Wrap(services.ErrNotFound, "fake catalog", "details", fmt.Sprintf("id %d", id), nil)
	}
	record.External = media.ExternalIDs{}
	return record, nil
}

// ExternalIDs implements the catalog provider contract.
func (f *FakeCatalog) ExternalIDs(ctx context.Context, id int64) (media.ExternalIDs, error) {
	if err := ctx.Err(); err != nil {
		return media.ExternalIDs{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return media.ExternalIDs{}, services.Wrap(services.ErrNotFound, "fake catalog", "external ids", fmt.Sprintf("id %d", id), nil)
	}
	return record.External, nil
}

// DetailCalls reports how often FetchDetails ran for id.
func (f *FakeCatalog) DetailCalls(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[id]
}

// SearchLog returns every "query|year#page" request in call order.
func (f *FakeCatalog) SearchLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchLog...)
}

func searchKey(query string, year int) string {
	return fmt.Sprintf("%s|%d", query, year)
}

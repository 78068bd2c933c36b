package feed_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"marquee/internal/feed"
	"marquee/internal/media"
	"marquee/internal/services"
	"marquee/internal/testsupport"
)

func noWait() services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: 3,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func clock(value string) func() time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return parsed.Add(12 * time.Hour) }
}

type recorder struct {
	mu      sync.Mutex
	drops   []feed.DropReason
	retries map[string]int
}

func (r *recorder) ObserveDrop(_ string, reason feed.DropReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drops = append(r.drops, reason)
}

func (r *recorder) ObserveRetry(_ string, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retries == nil {
		r.retries = make(map[string]int)
	}
	r.retries[stage]++
}

func movie(id int64, title, released string, popularity float64, imdb string) media.Candidate {
	return media.Candidate{
		ID:          id,
		Kind:        media.KindMovie,
		Title:       title,
		ReleaseDate: released,
		Popularity:  popularity,
		PosterPath:  fmt.Sprintf("/p%d.jpg", id),
		External:    media.ExternalIDs{IMDbID: imdb},
	}
}

func newGenerator(t *testing.T, profile feed.Profile, deps feed.Dependencies, opts ...feed.Option) *feed.Generator {
	t.Helper()
	opts = append([]feed.Option{feed.WithRetryPolicy(noWait())}, opts...)
	g, err := feed.NewGenerator(profile, deps, opts...)
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	return g
}

func TestGenerateDuneEndToEnd(t *testing.T) {
	dune := movie(438631, "Dune", "2021-09-15", 88.5, "tt1160419")
	dune.PosterPath = "/d5NXSklXo0qyIYkgV94XAgMIckC.jpg"
	dune.Credits = []media.Credit{{Role: "director", Name: "Denis Villeneuve"}}
	lynch := movie(841, "Dune", "1984-12-14", 30.2, "tt0087182")
	lynch.Credits = []media.Credit{{Role: "director", Name: "David Lynch"}}

	catalog := testsupport.NewFakeCatalog().Add(dune, lynch)
	catalog.OnSearch("Dune", 2021, 841, 438631)
	ratings := testsupport.NewFakeRatings().Set("tt1160419", 80, 74)

	g := newGenerator(t, feed.Movies(), feed.Dependencies{
		Catalog: catalog,
		Ratings: ratings,
		Posters: testsupport.FakePosters{},
	}, feed.WithClock(clock("2021-10-22")))

	report, err := g.Generate(context.Background(), []media.SourceItem{
		{Title: "Dune", Year: 2021, Disambiguators: []string{"Denis Villeneuve"}, Rank: 1},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(report.Drops) != 0 {
		t.Fatalf("expected no drops, got %+v", report.Drops)
	}
	if len(report.Records) != 1 {
		t.Fatalf("expected exactly one record, got %+v", report.Records)
	}
	got := report.Records[0]
	want := feed.OutputRecord{
		Title:     "Dune",
		ID:        "tt1160419",
		PosterURL: "https://image.tmdb.org/t/p/w500/d5NXSklXo0qyIYkgV94XAgMIckC.jpg",
		IDKey:     feed.IDKeyIMDb,
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if report.Scored[0].Score != (50.0+80+74)/3 {
		t.Fatalf("expected single-item batch to score from midpoint popularity, got %v", report.Scored[0].Score)
	}

	var buf bytes.Buffer
	if err := feed.Encode(&buf, report.Records); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	expected := `[
    {
        "title": "Dune",
        "imdb_id": "tt1160419",
        "poster_url": "https://image.tmdb.org/t/p/w500/d5NXSklXo0qyIYkgV94XAgMIckC.jpg"
    }
]
`
	if buf.String() != expected {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestGenerateRecordsDropReasons(t *testing.T) {
	catalog := testsupport.NewFakeCatalog().Add(
		movie(1, "Dune", "2021-09-15", 80, "tt1"),
		movie(3, "Old Film", "2020-01-01", 10, "tt3"),
		movie(4, "No Imdb", "2021-10-01", 10, ""),
		movie(5, "Unrated", "2021-10-01", 20, "tt5"),
		movie(6, "Posterless", "2021-10-01", 90, "tt6"),
	)
	catalog.OnSearch("Dune", 2021, 1)
	catalog.OnSearch("Dune: Part One", 2021, 1)
	catalog.OnSearch("Old Film", 2020, 3)
	catalog.OnSearch("No Imdb", 2021, 4)
	catalog.OnSearch("Unrated", 2021, 5)
	catalog.OnSearch("Posterless", 2021, 6)
	rec := &recorder{}

	g := newGenerator(t, feed.Movies(), feed.Dependencies{
		Catalog: catalog,
		Ratings: testsupport.NewFakeRatings().Set("tt1", 70).Set("tt6", 90),
		Posters: testsupport.FakePosters{Missing: map[int64]bool{6: true}},
	}, feed.WithClock(clock("2021-10-22")), feed.WithWorkers(1), feed.WithRecorder(rec))

	report, err := g.Generate(context.Background(), []media.SourceItem{
		{Title: "Dune", Year: 2021},
		{Title: "Ghost Title", Year: 2021},
		{Title: "Dune: Part One", Year: 2021},
		{Title: "Old Film", Year: 2020},
		{Title: "No Imdb", Year: 2021},
		{Title: "Unrated", Year: 2021},
		{Title: "Posterless", Year: 2021},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	var reasons []feed.DropReason
	for _, drop := range report.Drops {
		reasons = append(reasons, drop.Reason)
	}
	want := []feed.DropReason{feed.DropUnresolved, feed.DropDuplicate, feed.DropStale, feed.DropMissingID, feed.DropPosterFailed}
	if !slices.Equal(reasons, want) {
		t.Fatalf("expected drops %v, got %v", want, reasons)
	}
	if !slices.Equal(rec.drops, want) {
		t.Fatalf("expected recorder to observe %v, got %v", want, rec.drops)
	}
	if report.Drops[0].Item.Title != "Ghost Title" {
		t.Fatalf("expected unresolved drop for Ghost Title, got %+v", report.Drops[0])
	}
	if !errors.Is(report.Drops[0].Err, services.ErrNotFound) {
		t.Fatalf("expected unresolved drop to wrap not found, got %v", report.Drops[0].Err)
	}

	var titles []string
	for _, record := range report.Records {
		titles = append(titles, record.Title)
	}
	if !slices.Equal(titles, []string{"Dune", "Unrated"}) {
		t.Fatalf("unexpected records %v", titles)
	}
	if counts := report.DropCounts(); counts[feed.DropStale] != 1 {
		t.Fatalf("expected one stale drop, got %v", counts)
	}
}

func TestGenerateDropsWhenRatingKeepsFailing(t *testing.T) {
	catalog := testsupport.NewFakeCatalog().Add(movie(1, "Dune", "2021-09-15", 80, "tt1"))
	catalog.OnSearch("Dune", 2021, 1)
	transient := services.Wrap(services.ErrTransient, "ratings", "lookup", "503", nil)
	ratings := testsupport.NewFakeRatings().Set("tt1", 70)
	ratings.Errors = []error{transient, transient, transient}
	rec := &recorder{}

	g := newGenerator(t, feed.Movies(), feed.Dependencies{
		Catalog: catalog,
		Ratings: ratings,
		Posters: testsupport.FakePosters{},
	}, feed.WithClock(clock("2021-10-22")), feed.WithRecorder(rec))

	report, err := g.Generate(context.Background(), []media.SourceItem{{Title: "Dune", Year: 2021}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(report.Records) != 0 || len(report.Drops) != 1 || report.Drops[0].Reason != feed.DropRatingFailed {
		t.Fatalf("expected a single rating_failed drop, got records=%v drops=%+v", report.Records, report.Drops)
	}
	if ratings.Calls() != 3 {
		t.Fatalf("expected 3 rating attempts, got %d", ratings.Calls())
	}
	if rec.retries["rating"] != 2 {
		t.Fatalf("expected 2 observed rating retries, got %v", rec.retries)
	}
}

func TestGenerateKeepsTopScoresSortedByTitle(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	var items []media.SourceItem
	for i := 1; i <= 15; i++ {
		title := fmt.Sprintf("Film %02d", i)
		catalog.Add(movie(int64(i), title, "2021-10-01", float64(i), fmt.Sprintf("tt%d", i)))
		catalog.OnSearch(title, 2021, int64(i))
		items = append(items, media.SourceItem{Title: title, Year: 2021})
	}
	slices.Reverse(items)

	g := newGenerator(t, feed.Movies(), feed.Dependencies{
		Catalog: catalog,
		Ratings: testsupport.NewFakeRatings(),
		Posters: testsupport.FakePosters{},
	}, feed.WithClock(clock("2021-10-22")))

	report, err := g.Generate(context.Background(), items)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(report.Records) != 12 {
		t.Fatalf("expected 12 records, got %d", len(report.Records))
	}
	for i, record := range report.Records {
		want := fmt.Sprintf("Film %02d", i+4)
		if record.Title != want {
			t.Fatalf("record %d: expected %q, got %q", i, want, record.Title)
		}
	}
	if len(report.Scored) != 15 || report.Scored[0].Candidate.ID != 15 {
		t.Fatalf("expected scored batch ranked by popularity, got %d entries", len(report.Scored))
	}
}

func TestGenerateSeriesUsesAirDatesAndTVDB(t *testing.T) {
	severance := media.Candidate{
		ID: 95396, Kind: media.KindTV, Title: "Severance", ReleaseDate: "2022-02-17", Popularity: 150,
		Seasons:     []media.Season{{Number: 1, Name: "Season 1", AirDate: "2022-02-17"}, {Number: 2, Name: "Season 2", AirDate: "2025-01-16"}},
		LastAirDate: "2025-03-20", PosterPath: "/sev.jpg",
		External: media.ExternalIDs{IMDbID: "tt11280740", TVDBID: "371980"},
	}
	old := media.Candidate{
		ID: 2, Kind: media.KindTV, Title: "Old Show", ReleaseDate: "2015-01-01", Popularity: 10,
		LastAirDate: "2019-05-01", PosterPath: "/old.jpg",
		External: media.ExternalIDs{TVDBID: "2"},
	}
	upcoming := media.Candidate{
		ID: 3, Kind: media.KindTV, Title: "Upcoming", ReleaseDate: "2024-01-01", Popularity: 5,
		NextAirDate: "2025-06-01", PosterPath: "/up.jpg",
		External: media.ExternalIDs{TVDBID: "3"},
	}
	catalog := testsupport.NewFakeCatalog().Add(severance, old, upcoming)
	catalog.OnSearch("Severance", 0, 95396)
	catalog.OnSearch("Old Show", 0, 2)
	catalog.OnSearch("Upcoming", 0, 3)

	g := newGenerator(t, feed.Series(), feed.Dependencies{
		Catalog: catalog,
		Ratings: testsupport.NewFakeRatings().Set("tt11280740", 87),
		Posters: testsupport.FakePosters{},
	}, feed.WithClock(clock("2025-04-01")))

	report, err := g.Generate(context.Background(), []media.SourceItem{
		{Title: "Severance", Season: &media.SeasonHint{Name: "Season 2", Number: 2}},
		{Title: "Old Show"},
		{Title: "Upcoming"},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(report.Drops) != 1 || report.Drops[0].Reason != feed.DropStale {
		t.Fatalf("expected one stale drop, got %+v", report.Drops)
	}
	if len(report.Records) != 2 || report.Records[0].ID != "371980" || report.Records[0].IDKey != feed.IDKeyTVDB {
		t.Fatalf("unexpected records %+v", report.Records)
	}

	var buf bytes.Buffer
	if err := feed.Encode(&buf, report.Records[:1]); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"tvdb_id": 371980`)) {
		t.Fatalf("expected numeric tvdb id, got:\n%s", buf.String())
	}
}

func TestGenerateRecencyDisabled(t *testing.T) {
	catalog := testsupport.NewFakeCatalog().Add(movie(1, "Casablanca", "1942-11-26", 12, "tt0034583"))
	catalog.OnSearch("Casablanca", 1942, 1)
	g := newGenerator(t, feed.Movies(), feed.Dependencies{
		Catalog: catalog,
		Posters: testsupport.FakePosters{},
	}, feed.WithRecencyDays(0))

	report, err := g.Generate(context.Background(), []media.SourceItem{{Title: "Casablanca", Year: 1942}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(report.Records) != 1 {
		t.Fatalf("expected record with recency disabled, got drops %+v", report.Drops)
	}
}

func TestGenerateStopsOnCancellation(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	g := newGenerator(t, feed.Movies(), feed.Dependencies{Catalog: catalog, Posters: testsupport.FakePosters{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, []media.SourceItem{{Title: "Dune", Year: 2021}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewGeneratorRequiresDependencies(t *testing.T) {
	if _, err := feed.NewGenerator(feed.Movies(), feed.Dependencies{Posters: testsupport.FakePosters{}}); err == nil {
		t.Fatal("expected error without catalog")
	}
	if _, err := feed.NewGenerator(feed.Movies(), feed.Dependencies{Catalog: testsupport.NewFakeCatalog()}); err == nil {
		t.Fatal("expected error without poster resolver")
	}
}

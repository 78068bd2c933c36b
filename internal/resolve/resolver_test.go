package resolve_test

import (
	"context"
	"errors"
	"testing"

	"marquee/internal/logging"
	"marquee/internal/media"
	"marquee/internal/resolve"
	"marquee/internal/services"
	"marquee/internal/testsupport"
)

func TestResolverPicksBestWithinFirstYearVariant(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.Add(
		media.Candidate{ID: 438631, Kind: media.KindMovie, Title: "Dune", ReleaseDate: "2021-09-15", Popularity: 300},
		media.Candidate{ID: 841, Kind: media.KindMovie, Title: "Dune", ReleaseDate: "1984-12-14", Popularity: 40},
		media.Candidate{ID: 99, Kind: media.KindMovie, Title: "Dune Drifter", ReleaseDate: "2020-10-16", Popularity: 2},
	)
	catalog.OnSearch("Dune", 2021, 841, 438631)
	catalog.OnSearch("Dune", 2020, 99)

	r := resolve.NewResolver(resolve.NewSearcher(catalog), media.KindMovie, logging.NewNop())
	got, err := r.Resolve(context.Background(), media.SourceItem{Title: "Dune", Year: 2021})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 438631 {
		t.Fatalf("expected 438631, got %d", got.ID)
	}
	for _, entry := range catalog.SearchLog() {
		if entry == "Dune|2020#1" {
			t.Fatal("expected later year variants to be skipped once a winner exists")
		}
	}
}

func TestResolverFallsBackToAdjacentYear(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.Add(media.Candidate{ID: 5, Title: "Nosferatu", ReleaseDate: "2024-12-25", Popularity: 80})
	catalog.OnSearch("Nosferatu", 2024, 5)

	r := resolve.NewResolver(resolve.NewSearcher(catalog), media.KindMovie, nil)
	got, err := r.Resolve(context.Background(), media.SourceItem{Title: "Nosferatu", Year: 2025})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 5 {
		t.Fatalf("expected 5, got %d", got.ID)
	}
}

func TestResolverFoldsTitleVariantsTogether(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.Add(
		media.Candidate{ID: 1, Title: "Alien: Romulus", ReleaseDate: "2024-08-13", Popularity: 500},
		media.Candidate{ID: 2, Title: "Alien", ReleaseDate: "2024-01-01", Popularity: 5},
	)
	catalog.OnSearch("Alien (2024)", 2024, 1)
	catalog.OnSearch("Alien", 2024, 2)

	r := resolve.NewResolver(resolve.NewSearcher(catalog), media.KindMovie, nil)
	got, err := r.Resolve(context.Background(), media.SourceItem{Title: "Alien (2024)", Year: 2024})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 2 {
		t.Fatalf("expected exact stripped-title match from the second variant, got %d", got.ID)
	}
}

func TestResolverUnresolved(t *testing.T) {
	r := resolve.NewResolver(resolve.NewSearcher(testsupport.NewFakeCatalog()), media.KindMovie, nil)
	_, err := r.Resolve(context.Background(), media.SourceItem{Title: "Unknown Film", Year: 2024})
	if !errors.Is(err, resolve.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrUnresolved to wrap ErrNotFound, got %v", err)
	}
}

func TestResolverProviderFailureAbortsItem(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	boom := errors.New("connection reset")
	catalog.SearchErrors = []error{boom, boom, boom}
	r := resolve.NewResolver(resolve.NewSearcher(catalog, resolve.WithRetryPolicy(fastPolicy())), media.KindMovie, nil)
	_, err := r.Resolve(context.Background(), media.SourceItem{Title: "Heat", Year: 1995})
	if err == nil || errors.Is(err, resolve.ErrUnresolved) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error to be wrapped, got %v", err)
	}
}

func TestResolverSeriesUsesSeasonHint(t *testing.T) {
	catalog := testsupport.NewFakeCatalog()
	catalog.Add(
		media.Candidate{ID: 10, Kind: media.KindTV, Title: "The Bear", Popularity: 10, Seasons: []media.Season{{Number: 1}, {Number: 2}, {Number: 3}}},
		media.Candidate{ID: 11, Kind: media.KindTV, Title: "The Bear", Popularity: 90, Seasons: []media.Season{{Number: 1}}},
	)
	catalog.OnSearch("The Bear", 0, 11, 10)

	searcher := resolve.NewSearcher(catalog, resolve.WithYearFilter(false))
	r := resolve.NewResolver(searcher, media.KindTV, nil)
	item := media.SourceItem{Title: "The Bear", Season: &media.SeasonHint{Name: "Season 3", Number: 3}}
	got, err := r.Resolve(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 10 {
		t.Fatalf("expected series with season 3, got %d", got.ID)
	}
}

package omdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"marquee/internal/ratings/omdb"
	"marquee/internal/services"
)

func serve(t *testing.T, status int, body string) *omdb.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "key" {
			t.Errorf("expected apikey parameter, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("i") == "" {
			t.Errorf("expected i parameter, got %q", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	client, err := omdb.New("key", server.URL+"/")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := omdb.New(" ", "https://www.omdbapi.com/"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestLookupScalesRatings(t *testing.T) {
	client := serve(t, http.StatusOK, `{"Title":"Dune","imdbRating":"8.0","Metascore":"74","Response":"True"}`)
	rating, err := client.Lookup(context.Background(), "tt1160419")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if rating.Primary != 80 {
		t.Fatalf("expected primary 80, got %v", rating.Primary)
	}
	if rating.Secondary == nil || *rating.Secondary != 74 {
		t.Fatalf("expected secondary 74, got %v", rating.Secondary)
	}
}

func TestLookupFallsBackToRottenTomatoes(t *testing.T) {
	client := serve(t, http.StatusOK, `{"imdbRating":"7.1","Metascore":"N/A","Ratings":[{"Source":"Internet Movie Database","Value":"7.1/10"},{"Source":"Rotten Tomatoes","Value":"91%"}],"Response":"True"}`)
	rating, err := client.Lookup(context.Background(), "tt0000001")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if rating.Secondary == nil || *rating.Secondary != 91 {
		t.Fatalf("expected secondary 91, got %v", rating.Secondary)
	}
}

func TestLookupWithoutSecondary(t *testing.T) {
	client := serve(t, http.StatusOK, `{"imdbRating":"6.5","Metascore":"N/A","Response":"True"}`)
	rating, err := client.Lookup(context.Background(), "tt0000002")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if rating.Secondary != nil {
		t.Fatalf("expected no secondary, got %v", *rating.Secondary)
	}
}

func TestLookupErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"incorrect id", http.StatusOK, `{"Response":"False","Error":"Incorrect IMDb ID."}`, services.ErrNotFound},
		{"not found", http.StatusOK, `{"Response":"False","Error":"Movie not found!"}`, services.ErrNotFound},
		{"unrated", http.StatusOK, `{"imdbRating":"N/A","Response":"True"}`, services.ErrNotFound},
		{"limit", http.StatusOK, `{"Response":"False","Error":"Request limit reached!"}`, services.ErrTransient},
		{"bad key", http.StatusUnauthorized, `{"Response":"False","Error":"Invalid API key!"}`, services.ErrConfiguration},
		{"server", http.StatusServiceUnavailable, ``, services.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := serve(t, tc.status, tc.body)
			_, err := client.Lookup(context.Background(), "tt0000003")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLookupEmptyIDIsValidationError(t *testing.T) {
	client, err := omdb.New("key", "https://www.omdbapi.com/")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Lookup(context.Background(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

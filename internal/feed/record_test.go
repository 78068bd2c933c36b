package feed

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestEncodeKeepsKeyOrderAndAmpersands(t *testing.T) {
	var buf bytes.Buffer
	records := []OutputRecord{{Title: "Fast & Furious", ID: "tt0116282", PosterURL: "https://x/p.jpg"}}
	if err := Encode(&buf, records); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	want := `[
    {
        "title": "Fast & Furious",
        "imdb_id": "tt0116282",
        "poster_url": "https://x/p.jpg"
    }
]
`
	if buf.String() != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestOutputRecordNonNumericTVDBStaysString(t *testing.T) {
	data, err := json.Marshal(OutputRecord{Title: "Show", ID: "abc", IDKey: IDKeyTVDB})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !bytes.Contains(data, []byte(`"tvdb_id":"abc"`)) {
		t.Fatalf("unexpected payload %s", data)
	}
}

func TestEncodeEmptyFeed(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}
}

func TestProfileByName(t *testing.T) {
	cases := map[string]string{"movies": IDKeyIMDb, "movie": IDKeyIMDb, "series": IDKeyTVDB, "tv": IDKeyTVDB}
	for name, key := range cases {
		profile, err := ProfileByName(name)
		if err != nil {
			t.Fatalf("ProfileByName(%q) returned error: %v", name, err)
		}
		if profile.IDKey != key {
			t.Fatalf("ProfileByName(%q): expected id key %s, got %s", name, key, profile.IDKey)
		}
	}
	if _, err := ProfileByName("podcasts"); err == nil {
		t.Fatal("expected error for unknown feed")
	}
	if got := Series().WithLimit(0).Limit; got != 6 {
		t.Fatalf("expected non-positive limit ignored, got %d", got)
	}
}

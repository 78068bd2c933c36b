package feed

import (
	"fmt"

	"marquee/internal/media"
)

// Output id keys.
const (
	IDKeyIMDb = "imdb_id"
	IDKeyTVDB = "tvdb_id"
)

// Profile binds a feed name to its catalog kind, output size and id key.
type Profile struct {
	Name  string
	Kind  media.Kind
	Limit int
	IDKey string
}

// Movies returns the movies feed profile.
func Movies() Profile {
	return Profile{Name: "movies", Kind: media.KindMovie, Limit: 12, IDKey: IDKeyIMDb}
}

// Series returns the TV feed profile.
func Series() Profile {
	return Profile{Name: "series", Kind: media.KindTV, Limit: 6, IDKey: IDKeyTVDB}
}

// Names lists the known feeds in generation order.
func Names() []string {
	return []string{"movies", "series"}
}

// ProfileByName looks up a profile, accepting the same aliases as media.ParseKind.
func ProfileByName(name string) (Profile, error) {
	kind, err := media.ParseKind(name)
	if err != nil {
		return Profile{}, fmt.Errorf("unknown feed %q", name)
	}
	if kind == media.KindTV {
		return Series(), nil
	}
	return Movies(), nil
}

// WithLimit returns a copy of p emitting at most limit records.
func (p Profile) WithLimit(limit int) Profile {
	if limit > 0 {
		p.Limit = limit
	}
	return p
}

// externalID picks the identifier the feed publishes.
func (p Profile) externalID(ids media.ExternalIDs) string {
	if p.IDKey == IDKeyTVDB {
		return ids.TVDBID
	}
	return ids.IMDbID
}

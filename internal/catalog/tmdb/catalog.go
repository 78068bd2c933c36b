package tmdb

import (
	"context"
	"strconv"
	"strings"

	"marquee/internal/media"
	"marquee/internal/services"
)

const maxCastCredits = 10

// Catalog adapts the client to one media kind for the resolver.
type Catalog struct {
	client *Client
	kind   media.Kind
}

// NewCatalog binds client to kind.
func NewCatalog(client *Client, kind media.Kind) *Catalog {
	return &Catalog{client: client, kind: kind}
}

// Kind reports the bound media kind.
func (c *Catalog) Kind() media.Kind { return c.kind }

// SearchTitles returns one page of search hits as unhydrated candidates.
func (c *Catalog) SearchTitles(ctx context.Context, query string, year int, page int) (media.SearchPage, error) {
	opts := SearchOptions{Year: year, Page: page}
	var (
		resp *Response
		err  error
	)
	if c.kind == media.KindTV {
		resp, err = c.client.SearchTV(ctx, query, opts)
	} else {
		resp, err = c.client.SearchMovie(ctx, query, opts)
	}
	if err != nil {
		return media.SearchPage{}, err
	}
	out := media.SearchPage{Page: resp.Page, TotalPages: resp.TotalPages}
	out.Results = make([]media.Candidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		out.Results = append(out.Results, c.fromResult(result))
	}
	return out, nil
}

// FetchDetails hydrates a candidate with seasons, air dates and credits.
func (c *Catalog) FetchDetails(ctx context.Context, id int64, withCredits bool) (media.Candidate, error) {
	var (
		details *Details
		err     error
	)
	if c.kind == media.KindTV {
		details, err = c.client.TVDetails(ctx, id, withCredits)
	} else {
		details, err = c.client.MovieDetails(ctx, id, withCredits)
	}
	if err != nil {
		return media.Candidate{}, err
	}
	return c.fromDetails(details), nil
}

// ExternalIDs returns the IMDb and TVDB identifiers for id.
func (c *Catalog) ExternalIDs(ctx context.Context, id int64) (media.ExternalIDs, error) {
	ids, err := c.client.ExternalIDs(ctx, string(c.kind), id)
	if err != nil {
		return media.ExternalIDs{}, err
	}
	out := media.ExternalIDs{IMDbID: strings.TrimSpace(ids.IMDbID)}
	if ids.TVDBID > 0 {
		out.TVDBID = strconv.FormatInt(ids.TVDBID, 10)
	}
	return out, nil
}

func (c *Catalog) fromResult(r Result) media.Candidate {
	cand := media.Candidate{
		ID:         r.ID,
		Kind:       c.kind,
		Popularity: max(r.Popularity, 0),
		PosterPath: r.PosterPath,
	}
	if c.kind == media.KindTV {
		cand.Title = r.Name
		cand.ReleaseDate = r.FirstAirDate
	} else {
		cand.Title = r.Title
		cand.ReleaseDate = r.ReleaseDate
	}
	return cand
}

func (c *Catalog) fromDetails(d *Details) media.Candidate {
	cand := c.fromResult(Result{
		ID:           d.ID,
		Title:        d.Title,
		Name:         d.Name,
		ReleaseDate:  d.ReleaseDate,
		FirstAirDate: d.FirstAirDate,
		Popularity:   d.Popularity,
		PosterPath:   d.PosterPath,
	})
	for _, season := range d.Seasons {
		cand.Seasons = append(cand.Seasons, media.Season{
			Number:  season.SeasonNumber,
			Name:    season.Name,
			AirDate: season.AirDate,
		})
	}
	if d.LastEpisodeToAir != nil {
		cand.LastAirDate = d.LastEpisodeToAir.AirDate
	}
	if d.NextEpisodeToAir != nil {
		cand.NextAirDate = d.NextEpisodeToAir.AirDate
	}
	cand.Credits = creditsFrom(d)
	return cand
}

func creditsFrom(d *Details) []media.Credit {
	var credits []media.Credit
	for _, person := range d.CreatedBy {
		credits = appendCredit(credits, "creator", person.Name)
	}
	if d.Credits == nil {
		return credits
	}
	for _, person := range d.Credits.Crew {
		switch strings.ToLower(person.Job) {
		case "director":
			credits = appendCredit(credits, "director", person.Name)
		case "screenplay", "writer":
			credits = appendCredit(credits, "writer", person.Name)
		}
	}
	for i, person := range d.Credits.Cast {
		if i >= maxCastCredits {
			break
		}
		credits = appendCredit(credits, "cast", person.Name)
	}
	return credits
}

func appendCredit(credits []media.Credit, role, name string) []media.Credit {
	name = strings.TrimSpace(name)
	if name == "" {
		return credits
	}
	return append(credits, media.Credit{Role: role, Name: name})
}

// Posters resolves poster URLs from hydrated candidates, falling back to the
// images endpoint when the details carried no poster path.
type Posters struct {
	client    *Client
	imageBase string
	policy    services.RetryPolicy
}

// PosterSize is the TMDB image size used in feed output.
const PosterSize = "w500"

// NewPosters returns a poster resolver rooted at imageBase.
func NewPosters(client *Client, imageBase string, policy services.RetryPolicy) *Posters {
	return &Posters{
		client:    client,
		imageBase: strings.TrimRight(strings.TrimSpace(imageBase), "/"),
		policy:    policy,
	}
}

// PosterURL returns the poster URL for c.
func (p *Posters) PosterURL(ctx context.Context, c media.Candidate) (string, error) {
	path := strings.TrimSpace(c.PosterPath)
	if path == "" {
		images, err := services.WithRetry(ctx, p.policy, func(ctx context.Context) (*Images, error) {
			return p.client.Images(ctx, string(c.Kind), c.ID)
		})
		if err != nil {
			return "", err
		}
		path = images.BestPoster()
	}
	if path == "" {
		return "", services.Wrap(services.ErrNotFound, "tmdb", "poster", "no poster for id "+strconv.FormatInt(c.ID, 10), nil)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return p.imageBase + "/" + PosterSize + path, nil
}

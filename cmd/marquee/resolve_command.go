package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"marquee/internal/media"
	"marquee/internal/resolve"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var year int
	var season int
	var people []string
	var showCandidates bool

	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Show which catalog record a title resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kind, err := media.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd.Context(), cfg, logger, pipelineOptions{noPublish: true, noHistory: true})
			if err != nil {
				return err
			}
			defer p.Close()

			item := media.SourceItem{
				Title:          strings.Join(args, " "),
				Year:           year,
				Disambiguators: people,
			}
			if season > 0 {
				item.Season = &media.SeasonHint{Name: fmt.Sprintf("Season %d", season), Number: season}
			}

			searcher := resolve.NewSearcher(p.catalog(kind),
				resolve.WithMaxPages(cfg.TMDB.MaxPages),
				resolve.WithCredits(cfg.TMDB.FetchCredits),
				resolve.WithYearFilter(kind == media.KindMovie),
				resolve.WithRetryPolicy(retryPolicy(cfg)),
				resolve.WithLogger(logger),
			)
			out := cmd.OutOrStdout()

			if showCandidates {
				rows := make([][]string, 0)
				for hit, err := range searcher.Search(cmd.Context(), item) {
					if err != nil {
						return err
					}
					rows = append(rows, []string{
						hit.Query.Title,
						yearLabel(hit.Query.Year),
						strconv.FormatInt(hit.Candidate.ID, 10),
						hit.Candidate.Title,
						hit.Candidate.ReleaseDate,
						strconv.FormatFloat(hit.Candidate.Popularity, 'f', 2, 64),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Query", "Year", "TMDB", "Title", "Date", "Popularity"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignRight},
				))
			}

			match, err := resolve.NewResolver(searcher, kind, logger).Resolve(cmd.Context(), item)
			if errors.Is(err, resolve.ErrUnresolved) {
				fmt.Fprintf(out, "%s: no catalog match\n", item.Label())
				return nil
			}
			if err != nil {
				return err
			}
			ids, err := p.catalog(kind).ExternalIDs(cmd.Context(), match.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderDetails([][2]string{
				{"Source", item.Label()},
				{"TMDB ID", strconv.FormatInt(match.ID, 10)},
				{"Title", match.Title},
				{"Released", match.ReleaseDate},
				{"Popularity", strconv.FormatFloat(match.Popularity, 'f', 2, 64)},
				{"IMDb", valueOrDash(ids.IMDbID)},
				{"TVDB", valueOrDash(ids.TVDBID)},
			}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "movie", "Catalog kind: movie or tv")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year from the source listing")
	cmd.Flags().IntVar(&season, "season", 0, "Season number for a series listing")
	cmd.Flags().StringSliceVar(&people, "person", nil, "Credited director, writer or creator (repeatable)")
	cmd.Flags().BoolVar(&showCandidates, "candidates", false, "List every candidate the search surfaced")
	return cmd
}

func yearLabel(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

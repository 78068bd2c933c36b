package history

import (
	"time"

	"marquee/internal/feed"
)

// FromReport converts a generation report into a run record.
func FromReport(id string, report *feed.Report, outputPath string) Run {
	run := Run{
		ID:         id,
		Feed:       report.Feed,
		Status:     StatusSucceeded,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Scraped:    report.Scraped,
		Emitted:    len(report.Records),
		Dropped:    len(report.Drops),
		OutputPath: outputPath,
	}

	posters := make(map[int64]string, len(report.Selected))
	for i, entry := range report.Selected {
		if i < len(report.Records) {
			posters[entry.Candidate.ID] = report.Records[i].PosterURL
		}
	}
	profile, _ := feed.ProfileByName(report.Feed)
	for _, scored := range report.Scored {
		external := scored.Candidate.External.IMDbID
		if profile.IDKey == feed.IDKeyTVDB {
			external = scored.Candidate.External.TVDBID
		}
		poster, selected := posters[scored.Candidate.ID]
		run.Entries = append(run.Entries, Entry{
			TMDBID:          scored.Candidate.ID,
			Title:           scored.Candidate.Title,
			ExternalID:      external,
			Popularity:      scored.Candidate.Popularity,
			RatingPrimary:   scored.Rating.Primary,
			RatingSecondary: scored.Rating.Secondary,
			Score:           scored.Score,
			Selected:        selected,
			PosterURL:       poster,
		})
	}
	for _, drop := range report.Drops {
		record := Drop{
			Title:  drop.Item.Label(),
			Year:   drop.Item.Year,
			Reason: string(drop.Reason),
			TMDBID: drop.CandidateID,
		}
		if drop.Err != nil {
			record.ErrorMessage = drop.Err.Error()
		}
		run.Drops = append(run.Drops, record)
	}
	return run
}

// Failed builds the record of a run that aborted before producing a report.
func Failed(id, feedName string, report *feed.Report, err error) Run {
	run := Run{ID: id, Feed: feedName, Status: StatusFailed}
	if report != nil {
		run = FromReport(id, report, "")
		run.Status = StatusFailed
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err != nil {
		run.ErrorMessage = err.Error()
	}
	return run
}

package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marquee/internal/config"
	"marquee/internal/feed"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var format string
	var toStdout bool
	var noPublish bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:       "generate [movies|series]...",
		Short:     "Scrape, resolve and publish feeds (all feeds when none are named)",
		ValidArgs: feed.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			profiles, err := selectProfiles(cfg, args)
			if err != nil {
				return err
			}
			mode, err := resolveOutputFormat(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			p, err := newPipeline(runCtx, cfg, logger, pipelineOptions{
				outputDir: outputDir,
				noPublish: noPublish,
				noHistory: noHistory,
			})
			if err != nil {
				return err
			}
			defer p.Close()

			var (
				summaries []runSummary
				errs      []error
			)
			for _, profile := range profiles {
				result, err := p.run(runCtx, profile)
				summaries = append(summaries, summarize(profile.Name, result, err))
				if err != nil {
					errs = append(errs, err)
					if runCtx.Err() != nil {
						break
					}
					continue
				}
				if toStdout {
					if _, err := cmd.OutOrStdout().Write(result.Data); err != nil {
						return err
					}
				}
			}

			if !toStdout {
				if err := renderSummaries(cmd, mode, summaries); err != nil {
					return err
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for <feed>.json (overrides paths.output_dir)")
	cmd.Flags().StringVar(&format, "format", formatAuto, "Summary format: auto, table or json")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the feed JSON instead of a summary")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "Skip the S3 upload even when publish.s3_bucket is set")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run in the history database")
	return cmd
}

// selectProfiles maps feed arguments to profiles sized from configuration.
// Duplicates collapse; no arguments selects every feed.
func selectProfiles(cfg *config.Config, args []string) ([]feed.Profile, error) {
	if len(args) == 0 {
		args = feed.Names()
	}
	seen := make(map[string]bool, len(args))
	profiles := make([]feed.Profile, 0, len(args))
	for _, arg := range args {
		profile, err := feed.ProfileByName(arg)
		if err != nil {
			return nil, fmt.Errorf("%w (expected one of %v)", err, feed.Names())
		}
		if seen[profile.Name] {
			continue
		}
		seen[profile.Name] = true
		profiles = append(profiles, profile.WithLimit(cfg.FeedLimit(profile.Name)))
	}
	return profiles, nil
}

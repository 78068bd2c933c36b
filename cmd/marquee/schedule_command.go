package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/feed"
	"marquee/internal/scheduler"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var runNow bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Regenerate every feed on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			profiles, err := selectProfiles(cfg, nil)
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sched, err := scheduler.New(scheduler.Options{
				Spec:       cfg.Schedule.Cron,
				Timezone:   cfg.Schedule.Timezone,
				LockPath:   cfg.LockPath(),
				RunAtStart: runNow,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			p, err := newPipeline(runCtx, cfg, logger, pipelineOptions{outputDir: outputDir})
			if err != nil {
				return err
			}
			defer p.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Scheduling %q (%s); next run %s\n",
				cfg.Schedule.Cron, cfg.Schedule.Timezone, sched.Next(time.Now()).Format(time.RFC3339))

			err = sched.Run(runCtx, func(jobCtx context.Context) error {
				return generateAll(jobCtx, p, profiles)
			})
			if errors.Is(err, scheduler.ErrAlreadyRunning) {
				return fmt.Errorf("%w (lock %s)", err, cfg.LockPath())
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Generate immediately instead of waiting for the first activation")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for <feed>.json (overrides paths.output_dir)")
	return cmd
}

// generateAll runs every profile; one feed failing does not skip the others.
func generateAll(ctx context.Context, p *pipeline, profiles []feed.Profile) error {
	var errs []error
	for _, profile := range profiles {
		if _, err := p.run(ctx, profile); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

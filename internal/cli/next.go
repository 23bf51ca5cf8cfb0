package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

type nextOptions struct {
	format string
}

func newNextCmd(a *app) *cobra.Command {
	var opts nextOptions
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Print the next prayer on a single line, for status bars such as tmux.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", prayer.FormatFull, "Display format: time-remaining, countdown, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, or a custom Go template (fields: .Name .Label .ShortName .Time .Remaining .Countdown .Hours .Minutes .Seconds)")
	// Applied through the config layer like the root flags.
	cmd.Flags().String("prayers", "", "Comma-separated list of prayers to track (overrides config)")

	return cmd
}

func runNext(cmd *cobra.Command, a *app, opts nextOptions) error {
	ctx := cmd.Context()
	only := a.cfg.PrayerFilter()
	now := a.clock()

	day, _, err := a.fetchDay(ctx, now)
	if err != nil {
		return err
	}
	now = now.In(day.Schedule.Location())

	ev, err := prayer.ResolveAmong(day.Schedule, now, only)
	if err != nil {
		return err
	}

	// Past the last tracked prayer: prefer tomorrow's real time over the
	// shifted one.
	if ev.Rollover {
		tomorrow, _, err := a.fetchDay(ctx, now.AddDate(0, 0, 1))
		if err == nil {
			if tev, err := prayer.ResolveAmong(tomorrow.Schedule, now, only); err == nil {
				ev = tev
			}
		} else {
			logger := logging.GetLogger("cli")
			logger.Debug().Err(err).Msg("Tomorrow's schedule unavailable, using today's times")
		}
	}

	labels := a.displayPrefs(ctx).labels
	fmt.Fprint(cmd.OutOrStdout(), prayer.FormatOutput(ev, labels, opts.format, goTimeFormat(a.cfg)))
	return nil
}

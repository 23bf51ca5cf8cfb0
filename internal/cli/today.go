package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/uyan/internal/display"
	"github.com/smokyabdulrahman/uyan/internal/hadith"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
	"github.com/smokyabdulrahman/uyan/internal/timesource"
)

const title = "Uyan! Namaz Vakitleri"

type todayOptions struct {
	date string // YYYY-MM-DD, empty for today
}

func newTodayCmd(a *app) *cobra.Command {
	var opts todayOptions
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the prayer schedule for today",
		Long:  "Display the day's prayer times with the next prayer highlighted,\nthe Hijri date and the hadith of the day.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToday(cmd, a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.date, "date", "", "Show another day (YYYY-MM-DD)")
	return cmd
}

// todayView is everything the today output needs.
type todayView struct {
	day     *timesource.Day
	place   resolvedPlace
	prefs   displayPrefs
	now     time.Time
	isToday bool
	layout  string
}

func runToday(cmd *cobra.Command, a *app, opts todayOptions) error {
	ctx := cmd.Context()
	now := a.clock()

	date := now
	if opts.date != "" {
		d, err := time.ParseInLocation("2006-01-02", opts.date, now.Location())
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", opts.date)
		}
		date = d.Add(12 * time.Hour)
	}

	day, place, err := a.fetchDay(ctx, date)
	if err != nil {
		return err
	}
	loc := day.Schedule.Location()

	v := todayView{
		day:     day,
		place:   place,
		prefs:   a.displayPrefs(ctx),
		now:     now.In(loc),
		isToday: day.Schedule.SameDay(now),
		layout:  goTimeFormat(a.cfg),
	}

	if a.json {
		return printTodayJSON(cmd.OutOrStdout(), v)
	}
	printTodayRich(cmd.OutOrStdout(), v)
	return nil
}

// next returns the next event when the view shows today.
func (v todayView) next() (prayer.NextEvent, bool) {
	if !v.isToday {
		return prayer.NextEvent{}, false
	}
	ev, err := prayer.Resolve(v.day.Schedule, v.now)
	return ev, err == nil
}

// printTodayRich renders the colored terminal output for a day's schedule.
func printTodayRich(w io.Writer, v todayView) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold(title))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", display.Cyan(v.place.String()))
	fmt.Fprintf(w, "  %s\n", v.day.Timezone)
	fmt.Fprintf(w, "  %s\n", v.day.Schedule.Date().Format("02 Jan 2006"))
	if h := v.day.Hijri.Format(); h != "" {
		if v.day.Hijri.IsRamadan() {
			h += "  " + display.Magenta("Hayırlı Ramazanlar")
		}
		fmt.Fprintf(w, "  %s\n", h)
	}
	fmt.Fprintln(w)

	next, hasNext := v.next()
	t := display.NewTable([]string{
		display.Upper("Vakit"),
		display.Upper("Saat"),
		display.Upper("Bildirim"),
	})
	for _, p := range v.day.Schedule.Entries() {
		bell := "kapalı"
		if v.prefs.enabled.Allows(p.Name, v.prefs.labels) {
			bell = "açık"
		}
		row := []string{v.prefs.labels.Label(p.Name), p.Time.Format(v.layout), bell}

		switch {
		case hasNext && !next.Rollover && p.Name == next.Name:
			t.AddStyledRow(row, display.RowHighlight)
		case v.isToday && !p.Time.After(v.now):
			t.AddStyledRow(row, display.RowMuted)
		default:
			t.AddRow(row)
		}
	}
	fmt.Fprint(w, t.Render())
	fmt.Fprintln(w)

	if hasNext {
		label := v.prefs.labels.Label(next.Name)
		if next.Rollover {
			label = display.Yellow("Yarın") + " " + label
		}
		fmt.Fprintf(w, "  %s vaktine %s kaldı\n", label, display.Accent(prayer.FormatCountdown(next.Remaining)))
		fmt.Fprintln(w)
	}

	h := hadith.ForDay(v.day.Schedule.Date())
	fmt.Fprintf(w, "  %s\n", display.Dim("\""+h.Text+"\""))
	fmt.Fprintf(w, "  %s\n", display.Dim("("+h.Source+")"))
	fmt.Fprintln(w)
}

// todayJSON is the JSON output structure for the today command.
type todayJSON struct {
	Location todayJSONLocation `json:"location"`
	Date     todayJSONDate     `json:"date"`
	Timings  []todayJSONEntry  `json:"timings"`
	Current  prayer.Name       `json:"current,omitempty"`
	Next     *todayJSONNext    `json:"next,omitempty"`
	Hadith   hadith.Hadith     `json:"hadith"`
}

type todayJSONLocation struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	Hijri     string `json:"hijri"`
	Ramadan   bool   `json:"ramadan"`
}

type todayJSONEntry struct {
	Prayer  prayer.Name `json:"prayer"`
	Label   string      `json:"label"`
	Time    string      `json:"time"`
	Enabled bool        `json:"enabled"`
}

type todayJSONNext struct {
	Prayer    prayer.Name `json:"prayer"`
	Label     string      `json:"label"`
	Time      string      `json:"time"`
	Remaining string      `json:"remaining"`
	Countdown string      `json:"countdown"`
	Rollover  bool        `json:"rollover"`
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, v todayView) error {
	out := todayJSON{
		Location: todayJSONLocation{
			City:      v.place.City,
			Country:   v.place.Country,
			Timezone:  v.day.Timezone,
			Latitude:  v.place.Coordinate.Lat,
			Longitude: v.place.Coordinate.Lon,
		},
		Date: todayJSONDate{
			Gregorian: v.day.Schedule.Date().Format("2006-01-02"),
			Hijri:     v.day.Hijri.Format(),
			Ramadan:   v.day.Hijri.IsRamadan(),
		},
		Hadith: hadith.ForDay(v.day.Schedule.Date()),
	}

	for _, p := range v.day.Schedule.Entries() {
		out.Timings = append(out.Timings, todayJSONEntry{
			Prayer:  p.Name,
			Label:   v.prefs.labels.Label(p.Name),
			Time:    p.Time.Format(v.layout),
			Enabled: v.prefs.enabled.Allows(p.Name, v.prefs.labels),
		})
	}

	if v.isToday {
		if cur, ok := prayer.Current(v.day.Schedule, v.now); ok {
			out.Current = cur.Name
		}
	}
	if next, ok := v.next(); ok {
		out.Next = &todayJSONNext{
			Prayer:    next.Name,
			Label:     v.prefs.labels.Label(next.Name),
			Time:      next.At.Format(v.layout),
			Remaining: prayer.FormatRemaining(next.Remaining),
			Countdown: prayer.FormatCountdown(next.Remaining),
			Rollover:  next.Rollover,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

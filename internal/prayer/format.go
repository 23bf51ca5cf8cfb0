package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Format constants for display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatModeCountdown      = "countdown"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
)

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // canonical name, e.g. "Asr"
	Label     string // display label, e.g. "İkindi"
	ShortName string // e.g. "A"
	Time      string // e.g. "15:02" or "3:02 PM"
	Remaining string // e.g. "2h 15m"
	Countdown string // e.g. "02:15:00"
	Hours     int
	Minutes   int
	Seconds   int
}

// FormatOutput formats a next event according to the chosen mode.
// timeFormat should be "15:04" for 24h or "3:04 PM" for 12h.
//
// If mode contains "{{", it is treated as a custom Go template string.
// Example: "{{.Label}} {{.Countdown}}" -> "İkindi 02:15:00"
func FormatOutput(ev NextEvent, labels Labels, mode string, timeFormat string) string {
	label := labels.Label(ev.Name)
	remaining := FormatRemaining(ev.Remaining)
	countdown := FormatCountdown(ev.Remaining)
	timeStr := ev.At.Format(timeFormat)
	short := ShortNames[ev.Name]

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, FormatData{
			Name:      string(ev.Name),
			Label:     label,
			ShortName: short,
			Time:      timeStr,
			Remaining: remaining,
			Countdown: countdown,
			Hours:     int(ev.Remaining.Hours()),
			Minutes:   int(ev.Remaining.Minutes()) % 60,
			Seconds:   int(ev.Remaining.Seconds()) % 60,
		})
	}

	switch mode {
	case FormatTimeRemaining:
		return remaining
	case FormatModeCountdown:
		return countdown
	case FormatNextPrayerTime:
		return timeStr
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", label, remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", short, timeStr)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", short, remaining)
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", label, timeStr, remaining)
	default:
		return fmt.Sprintf("%s %s", label, timeStr)
	}
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatCountdown formats a duration as zero-padded "HH:MM:SS".
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}

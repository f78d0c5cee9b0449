package cli

import (
	"fmt"
	"strings"
	"time"

	"stockwatch/pkg/utils"
)

// FormatChange formats an absolute and percentage change with sign.
func FormatChange(change, changePct float64) string {
	sign := ""
	if change > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.3f (%s)", sign, change, utils.FormatPercent(changePct))
}

// FormatValue formats an optional indicator value, "-" when absent.
func FormatValue(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatConfidence formats a confidence percentage.
func FormatConfidence(conf int) string {
	return fmt.Sprintf("%d%%", conf)
}

// FormatTime formats a time in Bursa local time.
func FormatTime(t time.Time) string {
	return t.In(utils.BursaLocation).Format("15:04:05")
}

// FormatDate formats a date.
func FormatDate(t time.Time) string {
	return t.In(utils.BursaLocation).Format("02-Jan-2006")
}

// FormatDateTime formats a datetime.
func FormatDateTime(t time.Time) string {
	return t.In(utils.BursaLocation).Format("02-Jan-2006 15:04:05")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// TruncateString truncates a string to max runes with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

package notify

import (
	"fmt"
	"math"
)

// FormatWatchTime renders minutes for sentences, e.g. "1 hour and 5 minutes".
func FormatWatchTime(minutes float64) string {
	floored := int(math.Floor(minutes))

	switch {
	case floored <= 0:
		return "less than a minute"
	case floored == 1:
		return "1 minute"
	case floored < 60:
		return fmt.Sprintf("%d minutes", floored)
	}

	hours := floored / 60
	rest := floored % 60

	hourText := "1 hour"
	if hours != 1 {
		hourText = fmt.Sprintf("%d hours", hours)
	}
	if rest == 0 {
		return hourText
	}

	minuteText := "1 minute"
	if rest != 1 {
		minuteText = fmt.Sprintf("%d minutes", rest)
	}
	return hourText + " and " + minuteText
}

// FormatWatchTimeShort renders minutes compactly, e.g. "1 hrs 5 mins".
func FormatWatchTimeShort(minutes float64) string {
	floored := int(math.Floor(minutes))

	switch {
	case floored <= 0:
		return "0 mins"
	case floored < 60:
		return fmt.Sprintf("%d mins", floored)
	}

	hours := floored / 60
	rest := floored % 60
	if rest == 0 {
		return fmt.Sprintf("%d hrs", hours)
	}
	return fmt.Sprintf("%d hrs %d mins", hours, rest)
}

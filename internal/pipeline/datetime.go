package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/models"
)

const (
	canonicalDateLayout = "2006-01-02"

	msgInvalidDate       = "invalid date"
	msgInvalidTimeFormat = "invalid time format"
	msgInvalidTimeValue  = "invalid time value"
)

// Accepted calendar date layouts. Inputs carrying a zone are converted to UTC
// before the calendar date is taken.
var dateLayouts = []string{
	"2006-1-2",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"1/2/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

var timePattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(\s*(AM|PM))?$`)

// NormalizeDate parses raw as a calendar date and returns it as YYYY-MM-DD
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC().Format(canonicalDateLayout), nil
		}
	}
	return "", apperrors.NewValidationError(models.FieldDate, msgInvalidDate)
}

// NormalizeTime converts H:MM, HH:MM and their AM/PM forms to 24-hour HH:MM
func NormalizeTime(raw string) (string, error) {
	match := timePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return "", apperrors.NewValidationError(models.FieldTime, msgInvalidTimeFormat)
	}

	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])

	switch strings.ToUpper(match[4]) {
	case "PM":
		if hours != 12 {
			hours += 12
		}
	case "AM":
		if hours == 12 {
			hours = 0
		}
	}

	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return "", apperrors.NewValidationError(models.FieldTime, msgInvalidTimeValue)
	}

	return fmt.Sprintf("%02d:%02d", hours, minutes), nil
}

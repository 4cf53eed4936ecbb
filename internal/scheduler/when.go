package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/haasonsaas/nexus-core/pkg/models"
)

var (
	everyWeekdayAt = regexp.MustCompile(`^every\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\s+at\s+(.+)$`)
	everyDayAt     = regexp.MustCompile(`^every\s+day\s+at\s+(.+)$`)
	weekdaysAt     = regexp.MustCompile(`^every\s+weekday\s+at\s+(.+)$`)
	clockPattern   = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

var weekdayNumbers = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
}

// absoluteFormats are tried in order for one-shot reminders. Formats
// without a zone are interpreted in the scheduler's location.
var absoluteFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseWhen interprets a reminder's trigger phrase. Recurring phrases
// ("every monday at 8:00", "every day at 9am", "every weekday at 07:30")
// become cron specs; anything else must be an absolute timestamp, which
// becomes a one-shot.
func ParseWhen(text string, loc *time.Location, now time.Time) (models.JobSpec, time.Time, error) {
	trimmed := strings.ToLower(strings.TrimSpace(text))

	if m := everyWeekdayAt.FindStringSubmatch(trimmed); m != nil {
		hour, minute, err := parseClock(m[2])
		if err != nil {
			return models.JobSpec{}, time.Time{}, err
		}
		spec := fmt.Sprintf("%d %d * * %d", minute, hour, weekdayNumbers[m[1]])
		next, err := nextCron(spec, now)
		if err != nil {
			return models.JobSpec{}, time.Time{}, err
		}
		return models.JobSpec{Kind: models.JobCron, When: spec}, next, nil
	}

	if m := weekdaysAt.FindStringSubmatch(trimmed); m != nil {
		hour, minute, err := parseClock(m[1])
		if err != nil {
			return models.JobSpec{}, time.Time{}, err
		}
		spec := fmt.Sprintf("%d %d * * 1-5", minute, hour)
		next, err := nextCron(spec, now)
		if err != nil {
			return models.JobSpec{}, time.Time{}, err
		}
		return models.JobSpec{Kind: models.JobCron, When: spec}, next, nil
	}

	if m := everyDayAt.FindStringSubmatch(trimmed); m != nil {
		hour, minute, err := parseClock(m[1])
		if err != nil {
			return models.JobSpec{}, time.Time{}, err
		}
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		next, err := nextCron(spec, now)
		if err != nil {
			return models.JobSpec{}, time.Time{}, err
		}
		return models.JobSpec{Kind: models.JobCron, When: spec}, next, nil
	}

	at, err := parseAbsolute(strings.TrimSpace(text), loc)
	if err != nil {
		return models.JobSpec{}, time.Time{}, err
	}
	if !at.After(now) {
		return models.JobSpec{}, time.Time{}, fmt.Errorf("time %q is in the past", text)
	}
	return models.JobSpec{Kind: models.JobDate, When: at.Format(time.RFC3339)}, at, nil
}

// parseClock accepts "8:00", "08:30", "9am", "9:30pm", "21:30".
func parseClock(s string) (hour, minute int, err error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if m == nil {
		return 0, 0, fmt.Errorf("unrecognized time %q", s)
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("unrecognized time %q", s)
	}
	return hour, minute, nil
}

func parseAbsolute(s string, loc *time.Location) (time.Time, error) {
	for _, format := range absoluteFormats {
		if t, err := time.ParseInLocation(format, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized schedule %q", s)
}

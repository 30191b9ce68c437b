package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/glucose"
)

const LocalDateLayout = "2006-01-02"

var (
	ErrUnknownTimezone = fmt.Errorf("%w: unknown timezone", errors.InvalidArgument)
	ErrInvalidPeriod   = fmt.Errorf("%w: invalid period", errors.InvalidArgument)
)

// LoadLocation resolves an IANA timezone name. Empty names are rejected,
// callers are expected to substitute their configured default.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: timezone is required", ErrUnknownTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	return loc, nil
}

// ResolveLocation loads name, or fallback when name is empty
func ResolveLocation(name, fallback string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return LoadLocation(fallback)
	}
	return LoadLocation(name)
}

// LocalDateKey is a calendar date formatted as YYYY-MM-DD
type LocalDateKey string

func LocalDateOf(t time.Time, loc *time.Location) LocalDateKey {
	return LocalDateKey(t.In(loc).Format(LocalDateLayout))
}

// BucketByLocalDate groups readings by the calendar date they fall on in timezone
func BucketByLocalDate(readings []glucose.Reading, timezone string) (map[LocalDateKey][]glucose.Reading, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return BucketInLocation(readings, loc), nil
}

func BucketInLocation(readings []glucose.Reading, loc *time.Location) map[LocalDateKey][]glucose.Reading {
	buckets := make(map[LocalDateKey][]glucose.Reading)
	for _, r := range readings {
		key := LocalDateOf(r.Time, loc)
		buckets[key] = append(buckets[key], r)
	}
	return buckets
}

// DaysWorn counts the buckets that hold at least one valid reading
func DaysWorn(buckets map[LocalDateKey][]glucose.Reading) int {
	days := 0
	for _, readings := range buckets {
		for _, r := range readings {
			if r.IsValid() {
				days++
				break
			}
		}
	}
	return days
}

// Period is the half open interval [Start, End) interpreted in Location
type Period struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

func NewPeriod(start, end time.Time, timezone string) (Period, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return Period{}, err
	}
	return NewPeriodInLocation(start, end, loc)
}

func NewPeriodInLocation(start, end time.Time, loc *time.Location) (Period, error) {
	if !start.Before(end) {
		return Period{}, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidPeriod, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Period{Start: start.In(loc), End: end.In(loc), Location: loc}, nil
}

// StartOfLocalDay returns local midnight of the day t falls on
func StartOfLocalDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// PeriodOfDays returns the period spanning the given number of whole local
// days that ends at the first local midnight at or after end.
func PeriodOfDays(end time.Time, days int, loc *time.Location) (Period, error) {
	if days <= 0 {
		return Period{}, fmt.Errorf("%w: days must be positive", ErrInvalidPeriod)
	}
	periodEnd := StartOfLocalDay(end, loc)
	if periodEnd.Before(end) {
		periodEnd = periodEnd.AddDate(0, 0, 1)
	}
	periodStart := periodEnd.AddDate(0, 0, -days)
	return NewPeriodInLocation(periodStart, periodEnd, loc)
}

// DatePeriod returns the period from local midnight of startDate until local
// midnight after endDate. Dates are formatted as YYYY-MM-DD.
func DatePeriod(startDate, endDate string, loc *time.Location) (Period, error) {
	start, err := time.ParseInLocation(LocalDateLayout, startDate, loc)
	if err != nil {
		return Period{}, fmt.Errorf("%w: start date %q", ErrInvalidPeriod, startDate)
	}
	end, err := time.ParseInLocation(LocalDateLayout, endDate, loc)
	if err != nil {
		return Period{}, fmt.Errorf("%w: end date %q", ErrInvalidPeriod, endDate)
	}
	return NewPeriodInLocation(start, end.AddDate(0, 0, 1), loc)
}

func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Offset returns the period immediately preceding p. Periods aligned to local
// midnight keep the same number of calendar days, anything else keeps its duration.
func (p Period) Offset() Period {
	days := p.wholeDays()
	if days > 0 {
		return Period{Start: p.Start.AddDate(0, 0, -days), End: p.Start, Location: p.Location}
	}
	return Period{Start: p.Start.Add(-p.Duration()), End: p.Start, Location: p.Location}
}

func (p Period) wholeDays() int {
	if !p.Start.Equal(StartOfLocalDay(p.Start, p.Location)) || !p.End.Equal(StartOfLocalDay(p.End, p.Location)) {
		return 0
	}
	days := 0
	for d := p.Start; d.Before(p.End); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// LocalDays lists every calendar date touched by the period
func (p Period) LocalDays() []LocalDateKey {
	var keys []LocalDateKey
	for d := StartOfLocalDay(p.Start, p.Location); d.Before(p.End); d = d.AddDate(0, 0, 1) {
		keys = append(keys, LocalDateOf(d, p.Location))
	}
	return keys
}

func (p Period) Filter(readings []glucose.Reading) []glucose.Reading {
	filtered := make([]glucose.Reading, 0, len(readings))
	for _, r := range readings {
		if p.Contains(r.Time) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s) %s", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339), p.Location)
}

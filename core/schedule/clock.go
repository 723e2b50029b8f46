package schedule

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	minutesPerDay = 24 * 60
	clockLayout   = "%02d:%02d"
)

// Clock is a time of day, in minutes since midnight. Its JSON and database form is "HH:MM".
type Clock int

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "HH:MM" (seconds, if any, are ignored). "24:00" is accepted as the end of the day.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: expected format HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected format HH:MM", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected format HH:MM", s)
	}
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return NewClock(hour, minute), nil
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) Valid() bool {
	return c >= 0 && c <= minutesPerDay
}

func (c Clock) String() string {
	return fmt.Sprintf(clockLayout, c.Hour(), c.Minute())
}

// On returns the time at which the clock strikes on the given day.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(time.Duration(c) * time.Minute)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid time: expected a string formatted HH:MM")
	}
	clock, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = clock
	return nil
}

func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *Clock) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		*c = NewClock(v.Hour(), v.Minute())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
	clock, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = clock
	return nil
}

// Weekday is a day of the school week, 1 (Monday) to 7 (Sunday).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf converts a time.Weekday, which starts on Sunday.
func WeekdayOf(wd time.Weekday) Weekday {
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

func (wd Weekday) Valid() bool {
	return wd >= Monday && wd <= Sunday
}

func (wd Weekday) String() string {
	if !wd.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(wd))
	}
	return time.Weekday(int(wd) % 7).String()
}

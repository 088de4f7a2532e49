package component

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateTime is a calendar instant. Exactly one of the two external shapes is
// represented: an all-day date (AllDay set, midnight in the zone) or a zoned
// date-time (AllDay clear, Zone optionally naming an IANA timezone).
type DateTime struct {
	Time   time.Time
	AllDay bool
	Zone   string
}

// Equal reports whether two values denote the same instant with the same
// all-day semantics. The zone label itself is not significant as long as the
// instant matches.
func (d DateTime) Equal(o DateTime) bool {
	return d.AllDay == o.AllDay && d.Time.Equal(o.Time)
}

// ICalString serializes into the basic iCalendar form: YYYYMMDD for all-day
// values, YYYYMMDDTHHMMSS otherwise (with a Z suffix in UTC).
func (d DateTime) ICalString() string {
	if d.AllDay {
		return d.Time.Format("20060102")
	}
	if d.Time.Location() == time.UTC {
		return d.Time.Format("20060102T150405Z")
	}
	return d.Time.Format("20060102T150405")
}

// ParseDate parses an all-day date in RFC3339 date form (2006-01-02).
func ParseDate(s string) (DateTime, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{Time: t, AllDay: true}, nil
}

// ParseZoned parses an RFC3339 date-time, resolving the given IANA zone id
// when present. An unresolvable zone keeps the parsed offset and the label.
func ParseZoned(s, zone string) (DateTime, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return DateTime{}, err
	}
	if zone != "" {
		if loc, lerr := time.LoadLocation(zone); lerr == nil {
			t = t.In(loc)
		}
	}
	return DateTime{Time: t, Zone: zone}, nil
}

// ParseICal parses the basic iCalendar date / date-time forms:
//
//   - 20060102T150405Z (UTC)
//   - 20060102T150405  (floating, kept in UTC)
//   - 20060102         (all-day)
func ParseICal(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{}, errors.New("empty time value")
	}
	if strings.HasSuffix(s, "Z") {
		t, err := time.Parse("20060102T150405Z", s)
		if err != nil {
			return DateTime{}, err
		}
		return DateTime{Time: t}, nil
	}
	if strings.Contains(s, "T") {
		t, err := time.ParseInLocation("20060102T150405", s, time.UTC)
		if err != nil {
			return DateTime{}, err
		}
		return DateTime{Time: t}, nil
	}
	t, err := time.ParseInLocation("20060102", s, time.UTC)
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{Time: t, AllDay: true}, nil
}

// FormatDuration serializes a duration into iCalendar form, e.g. "-PT30M",
// "P1D", "PT1H30M", "PT0S". Sub-second precision is truncated.
func FormatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')

	total := int64(d / time.Second)
	days := total / 86400
	total %= 86400
	hours := total / 3600
	total %= 3600
	mins := total / 60
	secs := total % 60

	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || mins > 0 || secs > 0 || days == 0 {
		b.WriteByte('T')
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if mins > 0 {
			fmt.Fprintf(&b, "%dM", mins)
		}
		if secs > 0 || (hours == 0 && mins == 0) {
			fmt.Fprintf(&b, "%dS", secs)
		}
	}
	return b.String()
}

// ParseICalDuration parses an iCalendar duration ("P1DT2H3M4S", "-PT15M",
// "P2W") into a time.Duration.
func ParseICalDuration(s string) (time.Duration, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration value")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if len(s) == 0 || (s[0] != 'P' && s[0] != 'p') {
		return 0, fmt.Errorf("malformed duration %q", orig)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := int64(0)
	haveNum := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			num = num*10 + int64(c-'0')
			haveNum = true
		case c == 'T' || c == 't':
			inTime = true
		default:
			if !haveNum {
				return 0, fmt.Errorf("malformed duration %q", orig)
			}
			var unit time.Duration
			switch c {
			case 'W', 'w':
				unit = 7 * 24 * time.Hour
			case 'D', 'd':
				unit = 24 * time.Hour
			case 'H', 'h':
				unit = time.Hour
			case 'M', 'm':
				if inTime {
					unit = time.Minute
				} else {
					// Months are not valid in iCalendar durations.
					return 0, fmt.Errorf("malformed duration %q", orig)
				}
			case 'S', 's':
				unit = time.Second
			default:
				return 0, fmt.Errorf("malformed duration %q", orig)
			}
			total += time.Duration(num) * unit
			num = 0
			haveNum = false
		}
	}
	if haveNum {
		return 0, fmt.Errorf("malformed duration %q", orig)
	}
	if neg {
		total = -total
	}
	return total, nil
}

package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func trimCell(s string) string {
	return strings.TrimSpace(strings.Trim(s, " '"))
}

// HourMinute is a time of day, or a duration in whole hours and minutes.
// The zero value means "absent".
type HourMinute struct {
	Hour   int
	Minute int
	Set    bool
}

// NewHourMinute returns the value for h:m, or the zero value when the pair
// is out of range. 24:00 is accepted as end of day.
func NewHourMinute(h, m int) HourMinute {
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return HourMinute{}
	}
	return HourMinute{Hour: h, Minute: m, Set: true}
}

// FromMinutes converts minutes since midnight (or a duration in minutes).
func FromMinutes(total int) HourMinute {
	if total < 0 {
		return HourMinute{}
	}
	return NewHourMinute(total/60, total%60)
}

// Minutes returns h*60+m, or 0 when absent.
func (c HourMinute) Minutes() int {
	if !c.Set {
		return 0
	}
	return c.Hour*60 + c.Minute
}

// String renders "HH:MM", or "" when absent.
func (c HourMinute) String() string {
	if !c.Set {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock accepts "9", "09:00", "9:0", "09:00:00", "9h30", "9.30" and
// spreadsheet day fractions such as "0.375" (09:00).
func ParseClock(s string) HourMinute {
	s = strings.ToLower(trimCell(s))
	if s == "" {
		return HourMinute{}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < 1 {
		return FromMinutes(int(math.Round(f * 24 * 60)))
	}

	sep := strings.IndexAny(s, ":h.")
	if sep < 0 {
		if len(s) == 4 {
			h, okH := ParseInt(s[:2])
			m, okM := ParseInt(s[2:])
			if okH && okM {
				return NewHourMinute(h, m)
			}
			return HourMinute{}
		}
		h, ok := ParseInt(s)
		if !ok {
			return HourMinute{}
		}
		return NewHourMinute(h, 0)
	}

	h, ok := ParseInt(s[:sep])
	if !ok {
		return HourMinute{}
	}
	rest := s[sep+1:]
	if i := strings.IndexAny(rest, ":m"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return NewHourMinute(h, 0)
	}
	m, ok := ParseInt(rest)
	if !ok {
		return HourMinute{}
	}
	return NewHourMinute(h, m)
}

// clockFrom reads a time either from split hour and minute cells or, when
// the hour cell is empty, from a single combined cell. A missing minute next
// to a present hour is 0.
func clockFrom(combined, hour, minute string) HourMinute {
	if hour == "" {
		return ParseClock(combined)
	}
	if strings.ContainsAny(hour, ":h") {
		return ParseClock(hour)
	}
	h, ok := ParseInt(hour)
	if !ok {
		return HourMinute{}
	}
	if minute == "" {
		return NewHourMinute(h, 0)
	}
	m, ok := ParseInt(minute)
	if !ok {
		return HourMinute{}
	}
	return NewHourMinute(h, m)
}

// ParseInt accepts integers and integral decimals ("540", " 540 ", "540.0").
func ParseInt(s string) (int, bool) {
	s = trimCell(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

var truthy = map[string]bool{
	"1": true, "true": true, "t": true, "yes": true, "y": true,
	"si": true, "s": true, "x": true, "verdadero": true, "v": true,
}

// ParseBool is true for the usual affirmative spellings ("1", "TRUE", "sí",
// "x", ...) and false for everything else, including the empty string.
func ParseBool(s string) bool {
	return truthy[FoldName(s)]
}

func parseBoolDefault(s string, def bool) bool {
	if trimCell(s) == "" {
		return def
	}
	return ParseBool(s)
}

var weekdays = map[string]int{
	"monday": 1, "mon": 1, "lunes": 1, "lun": 1, "l": 1,
	"tuesday": 2, "tue": 2, "martes": 2, "mar": 2, "m": 2,
	"wednesday": 3, "wed": 3, "miercoles": 3, "mie": 3, "x": 3,
	"thursday": 4, "thu": 4, "jueves": 4, "jue": 4, "j": 4,
	"friday": 5, "fri": 5, "viernes": 5, "vie": 5, "v": 5,
	"saturday": 6, "sat": 6, "sabado": 6, "sab": 6, "s": 6,
	"sunday": 7, "sun": 7, "domingo": 7, "dom": 7, "d": 7,
}

// ParseWeekday returns the ISO weekday (Monday=1 .. Sunday=7) of a number or
// an English/Spanish day name, or 0. A bare 0 is read as Sunday.
func ParseWeekday(s string) int {
	if n, ok := ParseInt(s); ok {
		switch {
		case n == 0:
			return 7
		case n >= 1 && n <= 7:
			return n
		}
		return 0
	}
	return weekdays[FoldName(s)]
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
}

// Sheets and spreadsheet exports count days from 1899-12-30.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate returns the ISO form (YYYY-MM-DD) of a date written in any of
// the accepted layouts, day-first for the numeric ones, or "" when it cannot
// be read. Timestamps keep only their date part and spreadsheet serial day
// numbers are converted.
func ParseDate(s string) string {
	s = trimCell(s)
	if s == "" {
		return ""
	}
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	if n, ok := ParseInt(s); ok && n > 20000 && n < 80000 {
		return serialEpoch.AddDate(0, 0, n).Format(time.DateOnly)
	}
	return ""
}

// MarshalText renders the "HH:MM" form so snapshots stay readable.
func (c HourMinute) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

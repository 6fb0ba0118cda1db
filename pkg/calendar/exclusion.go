package calendar

import (
	"fmt"
	"time"
)

// Exclusion is the weekend policy of a subscription. Excluded weekdays never
// count as delivery days, whether skipped or not.
type Exclusion string

const (
	ExcludeNone     Exclusion = "none"
	ExcludeSaturday Exclusion = "saturday"
	ExcludeSunday   Exclusion = "sunday"
	ExcludeBoth     Exclusion = "both"
)

func ParseExclusion(s string) (Exclusion, error) {
	switch e := Exclusion(s); e {
	case ExcludeNone, ExcludeSaturday, ExcludeSunday, ExcludeBoth:
		return e, nil
	case "":
		return ExcludeNone, nil
	default:
		return "", fmt.Errorf("unknown weekend exclusion %q", s)
	}
}

func (e Exclusion) Excludes(d Day) bool {
	switch e {
	case ExcludeBoth:
		wd := d.Weekday()
		return wd == time.Saturday || wd == time.Sunday
	case ExcludeSaturday:
		return d.Weekday() == time.Saturday
	case ExcludeSunday:
		return d.Weekday() == time.Sunday
	default:
		return false
	}
}

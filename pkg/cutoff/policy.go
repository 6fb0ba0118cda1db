// Package cutoff decides whether a subscription day can still be modified.
package cutoff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"meal-subscription-be/pkg/calendar"
)

var (
	ErrNotConfigured = errors.New("cut-off time not configured")
	ErrInvalid       = errors.New("invalid cut-off time format")
)

// TimeOfDay is a 24-hour wall-clock boundary.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// isDigits rejects the signs strconv.Atoi would accept.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseTimeOfDay accepts strict "HH:MM" with 0<=HH<24 and 0<=MM<60.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TimeOfDay{}, ErrNotConfigured
	}
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	if !isDigits(hh) || !isDigits(mm) {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h >= 24 || m >= 60 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of t on day d in loc.
func (t TimeOfDay) On(d calendar.Day, loc *time.Location) time.Time {
	return d.In(loc).Add(time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute)
}

// CanModify is the core rule. Dates are compared in now's location.
//   - target after today: allowed
//   - target today: allowed iff now is strictly before the cut-off
//   - target before today: never
func CanModify(now time.Time, target calendar.Day, cut TimeOfDay) bool {
	today := calendar.DayOf(now)
	switch {
	case target.After(today):
		return true
	case target.Before(today):
		return false
	default:
		return now.Before(cut.On(today, now.Location()))
	}
}

// Result is the detailed outcome of Evaluate.
type Result struct {
	Allowed          bool
	Reason           string
	Cutoff           string
	MinutesRemaining int
	// Err is set when the configuration itself is unusable.
	Err error
}

// Evaluate parses raw and applies CanModify. A missing or malformed cut-off
// fails closed.
func Evaluate(now time.Time, target calendar.Day, raw string) Result {
	cut, err := ParseTimeOfDay(raw)
	if err != nil {
		return Result{Allowed: false, Reason: err.Error(), Err: err}
	}

	today := calendar.DayOf(now)
	res := Result{Cutoff: cut.String()}
	switch {
	case target.After(today):
		res.Allowed = true
		res.Reason = "future date"
	case target.Before(today):
		res.Reason = "date has already passed"
	default:
		boundary := cut.On(today, now.Location())
		res.Allowed = now.Before(boundary)
		if res.Allowed {
			res.MinutesRemaining = int(boundary.Sub(now) / time.Minute)
			res.Reason = fmt.Sprintf("allowed until %s", res.Cutoff)
		} else {
			res.Reason = fmt.Sprintf("cut-off time (%s) has passed", res.Cutoff)
		}
	}
	return res
}

// Package calendar turns a subscription window into concrete delivery days.
//
// Everything here is pure: no clock, no I/O. Callers pass "today" explicitly.
package calendar

import "sort"

// DaySet is a set of calendar days.
type DaySet map[Day]struct{}

func NewDaySet(days ...Day) DaySet {
	s := make(DaySet, len(days))
	for _, d := range days {
		s[d] = struct{}{}
	}
	return s
}

func (s DaySet) Has(d Day) bool {
	if s == nil {
		return false
	}
	_, ok := s[d]
	return ok
}

// Sorted returns the members in ascending order.
func (s DaySet) Sorted() []Day {
	out := make([]Day, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Window is the scheduling view of a subscription.
type Window struct {
	Start     Day
	End       Day
	Total     int
	Exclusion Exclusion
	Skipped   DaySet
}

// Contains reports whether d lies in [Start, End].
func (w Window) Contains(d Day) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Generate walks day by day from Start and returns the delivery days in order.
// Excluded weekdays and skipped days are walked past without consuming a slot.
// The walk stops once Total days are counted or End is passed.
func Generate(w Window) []Day {
	if w.Total <= 0 || w.Start.IsZero() || w.End.IsZero() || w.Start.After(w.End) {
		return []Day{}
	}

	days := make([]Day, 0, w.Total)
	for d := w.Start; !d.After(w.End) && len(days) < w.Total; d = d.AddDays(1) {
		if w.Exclusion.Excludes(d) || w.Skipped.Has(d) {
			continue
		}
		days = append(days, d)
	}
	return days
}

// NextDeliveryDay returns the first day strictly after `after` that is neither
// excluded by policy nor already skipped. It may fall beyond w.End.
func NextDeliveryDay(after Day, w Window) Day {
	next := after.AddDays(1)
	for w.Exclusion.Excludes(next) || w.Skipped.Has(next) {
		next = next.AddDays(1)
	}
	return next
}

// ExtendEnd moves end forward by exactly one delivery day: one calendar day,
// then over any days the policy excludes.
func ExtendEnd(end Day, ex Exclusion) Day {
	next := end.AddDays(1)
	for ex.Excludes(next) {
		next = next.AddDays(1)
	}
	return next
}

// EndDateFor returns the last day of a fresh window that starts at start and
// holds total delivery days under ex.
func EndDateFor(start Day, total int, ex Exclusion) Day {
	if total <= 0 {
		return start
	}
	served := 0
	end := start
	for {
		if !ex.Excludes(end) {
			served++
			if served >= total {
				return end
			}
		}
		end = end.AddDays(1)
	}
}

package calendar

// DayKind is how a calendar day is rendered for a subscription.
type DayKind string

const (
	DayDelivered DayKind = "delivered"
	DayUpcoming  DayKind = "upcoming"
	DayExcluded  DayKind = "excluded"
	DaySkipped   DayKind = "skipped"
)

// ClassifiedDay pairs a day with its kind.
type ClassifiedDay struct {
	Date Day     `json:"date"`
	Kind DayKind `json:"kind"`
}

// DoneFunc reports whether a delivery was already completed on a day.
// It may be nil.
type DoneFunc func(Day) bool

// Schedule is a generated plan that can answer membership questions without
// re-walking the window.
type Schedule struct {
	window Window
	days   []Day
	set    DaySet
}

func NewSchedule(w Window) *Schedule {
	days := Generate(w)
	return &Schedule{window: w, days: days, set: NewDaySet(days...)}
}

func (s *Schedule) Days() []Day { return s.days }

func (s *Schedule) Contains(d Day) bool { return s.set.Has(d) }

// Classify decides the kind of d. A day that is not part of the plan and was
// not skipped renders as excluded. Planned days before today, or marked done,
// are delivered.
func (s *Schedule) Classify(d, today Day, done DoneFunc) DayKind {
	if s.window.Exclusion.Excludes(d) {
		return DayExcluded
	}
	if s.window.Skipped.Has(d) {
		return DaySkipped
	}
	if !s.set.Has(d) {
		return DayExcluded
	}
	if d.Before(today) || (done != nil && done(d)) {
		return DayDelivered
	}
	return DayUpcoming
}

// Range classifies every day in [from, to]. An inverted range yields nothing.
func (s *Schedule) Range(from, to, today Day, done DoneFunc) []ClassifiedDay {
	if from.After(to) {
		return []ClassifiedDay{}
	}
	out := make([]ClassifiedDay, 0, DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, ClassifiedDay{Date: d, Kind: s.Classify(d, today, done)})
	}
	return out
}

// Classify is a convenience for one-off lookups.
func Classify(d Day, w Window, today Day, done DoneFunc) DayKind {
	return NewSchedule(w).Classify(d, today, done)
}

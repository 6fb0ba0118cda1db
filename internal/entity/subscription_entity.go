// FILE: internal/entity/subscription_entity.go
package entity

import (
	"fmt"
	"sort"
	"time"

	"meal-subscription-be/pkg/calendar"

	"github.com/google/uuid"
)

type SubscriptionStatus string
type DeliveryStatus string
type AckMode string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCompleted SubscriptionStatus = "completed"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"

	DeliveryStatusPackaging       DeliveryStatus = "packaging"
	DeliveryStatusPackagingDone   DeliveryStatus = "packaging_done"
	DeliveryStatusDeliveryStarted DeliveryStatus = "delivery_started"
	DeliveryStatusReached         DeliveryStatus = "reached"
	DeliveryStatusDeliveryDone    DeliveryStatus = "delivery_done"

	AckModeExplicit AckMode = "explicit"
	AckModeAuto     AckMode = "auto"
)

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch st := DeliveryStatus(s); st {
	case DeliveryStatusPackaging, DeliveryStatusPackagingDone, DeliveryStatusDeliveryStarted,
		DeliveryStatusReached, DeliveryStatusDeliveryDone:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDeliveryStatus, s)
	}
}

// DeliveryLogEntry is one status change recorded against a delivery day.
type DeliveryLogEntry struct {
	Status  DeliveryStatus
	At      time.Time
	ActorId *uuid.UUID
}

// AckRecord is the customer's (or the system's) confirmation of receipt.
type AckRecord struct {
	Mode AckMode
	At   time.Time
}

// Subscription is the scheduling aggregate. The SkippedDates, AdditionalAddOns
// and EndDate triple only changes through a SubscriptionPatch produced by one
// of its methods.
type Subscription struct {
	Id                  uuid.UUID
	CustomerId          uuid.UUID
	PlanId              string
	MealId              string
	Status              SubscriptionStatus
	StartDate           calendar.Day
	EndDate             calendar.Day
	TotalDeliveries     int
	RemainingDeliveries int
	WeekendExclusion    calendar.Exclusion
	SkippedDates        calendar.DaySet
	AdditionalAddOns    map[calendar.Day][]string
	AssignedDeliveryId  *uuid.UUID

	DeliveryStatusByDate map[calendar.Day]DeliveryStatus
	DeliveryDayLogs      map[calendar.Day][]DeliveryLogEntry
	DeliveryAckByDate    map[calendar.Day]AckRecord

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscription builds a fresh active subscription whose EndDate holds
// exactly totalDeliveries delivery days under the exclusion policy.
func NewSubscription(customerId uuid.UUID, planId, mealId string, start calendar.Day, totalDeliveries int, exclusion calendar.Exclusion) *Subscription {
	return &Subscription{
		Id:                   uuid.New(),
		CustomerId:           customerId,
		PlanId:               planId,
		MealId:               mealId,
		Status:               SubscriptionStatusActive,
		StartDate:            start,
		EndDate:              calendar.EndDateFor(start, totalDeliveries, exclusion),
		TotalDeliveries:      totalDeliveries,
		RemainingDeliveries:  totalDeliveries,
		WeekendExclusion:     exclusion,
		SkippedDates:         calendar.DaySet{},
		AdditionalAddOns:     map[calendar.Day][]string{},
		DeliveryStatusByDate: map[calendar.Day]DeliveryStatus{},
		DeliveryDayLogs:      map[calendar.Day][]DeliveryLogEntry{},
		DeliveryAckByDate:    map[calendar.Day]AckRecord{},
	}
}

func (s *Subscription) Window() calendar.Window {
	return calendar.Window{
		Start:     s.StartDate,
		End:       s.EndDate,
		Total:     s.TotalDeliveries,
		Exclusion: s.WeekendExclusion,
		Skipped:   s.SkippedDates,
	}
}

func (s *Subscription) Schedule() *calendar.Schedule {
	return calendar.NewSchedule(s.Window())
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

func (s *Subscription) OwnedBy(customerId uuid.UUID) bool {
	return s.CustomerId == customerId
}

func (s *Subscription) IsAssignedTo(actorId uuid.UUID) bool {
	return s.AssignedDeliveryId != nil && *s.AssignedDeliveryId == actorId
}

// IsServiceable reports whether add-ons can be attached to d.
func (s *Subscription) IsServiceable(d calendar.Day) bool {
	return !s.WeekendExclusion.Excludes(d) && !s.SkippedDates.Has(d) && s.Window().Contains(d)
}

func (s *Subscription) IsAcknowledged(d calendar.Day) bool {
	_, ok := s.DeliveryAckByDate[d]
	return ok
}

// IsDelivered reports whether d ever reached delivery_done. A later status
// update on the same day does not undo a completed delivery.
func (s *Subscription) IsDelivered(d calendar.Day) bool {
	if s.DeliveryStatusByDate[d] == DeliveryStatusDeliveryDone {
		return true
	}
	for _, entry := range s.DeliveryDayLogs[d] {
		if entry.Status == DeliveryStatusDeliveryDone {
			return true
		}
	}
	return false
}

// Skip removes one delivery day and compensates for it:
//  1. date joins SkippedDates
//  2. add-ons on date move (set union) to the next delivery day after it
//  3. EndDate advances one delivery day, walking from the current EndDate
//
// The returned patch must be persisted as a unit.
func (s *Subscription) Skip(date calendar.Day) (*SubscriptionPatch, error) {
	if s.SkippedDates.Has(date) {
		return nil, ErrAlreadySkipped
	}
	if s.WeekendExclusion.Excludes(date) || !s.Window().Contains(date) {
		return nil, fmt.Errorf("%w: %s", ErrNotADeliveryDay, date)
	}

	skipped := cloneDaySet(s.SkippedDates)
	skipped[date] = struct{}{}

	addOns := cloneAddOns(s.AdditionalAddOns)
	if moved := addOns[date]; len(moved) > 0 {
		w := s.Window()
		w.Skipped = skipped
		next := calendar.NextDeliveryDay(date, w)
		addOns[next] = unionIds(addOns[next], moved)
		delete(addOns, date)
	}

	patch := &SubscriptionPatch{SkippedDates: skipped, AdditionalAddOns: addOns}

	// Validation above already rules out excluded and out-of-window dates, so
	// every accepted skip consumed a paid slot.
	end := calendar.ExtendEnd(s.EndDate, s.WeekendExclusion)
	patch.EndDate = &end

	return patch, nil
}

// AttachAddOns merges ids into the list for date. The second return value is
// the subset that was not attached before; a nil patch means nothing changed.
func (s *Subscription) AttachAddOns(date calendar.Day, ids []string) (*SubscriptionPatch, []string, error) {
	if !s.IsServiceable(date) {
		return nil, nil, fmt.Errorf("%w: %s", ErrDateNotServiceable, date)
	}

	existing := s.AdditionalAddOns[date]
	merged := unionIds(existing, ids)
	added := merged[len(existing):]
	if len(added) == 0 {
		return nil, nil, nil
	}

	addOns := cloneAddOns(s.AdditionalAddOns)
	addOns[date] = merged
	return &SubscriptionPatch{AdditionalAddOns: addOns}, append([]string(nil), added...), nil
}

// RestoreAddOns returns a patch that puts the list for date back to previous.
// Used to undo an attachment whose payment failed.
func (s *Subscription) RestoreAddOns(date calendar.Day, previous []string) *SubscriptionPatch {
	addOns := cloneAddOns(s.AdditionalAddOns)
	if len(previous) == 0 {
		delete(addOns, date)
	} else {
		addOns[date] = append([]string(nil), previous...)
	}
	return &SubscriptionPatch{AdditionalAddOns: addOns}
}

// CarryForwardAddOns moves the add-ons of date to the next delivery day. When
// that day lies past EndDate the window is extended by one delivery day.
// A nil patch means there was nothing to move.
func (s *Subscription) CarryForwardAddOns(date calendar.Day) *SubscriptionPatch {
	items := s.AdditionalAddOns[date]
	if len(items) == 0 {
		return nil
	}

	next := calendar.NextDeliveryDay(date, s.Window())
	addOns := cloneAddOns(s.AdditionalAddOns)
	addOns[next] = unionIds(addOns[next], items)
	delete(addOns, date)

	patch := &SubscriptionPatch{AdditionalAddOns: addOns}
	if next.After(s.EndDate) {
		end := calendar.ExtendEnd(s.EndDate, s.WeekendExclusion)
		patch.EndDate = &end
	}
	return patch
}

// RecordDeliveryStatus appends a status change for a planned delivery day.
// The first delivery_done for a day consumes one remaining delivery and
// completes the subscription when none are left.
func (s *Subscription) RecordDeliveryStatus(date calendar.Day, status DeliveryStatus, actorId *uuid.UUID, at time.Time) (*SubscriptionPatch, bool, error) {
	if !s.Schedule().Contains(date) {
		return nil, false, fmt.Errorf("%w: %s", ErrNotADeliveryDay, date)
	}

	statuses := make(map[calendar.Day]DeliveryStatus, len(s.DeliveryStatusByDate)+1)
	for k, v := range s.DeliveryStatusByDate {
		statuses[k] = v
	}
	statuses[date] = status

	logs := make(map[calendar.Day][]DeliveryLogEntry, len(s.DeliveryDayLogs)+1)
	for k, v := range s.DeliveryDayLogs {
		logs[k] = append([]DeliveryLogEntry(nil), v...)
	}
	logs[date] = append(logs[date], DeliveryLogEntry{Status: status, At: at, ActorId: actorId})

	patch := &SubscriptionPatch{DeliveryStatusByDate: statuses, DeliveryDayLogs: logs}

	firstCompletion := status == DeliveryStatusDeliveryDone && !s.IsDelivered(date)
	if firstCompletion {
		remaining := s.RemainingDeliveries - 1
		if remaining < 0 {
			remaining = 0
		}
		patch.RemainingDeliveries = &remaining
		if remaining == 0 {
			completed := SubscriptionStatusCompleted
			patch.Status = &completed
		}
	}
	return patch, firstCompletion, nil
}

// RecordAck marks the delivery of date as received. A nil patch means the day
// was already acknowledged.
func (s *Subscription) RecordAck(date calendar.Day, mode AckMode, at time.Time) (*SubscriptionPatch, error) {
	if s.IsAcknowledged(date) {
		return nil, nil
	}
	if !s.IsDelivered(date) {
		return nil, fmt.Errorf("%w: %s", ErrDeliveryNotCompleted, date)
	}
	acks := make(map[calendar.Day]AckRecord, len(s.DeliveryAckByDate)+1)
	for k, v := range s.DeliveryAckByDate {
		acks[k] = v
	}
	acks[date] = AckRecord{Mode: mode, At: at}
	return &SubscriptionPatch{DeliveryAckByDate: acks}, nil
}

// Apply mutates s with every non-nil field of p.
func (s *Subscription) Apply(p *SubscriptionPatch) {
	if p == nil {
		return
	}
	if p.SkippedDates != nil {
		s.SkippedDates = cloneDaySet(p.SkippedDates)
	}
	if p.AdditionalAddOns != nil {
		s.AdditionalAddOns = cloneAddOns(p.AdditionalAddOns)
	}
	if p.EndDate != nil {
		s.EndDate = *p.EndDate
	}
	if p.RemainingDeliveries != nil {
		s.RemainingDeliveries = *p.RemainingDeliveries
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.DeliveryStatusByDate != nil {
		s.DeliveryStatusByDate = p.DeliveryStatusByDate
	}
	if p.DeliveryDayLogs != nil {
		s.DeliveryDayLogs = p.DeliveryDayLogs
	}
	if p.DeliveryAckByDate != nil {
		s.DeliveryAckByDate = p.DeliveryAckByDate
	}
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	c := *s
	c.SkippedDates = cloneDaySet(s.SkippedDates)
	c.AdditionalAddOns = cloneAddOns(s.AdditionalAddOns)
	if s.AssignedDeliveryId != nil {
		id := *s.AssignedDeliveryId
		c.AssignedDeliveryId = &id
	}
	c.DeliveryStatusByDate = make(map[calendar.Day]DeliveryStatus, len(s.DeliveryStatusByDate))
	for k, v := range s.DeliveryStatusByDate {
		c.DeliveryStatusByDate[k] = v
	}
	c.DeliveryDayLogs = make(map[calendar.Day][]DeliveryLogEntry, len(s.DeliveryDayLogs))
	for k, v := range s.DeliveryDayLogs {
		c.DeliveryDayLogs[k] = append([]DeliveryLogEntry(nil), v...)
	}
	c.DeliveryAckByDate = make(map[calendar.Day]AckRecord, len(s.DeliveryAckByDate))
	for k, v := range s.DeliveryAckByDate {
		c.DeliveryAckByDate[k] = v
	}
	return &c
}

// SubscriptionPatch is a partial update. Nil fields are left untouched; the
// gateway writes all non-nil fields in a single statement.
type SubscriptionPatch struct {
	SkippedDates        calendar.DaySet
	AdditionalAddOns    map[calendar.Day][]string
	EndDate             *calendar.Day
	RemainingDeliveries *int
	Status              *SubscriptionStatus

	DeliveryStatusByDate map[calendar.Day]DeliveryStatus
	DeliveryDayLogs      map[calendar.Day][]DeliveryLogEntry
	DeliveryAckByDate    map[calendar.Day]AckRecord
}

func (p *SubscriptionPatch) IsEmpty() bool {
	return p == nil || (p.SkippedDates == nil && p.AdditionalAddOns == nil && p.EndDate == nil &&
		p.RemainingDeliveries == nil && p.Status == nil && p.DeliveryStatusByDate == nil &&
		p.DeliveryDayLogs == nil && p.DeliveryAckByDate == nil)
}

// SkippedDateStrings returns the skipped days as sorted ISO strings.
func SkippedDateStrings(set calendar.DaySet) []string {
	out := make([]string, 0, len(set))
	for _, d := range set.Sorted() {
		out = append(out, d.String())
	}
	return out
}

func cloneDaySet(in calendar.DaySet) calendar.DaySet {
	out := make(calendar.DaySet, len(in)+1)
	for d := range in {
		out[d] = struct{}{}
	}
	return out
}

func cloneAddOns(in map[calendar.Day][]string) map[calendar.Day][]string {
	out := make(map[calendar.Day][]string, len(in)+1)
	for d, ids := range in {
		out[d] = append([]string(nil), ids...)
	}
	return out
}

// unionIds appends the members of b missing from a, keeping a's order first.
func unionIds(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SortedAddOnDays returns the keys of an add-on map in ascending order.
func SortedAddOnDays(m map[calendar.Day][]string) []calendar.Day {
	out := make([]calendar.Day, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

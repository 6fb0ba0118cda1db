package mapper

import (
	"time"

	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/model"
	"meal-subscription-be/pkg/calendar"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) ToEntity(s *model.Subscription) *entity.Subscription {
	if s == nil {
		return nil
	}
	return &entity.Subscription{
		Id:                   s.Id,
		CustomerId:           s.CustomerId,
		PlanId:               s.PlanId,
		MealId:               s.MealId,
		Status:               entity.SubscriptionStatus(s.Status),
		StartDate:            DayFromDate(s.StartDate),
		EndDate:              DayFromDate(s.EndDate),
		TotalDeliveries:      s.TotalDeliveries,
		RemainingDeliveries:  s.RemainingDeliveries,
		WeekendExclusion:     calendar.Exclusion(s.WeekendExclusion),
		SkippedDates:         daySetFromStrings(s.SkippedDates),
		AdditionalAddOns:     m.addOnsToEntity(s.AdditionalAddOns.Data()),
		AssignedDeliveryId:   s.AssignedDeliveryId,
		DeliveryStatusByDate: m.statusesToEntity(s.DeliveryStatusByDate.Data()),
		DeliveryDayLogs:      m.logsToEntity(s.DeliveryDayLogs.Data()),
		DeliveryAckByDate:    m.acksToEntity(s.DeliveryAckByDate.Data()),
		Version:              s.Version,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToModel(s *entity.Subscription) *model.Subscription {
	if s == nil {
		return nil
	}
	return &model.Subscription{
		Id:                   s.Id,
		CustomerId:           s.CustomerId,
		PlanId:               s.PlanId,
		MealId:               s.MealId,
		AssignedDeliveryId:   s.AssignedDeliveryId,
		Status:               string(s.Status),
		StartDate:            DateFromDay(s.StartDate),
		EndDate:              DateFromDay(s.EndDate),
		TotalDeliveries:      s.TotalDeliveries,
		RemainingDeliveries:  s.RemainingDeliveries,
		WeekendExclusion:     string(s.WeekendExclusion),
		SkippedDates:         datatypes.NewJSONSlice(entity.SkippedDateStrings(s.SkippedDates)),
		AdditionalAddOns:     datatypes.NewJSONType(m.AddOnsToModel(s.AdditionalAddOns)),
		DeliveryStatusByDate: datatypes.NewJSONType(m.StatusesToModel(s.DeliveryStatusByDate)),
		DeliveryDayLogs:      datatypes.NewJSONType(m.LogsToModel(s.DeliveryDayLogs)),
		DeliveryAckByDate:    datatypes.NewJSONType(m.AcksToModel(s.DeliveryAckByDate)),
		Version:              s.Version,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToResponse(s *entity.Subscription) dto.SubscriptionResponse {
	acks := make(map[string]dto.AckRecordInfo, len(s.DeliveryAckByDate))
	for d, a := range s.DeliveryAckByDate {
		acks[d.String()] = dto.AckRecordInfo{Mode: string(a.Mode), At: a.At}
	}
	return dto.SubscriptionResponse{
		Id:                   s.Id,
		CustomerId:           s.CustomerId,
		PlanId:               s.PlanId,
		MealId:               s.MealId,
		Status:               string(s.Status),
		StartDate:            s.StartDate.String(),
		EndDate:              s.EndDate.String(),
		TotalDeliveries:      s.TotalDeliveries,
		RemainingDeliveries:  s.RemainingDeliveries,
		WeekendExclusion:     string(s.WeekendExclusion),
		SkippedDates:         entity.SkippedDateStrings(s.SkippedDates),
		AdditionalAddOns:     m.AddOnsToModel(s.AdditionalAddOns),
		DeliveryStatusByDate: m.StatusesToModel(s.DeliveryStatusByDate),
		DeliveryAckByDate:    acks,
		AssignedDeliveryId:   s.AssignedDeliveryId,
		Version:              s.Version,
		UpdatedAt:            s.UpdatedAt,
	}
}

// PatchToColumns converts a patch into the column map of a single UPDATE.
func (m *SubscriptionMapper) PatchToColumns(p *entity.SubscriptionPatch) map[string]interface{} {
	cols := map[string]interface{}{}
	if p == nil {
		return cols
	}
	if p.SkippedDates != nil {
		cols["skipped_dates"] = datatypes.NewJSONSlice(entity.SkippedDateStrings(p.SkippedDates))
	}
	if p.AdditionalAddOns != nil {
		cols["additional_add_ons"] = datatypes.NewJSONType(m.AddOnsToModel(p.AdditionalAddOns))
	}
	if p.EndDate != nil {
		cols["end_date"] = DateFromDay(*p.EndDate)
	}
	if p.RemainingDeliveries != nil {
		cols["remaining_deliveries"] = *p.RemainingDeliveries
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.DeliveryStatusByDate != nil {
		cols["delivery_status_by_date"] = datatypes.NewJSONType(m.StatusesToModel(p.DeliveryStatusByDate))
	}
	if p.DeliveryDayLogs != nil {
		cols["delivery_day_logs"] = datatypes.NewJSONType(m.LogsToModel(p.DeliveryDayLogs))
	}
	if p.DeliveryAckByDate != nil {
		cols["delivery_ack_by_date"] = datatypes.NewJSONType(m.AcksToModel(p.DeliveryAckByDate))
	}
	return cols
}

func (m *SubscriptionMapper) AddOnsToModel(in map[calendar.Day][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for d, ids := range in {
		if len(ids) == 0 {
			continue
		}
		out[d.String()] = append([]string(nil), ids...)
	}
	return out
}

func (m *SubscriptionMapper) StatusesToModel(in map[calendar.Day]entity.DeliveryStatus) map[string]string {
	out := make(map[string]string, len(in))
	for d, st := range in {
		out[d.String()] = string(st)
	}
	return out
}

func (m *SubscriptionMapper) LogsToModel(in map[calendar.Day][]entity.DeliveryLogEntry) map[string][]model.DeliveryLogRecord {
	out := make(map[string][]model.DeliveryLogRecord, len(in))
	for d, entries := range in {
		records := make([]model.DeliveryLogRecord, 0, len(entries))
		for _, e := range entries {
			records = append(records, model.DeliveryLogRecord{Status: string(e.Status), At: e.At, ActorId: e.ActorId})
		}
		out[d.String()] = records
	}
	return out
}

func (m *SubscriptionMapper) AcksToModel(in map[calendar.Day]entity.AckRecord) map[string]model.AckRecord {
	out := make(map[string]model.AckRecord, len(in))
	for d, a := range in {
		out[d.String()] = model.AckRecord{Mode: string(a.Mode), At: a.At}
	}
	return out
}

// Keys that are not valid days are dropped instead of failing the whole read.
func (m *SubscriptionMapper) addOnsToEntity(in map[string][]string) map[calendar.Day][]string {
	out := make(map[calendar.Day][]string, len(in))
	for k, ids := range in {
		d, err := calendar.ParseDay(k)
		if err != nil || len(ids) == 0 {
			continue
		}
		out[d] = append([]string(nil), ids...)
	}
	return out
}

func (m *SubscriptionMapper) statusesToEntity(in map[string]string) map[calendar.Day]entity.DeliveryStatus {
	out := make(map[calendar.Day]entity.DeliveryStatus, len(in))
	for k, st := range in {
		if d, err := calendar.ParseDay(k); err == nil {
			out[d] = entity.DeliveryStatus(st)
		}
	}
	return out
}

func (m *SubscriptionMapper) logsToEntity(in map[string][]model.DeliveryLogRecord) map[calendar.Day][]entity.DeliveryLogEntry {
	out := make(map[calendar.Day][]entity.DeliveryLogEntry, len(in))
	for k, records := range in {
		d, err := calendar.ParseDay(k)
		if err != nil {
			continue
		}
		entries := make([]entity.DeliveryLogEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, entity.DeliveryLogEntry{Status: entity.DeliveryStatus(r.Status), At: r.At, ActorId: r.ActorId})
		}
		out[d] = entries
	}
	return out
}

func (m *SubscriptionMapper) acksToEntity(in map[string]model.AckRecord) map[calendar.Day]entity.AckRecord {
	out := make(map[calendar.Day]entity.AckRecord, len(in))
	for k, a := range in {
		if d, err := calendar.ParseDay(k); err == nil {
			out[d] = entity.AckRecord{Mode: entity.AckMode(a.Mode), At: a.At}
		}
	}
	return out
}

func daySetFromStrings(in []string) calendar.DaySet {
	out := make(calendar.DaySet, len(in))
	for _, s := range in {
		if d, err := calendar.ParseDay(s); err == nil {
			out[d] = struct{}{}
		}
	}
	return out
}

// DayFromDate reads a DATE column. The driver hands back midnight in UTC or
// in the session zone; either way the wall-clock date is what counts.
func DayFromDate(d datatypes.Date) calendar.Day {
	t := time.Time(d)
	if t.IsZero() {
		return calendar.Day{}
	}
	return calendar.DayOf(t)
}

func DateFromDay(d calendar.Day) datatypes.Date {
	return datatypes.Date(d.Time())
}

package metrics

import (
	"time"

	"sitediary/models"
)

// Schedule holds the calendar-based figures of an activity.
type Schedule struct {
	PlannedDuration  *int     `json:"planned_duration"`
	ActualDuration   *int     `json:"actual_duration"`
	ActualToDate     bool     `json:"actual_to_date"` // actual duration runs to the as-of date
	DurationVariance *int     `json:"duration_variance"`
	StartDelay       *int     `json:"start_delay"`
	FinishDelay      *int     `json:"finish_delay"`
	PlannedPercent   *float64 `json:"planned_percent"`
}

// Progress holds the quantity-based figures of an activity.
type Progress struct {
	ActualPercent           *float64 `json:"actual_percent"`
	PlannedQuantityExpected *float64 `json:"planned_quantity_expected"`
	Shortfall               *float64 `json:"shortfall"`
	PlannedRate             *float64 `json:"planned_rate"`
	ActualRate              *float64 `json:"actual_rate"`
	ScheduleVarianceQty     *float64 `json:"schedule_variance_qty"`
	PerformancePercent      *float64 `json:"performance_percent"`
}

// Result is the full metrics panel for one activity as of one date.
type Result struct {
	AsOf     string   `json:"as_of"`
	Schedule Schedule `json:"schedule"`
	Progress Progress `json:"progress"`
	Cost     Cost     `json:"cost"`
}

// Compute derives every metric of a as of the calendar day of asOf.
func Compute(a *models.ActivityEntry, asOf time.Time) Result {
	ref := truncateDay(asOf)
	s := computeSchedule(a, ref)
	p := computeProgress(a, s)
	return Result{
		AsOf:     ref.Format(models.DateLayout),
		Schedule: s,
		Progress: p,
		Cost:     computeCost(a, s, p),
	}
}

func computeSchedule(a *models.ActivityEntry, ref time.Time) Schedule {
	var s Schedule
	s.PlannedDuration = InclusiveDays(a.PlannedStart, a.PlannedFinish)

	if a.ActualFinish != "" {
		s.ActualDuration = InclusiveDays(a.ActualStart, a.ActualFinish)
	} else if start, ok := ParseDate(a.ActualStart); ok {
		s.ActualDuration = intPtr(inclusive(start, ref))
		s.ActualToDate = true
	}

	if s.PlannedDuration != nil && s.ActualDuration != nil {
		s.DurationVariance = intPtr(*s.ActualDuration - *s.PlannedDuration)
	}
	s.StartDelay = DayDiff(a.PlannedStart, a.ActualStart)
	s.FinishDelay = DayDiff(a.PlannedFinish, a.ActualFinish)
	s.PlannedPercent = PlannedPercent(a.PlannedStart, a.PlannedFinish, ref)
	return s
}

// PlannedPercent is the share of the planned window elapsed at ref, in [0, 100].
func PlannedPercent(plannedStart, plannedFinish string, ref time.Time) *float64 {
	start, ok1 := ParseDate(plannedStart)
	finish, ok2 := ParseDate(plannedFinish)
	if !ok1 || !ok2 {
		return nil
	}
	ref = truncateDay(ref)
	switch {
	case !ref.Before(finish):
		return floatPtr(100)
	case !ref.After(start):
		return floatPtr(0)
	}
	pct := float64(inclusive(start, ref)) / float64(inclusive(start, finish)) * 100
	return floatPtr(clamp(pct, 0, 100))
}

func computeProgress(a *models.ActivityEntry, s Schedule) Progress {
	var p Progress
	pq, aq := a.PlannedQuantity, a.ActualQuantity

	if pq > 0 {
		p.ActualPercent = floatPtr(aq / pq * 100)
	}
	if s.PlannedPercent != nil {
		expected := pq * *s.PlannedPercent / 100
		p.PlannedQuantityExpected = floatPtr(expected)
		p.Shortfall = floatPtr(expected - aq)
		p.ScheduleVarianceQty = floatPtr(aq - expected)
	} else {
		p.Shortfall = floatPtr(pq - aq)
	}
	if s.PlannedDuration != nil && *s.PlannedDuration > 0 {
		p.PlannedRate = floatPtr(pq / float64(*s.PlannedDuration))
	}
	if s.ActualDuration != nil && *s.ActualDuration > 0 {
		p.ActualRate = floatPtr(aq / float64(*s.ActualDuration))
	}
	if p.PlannedRate != nil && p.ActualRate != nil && *p.PlannedRate != 0 {
		p.PerformancePercent = floatPtr(*p.ActualRate / *p.PlannedRate * 100)
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

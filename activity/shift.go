package activity

import (
	"sitediary/models"
)

// Ref locates one activity in a user's history.
type Ref struct {
	Date       string `json:"date"`
	ID         string `json:"id"`
	ActivityID string `json:"activity_id"`
}

// FindConflicts returns every activity other than target that already carries code.
// history holds the stored reports; current, when non-nil, replaces the stored
// report of the same date so unsaved edits are checked too.
func FindConflicts(history []models.DailyReport, current *models.DailyReport, target Ref, code string) []Ref {
	want, parsed := ParseID(code)
	var out []Ref
	check := func(date string, a *models.ActivityEntry) {
		if date == target.Date && a.ID == target.ID {
			return
		}
		if matches(a.ActivityID, code, want, parsed) {
			out = append(out, Ref{Date: date, ID: a.ID, ActivityID: a.ActivityID})
		}
	}
	for i := range history {
		r := &history[i]
		if current != nil && r.Date == current.Date {
			continue
		}
		for j := range r.Activities {
			check(r.Date, &r.Activities[j])
		}
	}
	if current != nil {
		for j := range current.Activities {
			check(current.Date, &current.Activities[j])
		}
	}
	return out
}

func matches(existing, code string, want Code, parsed bool) bool {
	if !parsed {
		return existing == code
	}
	got, ok := ParseID(existing)
	return ok && got.SamePrefix(want) && got.Number == want.Number
}

// ShiftPlan is the set of reports rewritten by a ripple shift.
type ShiftPlan struct {
	Code    string               `json:"code"`
	Shifted []Ref                `json:"shifted"`
	Reports []models.DailyReport `json:"-"`
}

// PlanRippleShift increments, by one, every activity across reports whose code
// shares code's prefix and whose number is >= code's number, then assigns code
// to target. Input reports are not modified; Reports in the plan holds copies of
// only the reports that changed.
func PlanRippleShift(reports []models.DailyReport, target Ref, code string) (ShiftPlan, bool) {
	want, ok := ParseID(code)
	if !ok {
		return ShiftPlan{}, false
	}
	plan := ShiftPlan{Code: want.String()}
	for _, r := range reports {
		changed := false
		c := r.Clone()
		for j := range c.Activities {
			a := &c.Activities[j]
			if r.Date == target.Date && a.ID == target.ID {
				if a.ActivityID != plan.Code {
					a.ActivityID = plan.Code
					changed = true
				}
				continue
			}
			got, ok := ParseID(a.ActivityID)
			if !ok || !got.SamePrefix(want) || got.Number < want.Number {
				continue
			}
			got.Number++
			a.ActivityID = got.String()
			plan.Shifted = append(plan.Shifted, Ref{Date: r.Date, ID: a.ID, ActivityID: a.ActivityID})
			changed = true
		}
		if changed {
			plan.Reports = append(plan.Reports, c)
		}
	}
	return plan, true
}

// models.go
// Defines the daily-report documents stored per user and the payloads exchanged with the API.

package models

import (
	"time"
)

// DateLayout is the ISO calendar-day format used for every date field.
const DateLayout = "2006-01-02"

// DailyReport is one user's log for one calendar date.
// The Firestore document ID is the date, so a second save for the same date overwrites.
type DailyReport struct {
	ID         string          `firestore:"id" json:"id"`
	UserID     string          `firestore:"user_id" json:"user_id"`
	Date       string          `firestore:"date" json:"date" validate:"required,isodate"`
	CreatedAt  time.Time       `firestore:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `firestore:"updated_at" json:"updated_at"`
	Activities []ActivityEntry `firestore:"activities" json:"activities" validate:"dive"`
}

// ActivityEntry is one work item within a report.
type ActivityEntry struct {
	ID                  string  `firestore:"id" json:"id"`                   // opaque, generated on insert
	ActivityID          string  `firestore:"activity_id" json:"activity_id"` // display code, e.g. ACT-00001
	Order               int     `firestore:"order" json:"order"`
	Description         string  `firestore:"description" json:"description" validate:"max=500"`
	ResponsiblePerson   string  `firestore:"responsible_person" json:"responsible_person"`
	WorkCategory        string  `firestore:"work_category" json:"work_category"`
	DetailedDescription string  `firestore:"detailed_description" json:"detailed_description"`
	PlannedQuantity     float64 `firestore:"planned_quantity" json:"planned_quantity" validate:"gte=0"`
	ActualQuantity      float64 `firestore:"actual_quantity" json:"actual_quantity" validate:"gte=0"`
	QuantityUnit        string  `firestore:"quantity_unit" json:"quantity_unit"`
	ReferenceCode       string  `firestore:"reference_code" json:"reference_code"`
	WorkArea            string  `firestore:"work_area" json:"work_area"`
	StationGrid         string  `firestore:"station_grid" json:"station_grid"`
	PlannedStart        string  `firestore:"planned_start" json:"planned_start" validate:"omitempty,isodate"`
	PlannedFinish       string  `firestore:"planned_finish" json:"planned_finish" validate:"omitempty,isodate"`
	ActualStart         string  `firestore:"actual_start" json:"actual_start" validate:"omitempty,isodate"`
	ActualFinish        string  `firestore:"actual_finish" json:"actual_finish" validate:"omitempty,isodate"`
	IsMilestone         bool    `firestore:"is_milestone" json:"is_milestone"`

	Manpower      []ManpowerEntry      `firestore:"manpower" json:"manpower" validate:"dive"`
	Material      []MaterialEntry      `firestore:"material" json:"material" validate:"dive"`
	Equipment     []EquipmentEntry     `firestore:"equipment" json:"equipment" validate:"dive"`
	Subcontractor []SubcontractorEntry `firestore:"subcontractor" json:"subcontractor" validate:"dive"`
	Risks         []RiskEntry          `firestore:"risks" json:"risks" validate:"dive"`
}

// LineItemCount returns the number of resource and risk rows attached to the activity.
func (a *ActivityEntry) LineItemCount() int {
	return len(a.Manpower) + len(a.Material) + len(a.Equipment) + len(a.Subcontractor) + len(a.Risks)
}

// Resources returns every resource row of the activity as a Resource, category by category.
func (a *ActivityEntry) Resources() []Resource {
	out := make([]Resource, 0, len(a.Manpower)+len(a.Material)+len(a.Equipment)+len(a.Subcontractor))
	for i := range a.Manpower {
		out = append(out, &a.Manpower[i])
	}
	for i := range a.Material {
		out = append(out, &a.Material[i])
	}
	for i := range a.Equipment {
		out = append(out, &a.Equipment[i])
	}
	for i := range a.Subcontractor {
		out = append(out, &a.Subcontractor[i])
	}
	return out
}

// Clone returns a deep copy of the activity.
func (a ActivityEntry) Clone() ActivityEntry {
	c := a
	c.Manpower = append([]ManpowerEntry(nil), a.Manpower...)
	c.Material = append([]MaterialEntry(nil), a.Material...)
	c.Equipment = append([]EquipmentEntry(nil), a.Equipment...)
	c.Subcontractor = append([]SubcontractorEntry(nil), a.Subcontractor...)
	c.Risks = append([]RiskEntry(nil), a.Risks...)
	return c
}

// Clone returns a deep copy of the report.
func (r DailyReport) Clone() DailyReport {
	c := r
	if r.Activities != nil {
		c.Activities = make([]ActivityEntry, len(r.Activities))
		for i, a := range r.Activities {
			c.Activities[i] = a.Clone()
		}
	}
	return c
}

// FindActivity returns the index of the activity with the given opaque ID, or -1.
func (r *DailyReport) FindActivity(id string) int {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return i
		}
	}
	return -1
}

// User is the profile kept for an identity-provider account.
type User struct {
	UserID        string    `firestore:"user_id" json:"user_id"`
	Email         string    `firestore:"email" json:"email"`
	EmailVerified bool      `firestore:"email_verified" json:"email_verified"`
	DisplayName   string    `firestore:"display_name" json:"display_name"`
	CreatedAt     time.Time `firestore:"created_at" json:"created_at"`
	LastLogin     time.Time `firestore:"last_login" json:"last_login"`
}

package export

import (
	"sort"
	"strings"

	"sitediary/models"
)

// Entry is one activity placed on its report date.
type Entry struct {
	Date     string               `json:"date"`
	Activity models.ActivityEntry `json:"activity"`
}

// Query filters and orders the history view.
type Query struct {
	From       string // inclusive
	To         string // inclusive
	Text       string
	Category   string
	Milestones bool
	Sort       string // date, activity_id, description, work_category
	Desc       bool
}

// InRange keeps reports whose date falls inside [from, to]. Empty bounds are open.
func InRange(reports []models.DailyReport, from, to string) []models.DailyReport {
	out := make([]models.DailyReport, 0, len(reports))
	for _, r := range reports {
		if from != "" && r.Date < from {
			continue
		}
		if to != "" && r.Date > to {
			continue
		}
		out = append(out, r)
	}
	return out
}

// History flattens reports to activity entries and applies q.
func History(reports []models.DailyReport, q Query) []Entry {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	category := strings.ToLower(strings.TrimSpace(q.Category))

	var out []Entry
	for _, r := range SortByDate(InRange(reports, q.From, q.To)) {
		for _, a := range r.Activities {
			if q.Milestones && !a.IsMilestone {
				continue
			}
			if category != "" && strings.ToLower(a.WorkCategory) != category {
				continue
			}
			if text != "" && !matches(&a, text) {
				continue
			}
			out = append(out, Entry{Date: r.Date, Activity: a})
		}
	}
	sortEntries(out, q.Sort, q.Desc)
	return out
}

// Latest deduplicates activities by display code, keeping the occurrence from the
// most recent report date. On equal dates the later one in iteration order wins.
// Activities without a code are keyed by their opaque ID.
func Latest(reports []models.DailyReport, milestonesOnly bool) []Entry {
	index := map[string]int{}
	var out []Entry
	for _, r := range SortByDate(reports) {
		acts := append([]models.ActivityEntry(nil), r.Activities...)
		sort.SliceStable(acts, func(i, j int) bool { return acts[i].Order < acts[j].Order })
		for _, a := range acts {
			if milestonesOnly && !a.IsMilestone {
				continue
			}
			key := a.ActivityID
			if key == "" {
				key = "#" + a.ID
			}
			e := Entry{Date: r.Date, Activity: a}
			if i, ok := index[key]; ok {
				out[i] = e
				continue
			}
			index[key] = len(out)
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Activity.ActivityID < out[j].Activity.ActivityID
	})
	return out
}

// Milestones is Latest restricted to milestone activities.
func Milestones(reports []models.DailyReport) []Entry {
	return Latest(reports, true)
}

func matches(a *models.ActivityEntry, text string) bool {
	fields := []string{
		a.ActivityID, a.Description, a.DetailedDescription, a.ResponsiblePerson,
		a.WorkCategory, a.WorkArea, a.StationGrid, a.ReferenceCode,
	}
	for _, res := range a.Resources() {
		b := res.Base()
		fields = append(fields, b.Code, b.Name)
	}
	for _, m := range a.Manpower {
		fields = append(fields, m.Trade)
	}
	for _, s := range a.Subcontractor {
		fields = append(fields, s.Company)
	}
	for _, r := range a.Risks {
		fields = append(fields, r.Code, r.Description)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), text) {
			return true
		}
	}
	return false
}

func sortEntries(list []Entry, key string, desc bool) {
	less := func(a, b *Entry) bool {
		switch key {
		case "activity_id":
			if a.Activity.ActivityID != b.Activity.ActivityID {
				return a.Activity.ActivityID < b.Activity.ActivityID
			}
		case "description":
			da, db := strings.ToLower(a.Activity.Description), strings.ToLower(b.Activity.Description)
			if da != db {
				return da < db
			}
		case "work_category":
			ca, cb := strings.ToLower(a.Activity.WorkCategory), strings.ToLower(b.Activity.WorkCategory)
			if ca != cb {
				return ca < cb
			}
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Activity.Order < b.Activity.Order
	}
	sort.SliceStable(list, func(i, j int) bool {
		if desc {
			return less(&list[j], &list[i])
		}
		return less(&list[i], &list[j])
	})
}

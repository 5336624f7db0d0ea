package activity

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"sitediary/models"
)

// ErrNotFound is returned when an activity ID is not in the list.
var ErrNotFound = errors.New("activity not found")

// New returns an empty activity with a fresh opaque ID.
func New() models.ActivityEntry {
	return models.ActivityEntry{ID: uuid.NewString()}
}

// AssignRowIDs gives every resource and risk row without an ID a fresh one.
func AssignRowIDs(a *models.ActivityEntry) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for _, r := range a.Resources() {
		if b := r.Base(); b.ID == "" {
			b.ID = uuid.NewString()
		}
	}
	for i := range a.Risks {
		if a.Risks[i].ID == "" {
			a.Risks[i].ID = uuid.NewString()
		}
	}
}

// Insert places entry at index and reindexes. An out-of-range index appends.
func Insert(list []models.ActivityEntry, index int, entry models.ActivityEntry) []models.ActivityEntry {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	AssignRowIDs(&entry)
	out := make([]models.ActivityEntry, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, entry)
	out = append(out, list[index:]...)
	Reindex(out)
	return out
}

// Remove drops the activity with the given opaque ID and reindexes.
func Remove(list []models.ActivityEntry, id string) ([]models.ActivityEntry, error) {
	for i := range list {
		if list[i].ID == id {
			out := make([]models.ActivityEntry, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			Reindex(out)
			return out, nil
		}
	}
	return list, ErrNotFound
}

// Move relocates the activity with the given opaque ID to index (clamped) and reindexes.
func Move(list []models.ActivityEntry, id string, index int) ([]models.ActivityEntry, error) {
	from := -1
	for i := range list {
		if list[i].ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return list, ErrNotFound
	}
	entry := list[from]
	rest := make([]models.ActivityEntry, 0, len(list))
	rest = append(rest, list[:from]...)
	rest = append(rest, list[from+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(rest) {
		index = len(rest)
	}
	out := make([]models.ActivityEntry, 0, len(list))
	out = append(out, rest[:index]...)
	out = append(out, entry)
	out = append(out, rest[index:]...)
	Reindex(out)
	return out, nil
}

// Densify orders the list by its current Order values and rewrites Order as 1..N.
// Entries without a positive Order keep their list position relative to each
// other and go after the ranked ones. Display codes are left as they are.
func Densify(list []models.ActivityEntry) {
	sort.SliceStable(list, func(i, j int) bool {
		oi, oj := list[i].Order, list[j].Order
		switch {
		case oi <= 0:
			return false
		case oj <= 0:
			return true
		default:
			return oi < oj
		}
	})
	for i := range list {
		list[i].Order = i + 1
	}
}

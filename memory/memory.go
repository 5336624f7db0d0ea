// Package memory implements the resource auto-fill cache.
//
// A Memory is explicitly scoped to one user and handed to whoever reads or
// writes it. Lookups only fill fields that are still empty on the row; saves
// overwrite the remembered template with the row's full attribute set.
package memory

import (
	"sync"
	"time"

	"sitediary/models"
)

// Memory wraps a user's ResourceMemory with a lock.
type Memory struct {
	mu      sync.RWMutex
	userID  string
	data    *models.ResourceMemory
	dirty   bool
	version uint64
}

// New wraps data for userID. A nil data starts empty.
func New(userID string, data *models.ResourceMemory) *Memory {
	if data == nil {
		data = models.NewResourceMemory()
	} else {
		data = data.Clone()
	}
	return &Memory{userID: userID, data: data}
}

// UserID returns the owner of the memory.
func (m *Memory) UserID() string { return m.userID }

// Snapshot returns a copy safe to persist or serialize.
func (m *Memory) Snapshot() *models.ResourceMemory {
	s, _ := m.SnapshotVersion()
	return s
}

// SnapshotVersion returns a copy together with the change counter it reflects.
func (m *Memory) SnapshotVersion() (*models.ResourceMemory, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Clone(), m.version
}

// Dirty reports whether anything changed since the last successful save.
func (m *Memory) Dirty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirty
}

// MarkSaved clears the dirty flag if nothing changed after the snapshot at version.
func (m *Memory) MarkSaved(version uint64) {
	m.mu.Lock()
	if m.version == version {
		m.dirty = false
	}
	m.mu.Unlock()
}

// Lookup returns the template remembered for a resource code.
func (m *Memory) Lookup(c models.Category, code string) (models.ResourceTemplate, bool) {
	key := models.NormalizeCode(code)
	if key == "" {
		return models.ResourceTemplate{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.data.Table(c)[key]
	return t, ok
}

// LookupRisk returns the template remembered for a risk code.
func (m *Memory) LookupRisk(code string) (models.RiskTemplate, bool) {
	key := models.NormalizeCode(code)
	if key == "" {
		return models.RiskTemplate{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.data.Risk[key]
	return t, ok
}

// LookupName returns the manpower template remembered for a person or role name.
func (m *Memory) LookupName(name string) (models.ResourceTemplate, bool) {
	key := models.NormalizeName(name)
	if key == "" {
		return models.ResourceTemplate{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.data.ManpowerNames[key]
	return t, ok
}

// FillResource completes r from the template remembered for its code.
// It returns false when the code is unknown.
func (m *Memory) FillResource(r models.Resource) bool {
	t, ok := m.Lookup(r.Category(), r.Base().Code)
	if !ok {
		return false
	}
	ApplyTemplate(r, t)
	return true
}

// FillRisk completes r from the template remembered for its code.
func (m *Memory) FillRisk(r *models.RiskEntry) bool {
	t, ok := m.LookupRisk(r.Code)
	if !ok {
		return false
	}
	ApplyRiskTemplate(r, t)
	return true
}

// FillByName completes a manpower row from the template remembered for its name.
func (m *Memory) FillByName(r *models.ManpowerEntry) bool {
	t, ok := m.LookupName(r.Name)
	if !ok {
		return false
	}
	ApplyTemplate(r, t)
	return true
}

// Remember stores r's attributes under its code. Rows without a code are ignored.
func (m *Memory) Remember(r models.Resource) bool {
	key := models.NormalizeCode(r.Base().Code)
	if key == "" {
		return false
	}
	t := TemplateOf(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Table(r.Category())[key] = t
	m.touch()
	return true
}

// RememberRisk stores r's attributes under its code.
func (m *Memory) RememberRisk(r *models.RiskEntry) bool {
	key := models.NormalizeCode(r.Code)
	if key == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Risk[key] = models.RiskTemplate{
		Code:        r.Code,
		Description: r.Description,
		Likelihood:  r.Likelihood,
		Impact:      r.Impact,
		Status:      r.Status,
		Mitigation:  r.Mitigation,
	}
	m.touch()
	return true
}

// RememberName stores a manpower template under a normalized name.
func (m *Memory) RememberName(name string, t models.ResourceTemplate) bool {
	key := models.NormalizeName(name)
	if key == "" {
		return false
	}
	if t.Name == "" {
		t.Name = name
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.ManpowerNames[key] = t
	m.touch()
	return true
}

// RememberReport stores every coded resource and risk row of the report.
// It returns the number of rows written.
func (m *Memory) RememberReport(r *models.DailyReport) int {
	n := 0
	for i := range r.Activities {
		a := &r.Activities[i]
		for _, res := range a.Resources() {
			if m.Remember(res) {
				n++
			}
		}
		for j := range a.Risks {
			if m.RememberRisk(&a.Risks[j]) {
				n++
			}
		}
	}
	return n
}

// Seed writes master-data items into the code tables, replacing existing templates.
// Risk items become risk templates described by the item name. It returns the
// count written per category.
func (m *Memory) Seed(items []models.MasterDataItem) map[models.Category]int {
	counts := map[models.Category]int{}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		key := models.NormalizeCode(it.Code)
		if key == "" || !it.Category.IsValid() {
			continue
		}
		if it.Category == models.CategoryRisk {
			m.data.Risk[key] = models.RiskTemplate{Code: it.Code, Description: it.Name}
			counts[it.Category]++
			continue
		}
		m.data.Table(it.Category)[key] = models.ResourceTemplate{
			Code:    it.Code,
			Name:    it.Name,
			Unit:    it.Unit,
			Cost:    it.Cost,
			Trade:   it.Trade,
			Company: it.Company,
		}
		counts[it.Category]++
	}
	if len(counts) > 0 {
		m.touch()
	}
	return counts
}

func (m *Memory) touch() {
	m.data.UpdatedAt = time.Now().UTC()
	m.dirty = true
	m.version++
}

package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sitediary/models"
)

// MemoryDB is an in-process Store used for local development and tests.
type MemoryDB struct {
	mu      sync.RWMutex
	users   map[string]models.User
	reports map[string]map[string]models.DailyReport
	memory  map[string]*models.ResourceMemory
	master  map[string]map[models.Category]map[string]models.MasterDataItem

	// FailReport, when set, is consulted before every report write.
	FailReport func(date string) error
}

// NewMemoryDB returns an empty store.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:   make(map[string]models.User),
		reports: make(map[string]map[string]models.DailyReport),
		memory:  make(map[string]*models.ResourceMemory),
		master:  make(map[string]map[models.Category]map[string]models.MasterDataItem),
	}
}

func (db *MemoryDB) Close() error { return nil }

func (db *MemoryDB) GetUser(_ context.Context, userID string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (db *MemoryDB) UpsertUser(_ context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[user.UserID] = *user
	return nil
}

func (db *MemoryDB) GetReport(_ context.Context, userID, date string) (*models.DailyReport, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.reports[userID][date]
	if !ok {
		return nil, ErrNotFound
	}
	c := r.Clone()
	return &c, nil
}

func (db *MemoryDB) ListReports(_ context.Context, userID, from, to string) ([]models.DailyReport, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []models.DailyReport
	for date, r := range db.reports[userID] {
		if (from != "" && date < from) || (to != "" && date > to) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (db *MemoryDB) SaveReport(_ context.Context, userID string, report *models.DailyReport) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.putReport(userID, report)
}

func (db *MemoryDB) SaveReports(_ context.Context, userID string, reports []models.DailyReport) map[string]error {
	db.mu.Lock()
	defer db.mu.Unlock()
	failed := map[string]error{}
	for i := range reports {
		if err := db.putReport(userID, &reports[i]); err != nil {
			failed[reports[i].Date] = err
		}
	}
	return failed
}

func (db *MemoryDB) putReport(userID string, report *models.DailyReport) error {
	if db.FailReport != nil {
		if err := db.FailReport(report.Date); err != nil {
			return fmt.Errorf("failed to save report %s: %w", report.Date, err)
		}
	}
	if db.reports[userID] == nil {
		db.reports[userID] = make(map[string]models.DailyReport)
	}
	db.reports[userID][report.Date] = report.Clone()
	return nil
}

func (db *MemoryDB) DeleteReport(_ context.Context, userID, date string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.reports[userID], date)
	return nil
}

func (db *MemoryDB) GetMemory(_ context.Context, userID string) (*models.ResourceMemory, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.memory[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

func (db *MemoryDB) SaveMemory(_ context.Context, userID string, mem *models.ResourceMemory) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := mem.Clone()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	db.memory[userID] = c
	return nil
}

func (db *MemoryDB) ListMaster(_ context.Context, userID string, category models.Category) ([]models.MasterDataItem, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []models.MasterDataItem
	for _, it := range db.master[userID][category] {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (db *MemoryDB) SaveMaster(_ context.Context, userID string, item *models.MasterDataItem) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.master[userID] == nil {
		db.master[userID] = make(map[models.Category]map[string]models.MasterDataItem)
	}
	if db.master[userID][item.Category] == nil {
		db.master[userID][item.Category] = make(map[string]models.MasterDataItem)
	}
	db.master[userID][item.Category][models.NormalizeCode(item.Code)] = *item
	return nil
}

func (db *MemoryDB) DeleteMaster(_ context.Context, userID string, category models.Category, code string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.master[userID][category], models.NormalizeCode(code))
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitediary/db"
	"sitediary/memory"
	"sitediary/models"
)

const flushTimeout = 10 * time.Second

// MemoryService owns the per-user resource memories and their persistence.
// Each user's memory is loaded once and written back on report save, master
// sync, or after the debounce delay for name-keyed edits.
type MemoryService struct {
	store    db.Store
	logger   *zap.Logger
	debounce *memory.Debouncer

	mu    sync.Mutex
	users map[string]*memory.Memory
}

func NewMemoryService(store db.Store, debounce time.Duration, logger *zap.Logger) *MemoryService {
	return &MemoryService{
		store:    store,
		logger:   logger,
		debounce: memory.NewDebouncer(debounce),
		users:    make(map[string]*memory.Memory),
	}
}

// For returns the user's memory, loading it on first use. A failed read yields
// an empty memory and is retried on the next call.
func (s *MemoryService) For(ctx context.Context, userID string) *memory.Memory {
	s.mu.Lock()
	m, ok := s.users[userID]
	s.mu.Unlock()
	if ok {
		return m
	}

	data, err := s.store.GetMemory(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNotFound):
		data = nil
	default:
		s.logger.Warn("failed to load resource memory", zap.String("user_id", userID), zap.Error(err))
		return memory.New(userID, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.users[userID]; ok {
		return m
	}
	m = memory.New(userID, data)
	s.users[userID] = m
	return m
}

// Snapshot returns a copy of the user's memory.
func (s *MemoryService) Snapshot(ctx context.Context, userID string) *models.ResourceMemory {
	return s.For(ctx, userID).Snapshot()
}

// FillActivity completes every row of a from memory: resource rows by code,
// manpower rows without a code by name, risks by code. Returns the number of rows touched.
func (s *MemoryService) FillActivity(ctx context.Context, userID string, a *models.ActivityEntry) int {
	m := s.For(ctx, userID)
	n := 0
	for _, r := range a.Resources() {
		if m.FillResource(r) {
			n++
			continue
		}
		if mp, ok := r.(*models.ManpowerEntry); ok && mp.Code == "" && m.FillByName(mp) {
			n++
		}
	}
	for i := range a.Risks {
		if m.FillRisk(&a.Risks[i]) {
			n++
		}
	}
	return n
}

// RememberReport stores the report's coded rows and writes the memory immediately.
// Write failures are logged.
func (s *MemoryService) RememberReport(ctx context.Context, userID string, r *models.DailyReport) int {
	n := s.For(ctx, userID).RememberReport(r)
	if n > 0 {
		if err := s.Flush(ctx, userID); err != nil {
			s.logger.Warn("failed to save resource memory", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return n
}

// RememberNames stores name-keyed manpower templates and schedules a debounced write.
func (s *MemoryService) RememberNames(ctx context.Context, userID string, rows []models.ManpowerEntry) int {
	m := s.For(ctx, userID)
	n := 0
	for i := range rows {
		t := memory.TemplateOf(&rows[i])
		t.Code = ""
		if m.RememberName(rows[i].Name, t) {
			n++
		}
	}
	if n > 0 {
		s.scheduleFlush(userID)
	}
	return n
}

// Seed writes master-data templates into memory and saves it.
func (s *MemoryService) Seed(ctx context.Context, userID string, items []models.MasterDataItem) (map[models.Category]int, error) {
	counts := s.For(ctx, userID).Seed(items)
	if err := s.Flush(ctx, userID); err != nil {
		return counts, err
	}
	return counts, nil
}

// Flush writes the user's memory if it changed since the last save.
func (s *MemoryService) Flush(ctx context.Context, userID string) error {
	s.mu.Lock()
	m, ok := s.users[userID]
	s.mu.Unlock()
	if !ok || !m.Dirty() {
		return nil
	}
	snap, version := m.SnapshotVersion()
	if err := s.store.SaveMemory(ctx, userID, snap); err != nil {
		return fmt.Errorf("save resource memory: %w", err)
	}
	m.MarkSaved(version)
	return nil
}

func (s *MemoryService) scheduleFlush(userID string) {
	s.debounce.Trigger(userID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := s.Flush(ctx, userID); err != nil {
			s.logger.Warn("debounced memory save failed", zap.String("user_id", userID), zap.Error(err))
		}
	})
}

// Close cancels pending debounced writes and flushes every dirty memory.
func (s *MemoryService) Close(ctx context.Context) {
	s.debounce.Stop()
	s.mu.Lock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		if err := s.Flush(ctx, id); err != nil {
			s.logger.Warn("failed to flush resource memory on shutdown", zap.String("user_id", id), zap.Error(err))
		}
	}
}

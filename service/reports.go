package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitediary/activity"
	"sitediary/db"
	"sitediary/export"
	"sitediary/logging"
	"sitediary/metrics"
	"sitediary/models"
)

type ReportService struct {
	store     db.Store
	memory    *MemoryService
	validator *Validator
	logger    *zap.Logger
	now       func() time.Time
}

func NewReportService(store db.Store, mem *MemoryService, v *Validator, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, memory: mem, validator: v, logger: logger, now: time.Now}
}

// Get returns the report for date. A missing report is returned empty with found=false.
func (s *ReportService) Get(ctx context.Context, userID, date string) (*models.DailyReport, bool, error) {
	if err := s.validator.Date("date", date); err != nil {
		return nil, false, err
	}
	r, err := s.store.GetReport(ctx, userID, date)
	if errors.Is(err, db.ErrNotFound) {
		return &models.DailyReport{ID: date, UserID: userID, Date: date, Activities: []models.ActivityEntry{}}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get report %s: %w", date, err)
	}
	return r, true, nil
}

// Reports returns the user's reports in [from, to]. Store errors are returned.
func (s *ReportService) Reports(ctx context.Context, userID, from, to string) ([]models.DailyReport, error) {
	reports, err := s.store.ListReports(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// reportsOrEmpty is Reports with read failures logged and replaced by an empty list.
func (s *ReportService) reportsOrEmpty(ctx context.Context, userID, from, to string) []models.DailyReport {
	reports, err := s.Reports(ctx, userID, from, to)
	if err != nil {
		s.logger.Warn("falling back to empty history", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return reports
}

// History returns activity entries filtered and ordered by q.
func (s *ReportService) History(ctx context.Context, userID string, q export.Query) []export.Entry {
	return export.History(s.reportsOrEmpty(ctx, userID, q.From, q.To), q)
}

// Milestones returns the latest occurrence of every milestone activity.
func (s *ReportService) Milestones(ctx context.Context, userID, from, to string) []export.Entry {
	return export.Milestones(s.reportsOrEmpty(ctx, userID, from, to))
}

// MasterLog returns the latest occurrence of every activity.
func (s *ReportService) MasterLog(ctx context.Context, userID, from, to string) []export.Entry {
	return export.Latest(s.reportsOrEmpty(ctx, userID, from, to), false)
}

// Series returns the per-date chart series.
func (s *ReportService) Series(ctx context.Context, userID, from, to string) []metrics.DailyPoint {
	return metrics.Series(s.reportsOrEmpty(ctx, userID, from, to))
}

// Save validates and merges r into the user's report for r.Date, then remembers
// its coded resource rows. A nil Activities keeps the stored activities; an
// empty one clears them. Order is made dense, typed display codes are kept and
// activities without one get the next free code.
func (s *ReportService) Save(ctx context.Context, userID string, r *models.DailyReport) (*models.DailyReport, error) {
	if r.Activities == nil {
		existing, found, err := s.Get(ctx, userID, r.Date)
		if err != nil {
			return nil, err
		}
		r.Activities = existing.Activities
		if r.Activities == nil {
			r.Activities = []models.ActivityEntry{}
		}
		if found && r.CreatedAt.IsZero() {
			r.CreatedAt = existing.CreatedAt
		}
	}
	for i := range r.Activities {
		activity.AssignRowIDs(&r.Activities[i])
	}
	activity.Densify(r.Activities)
	if activity.MissingIDs(r.Activities) {
		history := s.reportsOrEmpty(ctx, userID, "", "")
		activity.AssignMissingIDs(r.Activities, withCurrent(history, r))
	}
	if err := s.validator.Struct(r); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, userID, r); err != nil {
		return nil, err
	}
	s.memory.RememberReport(ctx, userID, r)
	return r, nil
}

// persist stamps and writes r without validation.
func (s *ReportService) persist(ctx context.Context, userID string, r *models.DailyReport) error {
	now := s.now().UTC()
	r.ID = r.Date
	r.UserID = userID
	r.UpdatedAt = now
	if r.CreatedAt.IsZero() {
		existing, err := s.store.GetReport(ctx, userID, r.Date)
		switch {
		case err == nil:
			r.CreatedAt = existing.CreatedAt
		case !errors.Is(err, db.ErrNotFound):
			s.logger.Warn("failed to read existing report", zap.String("date", r.Date), zap.Error(err))
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}
	if err := s.store.SaveReport(ctx, userID, r); err != nil {
		return fmt.Errorf("save report %s: %w", r.Date, err)
	}
	return nil
}

// Delete removes the report for date.
func (s *ReportService) Delete(ctx context.Context, userID, date string) error {
	if err := s.validator.Date("date", date); err != nil {
		return err
	}
	if err := s.store.DeleteReport(ctx, userID, date); err != nil {
		return fmt.Errorf("delete report %s: %w", date, err)
	}
	logging.Audit(s.logger, userID, logging.ActionReportDelete, zap.String("date", date))
	return nil
}

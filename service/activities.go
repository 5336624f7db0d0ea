package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitediary/activity"
	"sitediary/db"
	"sitediary/logging"
	"sitediary/metrics"
	"sitediary/models"
)

// ConflictError reports the activities already holding a requested code.
// It matches ErrIDConflict.
type ConflictError struct {
	Code      string         `json:"code"`
	Conflicts []activity.Ref `json:"conflicts"`
	Suggested string         `json:"suggested"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s is used by %d other activities", ErrIDConflict, e.Code, len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error { return ErrIDConflict }

// CheckResult is the outcome of an ID availability check.
type CheckResult struct {
	Code      string         `json:"code"`
	Available bool           `json:"available"`
	Conflicts []activity.Ref `json:"conflicts"`
	Suggested string         `json:"suggested"`
}

// ShiftResult describes a ripple shift. Failed maps a report date to its write error.
type ShiftResult struct {
	Code    string            `json:"code"`
	Shifted []activity.Ref    `json:"shifted"`
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// SetIDResult is returned by SetID. Shift is set only when a ripple shift ran.
type SetIDResult struct {
	Report *models.DailyReport `json:"report"`
	Shift  *ShiftResult        `json:"shift,omitempty"`
}

type ActivityService struct {
	store   db.Store
	reports *ReportService
	logger  *zap.Logger
}

func NewActivityService(store db.Store, reports *ReportService, logger *zap.Logger) *ActivityService {
	return &ActivityService{store: store, reports: reports, logger: logger}
}

// Add inserts entry at index (appending when out of range) and reindexes the report.
func (s *ActivityService) Add(ctx context.Context, userID, date string, index int, entry models.ActivityEntry) (*models.DailyReport, error) {
	r, _, err := s.reports.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	entry.ID = ""
	r.Activities = activity.Insert(r.Activities, index, entry)
	return s.reports.Save(ctx, userID, r)
}

// Remove deletes an activity and reindexes the report.
func (s *ActivityService) Remove(ctx context.Context, userID, date, id string) (*models.DailyReport, error) {
	r, found, err := s.reports.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, activity.ErrNotFound
	}
	if r.Activities, err = activity.Remove(r.Activities, id); err != nil {
		return nil, err
	}
	return s.reports.Save(ctx, userID, r)
}

// Move relocates an activity within its report and reindexes.
func (s *ActivityService) Move(ctx context.Context, userID, date, id string, index int) (*models.DailyReport, error) {
	r, found, err := s.reports.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, activity.ErrNotFound
	}
	if r.Activities, err = activity.Move(r.Activities, id, index); err != nil {
		return nil, err
	}
	return s.reports.Save(ctx, userID, r)
}

// CheckID looks for code across the user's history. current, when given, stands
// in for the stored report of its date so unsaved edits are included.
func (s *ActivityService) CheckID(ctx context.Context, userID string, target activity.Ref, code string, current *models.DailyReport) (*CheckResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code is required")
	}
	history := s.reports.reportsOrEmpty(ctx, userID, "", "")
	conflicts := activity.FindConflicts(history, current, target, code)
	return &CheckResult{
		Code:      code,
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
		Suggested: activity.NextID(withCurrent(history, current)),
	}, nil
}

// SetID assigns code to the target activity. When another activity holds the
// code it returns a *ConflictError unless confirmShift is set, in which case
// every same-prefix code >= code across the history is shifted up by one.
// The shift writes each report separately; failures are reported per date and
// not rolled back.
func (s *ActivityService) SetID(ctx context.Context, userID string, target activity.Ref, code string, confirmShift bool) (*SetIDResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code is required")
	}
	r, found, err := s.reports.Get(ctx, userID, target.Date)
	if err != nil {
		return nil, err
	}
	idx := r.FindActivity(target.ID)
	if !found || idx < 0 {
		return nil, activity.ErrNotFound
	}

	history := s.reports.reportsOrEmpty(ctx, userID, "", "")
	history = withCurrent(history, r)
	conflicts := activity.FindConflicts(history, nil, target, code)

	if len(conflicts) == 0 {
		r.Activities[idx].ActivityID = code
		if err := s.reports.persist(ctx, userID, r); err != nil {
			return nil, err
		}
		return &SetIDResult{Report: r}, nil
	}
	if !confirmShift {
		return nil, &ConflictError{Code: code, Conflicts: conflicts, Suggested: activity.NextID(history)}
	}

	plan, ok := activity.PlanRippleShift(history, target, code)
	if !ok {
		return nil, invalid("code %q has no numeric suffix to shift", code)
	}
	now := time.Now().UTC()
	for i := range plan.Reports {
		plan.Reports[i].UpdatedAt = now
		plan.Reports[i].UserID = userID
	}
	failed := s.store.SaveReports(ctx, userID, plan.Reports)

	res := &ShiftResult{Code: plan.Code, Shifted: plan.Shifted, Updated: []string{}}
	for _, pr := range plan.Reports {
		if err, bad := failed[pr.Date]; bad {
			if res.Failed == nil {
				res.Failed = map[string]string{}
			}
			res.Failed[pr.Date] = err.Error()
			s.logger.Error("ripple shift write failed", zap.String("user_id", userID), zap.String("date", pr.Date), zap.Error(err))
			continue
		}
		res.Updated = append(res.Updated, pr.Date)
	}
	sort.Strings(res.Updated)
	logging.Audit(s.logger, userID, logging.ActionRippleShift,
		zap.String("code", plan.Code),
		zap.Int("shifted", len(plan.Shifted)),
		zap.Int("reports_updated", len(res.Updated)),
		zap.Int("reports_failed", len(res.Failed)),
	)
	if len(res.Updated) == 0 && len(res.Failed) > 0 {
		return nil, errors.New("ripple shift: no report could be written")
	}

	out := r
	for i := range plan.Reports {
		if plan.Reports[i].Date == target.Date {
			if _, bad := failed[target.Date]; !bad {
				out = &plan.Reports[i]
			}
		}
	}
	return &SetIDResult{Report: out, Shift: res}, nil
}

// Metrics computes derived metrics for one activity as of asOf.
func (s *ActivityService) Metrics(ctx context.Context, userID, date, id string, asOf time.Time) (*metrics.Result, error) {
	r, found, err := s.reports.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	idx := r.FindActivity(id)
	if !found || idx < 0 {
		return nil, activity.ErrNotFound
	}
	res := metrics.Compute(&r.Activities[idx], asOf)
	return &res, nil
}

// withCurrent replaces the stored report of current's date with current.
func withCurrent(history []models.DailyReport, current *models.DailyReport) []models.DailyReport {
	if current == nil {
		return history
	}
	out := make([]models.DailyReport, 0, len(history)+1)
	for _, r := range history {
		if r.Date != current.Date {
			out = append(out, r)
		}
	}
	return append(out, *current)
}

// IsNotFound reports whether err means the requested report or activity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, activity.ErrNotFound) || errors.Is(err, db.ErrNotFound)
}

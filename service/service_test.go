package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitediary/activity"
	"sitediary/ai"
	"sitediary/cache"
	"sitediary/db"
	"sitediary/export"
	"sitediary/models"
)

type countingStore struct {
	*db.MemoryDB
	memorySaves int32
}

func (s *countingStore) SaveMemory(ctx context.Context, userID string, mem *models.ResourceMemory) error {
	atomic.AddInt32(&s.memorySaves, 1)
	return s.MemoryDB.SaveMemory(ctx, userID, mem)
}

type testEnv struct {
	store      *countingStore
	memory     *MemoryService
	reports    *ReportService
	activities *ActivityService
	master     *MasterService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := &countingStore{MemoryDB: db.NewMemoryDB()}
	v := NewValidator()
	mem := NewMemoryService(store, 20*time.Millisecond, logger)
	t.Cleanup(func() { mem.Close(context.Background()) })
	reports := NewReportService(store, mem, v, logger)
	return &testEnv{
		store:      store,
		memory:     mem,
		reports:    reports,
		activities: NewActivityService(store, reports, logger),
		master:     NewMasterService(store, mem, v, logger),
	}
}

func seedReport(t *testing.T, env *testEnv, date string, codes ...string) *models.DailyReport {
	t.Helper()
	r := &models.DailyReport{Date: date}
	for i, c := range codes {
		r.Activities = append(r.Activities, models.ActivityEntry{ActivityID: c, Order: i + 1, Description: c})
	}
	out, err := env.reports.Save(context.Background(), "u1", r)
	require.NoError(t, err)
	return out
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()
	r := &models.DailyReport{Date: "2024-3-1", Activities: []models.ActivityEntry{{
		PlannedStart: "03/01/2024",
		Manpower:     []models.ManpowerEntry{{BaseEntry: models.BaseEntry{Name: "Crew"}}},
		Material:     []models.MaterialEntry{{BaseEntry: models.BaseEntry{Code: "MAT-01", Quantity: -1}}},
		Equipment:    []models.EquipmentEntry{{}},
		Risks:        []models.RiskEntry{{Description: "Rain", Status: "Pending"}},
	}}}
	err := v.Struct(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Problems, "date must be a YYYY-MM-DD date")
	assert.Contains(t, ve.Problems, "activities[0].planned_start must be a YYYY-MM-DD date")
	assert.Contains(t, ve.Problems, "activities[0].manpower[0].code is required when the row has data")
	assert.Contains(t, ve.Problems, "activities[0].material[0].quantity must not be negative")
	assert.Contains(t, ve.Problems, "activities[0].risks[0].code is required when the row has data")
	assert.Contains(t, ve.Problems, "activities[0].risks[0].status must be one of: Open Mitigated Closed")
	assert.Len(t, ve.Problems, 6, "an empty equipment row is not an error")
}

func TestSaveAndGetReport(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	got, found, err := env.reports.Get(ctx, "u1", "2024-03-01")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got.Activities)

	_, _, err = env.reports.Get(ctx, "u1", "March 1")
	assert.ErrorIs(t, err, ErrValidation)

	r := &models.DailyReport{Date: "2024-03-01", Activities: []models.ActivityEntry{
		{ActivityID: "ACT-00002", Order: 5, Material: []models.MaterialEntry{{BaseEntry: models.BaseEntry{Code: "MAT-01", Unit: "kg", Cost: 2}}}},
		{ActivityID: "ACT-00001", Order: 2},
	}}
	saved, err := env.reports.Save(ctx, "u1", r)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", saved.ID)
	assert.Equal(t, "ACT-00001", saved.Activities[0].ActivityID)
	assert.Equal(t, 1, saved.Activities[0].Order)
	assert.Equal(t, 2, saved.Activities[1].Order)
	assert.NotEmpty(t, saved.Activities[1].Material[0].ID)
	created := saved.CreatedAt

	again := saved.Clone()
	again.CreatedAt = time.Time{}
	_, err = env.reports.Save(ctx, "u1", &again)
	require.NoError(t, err)
	stored, found, err := env.reports.Get(ctx, "u1", "2024-03-01")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, created, stored.CreatedAt)

	mem, err := env.store.GetMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "kg", mem.Material["MAT-01"].Unit)
}

func TestSaveWithoutActivitiesKeepsStored(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	seeded := seedReport(t, env, "2024-03-01", "ACT-00001", "ACT-00002")

	saved, err := env.reports.Save(ctx, "u1", &models.DailyReport{Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Len(t, saved.Activities, 2)
	assert.Equal(t, seeded.CreatedAt, saved.CreatedAt)

	stored, found, err := env.reports.Get(ctx, "u1", "2024-03-01")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, stored.Activities, 2)
	assert.Equal(t, "ACT-00001", stored.Activities[0].ActivityID)
	assert.Equal(t, "ACT-00002", stored.Activities[1].ActivityID)

	_, err = env.reports.Save(ctx, "u1", &models.DailyReport{Date: "2024-03-01", Activities: []models.ActivityEntry{}})
	require.NoError(t, err)
	stored, _, err = env.reports.Get(ctx, "u1", "2024-03-01")
	require.NoError(t, err)
	assert.Empty(t, stored.Activities)

	saved, err = env.reports.Save(ctx, "u1", &models.DailyReport{Date: "2024-03-09"})
	require.NoError(t, err)
	assert.NotNil(t, saved.Activities)
	assert.Empty(t, saved.Activities)
}

func TestSaveAppendsUncodedActivity(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	seedReport(t, env, "2024-02-28", "ACT-00004")
	r := seedReport(t, env, "2024-03-01", "ACT-00001", "ACT-00002")

	r.Activities = append(r.Activities, models.ActivityEntry{Description: "new"})
	saved, err := env.reports.Save(ctx, "u1", r)
	require.NoError(t, err)
	require.Len(t, saved.Activities, 3)
	assert.Equal(t, "ACT-00001", saved.Activities[0].ActivityID)
	assert.Equal(t, "ACT-00002", saved.Activities[1].ActivityID)
	assert.Equal(t, "new", saved.Activities[2].Description)
	assert.Equal(t, 3, saved.Activities[2].Order)
	assert.Equal(t, "ACT-00005", saved.Activities[2].ActivityID)
}

func TestSaveRejectsInvalidReport(t *testing.T) {
	env := newEnv(t)
	_, err := env.reports.Save(context.Background(), "u1", &models.DailyReport{Date: "2024-03-01", Activities: []models.ActivityEntry{
		{Subcontractor: []models.SubcontractorEntry{{BaseEntry: models.BaseEntry{Name: "Acme"}}}},
	}})
	assert.ErrorIs(t, err, ErrValidation)
	_, found, _ := env.reports.Get(context.Background(), "u1", "2024-03-01")
	assert.False(t, found)
}

func TestRememberedUnitFillsNextActivity(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.reports.Save(ctx, "u1", &models.DailyReport{Date: "2024-03-01", Activities: []models.ActivityEntry{
		{Material: []models.MaterialEntry{{BaseEntry: models.BaseEntry{Code: "MAT-01", Name: "Rebar", Unit: "kg"}}}},
	}})
	require.NoError(t, err)

	a := &models.ActivityEntry{Material: []models.MaterialEntry{{BaseEntry: models.BaseEntry{Code: "mat-01"}}}}
	assert.Equal(t, 1, env.memory.FillActivity(ctx, "u1", a))
	assert.Equal(t, "kg", a.Material[0].Unit)
	assert.Equal(t, "Rebar", a.Material[0].Name)
}

func TestActivityStructureEdits(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	r, err := env.activities.Add(ctx, "u1", "2024-03-01", -1, models.ActivityEntry{Description: "first"})
	require.NoError(t, err)
	r, err = env.activities.Add(ctx, "u1", "2024-03-01", 0, models.ActivityEntry{Description: "zeroth"})
	require.NoError(t, err)
	require.Len(t, r.Activities, 2)
	assert.Equal(t, "zeroth", r.Activities[0].Description)
	assert.Equal(t, "ACT-00001", r.Activities[0].ActivityID)
	assert.Equal(t, "ACT-00002", r.Activities[1].ActivityID)

	r, err = env.activities.Move(ctx, "u1", "2024-03-01", r.Activities[0].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, "first", r.Activities[0].Description)
	assert.Equal(t, 2, r.Activities[1].Order)

	r, err = env.activities.Remove(ctx, "u1", "2024-03-01", r.Activities[0].ID)
	require.NoError(t, err)
	require.Len(t, r.Activities, 1)
	assert.Equal(t, "zeroth", r.Activities[0].Description)
	assert.Equal(t, "ACT-00001", r.Activities[0].ActivityID)

	_, err = env.activities.Remove(ctx, "u1", "2024-03-01", "missing")
	assert.True(t, IsNotFound(err))
	_, err = env.activities.Remove(ctx, "u1", "2024-04-01", "missing")
	assert.True(t, IsNotFound(err))
}

func TestMetricsScenario(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r, err := env.reports.Save(ctx, "u1", &models.DailyReport{Date: "2024-03-01", Activities: []models.ActivityEntry{{
		PlannedQuantity: 100, ActualQuantity: 40,
		PlannedStart: "2024-03-01", PlannedFinish: "2024-03-10",
	}}})
	require.NoError(t, err)

	asOf, _ := time.Parse(models.DateLayout, "2024-03-05")
	res, err := env.activities.Metrics(ctx, "u1", "2024-03-01", r.Activities[0].ID, asOf)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, *res.Schedule.PlannedPercent, 1e-9)
	assert.InDelta(t, 10.0, *res.Progress.Shortfall, 1e-9)
}

func TestCheckAndSetIDWithoutConflict(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	seedReport(t, env, "2024-03-01", "ACT-00001", "ACT-00002")
	r := seedReport(t, env, "2024-03-02", "ACT-00003")

	target := activity.Ref{Date: "2024-03-02", ID: r.Activities[0].ID}
	check, err := env.activities.CheckID(ctx, "u1", target, "ACT-00009", nil)
	require.NoError(t, err)
	assert.True(t, check.Available)
	assert.Equal(t, "ACT-00004", check.Suggested)

	res, err := env.activities.SetID(ctx, "u1", target, "ACT-00009", false)
	require.NoError(t, err)
	assert.Nil(t, res.Shift)
	stored, _, _ := env.reports.Get(ctx, "u1", "2024-03-02")
	assert.Equal(t, "ACT-00009", stored.Activities[0].ActivityID)
}

func TestSetIDConflictAndRippleShift(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	seedReport(t, env, "2024-03-01", "ACT-00001", "ACT-00002")
	seedReport(t, env, "2024-03-02", "ACT-00003", "OTHER-00002")
	r := seedReport(t, env, "2024-03-03", "ACT-00007")
	target := activity.Ref{Date: "2024-03-03", ID: r.Activities[0].ID}

	_, err := env.activities.SetID(ctx, "u1", target, "ACT-00002", false)
	require.ErrorIs(t, err, ErrIDConflict)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Conflicts, 1)
	assert.Equal(t, "2024-03-01", ce.Conflicts[0].Date)
	assert.Equal(t, "ACT-00008", ce.Suggested)

	res, err := env.activities.SetID(ctx, "u1", target, "ACT-00002", true)
	require.NoError(t, err)
	require.NotNil(t, res.Shift)
	assert.Empty(t, res.Shift.Failed)
	assert.ElementsMatch(t, []string{"2024-03-01", "2024-03-02", "2024-03-03"}, res.Shift.Updated)
	assert.Equal(t, "ACT-00002", res.Report.Activities[0].ActivityID)

	day1, _, _ := env.reports.Get(ctx, "u1", "2024-03-01")
	assert.Equal(t, "ACT-00001", day1.Activities[0].ActivityID)
	assert.Equal(t, "ACT-00003", day1.Activities[1].ActivityID)
	day2, _, _ := env.reports.Get(ctx, "u1", "2024-03-02")
	assert.Equal(t, "ACT-00004", day2.Activities[0].ActivityID)
	assert.Equal(t, "OTHER-00002", day2.Activities[1].ActivityID)
}

func TestRippleShiftPartialFailure(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	seedReport(t, env, "2024-03-01", "ACT-00001")
	seedReport(t, env, "2024-03-02", "ACT-00002")
	r := seedReport(t, env, "2024-03-03", "ACT-00005")
	env.store.FailReport = func(date string) error {
		if date == "2024-03-02" {
			return errors.New("unavailable")
		}
		return nil
	}

	res, err := env.activities.SetID(ctx, "u1", activity.Ref{Date: "2024-03-03", ID: r.Activities[0].ID}, "ACT-00001", true)
	require.NoError(t, err)
	assert.Contains(t, res.Shift.Failed, "2024-03-02")
	assert.ElementsMatch(t, []string{"2024-03-01", "2024-03-03"}, res.Shift.Updated)

	day1, _, _ := env.reports.Get(ctx, "u1", "2024-03-01")
	assert.Equal(t, "ACT-00002", day1.Activities[0].ActivityID)
	day2, _, _ := env.reports.Get(ctx, "u1", "2024-03-02")
	assert.Equal(t, "ACT-00002", day2.Activities[0].ActivityID, "failed write is not rolled forward")
}

func TestRememberNamesIsDebounced(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	before := atomic.LoadInt32(&env.store.memorySaves)

	for _, cost := range []float64{40, 42, 45} {
		env.memory.RememberNames(ctx, "u1", []models.ManpowerEntry{{BaseEntry: models.BaseEntry{Name: "John  Smith", Cost: cost}, Trade: "Electrician"}})
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&env.store.memorySaves) == before+1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before+1, atomic.LoadInt32(&env.store.memorySaves))

	mem, err := env.store.GetMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 45.0, mem.ManpowerNames["john smith"].Cost)

	row := &models.ActivityEntry{Manpower: []models.ManpowerEntry{{BaseEntry: models.BaseEntry{Name: "JOHN SMITH"}}}}
	env.memory.FillActivity(ctx, "u1", row)
	assert.Equal(t, "Electrician", row.Manpower[0].Trade)
}

func TestMasterSaveListSync(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.master.Save(ctx, "u1", &models.MasterDataItem{Category: models.CategoryEquipment, Code: "EQ/01", Name: "Crane"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.master.Save(ctx, "u1", &models.MasterDataItem{Category: "tools", Code: "T-1", Name: "Drill"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.master.Save(ctx, "u1", &models.MasterDataItem{Category: models.CategoryEquipment, Code: " EQ-01 ", Name: "Crane", Unit: "day", Cost: 800})
	require.NoError(t, err)
	_, err = env.master.Save(ctx, "u1", &models.MasterDataItem{Category: models.CategoryManpower, Code: "MAN-01", Name: "Foreman", Trade: "General"})
	require.NoError(t, err)
	_, err = env.master.Save(ctx, "u1", &models.MasterDataItem{Category: models.CategoryRisk, Code: "RISK-01", Name: "Heavy rain"})
	require.NoError(t, err)

	items, err := env.master.List(ctx, "u1", models.CategoryEquipment)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "EQ-01", items[0].Code)

	counts, err := env.master.Sync(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.CategoryEquipment])
	assert.Equal(t, 1, counts[models.CategoryManpower])
	assert.Equal(t, 0, counts[models.CategoryMaterial])
	assert.Equal(t, 1, counts[models.CategoryRisk])

	a := &models.ActivityEntry{
		Equipment: []models.EquipmentEntry{{BaseEntry: models.BaseEntry{Code: "eq-01", Cost: 750}}},
		Risks:     []models.RiskEntry{{Code: "risk-01"}},
	}
	env.memory.FillActivity(ctx, "u1", a)
	assert.Equal(t, "Crane", a.Equipment[0].Name)
	assert.Equal(t, 750.0, a.Equipment[0].Cost)
	assert.Equal(t, "Heavy rain", a.Risks[0].Description)

	require.NoError(t, env.master.Delete(ctx, "u1", models.CategoryEquipment, "eq-01"))
	items, _ = env.master.List(ctx, "u1", models.CategoryEquipment)
	assert.Empty(t, items)
}

func TestHistoryAndMilestones(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.reports.Save(ctx, "u1", &models.DailyReport{Date: "2024-03-01", Activities: []models.ActivityEntry{
		{ActivityID: "ACT-00001", Description: "Pour", IsMilestone: true},
	}})
	require.NoError(t, err)
	_, err = env.reports.Save(ctx, "u1", &models.DailyReport{Date: "2024-03-04", Activities: []models.ActivityEntry{
		{ActivityID: "ACT-00001", Description: "Pour (cont.)", IsMilestone: true},
		{ActivityID: "ACT-00002", Description: "Cure"},
	}})
	require.NoError(t, err)

	assert.Len(t, env.reports.History(ctx, "u1", export.Query{}), 3)
	assert.Len(t, env.reports.History(ctx, "u1", export.Query{Text: "cure"}), 1)

	ms := env.reports.Milestones(ctx, "u1", "", "")
	require.Len(t, ms, 1)
	assert.Equal(t, "Pour (cont.)", ms[0].Activity.Description)
	assert.Len(t, env.reports.MasterLog(ctx, "u1", "", ""), 2)
	assert.Len(t, env.reports.Series(ctx, "u1", "2024-03-02", ""), 1)
}

type fakeCompleter struct {
	calls int
	text  string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, _ any, _ []ai.Message) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeCompleter) Model() string { return "fake" }

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func TestAssistantCachesAndFallsBack(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	seedReport(t, env, "2024-03-01", "ACT-00001")

	fc := &fakeCompleter{text: "One activity logged."}
	kv := &fakeKV{data: map[string]string{}}
	svc := NewAssistantService(fc, kv, time.Hour, env.reports, zap.NewNop())

	res, err := svc.Summarize(ctx, "u1", SummaryRequest{Prompt: "Summarize March"})
	require.NoError(t, err)
	assert.Equal(t, "One activity logged.", res.Text)
	assert.False(t, res.Cached)

	res, err = svc.Summarize(ctx, "u1", SummaryRequest{Prompt: "Summarize March"})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, fc.calls)

	fc.err = errors.New("timeout")
	res, err = svc.Summarize(ctx, "u1", SummaryRequest{Prompt: "Something else"})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackMessage, res.Text)

	_, err = svc.Summarize(ctx, "u1", SummaryRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	noAI := NewAssistantService(nil, nil, 0, env.reports, zap.NewNop())
	res, err = noAI.Summarize(ctx, "u1", SummaryRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
}

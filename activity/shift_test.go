package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitediary/models"
)

func history() []models.DailyReport {
	return []models.DailyReport{
		{Date: "2024-03-01", Activities: []models.ActivityEntry{
			{ID: "a1", ActivityID: "ACT-00001"},
			{ID: "a2", ActivityID: "ACT-00002"},
		}},
		{Date: "2024-03-02", Activities: []models.ActivityEntry{
			{ID: "b1", ActivityID: "ACT-00003"},
			{ID: "b2", ActivityID: "EXC-00002"},
			{ID: "b3", ActivityID: "ACT-00004"},
		}},
	}
}

func TestFindConflictsAcrossHistory(t *testing.T) {
	current := &models.DailyReport{Date: "2024-03-03", Activities: []models.ActivityEntry{
		{ID: "c1", ActivityID: "ACT-00001"},
		{ID: "c2", ActivityID: "ACT-00002"},
	}}
	got := FindConflicts(history(), current, Ref{Date: "2024-03-03", ID: "c1"}, "ACT-00002")
	require.Len(t, got, 2)
	assert.Equal(t, Ref{Date: "2024-03-01", ID: "a2", ActivityID: "ACT-00002"}, got[0])
	assert.Equal(t, Ref{Date: "2024-03-03", ID: "c2", ActivityID: "ACT-00002"}, got[1])
}

func TestFindConflictsIgnoresTargetAndOtherPrefixes(t *testing.T) {
	got := FindConflicts(history(), nil, Ref{Date: "2024-03-01", ID: "a2"}, "act-2")
	assert.Empty(t, got)

	got = FindConflicts(history(), nil, Ref{Date: "2024-03-09", ID: "x"}, "EXC-00002")
	require.Len(t, got, 1)
	assert.Equal(t, "b2", got[0].ID)
}

func TestFindConflictsCurrentReplacesStoredReport(t *testing.T) {
	// The stored 2024-03-01 report has ACT-00002, but the in-memory version renamed it.
	current := &models.DailyReport{Date: "2024-03-01", Activities: []models.ActivityEntry{
		{ID: "a1", ActivityID: "ACT-00001"},
		{ID: "a2", ActivityID: "ACT-00010"},
	}}
	got := FindConflicts(history(), current, Ref{Date: "2024-03-02", ID: "b1"}, "ACT-00002")
	assert.Empty(t, got)
}

func TestPlanRippleShift(t *testing.T) {
	src := history()
	plan, ok := PlanRippleShift(src, Ref{Date: "2024-03-02", ID: "b3"}, "ACT-00002")
	require.True(t, ok)
	assert.Equal(t, "ACT-00002", plan.Code)
	require.Len(t, plan.Reports, 2)

	first := plan.Reports[0]
	assert.Equal(t, "ACT-00001", first.Activities[0].ActivityID)
	assert.Equal(t, "ACT-00003", first.Activities[1].ActivityID)

	second := plan.Reports[1]
	assert.Equal(t, "ACT-00004", second.Activities[0].ActivityID)
	assert.Equal(t, "EXC-00002", second.Activities[1].ActivityID)
	assert.Equal(t, "ACT-00002", second.Activities[2].ActivityID)

	assert.Len(t, plan.Shifted, 2)
	// inputs untouched
	assert.Equal(t, "ACT-00002", src[0].Activities[1].ActivityID)
}

func TestPlanRippleShiftSkipsUnchangedReports(t *testing.T) {
	plan, ok := PlanRippleShift(history(), Ref{Date: "2024-03-02", ID: "b1"}, "ACT-00004")
	require.True(t, ok)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, "2024-03-02", plan.Reports[0].Date)
	assert.Equal(t, "ACT-00004", plan.Reports[0].Activities[0].ActivityID)
	assert.Equal(t, "ACT-00005", plan.Reports[0].Activities[2].ActivityID)
	require.Len(t, plan.Shifted, 1)
	assert.Equal(t, "b3", plan.Shifted[0].ID)

	plan, ok = PlanRippleShift(history(), Ref{Date: "2024-03-02", ID: "b3"}, "ACT-00004")
	require.True(t, ok)
	assert.Empty(t, plan.Reports)
}

func TestPlanRippleShiftRejectsUnparsableCode(t *testing.T) {
	_, ok := PlanRippleShift(history(), Ref{}, "free text")
	assert.False(t, ok)
}

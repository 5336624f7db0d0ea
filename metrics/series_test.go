package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitediary/models"
)

func TestSeries(t *testing.T) {
	reports := []models.DailyReport{
		{Date: "2024-03-02", Activities: []models.ActivityEntry{
			{
				IsMilestone: true,
				Manpower: []models.ManpowerEntry{
					{BaseEntry: models.BaseEntry{Quantity: 4, Cost: 10}},
					{BaseEntry: models.BaseEntry{Quantity: 2, Cost: 10}, Overtime: 1},
				},
				Risks: []models.RiskEntry{{Code: "RISK-01"}, {Code: "RISK-02", Status: models.RiskClosed}},
			},
		}},
		{Date: "2024-03-01", Activities: []models.ActivityEntry{
			{Material: []models.MaterialEntry{{BaseEntry: models.BaseEntry{Quantity: 2, Cost: 7.5}}}},
			{},
		}},
	}

	pts := Series(reports)
	require.Len(t, pts, 2)

	assert.Equal(t, "2024-03-01", pts[0].Date)
	assert.Equal(t, 2, pts[0].Activities)
	assert.Equal(t, 15.0, pts[0].Cost[models.CategoryMaterial])
	assert.Equal(t, 15.0, pts[0].CostTotal)

	assert.Equal(t, "2024-03-02", pts[1].Date)
	assert.Equal(t, 1, pts[1].Milestones)
	assert.Equal(t, 6.0, pts[1].Headcount)
	assert.Equal(t, 1, pts[1].OpenRisks)
	assert.Equal(t, 70.0, pts[1].Cost[models.CategoryManpower])
	assert.Equal(t, 0.0, pts[1].Cost[models.CategoryEquipment])
}

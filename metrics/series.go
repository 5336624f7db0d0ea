package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"sitediary/models"
)

// DailyPoint aggregates one report for charting.
type DailyPoint struct {
	Date       string                      `json:"date"`
	Activities int                         `json:"activities"`
	Milestones int                         `json:"milestones"`
	Headcount  float64                     `json:"headcount"`
	OpenRisks  int                         `json:"open_risks"`
	Cost       map[models.Category]float64 `json:"cost"`
	CostTotal  float64                     `json:"cost_total"`
}

// Series returns one point per report, ordered by date.
func Series(reports []models.DailyReport) []DailyPoint {
	points := make([]DailyPoint, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		pt := DailyPoint{Date: r.Date, Activities: len(r.Activities), Cost: map[models.Category]float64{}}
		sums := map[models.Category]decimal.Decimal{}
		total := decimal.Zero
		for j := range r.Activities {
			a := &r.Activities[j]
			if a.IsMilestone {
				pt.Milestones++
			}
			for _, m := range a.Manpower {
				pt.Headcount += m.Quantity
			}
			for _, risk := range a.Risks {
				if risk.Status == "" || risk.Status == models.RiskOpen {
					pt.OpenRisks++
				}
			}
			daily, t := DailyCosts(a)
			for c, v := range daily {
				sums[c] = sums[c].Add(v)
			}
			total = total.Add(t)
		}
		for _, c := range models.ResourceCategories {
			pt.Cost[c] = cents(sums[c])
		}
		pt.CostTotal = cents(total)
		points = append(points, pt)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

package metrics

import (
	"github.com/shopspring/decimal"

	"sitediary/models"
)

// Fixed three-point multipliers applied to the most-likely estimate.
var (
	optimisticFactor  = decimal.RequireFromString("0.90")
	pessimisticFactor = decimal.RequireFromString("1.21")
	six               = decimal.NewFromInt(6)
	four              = decimal.NewFromInt(4)
	hundred           = decimal.NewFromInt(100)
)

// Cost is the three-point estimate and earned-value panel of an activity.
// Monetary values are rounded to cents.
type Cost struct {
	Daily       map[models.Category]float64 `json:"daily"`
	DailyTotal  float64                     `json:"daily_total"`
	MostLikely  *float64                    `json:"most_likely"`
	Optimistic  *float64                    `json:"optimistic"`
	Pessimistic *float64                    `json:"pessimistic"`
	StdDev      *float64                    `json:"std_dev"`
	Expected    *float64                    `json:"expected"`

	PlannedValue *float64 `json:"planned_value"`
	EarnedValue  *float64 `json:"earned_value"`
	ActualCost   float64  `json:"actual_cost"`
	CPI          *float64 `json:"cpi"`
	SPI          *float64 `json:"spi"`
}

// DailyCosts sums quantity x unit cost per resource category. Manpower adds
// overtime hours to the quantity before multiplying.
func DailyCosts(a *models.ActivityEntry) (map[models.Category]decimal.Decimal, decimal.Decimal) {
	daily := map[models.Category]decimal.Decimal{}
	for _, c := range models.ResourceCategories {
		daily[c] = decimal.Zero
	}
	for _, r := range a.Resources() {
		b := r.Base()
		qty := decimal.NewFromFloat(b.Quantity)
		if m, ok := r.(*models.ManpowerEntry); ok {
			qty = qty.Add(decimal.NewFromFloat(m.Overtime))
		}
		daily[r.Category()] = daily[r.Category()].Add(qty.Mul(decimal.NewFromFloat(b.Cost)))
	}
	total := decimal.Zero
	for _, c := range models.ResourceCategories {
		total = total.Add(daily[c])
	}
	return daily, total
}

// Estimate is the three-point estimate for a daily total over a planned duration.
type Estimate struct {
	MostLikely, Optimistic, Pessimistic, StdDev, Expected decimal.Decimal
}

// ThreePoint computes the PERT estimate: optimistic = 0.90 x most likely,
// pessimistic = 1.21 x most likely, expected = (O + 4M + P) / 6, sigma = (P - O) / 6.
func ThreePoint(dailyTotal decimal.Decimal, plannedDays int) Estimate {
	ml := dailyTotal.Mul(decimal.NewFromInt(int64(plannedDays)))
	o := ml.Mul(optimisticFactor)
	p := ml.Mul(pessimisticFactor)
	return Estimate{
		MostLikely:  ml,
		Optimistic:  o,
		Pessimistic: p,
		StdDev:      p.Sub(o).Div(six),
		Expected:    o.Add(ml.Mul(four)).Add(p).Div(six),
	}
}

func computeCost(a *models.ActivityEntry, s Schedule, p Progress) Cost {
	daily, total := DailyCosts(a)
	c := Cost{Daily: make(map[models.Category]float64, len(daily)), DailyTotal: cents(total)}
	for k, v := range daily {
		c.Daily[k] = cents(v)
	}

	var ml *decimal.Decimal
	if s.PlannedDuration != nil && *s.PlannedDuration > 0 {
		est := ThreePoint(total, *s.PlannedDuration)
		ml = &est.MostLikely
		c.MostLikely = centsPtr(est.MostLikely)
		c.Optimistic = centsPtr(est.Optimistic)
		c.Pessimistic = centsPtr(est.Pessimistic)
		c.StdDev = centsPtr(est.StdDev)
		c.Expected = centsPtr(est.Expected)
	}

	var ev *decimal.Decimal
	if ml != nil && s.PlannedPercent != nil {
		c.PlannedValue = centsPtr(ml.Mul(decimal.NewFromFloat(*s.PlannedPercent)).Div(hundred))
	}
	if ml != nil && p.ActualPercent != nil {
		v := ml.Mul(decimal.NewFromFloat(*p.ActualPercent)).Div(hundred)
		ev = &v
		c.EarnedValue = centsPtr(v)
	}

	ac := total
	if s.ActualDuration != nil && *s.ActualDuration > 0 {
		ac = total.Mul(decimal.NewFromInt(int64(*s.ActualDuration)))
	}
	c.ActualCost = cents(ac)

	if ev != nil && ac.IsPositive() {
		c.CPI = floatPtr(ev.Div(ac).InexactFloat64())
	}
	if p.PlannedQuantityExpected != nil && *p.PlannedQuantityExpected > 0 {
		c.SPI = floatPtr(a.ActualQuantity / *p.PlannedQuantityExpected)
	}
	return c
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func centsPtr(d decimal.Decimal) *float64 {
	return floatPtr(cents(d))
}

// Package export flattens daily reports into tabular rows and renders them
// as CSV or XLSX, plus the history and milestone views built on the same data.
//
// Rows are zipped positionally: an activity produces as many rows as its
// longest resource or risk list, and row i carries the i-th item of every
// category (blank cells when a category is shorter). Every line item lands
// in exactly one row and every row repeats the report date and activity code.
package export

import (
	"sort"
	"strconv"

	"sitediary/models"
)

var activityHeader = []string{
	"Date", "Activity ID", "Order", "Description", "Responsible Person", "Work Category",
	"Detailed Description", "Planned Quantity", "Actual Quantity", "Quantity Unit",
	"Reference Code", "Work Area", "Station/Grid",
	"Planned Start", "Planned Finish", "Actual Start", "Actual Finish", "Milestone",
}

var (
	manpowerHeader      = []string{"Manpower Code", "Manpower Name", "Manpower Quantity", "Manpower Unit", "Manpower Cost", "Manpower Overtime", "Manpower Trade", "Manpower Comments"}
	materialHeader      = []string{"Material Code", "Material Name", "Material Quantity", "Material Unit", "Material Cost", "Material Comments"}
	equipmentHeader     = []string{"Equipment Code", "Equipment Name", "Equipment Quantity", "Equipment Unit", "Equipment Cost", "Equipment Comments"}
	subcontractorHeader = []string{"Subcontractor Code", "Subcontractor Name", "Subcontractor Quantity", "Subcontractor Unit", "Subcontractor Cost", "Subcontractor Company", "Subcontractor Comments"}
	riskHeader          = []string{"Risk Code", "Risk Description", "Risk Likelihood", "Risk Impact", "Risk Status", "Risk Mitigation"}
)

// Header returns the column names in export order. The order is a compatibility surface.
func Header() []string {
	h := make([]string, 0, 64)
	h = append(h, activityHeader...)
	h = append(h, manpowerHeader...)
	h = append(h, materialHeader...)
	h = append(h, equipmentHeader...)
	h = append(h, subcontractorHeader...)
	h = append(h, riskHeader...)
	return h
}

// Rows flattens reports in ascending date order, activities in list order.
func Rows(reports []models.DailyReport) [][]string {
	sorted := SortByDate(reports)
	var out [][]string
	for i := range sorted {
		r := &sorted[i]
		for j := range r.Activities {
			out = append(out, ActivityRows(r.Date, &r.Activities[j])...)
		}
	}
	return out
}

// ActivityRows returns the zipped rows for one activity; always at least one.
func ActivityRows(date string, a *models.ActivityEntry) [][]string {
	n := max(1, len(a.Manpower), len(a.Material), len(a.Equipment), len(a.Subcontractor), len(a.Risks))
	base := []string{
		date, a.ActivityID, strconv.Itoa(a.Order), a.Description, a.ResponsiblePerson, a.WorkCategory,
		a.DetailedDescription, num(a.PlannedQuantity), num(a.ActualQuantity), a.QuantityUnit,
		a.ReferenceCode, a.WorkArea, a.StationGrid,
		a.PlannedStart, a.PlannedFinish, a.ActualStart, a.ActualFinish, yesNo(a.IsMilestone),
	}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := append([]string(nil), base...)
		row = append(row, manpowerCells(a.Manpower, i)...)
		row = append(row, materialCells(a.Material, i)...)
		row = append(row, equipmentCells(a.Equipment, i)...)
		row = append(row, subcontractorCells(a.Subcontractor, i)...)
		row = append(row, riskCells(a.Risks, i)...)
		rows = append(rows, row)
	}
	return rows
}

// SortByDate returns a copy of reports ordered by date, keeping input order on ties.
func SortByDate(reports []models.DailyReport) []models.DailyReport {
	out := append([]models.DailyReport(nil), reports...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func manpowerCells(list []models.ManpowerEntry, i int) []string {
	if i >= len(list) {
		return blanks(len(manpowerHeader))
	}
	m := list[i]
	return []string{m.Code, m.Name, num(m.Quantity), m.Unit, num(m.Cost), num(m.Overtime), m.Trade, m.Comments}
}

func materialCells(list []models.MaterialEntry, i int) []string {
	if i >= len(list) {
		return blanks(len(materialHeader))
	}
	return baseCells(&list[i].BaseEntry)
}

func equipmentCells(list []models.EquipmentEntry, i int) []string {
	if i >= len(list) {
		return blanks(len(equipmentHeader))
	}
	return baseCells(&list[i].BaseEntry)
}

func subcontractorCells(list []models.SubcontractorEntry, i int) []string {
	if i >= len(list) {
		return blanks(len(subcontractorHeader))
	}
	s := list[i]
	return []string{s.Code, s.Name, num(s.Quantity), s.Unit, num(s.Cost), s.Company, s.Comments}
}

func riskCells(list []models.RiskEntry, i int) []string {
	if i >= len(list) {
		return blanks(len(riskHeader))
	}
	r := list[i]
	return []string{r.Code, r.Description, string(r.Likelihood), string(r.Impact), string(r.Status), r.Mitigation}
}

func baseCells(b *models.BaseEntry) []string {
	return []string{b.Code, b.Name, num(b.Quantity), b.Unit, num(b.Cost), b.Comments}
}

func blanks(n int) []string {
	return make([]string, n)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

package memory

import (
	"sitediary/models"
)

// TemplateOf captures the full attribute set of a resource row.
func TemplateOf(r models.Resource) models.ResourceTemplate {
	b := r.Base()
	t := models.ResourceTemplate{
		Code:     b.Code,
		Name:     b.Name,
		Unit:     b.Unit,
		Cost:     b.Cost,
		Quantity: b.Quantity,
		Comments: b.Comments,
	}
	switch v := r.(type) {
	case *models.ManpowerEntry:
		t.Trade = v.Trade
	case *models.SubcontractorEntry:
		t.Company = v.Company
	}
	return t
}

// ApplyTemplate fills the empty fields of r from t. Non-empty fields are never overwritten.
func ApplyTemplate(r models.Resource, t models.ResourceTemplate) {
	b := r.Base()
	fillString(&b.Name, t.Name)
	fillString(&b.Unit, t.Unit)
	fillFloat(&b.Cost, t.Cost)
	fillFloat(&b.Quantity, t.Quantity)
	fillString(&b.Comments, t.Comments)
	switch v := r.(type) {
	case *models.ManpowerEntry:
		fillString(&v.Trade, t.Trade)
	case *models.SubcontractorEntry:
		fillString(&v.Company, t.Company)
	}
}

// ApplyRiskTemplate fills the empty fields of r from t.
func ApplyRiskTemplate(r *models.RiskEntry, t models.RiskTemplate) {
	fillString(&r.Description, t.Description)
	fillString(&r.Mitigation, t.Mitigation)
	if r.Likelihood == "" {
		r.Likelihood = t.Likelihood
	}
	if r.Impact == "" {
		r.Impact = t.Impact
	}
	if r.Status == "" {
		r.Status = t.Status
	}
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}

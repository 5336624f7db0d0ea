package models

import (
	"strings"
	"time"
)

// Category identifies a resource or risk list on an activity.
type Category string

const (
	CategoryManpower      Category = "manpower"
	CategoryMaterial      Category = "material"
	CategoryEquipment     Category = "equipment"
	CategorySubcontractor Category = "subcontractor"
	CategoryRisk          Category = "risk"
)

// ResourceCategories lists the four resource categories in export order.
var ResourceCategories = []Category{CategoryManpower, CategoryMaterial, CategoryEquipment, CategorySubcontractor}

// MasterCategories lists every category a master data item may carry.
var MasterCategories = append(append([]Category{}, ResourceCategories...), CategoryRisk)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryManpower, CategoryMaterial, CategoryEquipment, CategorySubcontractor, CategoryRisk:
		return true
	default:
		return false
	}
}

// IsResource reports whether c is one of the four resource categories.
func (c Category) IsResource() bool {
	return c.IsValid() && c != CategoryRisk
}

// BaseEntry is the record shared by every resource row.
type BaseEntry struct {
	ID       string  `firestore:"id" json:"id"`
	Code     string  `firestore:"code" json:"code"`
	Name     string  `firestore:"name" json:"name"`
	Quantity float64 `firestore:"quantity" json:"quantity" validate:"gte=0"`
	Unit     string  `firestore:"unit" json:"unit"`
	Cost     float64 `firestore:"cost" json:"cost" validate:"gte=0"`
	Comments string  `firestore:"comments" json:"comments"`
}

// HasData reports whether anything beyond the ID has been entered.
func (b *BaseEntry) HasData() bool {
	return b.Code != "" || b.Name != "" || b.Quantity != 0 || b.Unit != "" || b.Cost != 0 || b.Comments != ""
}

// Resource is implemented by the four resource row variants.
type Resource interface {
	Base() *BaseEntry
	Category() Category
}

// ManpowerEntry is a crew or person working on an activity.
type ManpowerEntry struct {
	BaseEntry
	Overtime float64 `firestore:"overtime" json:"overtime" validate:"gte=0"`
	Trade    string  `firestore:"trade" json:"trade"`
}

func (e *ManpowerEntry) Base() *BaseEntry   { return &e.BaseEntry }
func (e *ManpowerEntry) Category() Category { return CategoryManpower }

// MaterialEntry is material consumed by an activity.
type MaterialEntry struct {
	BaseEntry
}

func (e *MaterialEntry) Base() *BaseEntry   { return &e.BaseEntry }
func (e *MaterialEntry) Category() Category { return CategoryMaterial }

// EquipmentEntry is plant or equipment used on an activity.
type EquipmentEntry struct {
	BaseEntry
}

func (e *EquipmentEntry) Base() *BaseEntry   { return &e.BaseEntry }
func (e *EquipmentEntry) Category() Category { return CategoryEquipment }

// SubcontractorEntry is subcontracted work on an activity.
type SubcontractorEntry struct {
	BaseEntry
	Company string `firestore:"company" json:"company"`
}

func (e *SubcontractorEntry) Base() *BaseEntry   { return &e.BaseEntry }
func (e *SubcontractorEntry) Category() Category { return CategorySubcontractor }

// Level rates risk likelihood and impact.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// IsValid reports whether l is a known level. The empty level is accepted as "not rated".
func (l Level) IsValid() bool {
	switch l {
	case "", LevelLow, LevelMedium, LevelHigh:
		return true
	default:
		return false
	}
}

// RiskStatus is the lifecycle state of a risk.
type RiskStatus string

const (
	RiskOpen      RiskStatus = "Open"
	RiskMitigated RiskStatus = "Mitigated"
	RiskClosed    RiskStatus = "Closed"
)

// IsValid reports whether s is a known status. The empty status is accepted and read as Open.
func (s RiskStatus) IsValid() bool {
	switch s {
	case "", RiskOpen, RiskMitigated, RiskClosed:
		return true
	default:
		return false
	}
}

// RiskEntry is a risk raised against an activity.
type RiskEntry struct {
	ID          string     `firestore:"id" json:"id"`
	Code        string     `firestore:"code" json:"code"`
	Description string     `firestore:"description" json:"description"`
	Likelihood  Level      `firestore:"likelihood" json:"likelihood" validate:"omitempty,oneof=Low Medium High"`
	Impact      Level      `firestore:"impact" json:"impact" validate:"omitempty,oneof=Low Medium High"`
	Status      RiskStatus `firestore:"status" json:"status" validate:"omitempty,oneof=Open Mitigated Closed"`
	Mitigation  string     `firestore:"mitigation" json:"mitigation"`
}

// HasData reports whether anything beyond the ID has been entered.
func (r *RiskEntry) HasData() bool {
	return r.Code != "" || r.Description != "" || r.Likelihood != "" || r.Impact != "" || r.Status != "" || r.Mitigation != ""
}

// ResourceTemplate holds the last-known attributes of a resource code or name.
type ResourceTemplate struct {
	Code     string  `firestore:"code" json:"code"`
	Name     string  `firestore:"name" json:"name"`
	Unit     string  `firestore:"unit" json:"unit"`
	Cost     float64 `firestore:"cost" json:"cost"`
	Quantity float64 `firestore:"quantity" json:"quantity"`
	Trade    string  `firestore:"trade,omitempty" json:"trade,omitempty"`
	Company  string  `firestore:"company,omitempty" json:"company,omitempty"`
	Comments string  `firestore:"comments,omitempty" json:"comments,omitempty"`
}

// RiskTemplate holds the last-known attributes of a risk code.
type RiskTemplate struct {
	Code        string     `firestore:"code" json:"code"`
	Description string     `firestore:"description" json:"description"`
	Likelihood  Level      `firestore:"likelihood" json:"likelihood"`
	Impact      Level      `firestore:"impact" json:"impact"`
	Status      RiskStatus `firestore:"status" json:"status"`
	Mitigation  string     `firestore:"mitigation" json:"mitigation"`
}

// ResourceMemory is the per-user auto-fill cache stored at users/{uid}/resourceMemory/main.
type ResourceMemory struct {
	Manpower      map[string]ResourceTemplate `firestore:"manpower" json:"manpower"`
	Material      map[string]ResourceTemplate `firestore:"material" json:"material"`
	Equipment     map[string]ResourceTemplate `firestore:"equipment" json:"equipment"`
	Subcontractor map[string]ResourceTemplate `firestore:"subcontractor" json:"subcontractor"`
	Risk          map[string]RiskTemplate     `firestore:"risk" json:"risk"`
	ManpowerNames map[string]ResourceTemplate `firestore:"manpower_names" json:"manpower_names"`
	UpdatedAt     time.Time                   `firestore:"updated_at" json:"updated_at"`
}

// NewResourceMemory returns an empty memory with every map allocated.
func NewResourceMemory() *ResourceMemory {
	m := &ResourceMemory{}
	m.ensure()
	return m
}

func (m *ResourceMemory) ensure() {
	if m.Manpower == nil {
		m.Manpower = map[string]ResourceTemplate{}
	}
	if m.Material == nil {
		m.Material = map[string]ResourceTemplate{}
	}
	if m.Equipment == nil {
		m.Equipment = map[string]ResourceTemplate{}
	}
	if m.Subcontractor == nil {
		m.Subcontractor = map[string]ResourceTemplate{}
	}
	if m.Risk == nil {
		m.Risk = map[string]RiskTemplate{}
	}
	if m.ManpowerNames == nil {
		m.ManpowerNames = map[string]ResourceTemplate{}
	}
}

// Table returns the code-keyed map for a resource category, allocating maps as needed.
// It returns nil for the risk category and unknown categories.
func (m *ResourceMemory) Table(c Category) map[string]ResourceTemplate {
	m.ensure()
	switch c {
	case CategoryManpower:
		return m.Manpower
	case CategoryMaterial:
		return m.Material
	case CategoryEquipment:
		return m.Equipment
	case CategorySubcontractor:
		return m.Subcontractor
	default:
		return nil
	}
}

// Clone returns a deep copy of the memory.
func (m *ResourceMemory) Clone() *ResourceMemory {
	c := NewResourceMemory()
	c.UpdatedAt = m.UpdatedAt
	for _, cat := range ResourceCategories {
		dst := c.Table(cat)
		for k, v := range m.Table(cat) {
			dst[k] = v
		}
	}
	for k, v := range m.Risk {
		c.Risk[k] = v
	}
	for k, v := range m.ManpowerNames {
		c.ManpowerNames[k] = v
	}
	return c
}

// MasterDataItem is a catalog entry maintained independently of daily reports.
type MasterDataItem struct {
	Category  Category  `firestore:"category" json:"category" validate:"required,oneof=manpower material equipment subcontractor risk"`
	Code      string    `firestore:"code" json:"code" validate:"required,max=40,excludesall=/"`
	Name      string    `firestore:"name" json:"name" validate:"required"`
	Trade     string    `firestore:"trade,omitempty" json:"trade,omitempty"`
	Company   string    `firestore:"company,omitempty" json:"company,omitempty"`
	Unit      string    `firestore:"unit" json:"unit"`
	Cost      float64   `firestore:"cost" json:"cost" validate:"gte=0"`
	UpdatedAt time.Time `firestore:"updated_at" json:"updated_at"`
}

// NormalizeCode is the key used for code lookups: trimmed and upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeName is the key used for name lookups: trimmed, lower-cased, inner whitespace collapsed.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

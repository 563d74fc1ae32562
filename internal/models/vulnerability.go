package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Severity string
type VulnerabilityStatus string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"

	VulnOpen       VulnerabilityStatus = "open"
	VulnInProgress VulnerabilityStatus = "in_progress"
	VulnResolved   VulnerabilityStatus = "resolved"
	VulnAccepted   VulnerabilityStatus = "accepted"
)

// Severities: от самой опасной к наименее опасной.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Rank: 0 для critical, 4 для info, -1 для неизвестного значения.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if s == v {
			return i
		}
	}
	return -1
}

func (s VulnerabilityStatus) Valid() bool {
	switch s {
	case VulnOpen, VulnInProgress, VulnResolved, VulnAccepted:
		return true
	}
	return false
}

// Vulnerability: находка в рамках проекта. Удаляется вместе с проектом.
type Vulnerability struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProjectID   uint                `gorm:"not null;index" json:"project_id"`
	Type        string              `gorm:"size:255;not null" json:"type"` // "IDOR", "SQLi" и т.п.
	Severity    Severity            `gorm:"type:varchar(20);not null;index" json:"severity"`
	Description string              `gorm:"type:text" json:"description"`
	Status      VulnerabilityStatus `gorm:"type:varchar(20);not null;default:open" json:"status"`
}

// Validate проверяет новую находку; пустой статус: open.
func (v *Vulnerability) Validate() error {
	v.Type = strings.TrimSpace(v.Type)
	if v.Type == "" {
		return invalid("type", "must not be blank")
	}
	if !v.Severity.Valid() {
		return invalid("severity", fmt.Sprintf("unknown value %q", v.Severity))
	}
	if v.Status == "" {
		v.Status = VulnOpen
	}
	if !v.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown value %q", v.Status))
	}
	return nil
}

type VulnerabilityPatch struct {
	Type        *string              `json:"type,omitempty"`
	Severity    *Severity            `json:"severity,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *VulnerabilityStatus `json:"status,omitempty"`
}

func (p VulnerabilityPatch) Fields() []string {
	var out []string
	if p.Type != nil {
		out = append(out, "type")
	}
	if p.Severity != nil {
		out = append(out, "severity")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	return out
}

func (p VulnerabilityPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

func (p VulnerabilityPatch) Validate() error {
	if p.Type != nil && strings.TrimSpace(*p.Type) == "" {
		return invalid("type", "must not be blank")
	}
	if p.Severity != nil && !p.Severity.Valid() {
		return invalid("severity", fmt.Sprintf("unknown value %q", *p.Severity))
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown value %q", *p.Status))
	}
	return nil
}

func (p VulnerabilityPatch) Apply(v *Vulnerability) {
	if p.Type != nil {
		v.Type = strings.TrimSpace(*p.Type)
	}
	if p.Severity != nil {
		v.Severity = *p.Severity
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.Status != nil {
		v.Status = *p.Status
	}
}

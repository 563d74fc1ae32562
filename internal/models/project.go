package models

import (
	"time"

	"gorm.io/gorm"
)

type EngagementStatus string
type KickoffStatus string
type ReportingStatus string
type TechnologyType string

const (
	StatusOngoing EngagementStatus = "ongoing"
	StatusPast    EngagementStatus = "past"

	KickoffTicketAssigned KickoffStatus = "ticket_assigned"
	KickoffQueued         KickoffStatus = "queued"
	KickoffInTalks        KickoffStatus = "in_talks"
	KickoffDone           KickoffStatus = "done"

	ReportingNotStarted ReportingStatus = "not_started"
	ReportingInProgress ReportingStatus = "in_progress"
	ReportingCompleted  ReportingStatus = "completed"
)

// Тип тестируемой системы. Пустое значение: не указан.
const (
	TechWeb   TechnologyType = "WEB"
	TechAPI   TechnologyType = "API"
	TechAPK   TechnologyType = "APK"
	TechIPA   TechnologyType = "IPA"
	TechThick TechnologyType = "THICK"
	TechAI    TechnologyType = "AI"
	TechAWS   TechnologyType = "AWS"
	TechGCP   TechnologyType = "GCP"
	TechOther TechnologyType = "OTHER"
)

var TechnologyTypes = []TechnologyType{TechWeb, TechAPI, TechAPK, TechIPA, TechThick, TechAI, TechAWS, TechGCP, TechOther}

func (s EngagementStatus) Valid() bool {
	switch s {
	case StatusOngoing, StatusPast:
		return true
	}
	return false
}

func (k KickoffStatus) Valid() bool {
	switch k {
	case KickoffTicketAssigned, KickoffQueued, KickoffInTalks, KickoffDone:
		return true
	}
	return false
}

func (r ReportingStatus) Valid() bool {
	switch r {
	case ReportingNotStarted, ReportingInProgress, ReportingCompleted:
		return true
	}
	return false
}

func (t TechnologyType) Valid() bool {
	for _, v := range TechnologyTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Stage: пункт чек-листа этапов. CompletedAt != nil только при Done.
type Stage struct {
	Name        string     `json:"name"`
	Done        bool       `json:"done"`
	CompletedAt *time.Time `json:"completed_at"`
	IsStatic    bool       `json:"is_static"`
}

// PinnedLink: закреплённая ссылка на карточке проекта.
type PinnedLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type TestItem struct {
	Text        string     `json:"text"`
	Done        bool       `json:"done"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Engagement: пентест-проект. Этапы и тесты хранятся JSON-колонками.
type Engagement struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string           `gorm:"size:255;not null;index" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	Status      EngagementStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	CompletedDate *time.Time `json:"completed_date"`

	LeaveDays          int           `gorm:"not null;default:0" json:"leave_days"`
	BusinessDaysWorked int           `gorm:"not null;default:0" json:"business_days_worked"`
	KickoffStatus      KickoffStatus `gorm:"type:varchar(50)" json:"kickoff_status"`

	TechnologyType  TechnologyType  `gorm:"type:varchar(20);index" json:"technology_type"`
	ReportingStatus ReportingStatus `gorm:"type:varchar(20);not null;default:not_started" json:"reporting_status"`
	PSMName         string          `gorm:"size:255" json:"psm_name"`
	FunctionalOwner string          `gorm:"size:255" json:"functional_owner"`
	JiraTicketLink  string          `gorm:"size:500" json:"jira_ticket_link"`
	SharepointLink  string          `gorm:"size:500" json:"sharepoint_link"`
	PinnedLinks     []PinnedLink    `gorm:"type:text;serializer:json" json:"pinned_links"`
	Summary         string          `gorm:"type:text" json:"summary"`

	Stages             []Stage    `gorm:"type:text;serializer:json" json:"stages"`
	Tests              []TestItem `gorm:"type:text;serializer:json" json:"tests"`
	Notes              string     `gorm:"type:text" json:"notes"`
	ProgressPercentage int        `gorm:"not null;default:0" json:"progress_percentage"`
}

func (Engagement) TableName() string { return "projects" }

// Clone возвращает глубокую копию: слайсы и указатели на время не разделяются.
func (e Engagement) Clone() Engagement {
	out := e
	out.StartDate = cloneTime(e.StartDate)
	out.EndDate = cloneTime(e.EndDate)
	out.CompletedDate = cloneTime(e.CompletedDate)
	out.Stages = CloneStages(e.Stages)
	out.Tests = CloneTests(e.Tests)
	if e.PinnedLinks != nil {
		out.PinnedLinks = make([]PinnedLink, len(e.PinnedLinks))
		copy(out.PinnedLinks, e.PinnedLinks)
	}
	return out
}

func CloneStages(in []Stage) []Stage {
	if in == nil {
		return nil
	}
	out := make([]Stage, len(in))
	for i, s := range in {
		s.CompletedAt = cloneTime(s.CompletedAt)
		out[i] = s
	}
	return out
}

func CloneTests(in []TestItem) []TestItem {
	if in == nil {
		return nil
	}
	out := make([]TestItem, len(in))
	for i, t := range in {
		t.CompletedAt = cloneTime(t.CompletedAt)
		out[i] = t
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

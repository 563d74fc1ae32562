package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// EngagementPatch: частичное обновление проекта: nil означает "не менять".
type EngagementPatch struct {
	Name               *string           `json:"name,omitempty"`
	Status             *EngagementStatus `json:"status,omitempty"`
	KickoffStatus      *KickoffStatus    `json:"kickoff_status,omitempty"`
	Notes              *string           `json:"notes,omitempty"`
	LeaveDays          *int              `json:"leave_days,omitempty"`
	BusinessDaysWorked *int              `json:"business_days_worked,omitempty"`
	ProgressPercentage *int              `json:"progress_percentage,omitempty"`
	Stages             *[]Stage          `json:"stages,omitempty"`
	Tests              *[]TestItem       `json:"tests,omitempty"`
	CompletedDate      *time.Time        `json:"completed_date,omitempty"`
	ClearCompletedDate bool              `json:"clear_completed_date,omitempty"`

	// карточка проекта
	Description     *string          `json:"description,omitempty"`
	TechnologyType  *TechnologyType  `json:"technology_type,omitempty"`
	ReportingStatus *ReportingStatus `json:"reporting_status,omitempty"`
	PSMName         *string          `json:"psm_name,omitempty"`
	FunctionalOwner *string          `json:"functional_owner,omitempty"`
	JiraTicketLink  *string          `json:"jira_ticket_link,omitempty"`
	SharepointLink  *string          `json:"sharepoint_link,omitempty"`
	PinnedLinks     *[]PinnedLink    `json:"pinned_links,omitempty"`
	Summary         *string          `json:"summary,omitempty"`
}

func (p EngagementPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields: имена изменяемых полей (для аудита и логов).
func (p EngagementPatch) Fields() []string {
	var out []string
	if p.Name != nil {
		out = append(out, "name")
	}
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.KickoffStatus != nil {
		out = append(out, "kickoff_status")
	}
	if p.Notes != nil {
		out = append(out, "notes")
	}
	if p.LeaveDays != nil {
		out = append(out, "leave_days")
	}
	if p.BusinessDaysWorked != nil {
		out = append(out, "business_days_worked")
	}
	if p.ProgressPercentage != nil {
		out = append(out, "progress_percentage")
	}
	if p.Stages != nil {
		out = append(out, "stages")
	}
	if p.Tests != nil {
		out = append(out, "tests")
	}
	if p.CompletedDate != nil || p.ClearCompletedDate {
		out = append(out, "completed_date")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	if p.TechnologyType != nil {
		out = append(out, "technology_type")
	}
	if p.ReportingStatus != nil {
		out = append(out, "reporting_status")
	}
	if p.PSMName != nil {
		out = append(out, "psm_name")
	}
	if p.FunctionalOwner != nil {
		out = append(out, "functional_owner")
	}
	if p.JiraTicketLink != nil {
		out = append(out, "jira_ticket_link")
	}
	if p.SharepointLink != nil {
		out = append(out, "sharepoint_link")
	}
	if p.PinnedLinks != nil {
		out = append(out, "pinned_links")
	}
	if p.Summary != nil {
		out = append(out, "summary")
	}
	return out
}

func (p EngagementPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("name", "must not be blank")
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown value %q", *p.Status))
	}
	if p.KickoffStatus != nil && !p.KickoffStatus.Valid() {
		return invalid("kickoff_status", fmt.Sprintf("unknown value %q", *p.KickoffStatus))
	}
	if p.LeaveDays != nil && *p.LeaveDays < 0 {
		return invalid("leave_days", "must not be negative")
	}
	if p.BusinessDaysWorked != nil && *p.BusinessDaysWorked < 0 {
		return invalid("business_days_worked", "must not be negative")
	}
	if p.ProgressPercentage != nil && (*p.ProgressPercentage < 0 || *p.ProgressPercentage > 100) {
		return invalid("progress_percentage", "must be within 0..100")
	}
	if p.CompletedDate != nil && p.ClearCompletedDate {
		return invalid("completed_date", "cannot be set and cleared at once")
	}
	if p.Stages != nil {
		seen := make(map[string]struct{}, len(*p.Stages))
		for i, s := range *p.Stages {
			name := strings.TrimSpace(s.Name)
			if name == "" {
				return invalid(fmt.Sprintf("stages[%d].name", i), "must not be blank")
			}
			if _, dup := seen[name]; dup {
				return invalid(fmt.Sprintf("stages[%d].name", i), fmt.Sprintf("duplicate stage %q", name))
			}
			seen[name] = struct{}{}
			if !s.Done && s.CompletedAt != nil {
				return invalid(fmt.Sprintf("stages[%d].completed_at", i), "must be empty for an open stage")
			}
		}
	}
	if p.TechnologyType != nil && *p.TechnologyType != "" && !p.TechnologyType.Valid() {
		return invalid("technology_type", fmt.Sprintf("unknown value %q", *p.TechnologyType))
	}
	if p.ReportingStatus != nil && !p.ReportingStatus.Valid() {
		return invalid("reporting_status", fmt.Sprintf("unknown value %q", *p.ReportingStatus))
	}
	if p.JiraTicketLink != nil && !validLink(*p.JiraTicketLink, true) {
		return invalid("jira_ticket_link", "must be an http(s) URL")
	}
	if p.SharepointLink != nil && !validLink(*p.SharepointLink, true) {
		return invalid("sharepoint_link", "must be an http(s) URL")
	}
	if p.PinnedLinks != nil {
		for i, l := range *p.PinnedLinks {
			if strings.TrimSpace(l.Label) == "" {
				return invalid(fmt.Sprintf("pinned_links[%d].label", i), "must not be blank")
			}
			if !validLink(l.URL, false) {
				return invalid(fmt.Sprintf("pinned_links[%d].url", i), "must be an http(s) URL")
			}
		}
	}
	if p.Tests != nil {
		for i, t := range *p.Tests {
			if strings.TrimSpace(t.Text) == "" {
				return invalid(fmt.Sprintf("tests[%d].text", i), "must not be blank")
			}
			if !t.Done && t.CompletedAt != nil {
				return invalid(fmt.Sprintf("tests[%d].completed_at", i), "must be empty for an open test")
			}
		}
	}
	return nil
}

// Apply переносит заданные поля в e. Валидацию вызывающий делает сам.
func (p EngagementPatch) Apply(e *Engagement) {
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.KickoffStatus != nil {
		e.KickoffStatus = *p.KickoffStatus
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.LeaveDays != nil {
		e.LeaveDays = *p.LeaveDays
	}
	if p.BusinessDaysWorked != nil {
		e.BusinessDaysWorked = *p.BusinessDaysWorked
	}
	if p.ProgressPercentage != nil {
		e.ProgressPercentage = *p.ProgressPercentage
	}
	if p.Stages != nil {
		e.Stages = CloneStages(*p.Stages)
		if e.Stages == nil {
			e.Stages = []Stage{}
		}
	}
	if p.Tests != nil {
		e.Tests = CloneTests(*p.Tests)
		if e.Tests == nil {
			e.Tests = []TestItem{}
		}
	}
	switch {
	case p.ClearCompletedDate:
		e.CompletedDate = nil
	case p.CompletedDate != nil:
		t := *p.CompletedDate
		e.CompletedDate = &t
	}

	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.TechnologyType != nil {
		e.TechnologyType = *p.TechnologyType
	}
	if p.ReportingStatus != nil {
		e.ReportingStatus = *p.ReportingStatus
	}
	if p.PSMName != nil {
		e.PSMName = strings.TrimSpace(*p.PSMName)
	}
	if p.FunctionalOwner != nil {
		e.FunctionalOwner = strings.TrimSpace(*p.FunctionalOwner)
	}
	if p.JiraTicketLink != nil {
		e.JiraTicketLink = strings.TrimSpace(*p.JiraTicketLink)
	}
	if p.SharepointLink != nil {
		e.SharepointLink = strings.TrimSpace(*p.SharepointLink)
	}
	if p.PinnedLinks != nil {
		e.PinnedLinks = make([]PinnedLink, len(*p.PinnedLinks))
		for i, l := range *p.PinnedLinks {
			e.PinnedLinks[i] = PinnedLink{Label: strings.TrimSpace(l.Label), URL: strings.TrimSpace(l.URL)}
		}
	}
	if p.Summary != nil {
		e.Summary = *p.Summary
	}
}

// validLink: абсолютный http(s) URL с хостом. allowEmpty: пустая
// строка очищает поле.
func validLink(s string, allowEmpty bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return allowEmpty
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

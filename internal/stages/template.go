// Package stages держит канонический шаблон этапов пентеста, считает
// взвешенный прогресс и сверяет сохранённый список этапов с шаблоном.
package stages

import "engagement-tracker/internal/models"

type Group string

const (
	GroupNone        Group = ""
	GroupPreparation Group = "preparation"
	GroupMainTesting Group = "main_testing"
	GroupFinal       Group = "final"
)

// Порядок шаблона значим: статические этапы всегда выводятся в нём.
var template = [...]struct {
	name  string
	group Group
}{
	// Ticket Assigned входит в счётчик N/M, но не в веса.
	{"Ticket Assigned", GroupNone},
	{"Kickoff", GroupPreparation},
	{"Accounts Received", GroupPreparation},
	{"Enumeration", GroupMainTesting},
	{"Manual Testing", GroupMainTesting},
	{"Automated Testing", GroupMainTesting},
	{"Lateral Movement", GroupMainTesting},
	{"Exploitation", GroupMainTesting},
	{"Known CVE", GroupMainTesting},
	{"Compliance", GroupMainTesting},
	{"Reporting", GroupFinal},
	{"Shared report 1on1 to PSM", GroupFinal},
	{"Uploaded report on Sharepoint", GroupFinal},
	{"Sent Emails to Stakeholders", GroupFinal},
	{"Last Jira Ticket Closed", GroupFinal},
}

var groupWeights = [...]struct {
	group  Group
	weight float64
}{
	{GroupPreparation, 10},
	{GroupMainTesting, 80},
	{GroupFinal, 10},
}

var templateIndex = func() map[string]int {
	m := make(map[string]int, len(template))
	for i, t := range template {
		m[t.name] = i
	}
	return m
}()

// TemplateNames: копия канонического списка имён в порядке шаблона.
func TemplateNames() []string {
	out := make([]string, len(template))
	for i, t := range template {
		out[i] = t.name
	}
	return out
}

func IsStatic(name string) bool {
	_, ok := templateIndex[name]
	return ok
}

// GroupOf: группа весов для этапа; GroupNone для кастомных и Ticket Assigned.
func GroupOf(name string) Group {
	if i, ok := templateIndex[name]; ok {
		return template[i].group
	}
	return GroupNone
}

// Seed: полный шаблон, все этапы не выполнены.
func Seed() []models.Stage {
	out := make([]models.Stage, len(template))
	for i, t := range template {
		out[i] = models.Stage{Name: t.name, IsStatic: true}
	}
	return out
}

package stages

import (
	"math"

	"engagement-tracker/internal/models"
)

// Summary: сырой счётчик N/M плюс взвешенный процент.
type Summary struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// WeightedProgress считает прогресс по трём группам (10/80/10).
// Знаменатель группы: число её этапов в переданном списке, так что
// удалённые этапы не тянут процент вниз. Округление math.Round
// (половина от нуля).
func WeightedProgress(list []models.Stage) int {
	done := make(map[Group]int, len(groupWeights))
	total := make(map[Group]int, len(groupWeights))
	for _, s := range list {
		g := GroupOf(s.Name)
		if g == GroupNone {
			continue
		}
		total[g]++
		if s.Done {
			done[g]++
		}
	}

	sum := 0.0
	for _, gw := range groupWeights {
		if total[gw.group] == 0 {
			continue
		}
		sum += float64(done[gw.group]) / float64(total[gw.group]) * gw.weight
	}

	p := int(math.Round(sum))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func Summarize(list []models.Stage) Summary {
	s := Summary{Total: len(list), Percent: WeightedProgress(list)}
	for _, st := range list {
		if st.Done {
			s.Completed++
		}
	}
	return s
}

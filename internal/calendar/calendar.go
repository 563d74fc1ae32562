// Package calendar считает рабочие дни для учёта длительности проектов.
package calendar

import "time"

// BusinessDaysBetween возвращает число дней Пн–Пт в закрытом интервале
// [start, end]. Каждый конец сводится к своей календарной дате в своей
// зоне: даты проекта хранятся полуночью UTC, а "сегодня" приходит как
// локальный момент. start > end даёт 0.
func BusinessDaysBetween(start, end time.Time) int {
	from := DateOf(start)
	to := DateOf(end)
	if from.After(to) {
		return 0
	}

	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			days++
		}
	}
	return days
}

func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// DateOf: календарная дата t в зоне t, как полночь UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

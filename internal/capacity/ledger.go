// Package capacity содержит чистую логику допуска бронирования:
// вычисление часовых ключей окна, проверку покрытия и свободных мест.
// Никаких побочных эффектов: движок вызывает её повторно внутри
// транзакции по свежепрочитанным строкам.
package capacity

import (
	"time"

	"github.com/solnyshko/kidsbooking/internal/model"
)

// HourlyKey ключ почасового слота: календарная дата плюс индекс часа.
// Единственное место, где из окна выводится час — сравнивается по значению.
type HourlyKey struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

// NewHourlyKey строит ключ по моменту времени
func NewHourlyKey(t time.Time) HourlyKey {
	return HourlyKey{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: t.Hour()}
}

// Date возвращает календарную дату ключа
func (k HourlyKey) Date() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// Start возвращает начало часа ключа
func (k HourlyKey) Start() time.Time {
	return time.Date(k.Year, k.Month, k.Day, k.Hour, 0, 0, 0, time.UTC)
}

// HourKeys возвращает ключи всех часов, которые окно [start, end) должно
// полностью покрыть. Час, затронутый частично, тоже входит в набор.
func HourKeys(start, end time.Time) ([]HourlyKey, error) {
	if !end.After(start) {
		return nil, model.ErrInvalidWindow
	}

	var keys []HourlyKey
	for t := start.Truncate(time.Hour); t.Before(end); t = t.Add(time.Hour) {
		keys = append(keys, NewHourlyKey(t))
	}
	return keys, nil
}

// Plan результат проверки допуска: точный набор слотов и величина
// списания мест с каждого из них.
type Plan struct {
	Slots []*model.Slot
	Units int
}

// SlotIDs возвращает идентификаторы слотов плана
func (p *Plan) SlotIDs() []int64 {
	ids := make([]int64, 0, len(p.Slots))
	for _, s := range p.Slots {
		ids = append(ids, s.ID)
	}
	return ids
}

// BuildPlan решает вопрос допуска: slots — найденные OPEN-слоты по ключам
// окна, expected — сколько слотов окно обязано покрыть, units — сколько
// мест требуется в каждом. Порядок проверок фиксирован: сначала покрытие,
// затем вместимость.
func BuildPlan(slots []*model.Slot, expected, units int) (*Plan, error) {
	if units < 1 || expected < 1 {
		return nil, model.ErrInvalidWindow
	}

	open := make([]*model.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Status == model.SlotStatusOpen {
			open = append(open, s)
		}
	}

	if len(open) != expected {
		return nil, model.ErrIncompleteCoverage
	}

	for _, s := range open {
		if s.Available < units {
			return nil, model.ErrInsufficientCapacity
		}
	}

	return &Plan{Slots: open, Units: units}, nil
}

// CheckAdjust проверяет что новое значение available не нарушает инвариант
// 0 <= available <= capacity. Нарушение — фатальная внутренняя ошибка.
func CheckAdjust(s *model.Slot, newAvailable int) error {
	if newAvailable < 0 || newAvailable > s.Capacity {
		return &model.InvariantError{SlotID: s.ID, Available: newAvailable, Capacity: s.Capacity}
	}
	return nil
}

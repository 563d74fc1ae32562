package stages

import (
	"context"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/models"
)

// Writer: часть хранилища, нужная для корректирующей записи.
type Writer interface {
	UpdateProject(ctx context.Context, id uint, patch models.EngagementPatch) (*models.Engagement, error)
}

// Result: итог одного прохода сверки.
type Result struct {
	Stages       []models.Stage
	Progress     int
	Seeded       bool // список этапов не задан (nil), подставлен шаблон
	OrderChanged bool // статические этапы пришли не в порядке шаблона
	Skipped      bool // этот же вход уже обрабатывался последним
	Corrected    bool // корректирующая запись прошла
	WriteErr     error
}

// Reconciler сверяет сохранённые этапы с шаблоном и при чистой
// перестановке записывает исправленный порядок обратно. Отпечаток
// последнего обработанного входа хранится по id проекта, чтобы эхо
// собственной записи не запускало цикл.
type Reconciler struct {
	w   Writer
	log *log.Logger

	mu       sync.Mutex
	lastSeen map[uint]uint64
}

func NewReconciler(w Writer) *Reconciler {
	return &Reconciler{
		w:        w,
		log:      logging.New("reconciler"),
		lastSeen: make(map[uint]uint64),
	}
}

// Reconcile строит представление для persisted. Ошибка записи не
// возвращается наружу: она логируется и кладётся в Result.WriteErr,
// повтора нет.
func (r *Reconciler) Reconcile(ctx context.Context, id uint, persisted []models.Stage) Result {
	view, orderChanged := Arrange(persisted)
	res := Result{
		Stages:       view,
		Progress:     WeightedProgress(view),
		Seeded:       persisted == nil,
		OrderChanged: orderChanged,
	}

	fp := Fingerprint(persisted)
	r.mu.Lock()
	if prev, ok := r.lastSeen[id]; ok && prev == fp {
		r.mu.Unlock()
		res.Skipped = true
		return res
	}
	r.lastSeen[id] = fp
	r.mu.Unlock()

	if !orderChanged || r.w == nil {
		return res
	}

	correctedStages := models.CloneStages(view)
	progress := res.Progress
	patch := models.EngagementPatch{Stages: &correctedStages, ProgressPercentage: &progress}
	if _, err := r.w.UpdateProject(ctx, id, patch); err != nil {
		r.log.Warn("corrective stage write failed", "engagement", id, "err", err)
		res.WriteErr = err
		return res
	}
	r.log.Info("stage order corrected", "engagement", id, "progress", progress)
	res.Corrected = true
	return res
}

// Forget сбрасывает отпечаток проекта: следующий Reconcile обработает
// вход заново, даже если он не изменился.
func (r *Reconciler) Forget(id uint) {
	r.mu.Lock()
	delete(r.lastSeen, id)
	r.mu.Unlock()
}

// Arrange: чистая часть сверки. Статические этапы идут в порядке шаблона,
// за ними кастомные в исходном порядке. Отсутствующие статические этапы
// не добавляются: их удалил пользователь. Шаблоном заменяется только nil
// (список ни разу не задавался); пустой список остаётся пустым.
// orderChanged истинно только при перестановке без добавлений и удалений.
func Arrange(persisted []models.Stage) (view []models.Stage, orderChanged bool) {
	if persisted == nil {
		return Seed(), false
	}
	if len(persisted) == 0 {
		return []models.Stage{}, false
	}

	statics := make(map[string]models.Stage, len(template))
	var inputOrder []string
	var custom []models.Stage
	duplicates := false

	for _, s := range models.CloneStages(persisted) {
		if !IsStatic(s.Name) {
			s.IsStatic = false
			custom = append(custom, s)
			continue
		}
		inputOrder = append(inputOrder, s.Name)
		if _, seen := statics[s.Name]; seen {
			duplicates = true
			continue
		}
		s.IsStatic = true
		statics[s.Name] = s
	}

	view = make([]models.Stage, 0, len(statics)+len(custom))
	viewOrder := make([]string, 0, len(statics))
	for _, t := range template {
		if s, ok := statics[t.name]; ok {
			view = append(view, s)
			viewOrder = append(viewOrder, t.name)
		}
	}
	view = append(view, custom...)

	return view, !duplicates && !slices.Equal(inputOrder, viewOrder)
}

// Fingerprint: хеш имён и флагов done во входном порядке.
func Fingerprint(list []models.Stage) uint64 {
	d := xxhash.New()
	for _, s := range list {
		_, _ = d.WriteString(s.Name)
		if s.Done {
			_, _ = d.Write([]byte{0, 1})
		} else {
			_, _ = d.Write([]byte{0, 0})
		}
	}
	return d.Sum64()
}

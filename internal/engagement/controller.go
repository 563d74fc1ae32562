// Package engagement: операции над проектом: этапы, тесты, kickoff,
// заметки, завершение. Каждая операция сначала меняет локальное
// представление, затем пишет изменение в хранилище.
package engagement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"engagement-tracker/internal/calendar"
	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/models"
	"engagement-tracker/internal/stages"
)

// Store: хранилище проектов (REST-клиент или gorm-репозиторий).
// GetProject возвращает models.ErrNotFound, UpdateProject: ErrValidation
// на некорректный patch и ErrNetwork на сбой транспорта.
type Store interface {
	GetProject(ctx context.Context, id uint) (*models.Engagement, error)
	UpdateProject(ctx context.Context, id uint, patch models.EngagementPatch) (*models.Engagement, error)
}

type Option func(*Controller)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller держит локальное представление одного проекта. Пока запись
// не завершилась, новые изменения отклоняются с ErrBusy.
type Controller struct {
	store Store
	rec   *stages.Reconciler
	log   *log.Logger
	now   func() time.Time

	mu     sync.Mutex
	id     uint
	view   models.Engagement
	last   stages.Result
	saving bool
}

// Open загружает проект и прогоняет его этапы через сверку.
func Open(ctx context.Context, store Store, rec *stages.Reconciler, id uint, opts ...Option) (*Controller, error) {
	c := &Controller{
		store: store,
		rec:   rec,
		log:   logging.New("engagement"),
		now:   time.Now,
		id:    id,
	}
	for _, o := range opts {
		o(c)
	}
	if c.rec == nil {
		c.rec = stages.NewReconciler(store)
	}
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh перечитывает проект из хранилища. Отпечаток сверки
// сбрасывается, поэтому неудавшаяся корректирующая запись повторяется.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return fmt.Errorf("refresh: %w", models.ErrBusy)
	}
	c.saving = true
	c.mu.Unlock()

	c.rec.Forget(c.id)
	err := c.load(ctx)

	c.mu.Lock()
	c.saving = false
	c.mu.Unlock()
	return err
}

func (c *Controller) load(ctx context.Context) error {
	e, err := c.store.GetProject(ctx, c.id)
	if err != nil {
		return fmt.Errorf("load engagement %d: %w", c.id, err)
	}
	res := c.rec.Reconcile(ctx, e.ID, e.Stages)

	view := e.Clone()
	view.Stages = res.Stages
	if res.Corrected {
		view.ProgressPercentage = res.Progress
	}

	c.mu.Lock()
	c.view = view
	c.last = res
	c.mu.Unlock()
	return nil
}

// Engagement: копия текущего локального представления.
func (c *Controller) Engagement() models.Engagement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Clone()
}

func (c *Controller) Summary() stages.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stages.Summarize(c.view.Stages)
}

// LastReconcile: результат сверки при последней загрузке.
func (c *Controller) LastReconcile() stages.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// ---- этапы ----

func (c *Controller) ToggleStage(ctx context.Context, index int) error {
	return c.commit(ctx, "toggle stage", func(e *models.Engagement) (models.EngagementPatch, error) {
		if err := checkIndex(index, len(e.Stages), "stage"); err != nil {
			return models.EngagementPatch{}, err
		}
		list := models.CloneStages(e.Stages)
		s := &list[index]
		s.Done = !s.Done
		s.CompletedAt = c.stamp(s.Done)
		p := stages.WeightedProgress(list)
		return models.EngagementPatch{Stages: &list, ProgressPercentage: &p}, nil
	}, nil)
}

func (c *Controller) AddCustomStage(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return c.commit(ctx, "add stage", func(e *models.Engagement) (models.EngagementPatch, error) {
		if stages.IsStatic(name) {
			return models.EngagementPatch{}, fmt.Errorf("%w: %q is a template stage name", models.ErrValidation, name)
		}
		for _, s := range e.Stages {
			if s.Name == name {
				return models.EngagementPatch{}, fmt.Errorf("%w: stage %q already exists", models.ErrValidation, name)
			}
		}
		list := append(models.CloneStages(e.Stages), models.Stage{Name: name})
		return models.EngagementPatch{Stages: &list}, nil
	}, nil)
}

// DeleteStage удаляет кастомный этап. Статический этап не удаляется,
// в хранилище при этом ничего не пишется.
func (c *Controller) DeleteStage(ctx context.Context, index int) error {
	return c.commit(ctx, "delete stage", func(e *models.Engagement) (models.EngagementPatch, error) {
		if err := checkIndex(index, len(e.Stages), "stage"); err != nil {
			return models.EngagementPatch{}, err
		}
		if e.Stages[index].IsStatic {
			return models.EngagementPatch{}, fmt.Errorf("%w: static stage %q cannot be deleted", models.ErrValidation, e.Stages[index].Name)
		}
		list := models.CloneStages(e.Stages)
		list = append(list[:index], list[index+1:]...)
		p := stages.WeightedProgress(list)
		return models.EngagementPatch{Stages: &list, ProgressPercentage: &p}, nil
	}, nil)
}

// ---- тесты ----

func (c *Controller) ToggleTest(ctx context.Context, index int) error {
	return c.commit(ctx, "toggle test", func(e *models.Engagement) (models.EngagementPatch, error) {
		if err := checkIndex(index, len(e.Tests), "test"); err != nil {
			return models.EngagementPatch{}, err
		}
		list := models.CloneTests(e.Tests)
		t := &list[index]
		t.Done = !t.Done
		t.CompletedAt = c.stamp(t.Done)
		return models.EngagementPatch{Tests: &list}, nil
	}, nil)
}

func (c *Controller) AddTest(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return c.commit(ctx, "add test", func(e *models.Engagement) (models.EngagementPatch, error) {
		list := append(models.CloneTests(e.Tests), models.TestItem{Text: text})
		return models.EngagementPatch{Tests: &list}, nil
	}, nil)
}

func (c *Controller) DeleteTest(ctx context.Context, index int) error {
	return c.commit(ctx, "delete test", func(e *models.Engagement) (models.EngagementPatch, error) {
		if err := checkIndex(index, len(e.Tests), "test"); err != nil {
			return models.EngagementPatch{}, err
		}
		list := models.CloneTests(e.Tests)
		list = append(list[:index], list[index+1:]...)
		return models.EngagementPatch{Tests: &list}, nil
	}, nil)
}

// ---- прочие поля ----

// SaveNotes вызывается при потере фокуса, а не на каждое нажатие.
func (c *Controller) SaveNotes(ctx context.Context, text string) error {
	return c.commit(ctx, "save notes", func(e *models.Engagement) (models.EngagementPatch, error) {
		if e.Notes == text {
			return models.EngagementPatch{}, nil
		}
		return models.EngagementPatch{Notes: &text}, nil
	}, nil)
}

// SetKickoffStatus: единственная операция с откатом при ошибке записи.
func (c *Controller) SetKickoffStatus(ctx context.Context, status models.KickoffStatus) error {
	if !status.Valid() {
		return fmt.Errorf("set kickoff status: %w: unknown value %q", models.ErrValidation, status)
	}
	var prev models.KickoffStatus
	return c.commit(ctx, "set kickoff status", func(e *models.Engagement) (models.EngagementPatch, error) {
		if e.KickoffStatus == status {
			return models.EngagementPatch{}, nil
		}
		prev = e.KickoffStatus
		return models.EngagementPatch{KickoffStatus: &status}, nil
	}, func(e *models.Engagement) {
		e.KickoffStatus = prev
	})
}

// CompleteEngagement переводит ongoing → past и считает отработанные
// рабочие дни от даты начала до сегодня за вычетом отпуска.
func (c *Controller) CompleteEngagement(ctx context.Context, leaveDays int) error {
	return c.commit(ctx, "complete engagement", func(e *models.Engagement) (models.EngagementPatch, error) {
		if leaveDays < 0 {
			return models.EngagementPatch{}, fmt.Errorf("%w: leave days must not be negative", models.ErrValidation)
		}
		if e.Status == models.StatusPast {
			return models.EngagementPatch{}, fmt.Errorf("%w: engagement is already completed", models.ErrValidation)
		}
		now := c.now()
		worked := 0
		if e.StartDate != nil {
			// дата начала: полночь UTC, драйвер БД может вернуть её в своей зоне
			worked = max(0, calendar.BusinessDaysBetween(e.StartDate.UTC(), now)-leaveDays)
		}
		status := models.StatusPast
		return models.EngagementPatch{
			Status:             &status,
			CompletedDate:      &now,
			LeaveDays:          &leaveDays,
			BusinessDaysWorked: &worked,
		}, nil
	}, nil)
}

// UncompleteEngagement возвращает past → ongoing. confirmed: явное
// подтверждение пользователя, без него операция отклоняется.
func (c *Controller) UncompleteEngagement(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("uncomplete engagement: %w", models.ErrNotConfirmed)
	}
	return c.commit(ctx, "uncomplete engagement", func(e *models.Engagement) (models.EngagementPatch, error) {
		if e.Status != models.StatusPast {
			return models.EngagementPatch{}, fmt.Errorf("%w: engagement is not completed", models.ErrValidation)
		}
		status := models.StatusOngoing
		zero := 0
		return models.EngagementPatch{
			Status:             &status,
			ClearCompletedDate: true,
			LeaveDays:          &zero,
			BusinessDaysWorked: &zero,
		}, nil
	}, nil)
}

// commit: build считает patch по копии представления, patch сразу
// применяется локально, затем уходит в хранилище. При ошибке записи
// локальное изменение остаётся, если не передан rollback.
func (c *Controller) commit(
	ctx context.Context,
	op string,
	build func(e *models.Engagement) (models.EngagementPatch, error),
	rollback func(e *models.Engagement),
) error {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, models.ErrBusy)
	}
	draft := c.view.Clone()
	patch, err := build(&draft)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	if patch.IsEmpty() {
		c.mu.Unlock()
		return nil
	}
	patch.Apply(&c.view)
	c.saving = true
	id := c.id
	c.mu.Unlock()

	updated, err := c.store.UpdateProject(ctx, id, patch)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	if err != nil {
		if rollback != nil {
			rollback(&c.view)
		}
		c.log.Warn("save failed", "op", op, "engagement", id, "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	c.log.Debug("saved", "op", op, "engagement", id, "fields", patch.Fields())
	if updated != nil {
		c.view = updated.Clone()
		c.view.Stages, _ = stages.Arrange(updated.Stages)
	}
	return nil
}

func (c *Controller) stamp(done bool) *time.Time {
	if !done {
		return nil
	}
	t := c.now()
	return &t
}

func checkIndex(i, n int, what string) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %s index %d out of range [0, %d)", models.ErrValidation, what, i, n)
	}
	return nil
}

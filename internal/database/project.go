package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"engagement-tracker/internal/models"
	"engagement-tracker/internal/stages"
)

// ProjectRepo: gorm-хранилище проектов. Реализует engagement.Store:
// GetProject + UpdateProject, остальное нужно REST-слою.
type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// List: проекты, новые первыми. Пустой status: все.
func (r *ProjectRepo) List(ctx context.Context, status models.EngagementStatus) ([]models.Engagement, error) {
	dbq := r.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
		}
		dbq = dbq.Where("status = ?", status)
	}

	var projects []models.Engagement
	if err := dbq.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepo) GetProject(ctx context.Context, id uint) (*models.Engagement, error) {
	var project models.Engagement
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("project %d", id))
	}
	return &project, nil
}

// Create заполняет значения по умолчанию: статус ongoing, kickoff queued,
// отчёт not_started, полный шаблон этапов, если список пуст.
func (r *ProjectRepo) Create(ctx context.Context, project *models.Engagement) error {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return fmt.Errorf("%w: name must not be blank", models.ErrValidation)
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return fmt.Errorf("%w: end date is before start date", models.ErrValidation)
	}
	if project.KickoffStatus == "" {
		project.KickoffStatus = models.KickoffQueued
	}
	if !project.KickoffStatus.Valid() {
		return fmt.Errorf("%w: unknown kickoff status %q", models.ErrValidation, project.KickoffStatus)
	}
	if project.ReportingStatus == "" {
		project.ReportingStatus = models.ReportingNotStarted
	}
	if project.PinnedLinks == nil {
		project.PinnedLinks = []models.PinnedLink{}
	}
	// поля карточки проверяются теми же правилами, что и PATCH
	card := models.EngagementPatch{
		TechnologyType:  &project.TechnologyType,
		ReportingStatus: &project.ReportingStatus,
		JiraTicketLink:  &project.JiraTicketLink,
		SharepointLink:  &project.SharepointLink,
		PinnedLinks:     &project.PinnedLinks,
	}
	if err := card.Validate(); err != nil {
		return err
	}
	project.Status = models.StatusOngoing
	project.CompletedDate = nil
	project.LeaveDays = 0
	project.BusinessDaysWorked = 0
	if len(project.Stages) == 0 {
		project.Stages = stages.Seed()
	}
	if project.Tests == nil {
		project.Tests = []models.TestItem{}
	}
	project.ProgressPercentage = stages.WeightedProgress(project.Stages)

	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// UpdateProject применяет patch поверх текущей записи. Последняя запись
// побеждает: слияния нет.
func (r *ProjectRepo) UpdateProject(ctx context.Context, id uint, patch models.EngagementPatch) (*models.Engagement, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var project models.Engagement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, id).Error; err != nil {
			return notFound(err, fmt.Sprintf("project %d", id))
		}
		patch.Apply(&project)
		return tx.Save(&project).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Delete удаляет проект вместе с его уязвимостями.
func (r *ProjectRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Engagement{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete project %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("project %d: %w", id, models.ErrNotFound)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Vulnerability{}).Error; err != nil {
			return fmt.Errorf("delete project %d vulnerabilities: %w", id, err)
		}
		return nil
	})
}

// History: журнал аудита проекта в хронологическом порядке.
func (r *ProjectRepo) History(ctx context.Context, id uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", "project", id).
		Preload("User").
		Order("created_at asc, id asc").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("project %d history: %w", id, err)
	}
	return logs, nil
}

// RecentAudit: последние записи журнала по всем сущностям.
func (r *ProjectRepo) RecentAudit(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	return logs, nil
}

func (r *ProjectRepo) Audit(ctx context.Context, userID, projectID uint, action, details string) {
	CreateAuditLog(r.db.WithContext(ctx), userID, "project", projectID, action, details)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

package database

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"engagement-tracker/internal/models"
)

// Vulnerabilities: находки проекта, самые опасные первыми.
func (r *ProjectRepo) Vulnerabilities(ctx context.Context, projectID uint) ([]models.Vulnerability, error) {
	db := r.db.WithContext(ctx)
	if err := db.Select("id").First(&models.Engagement{}, projectID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("project %d", projectID))
	}

	var vulns []models.Vulnerability
	if err := db.Where("project_id = ?", projectID).Order("id asc").Find(&vulns).Error; err != nil {
		return nil, fmt.Errorf("project %d vulnerabilities: %w", projectID, err)
	}
	slices.SortStableFunc(vulns, func(a, b models.Vulnerability) int {
		return a.Severity.Rank() - b.Severity.Rank()
	})
	return vulns, nil
}

// CreateVulnerability добавляет находку к существующему проекту.
func (r *ProjectRepo) CreateVulnerability(ctx context.Context, v *models.Vulnerability) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Engagement{}, v.ProjectID).Error; err != nil {
			return notFound(err, fmt.Sprintf("project %d", v.ProjectID))
		}
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("create vulnerability: %w", err)
		}
		return nil
	})
}

func (r *ProjectRepo) UpdateVulnerability(ctx context.Context, projectID, id uint, patch models.VulnerabilityPatch) (*models.Vulnerability, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var v models.Vulnerability
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).First(&v, id).Error; err != nil {
			return notFound(err, fmt.Sprintf("vulnerability %d of project %d", id, projectID))
		}
		patch.Apply(&v)
		return tx.Save(&v).Error
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ProjectRepo) DeleteVulnerability(ctx context.Context, projectID, id uint) error {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Vulnerability{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete vulnerability %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("vulnerability %d of project %d: %w", id, projectID, models.ErrNotFound)
	}
	return nil
}

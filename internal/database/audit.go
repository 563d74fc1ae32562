package database

import (
	"gorm.io/gorm"

	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/models"
)

// helper для записи в журнал аудита; ошибка только логируется
func CreateAuditLog(db *gorm.DB, userID uint, entity string, entityID uint, action, details string) {
	if db == nil || userID == 0 {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := db.Create(&record).Error; err != nil {
		logging.New("database").Warn("failed to write audit log", "entity", entity, "id", entityID, "err", err)
	}
}

package database

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"engagement-tracker/internal/config"
	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/models"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	logger := logging.New("database")
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		logger.Info("connecting to DB", "attempt", i, "of", maxAttempts)

		DB, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
		if err == nil {
			logger.Info("connected to DB")
			break
		}

		logger.Warn("failed to connect to DB", "err", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		logger.Fatal("failed to connect to DB", "attempts", maxAttempts, "err", err)
	}

	if err := Migrate(DB); err != nil {
		logger.Fatal("failed to migrate", "err", err)
	}

	// дефолтный админ и, по желанию, демо-пользователи
	users := NewUserRepo(DB)
	if err := users.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("failed to create default admin", "err", err)
	}
	if cfg.SeedDemoUsers {
		users.SeedDemo()
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Engagement{},
		&models.Vulnerability{},
		&models.AuditLog{},
	)
}

// UserRepo: пользователи для входа в API.
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &user, nil
}

// EnsureAdmin создаёт админа, если в базе нет ни одного.
func (r *UserRepo) EnsureAdmin(username, password string) error {
	var count int64
	if err := r.db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		// админ уже есть: ничего не делаем
		return nil
	}
	if err := r.create(username, password, models.RoleAdmin); err != nil {
		return err
	}
	logging.New("database").Info("created default admin user", "username", username)
	return nil
}

// SeedDemo: пара тестовых аккаунтов (engineer и viewer) для демо.
func (r *UserRepo) SeedDemo() {
	logger := logging.New("database")

	type seedUser struct {
		Username string
		Password string
		Role     models.UserRole
	}

	users := []seedUser{
		{Username: "eng@pentest.local", Password: "Eng123!", Role: models.RoleEngineer},
		{Username: "viewer@pentest.local", Password: "Viewer123!", Role: models.RoleViewer},
	}

	for _, u := range users {
		var count int64
		if err := r.db.Model(&models.User{}).
			Where("username = ?", u.Username).
			Count(&count).Error; err != nil {
			logger.Warn("failed to check seed user", "username", u.Username, "err", err)
			continue
		}
		if count > 0 {
			// уже есть: пропускаем
			continue
		}
		if err := r.create(u.Username, u.Password, u.Role); err != nil {
			logger.Warn("failed to create seed user", "username", u.Username, "err", err)
			continue
		}
		logger.Info("created seed user", "username", u.Username, "role", u.Role)
	}
}

func (r *UserRepo) create(username, password string, role models.UserRole) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return r.db.Create(&models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}).Error
}

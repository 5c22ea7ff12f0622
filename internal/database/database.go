package database

import (
	"errors"
	"fmt"

	"motoexpress/config"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	level := logger.Error // only log errors, not every SQL query
	if cfg.LogQueries {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.EstablishmentProfile{},
		&models.MotoboyProfile{},
		&models.DeliveryOrder{},
		&models.DeliveryAssignment{},
		&models.DeliveryEvent{},
		&models.Review{},
		&models.Notification{},
		&models.AuditLog{},
		&models.Payment{},
	)
}

// SeedAdmin creates the admin account when no user with email exists.
// It reports whether a user was created.
func SeedAdmin(db *gorm.DB, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, errors.New("admin email and password are required")
	}
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	admin := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Name:         "Administrator",
		IsActive:     true,
	}
	if err := db.Create(admin).Error; err != nil {
		return false, err
	}
	return true, nil
}

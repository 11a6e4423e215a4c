package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"banksampah/config"
	"banksampah/models"
	"banksampah/pkg/logger"
	"banksampah/pkg/seed"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DB_DSN is not set; a Postgres DSN is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(cfg.DBLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func newGormLogger(level string) gormlogger.Interface {
	var l gormlogger.LogLevel
	switch level {
	case "info":
		l = gormlogger.Info
	case "warn":
		l = gormlogger.Warn
	case "silent":
		l = gormlogger.Silent
	default:
		l = gormlogger.Error
	}
	return gormlogger.Default.LogMode(l)
}

// migrateDB migrates models one by one so a failure on one table does not
// block the rest. Roles go first because users reference them.
func migrateDB(db *gorm.DB) {
	for _, m := range []any{
		&models.Role{},
		&models.User{},
		&models.RefreshToken{},
		&models.Setoran{},
		&models.Pencairan{},
		&models.Artikel{},
		&models.AppSetting{},
		&models.JenisSampah{},
		&models.Upload{},
	} {
		if err := db.AutoMigrate(m); err != nil {
			logger.Log.Warn("migration warning", logger.String("model", fmt.Sprintf("%T", m)), logger.Error(err))
		}
	}
	// saldo can never go negative, whatever writes it
	if err := db.Exec(`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_users_saldo_non_negative') THEN
			ALTER TABLE users ADD CONSTRAINT chk_users_saldo_non_negative CHECK (saldo >= 0);
		END IF;
	END $$`).Error; err != nil {
		logger.Log.Warn("migration warning (saldo check)", logger.Error(err))
	}
}

// seedDB inserts roles, the first admin and the default catalog. Existing rows are kept.
func seedDB(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	for _, r := range models.DefaultRoles {
		r := r
		if err := db.WithContext(ctx).Where(models.Role{Name: r.Name}).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}

	var admins int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins == 0 {
		u, err := createAccount(ctx, db, newAccount{
			NamaLengkap: "Administrator",
			Email:       cfg.AdminEmail,
			Password:    cfg.AdminPassword,
			Role:        models.RoleAdmin,
		}, time.Now())
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logger.Log.Info("seeded admin user", logger.String("email", u.Email))
	}

	f, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return err
	}
	return seed.Apply(ctx, db, f)
}

func ensureUploadBase(dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Log.Warn("failed to create upload dir", logger.String("dir", dir), logger.Error(err))
	}
}

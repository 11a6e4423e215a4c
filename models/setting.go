package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppSetting is a key/value system setting (e.g. cs_whatsapp_number).
type AppSetting struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SettingKey   string    `gorm:"size:128;not null;uniqueIndex" json:"setting_key"`
	SettingValue string    `gorm:"type:text;not null" json:"setting_value"`
	Description  *string   `gorm:"size:512" json:"description"`
}

func (AppSetting) TableName() string { return "app_settings" }

func (s *AppSetting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// JenisSampah is a waste-type catalog entry. Entries referenced by a setoran
// are deactivated rather than deleted.
type JenisSampah struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Nama      string    `gorm:"size:128;not null;uniqueIndex" json:"nama"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
}

func (JenisSampah) TableName() string { return "jenis_sampah" }

func (j *JenisSampah) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

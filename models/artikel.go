package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Artikel is a CMS article. Gambar holds either a legacy image URL or a JSON
// object with desktop/tablet/mobile URLs.
type Artikel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Judul     string    `gorm:"size:255;not null" json:"judul"`
	Konten    string    `gorm:"type:text;not null" json:"konten"`
	Gambar    *string   `gorm:"type:text" json:"gambar"`
	AdminID   *string   `gorm:"type:uuid;index" json:"admin_id"`
	Admin     *User     `gorm:"foreignKey:AdminID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"admin,omitempty"`
}

func (Artikel) TableName() string { return "artikel" }

func (a *Artikel) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

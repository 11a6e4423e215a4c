package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pencairan status values. approved and rejected are terminal.
const (
	PencairanPending  = "pending"
	PencairanApproved = "approved"
	PencairanRejected = "rejected"
)

// Pencairan is a member's cash-out request against their saldo.
type Pencairan struct {
	ID               string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string          `gorm:"type:uuid;index;not null" json:"user_id"`
	User             *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Nominal          decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"nominal"`
	Status           string          `gorm:"size:16;not null;index" json:"status"`
	PengelolaID      *string         `gorm:"type:uuid;index" json:"pengelola_id"`
	Pengelola        *User           `gorm:"foreignKey:PengelolaID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"pengelola,omitempty"`
	TanggalRequest   time.Time       `gorm:"not null;index" json:"tanggal_request"`
	TanggalPencairan *time.Time      `json:"tanggal_pencairan"`
	Catatan          *string         `gorm:"type:text" json:"catatan"`
}

func (Pencairan) TableName() string { return "pencairan_saldo" }

func (p *Pencairan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

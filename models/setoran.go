package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Setoran status values. validated is terminal.
const (
	SetoranPending   = "pending"
	SetoranValidated = "validated"
)

// Submission methods.
const (
	MetodePickUp  = "pick-up"
	MetodeDropOff = "drop-off"
)

// Setoran is a member's waste deposit. Weight, price and total are filled in
// when an operator validates it.
type Setoran struct {
	ID              string              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string              `gorm:"type:uuid;index;not null" json:"user_id"`
	User            *User               `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	JenisSampah     string              `gorm:"size:128;not null;index" json:"jenis_sampah"`
	Metode          string              `gorm:"size:32;not null" json:"metode"`
	Status          string              `gorm:"size:16;not null;index" json:"status"`
	BeratSampah     decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"berat_sampah"`
	HargaPerKg      decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"harga_per_kg"`
	TotalHarga      decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"total_harga"`
	PengelolaID     *string             `gorm:"type:uuid;index" json:"pengelola_id"`
	Pengelola       *User               `gorm:"foreignKey:PengelolaID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"pengelola,omitempty"`
	TanggalSetor    time.Time           `gorm:"not null;index" json:"tanggal_setor"`
	TanggalValidasi *time.Time          `json:"tanggal_validasi"`
}

func (Setoran) TableName() string { return "setoran_sampah" }

func (s *Setoran) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ValidMetode reports whether m is a known submission method.
func ValidMetode(m string) bool {
	return m == MetodePickUp || m == MetodeDropOff
}

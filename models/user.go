package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Address holds the optional member address fields collected at registration
// or on profile completion.
type Address struct {
	NoHP         *string `gorm:"column:no_hp;size:32" json:"no_hp"`
	Kelurahan    *string `gorm:"size:128" json:"kelurahan"`
	Kecamatan    *string `gorm:"size:128" json:"kecamatan"`
	Kabupaten    *string `gorm:"size:128" json:"kabupaten"`
	DetailAlamat *string `gorm:"size:512" json:"detail_alamat"`
}

// User model. Saldo is only mutated through the ledger package.
type User struct {
	ID               string          `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	NamaLengkap      string          `gorm:"size:255;not null" json:"nama_lengkap"`
	Email            string          `gorm:"size:255;not null;uniqueIndex" json:"email"`
	HashedPassword   []byte          `gorm:"not null" json:"-"`
	RoleName         string          `gorm:"column:role;size:32;not null;index" json:"role"`
	Role             *Role           `gorm:"foreignKey:RoleName;references:Name;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Saldo            decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"saldo"`
	Address          `gorm:"embedded"`
	QRData           string `gorm:"size:255;index" json:"qr_data"`
	QRCode           string `gorm:"type:text" json:"qr_code"`
	ProfileCompleted bool   `gorm:"not null" json:"profile_completed"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role. Admin accounts cannot
// be deleted or have their password changed by other admins.
func (u *User) IsAdmin() bool {
	return u.RoleName == RoleAdmin
}

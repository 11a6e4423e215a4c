package models

import "time"

// Role names. Users reference roles by name.
const (
	RoleAdmin     = "admin"
	RolePengelola = "pengelola"
	RolePengguna  = "pengguna"
)

// Role is the master table of user roles.
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

// DefaultRoles is seeded on startup.
var DefaultRoles = []Role{
	{Name: RoleAdmin, Description: "full access"},
	{Name: RolePengelola, Description: "validates setoran and pencairan"},
	{Name: RolePengguna, Description: "bank sampah member"},
}

// ValidRole reports whether name is one of the known roles.
func ValidRole(name string) bool {
	return name == RoleAdmin || name == RolePengelola || name == RolePengguna
}

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"banksampah/models"
	"banksampah/pkg/ledger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// listSettingsHandler returns settings keyed by setting_key.
func (s *server) listSettingsHandler(c *gin.Context) {
	var rows []models.AppSetting
	if err := s.db.WithContext(c.Request.Context()).Order("setting_key").Find(&rows).Error; err != nil {
		respondError(c, err)
		return
	}
	out := make(map[string]gin.H, len(rows))
	for _, r := range rows {
		out[r.SettingKey] = gin.H{"value": r.SettingValue, "description": r.Description}
	}
	c.JSON(http.StatusOK, out)
}

func (s *server) upsertSettingHandler(c *gin.Context) {
	var req struct {
		SettingKey   string  `json:"setting_key" binding:"required"`
		SettingValue string  `json:"setting_value"`
		Description  *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	row := models.AppSetting{
		SettingKey:   strings.TrimSpace(req.SettingKey),
		SettingValue: strings.TrimSpace(req.SettingValue),
		Description:  trimmed(req.Description),
	}
	if row.SettingKey == "" {
		respondError(c, fmt.Errorf("%w: setting_key is required", ledger.ErrInvalidInput))
		return
	}
	cols := []string{"setting_value", "updated_at"}
	if row.Description != nil {
		cols = append(cols, "description")
	}
	err := s.db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(&row).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "setting saved", "setting": row})
}

func (s *server) listJenisSampahHandler(c *gin.Context) {
	q := s.db.WithContext(c.Request.Context()).Model(&models.JenisSampah{})
	if c.Query("active") == "true" {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.JenisSampah
	if err := q.Order("nama").Find(&rows).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

type jenisSampahRequest struct {
	Nama     string `json:"nama"`
	IsActive *bool  `json:"is_active"`
}

func (s *server) createJenisSampahHandler(c *gin.Context) {
	var req jenisSampahRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	row := models.JenisSampah{Nama: strings.TrimSpace(req.Nama), IsActive: req.IsActive == nil || *req.IsActive}
	if row.Nama == "" {
		respondError(c, fmt.Errorf("%w: nama is required", ledger.ErrInvalidInput))
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&row).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "jenis sampah created", "data": row})
}

func (s *server) findJenisSampah(c *gin.Context) (*models.JenisSampah, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", ledger.ErrInvalidInput, id)
	}
	var row models.JenisSampah
	err := s.db.WithContext(c.Request.Context()).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("jenis sampah: %w", errNotFound)
	}
	return &row, err
}

func (s *server) updateJenisSampahHandler(c *gin.Context) {
	row, err := s.findJenisSampah(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req jenisSampahRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		// setoran store the type by name, so a rename would orphan them
		if n := strings.TrimSpace(req.Nama); n != "" && n != row.Nama {
			if err := jenisNotInUse(tx, row.Nama, "rename it"); err != nil {
				return err
			}
			row.Nama = n
		}
		if req.IsActive != nil {
			row.IsActive = *req.IsActive
		}
		return tx.Model(row).Select("nama", "is_active").Updates(row).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "jenis sampah updated", "data": row})
}

// deleteJenisSampahHandler refuses to delete a type that setoran still use;
// such entries should be deactivated instead.
func (s *server) deleteJenisSampahHandler(c *gin.Context) {
	row, err := s.findJenisSampah(c)
	if err != nil {
		respondError(c, err)
		return
	}
	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := jenisNotInUse(tx, row.Nama, "delete it"); err != nil {
			return err
		}
		return tx.Delete(row).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "jenis sampah deleted"})
}

// jenisNotInUse returns errInUse when any setoran references nama.
func jenisNotInUse(tx *gorm.DB, nama, action string) error {
	var n int64
	if err := tx.Model(&models.Setoran{}).Where("jenis_sampah = ?", nama).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("jenis sampah %q is used by %d setoran, deactivate it instead of trying to %s: %w", nama, n, action, errInUse)
	}
	return nil
}

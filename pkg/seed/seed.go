// Package seed loads the default waste-type catalog and app settings and
// inserts whatever is missing.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"banksampah/models"
	"banksampah/pkg/logger"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed default.yaml
var defaultYAML []byte

type JenisSampah struct {
	Nama   string `yaml:"nama"`
	Active *bool  `yaml:"active"` // nil means active
}

type Setting struct {
	Key         string `yaml:"key"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

type File struct {
	JenisSampah []JenisSampah `yaml:"jenis_sampah"`
	Settings    []Setting     `yaml:"settings"`
}

// Default returns the embedded seed file.
func Default() (*File, error) {
	return Parse(defaultYAML)
}

// Load reads a seed file from path, or the embedded default when path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(b)
}

// Parse decodes and checks a seed document. Unknown keys are rejected.
func Parse(b []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) check() error {
	names := map[string]bool{}
	for i, j := range f.JenisSampah {
		n := strings.ToLower(strings.TrimSpace(j.Nama))
		if n == "" {
			return fmt.Errorf("jenis_sampah[%d]: nama is required", i)
		}
		if names[n] {
			return fmt.Errorf("jenis_sampah[%d]: duplicate nama %q", i, j.Nama)
		}
		names[n] = true
	}
	keys := map[string]bool{}
	for i, s := range f.Settings {
		if strings.TrimSpace(s.Key) == "" {
			return fmt.Errorf("settings[%d]: key is required", i)
		}
		if keys[s.Key] {
			return fmt.Errorf("settings[%d]: duplicate key %q", i, s.Key)
		}
		keys[s.Key] = true
	}
	return nil
}

// Models converts the seed file into rows ready for insertion.
func (f *File) Models() ([]models.JenisSampah, []models.AppSetting) {
	jenis := make([]models.JenisSampah, 0, len(f.JenisSampah))
	for _, j := range f.JenisSampah {
		jenis = append(jenis, models.JenisSampah{
			Nama:     strings.TrimSpace(j.Nama),
			IsActive: j.Active == nil || *j.Active,
		})
	}
	settings := make([]models.AppSetting, 0, len(f.Settings))
	for _, s := range f.Settings {
		s := s
		var desc *string
		if s.Description != "" {
			desc = &s.Description
		}
		settings = append(settings, models.AppSetting{
			SettingKey:   s.Key,
			SettingValue: s.Value,
			Description:  desc,
		})
	}
	return jenis, settings
}

// Apply inserts catalog entries and settings that do not exist yet. Rows
// already present (matched by nama / setting_key) are not modified.
func Apply(ctx context.Context, db *gorm.DB, f *File) error {
	if f == nil {
		return errors.New("nil seed file")
	}
	jenis, settings := f.Models()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var added int64
		for i := range jenis {
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "nama"}}, DoNothing: true}).Create(&jenis[i])
			if res.Error != nil {
				return fmt.Errorf("seed jenis_sampah %q: %w", jenis[i].Nama, res.Error)
			}
			added += res.RowsAffected
		}
		for i := range settings {
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "setting_key"}}, DoNothing: true}).Create(&settings[i])
			if res.Error != nil {
				return fmt.Errorf("seed setting %q: %w", settings[i].SettingKey, res.Error)
			}
			added += res.RowsAffected
		}
		if added > 0 {
			logger.Log.Info("seed applied", logger.Int64("rows", added))
		}
		return nil
	})
}

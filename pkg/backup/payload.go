// Package backup exports the whole application dataset as a JSON document
// and restores it. Restores are validated up front and applied in a single
// transaction.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"banksampah/models"
)

// Version is the only payload version this package reads and writes.
const Version = "1.0"

type Payload struct {
	Metadata Metadata `json:"metadata"`
	Data     Data     `json:"data"`
}

type Metadata struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Source     string    `json:"source"`
	Counts     Counts    `json:"counts"`
}

type Counts struct {
	Users       int `json:"users"`
	Setoran     int `json:"setoran"`
	Pencairan   int `json:"pencairan"`
	Artikel     int `json:"artikel"`
	Settings    int `json:"settings"`
	JenisSampah int `json:"jenis_sampah"`
}

type Data struct {
	Users       []User        `json:"users"`
	Setoran     []Setoran     `json:"setoran"`
	Pencairan   []Pencairan   `json:"pencairan"`
	Artikel     []Artikel     `json:"artikel"`
	Settings    []Setting     `json:"settings"`
	JenisSampah []JenisSampah `json:"jenis_sampah"`
}

// Money fields are decimal strings so no precision is lost in JSON.

type User struct {
	ID               string    `json:"id"`
	NamaLengkap      string    `json:"nama_lengkap"`
	Email            string    `json:"email"`
	Password         string    `json:"password"` // bcrypt hash
	Role             string    `json:"role"`
	Saldo            string    `json:"saldo"`
	NoHP             *string   `json:"no_hp"`
	Kelurahan        *string   `json:"kelurahan"`
	Kecamatan        *string   `json:"kecamatan"`
	Kabupaten        *string   `json:"kabupaten"`
	DetailAlamat     *string   `json:"detail_alamat"`
	QRData           string    `json:"qr_data"`
	QRCode           string    `json:"qr_code"`
	ProfileCompleted bool      `json:"profile_completed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Setoran struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	JenisSampah     string     `json:"jenis_sampah"`
	Metode          string     `json:"metode"`
	Status          string     `json:"status"`
	BeratSampah     *string    `json:"berat_sampah"`
	HargaPerKg      *string    `json:"harga_per_kg"`
	TotalHarga      *string    `json:"total_harga"`
	PengelolaID     *string    `json:"pengelola_id"`
	TanggalSetor    time.Time  `json:"tanggal_setor"`
	TanggalValidasi *time.Time `json:"tanggal_validasi"`
}

type Pencairan struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Nominal          string     `json:"nominal"`
	Status           string     `json:"status"`
	PengelolaID      *string    `json:"pengelola_id"`
	TanggalRequest   time.Time  `json:"tanggal_request"`
	TanggalPencairan *time.Time `json:"tanggal_pencairan"`
	Catatan          *string    `json:"catatan"`
}

type Artikel struct {
	ID        string    `json:"id"`
	Judul     string    `json:"judul"`
	Konten    string    `json:"konten"`
	Gambar    *string   `json:"gambar"`
	AdminID   *string   `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Setting struct {
	ID           string    `json:"id"`
	SettingKey   string    `json:"setting_key"`
	SettingValue string    `json:"setting_value"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type JenisSampah struct {
	ID        string    `json:"id"`
	Nama      string    `json:"nama"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Decode reads a payload, rejecting unknown fields and trailing data.
func Decode(r io.Reader) (*Payload, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("malformed backup: %v", err)}}
	}
	if dec.More() {
		return nil, &ValidationError{Problems: []string{"malformed backup: trailing data after document"}}
	}
	return &p, nil
}

// Snapshot assembles a payload from loaded rows.
func Snapshot(source string, at time.Time, users []models.User, setoran []models.Setoran, pencairan []models.Pencairan,
	artikel []models.Artikel, settings []models.AppSetting, jenis []models.JenisSampah) *Payload {
	p := &Payload{
		Metadata: Metadata{Version: Version, ExportedAt: at.UTC(), Source: source},
		Data: Data{
			Users:       make([]User, 0, len(users)),
			Setoran:     make([]Setoran, 0, len(setoran)),
			Pencairan:   make([]Pencairan, 0, len(pencairan)),
			Artikel:     make([]Artikel, 0, len(artikel)),
			Settings:    make([]Setting, 0, len(settings)),
			JenisSampah: make([]JenisSampah, 0, len(jenis)),
		},
	}
	for _, u := range users {
		p.Data.Users = append(p.Data.Users, User{
			ID: u.ID, NamaLengkap: u.NamaLengkap, Email: u.Email, Password: string(u.HashedPassword),
			Role: u.RoleName, Saldo: u.Saldo.StringFixed(2),
			NoHP: u.NoHP, Kelurahan: u.Kelurahan, Kecamatan: u.Kecamatan, Kabupaten: u.Kabupaten, DetailAlamat: u.DetailAlamat,
			QRData: u.QRData, QRCode: u.QRCode, ProfileCompleted: u.ProfileCompleted,
			CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
		})
	}
	for _, s := range setoran {
		p.Data.Setoran = append(p.Data.Setoran, Setoran{
			ID: s.ID, UserID: s.UserID, JenisSampah: s.JenisSampah, Metode: s.Metode, Status: s.Status,
			BeratSampah: nullString(s.BeratSampah), HargaPerKg: nullString(s.HargaPerKg), TotalHarga: nullString(s.TotalHarga),
			PengelolaID: s.PengelolaID, TanggalSetor: s.TanggalSetor, TanggalValidasi: s.TanggalValidasi,
		})
	}
	for _, w := range pencairan {
		p.Data.Pencairan = append(p.Data.Pencairan, Pencairan{
			ID: w.ID, UserID: w.UserID, Nominal: w.Nominal.StringFixed(2), Status: w.Status,
			PengelolaID: w.PengelolaID, TanggalRequest: w.TanggalRequest, TanggalPencairan: w.TanggalPencairan, Catatan: w.Catatan,
		})
	}
	for _, a := range artikel {
		p.Data.Artikel = append(p.Data.Artikel, Artikel{
			ID: a.ID, Judul: a.Judul, Konten: a.Konten, Gambar: a.Gambar, AdminID: a.AdminID,
			CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
		})
	}
	for _, s := range settings {
		p.Data.Settings = append(p.Data.Settings, Setting{
			ID: s.ID, SettingKey: s.SettingKey, SettingValue: s.SettingValue, Description: s.Description,
			CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
		})
	}
	for _, j := range jenis {
		p.Data.JenisSampah = append(p.Data.JenisSampah, JenisSampah{
			ID: j.ID, Nama: j.Nama, IsActive: j.IsActive, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt,
		})
	}
	p.Metadata.Counts = p.Data.counts()
	return p
}

func (d Data) counts() Counts {
	return Counts{
		Users:       len(d.Users),
		Setoran:     len(d.Setoran),
		Pencairan:   len(d.Pencairan),
		Artikel:     len(d.Artikel),
		Settings:    len(d.Settings),
		JenisSampah: len(d.JenisSampah),
	}
}

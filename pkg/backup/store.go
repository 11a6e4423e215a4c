package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"banksampah/models"
	"banksampah/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatch = 200

// Export reads every table in a stable order. It does not write anything.
func Export(ctx context.Context, db *gorm.DB, source string) (*Payload, error) {
	db = db.WithContext(ctx)
	var (
		users     []models.User
		setoran   []models.Setoran
		pencairan []models.Pencairan
		artikel   []models.Artikel
		settings  []models.AppSetting
		jenis     []models.JenisSampah
	)
	steps := []struct {
		name  string
		order string
		dest  any
	}{
		{"users", "created_at, id", &users},
		{"setoran", "tanggal_setor, id", &setoran},
		{"pencairan", "tanggal_request, id", &pencairan},
		{"artikel", "created_at, id", &artikel},
		{"settings", "setting_key", &settings},
		{"jenis_sampah", "created_at, id", &jenis},
	}
	for _, s := range steps {
		if err := db.Order(s.order).Find(s.dest).Error; err != nil {
			return nil, fmt.Errorf("export %s: %w", s.name, err)
		}
	}
	return Snapshot(source, time.Now(), users, setoran, pencairan, artikel, settings, jenis), nil
}

// Import replaces the dataset with p. Nothing is written unless p validates,
// and the delete and insert happen in one transaction.
func Import(ctx context.Context, db *gorm.DB, p *Payload, recompute bool) (Counts, error) {
	if err := p.Validate(recompute); err != nil {
		return Counts{}, err
	}
	rows := p.Data.toModels(recompute)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// children first; refresh tokens and uploads go with the users
		for _, m := range []any{
			&models.Setoran{}, &models.Pencairan{}, &models.Artikel{}, &models.AppSetting{},
			&models.JenisSampah{}, &models.RefreshToken{}, &models.Upload{}, &models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		for _, r := range models.DefaultRoles {
			r := r
			if err := tx.Where(models.Role{Name: r.Name}).FirstOrCreate(&r).Error; err != nil {
				return fmt.Errorf("ensure role %s: %w", r.Name, err)
			}
		}
		inserts := []struct {
			name string
			rows any
			n    int
		}{
			{"users", rows.users, len(rows.users)},
			{"jenis_sampah", rows.jenis, len(rows.jenis)},
			{"settings", rows.settings, len(rows.settings)},
			{"artikel", rows.artikel, len(rows.artikel)},
			{"setoran", rows.setoran, len(rows.setoran)},
			{"pencairan", rows.pencairan, len(rows.pencairan)},
		}
		for _, in := range inserts {
			if in.n == 0 {
				continue
			}
			if err := tx.Omit(clause.Associations).CreateInBatches(in.rows, insertBatch).Error; err != nil {
				return fmt.Errorf("insert %s: %w", in.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}
	counts := p.Data.counts()
	logger.Log.Info("backup imported",
		logger.Int("users", counts.Users),
		logger.Int("setoran", counts.Setoran),
		logger.Int("pencairan", counts.Pencairan),
		logger.Bool("recompute_saldo", recompute),
	)
	return counts, nil
}

type modelRows struct {
	users     []models.User
	setoran   []models.Setoran
	pencairan []models.Pencairan
	artikel   []models.Artikel
	settings  []models.AppSetting
	jenis     []models.JenisSampah
}

// toModels converts a validated payload. With recompute, saldo is rebuilt
// from validated setoran and approved pencairan.
func (d Data) toModels(recompute bool) modelRows {
	var out modelRows
	derived := map[string]decimal.Decimal{}

	for _, s := range d.Setoran {
		m := models.Setoran{
			ID: s.ID, UserID: s.UserID, JenisSampah: s.JenisSampah, Metode: s.Metode, Status: s.Status,
			BeratSampah: nullDecimal(s.BeratSampah), HargaPerKg: nullDecimal(s.HargaPerKg), TotalHarga: nullDecimal(s.TotalHarga),
			PengelolaID: s.PengelolaID, TanggalSetor: s.TanggalSetor, TanggalValidasi: s.TanggalValidasi,
		}
		if m.Status == models.SetoranValidated && m.TotalHarga.Valid {
			derived[m.UserID] = derived[m.UserID].Add(m.TotalHarga.Decimal)
		}
		out.setoran = append(out.setoran, m)
	}
	for _, w := range d.Pencairan {
		m := models.Pencairan{
			ID: w.ID, UserID: w.UserID, Nominal: decimal.RequireFromString(w.Nominal), Status: w.Status,
			PengelolaID: w.PengelolaID, TanggalRequest: w.TanggalRequest, TanggalPencairan: w.TanggalPencairan, Catatan: w.Catatan,
		}
		if m.Status == models.PencairanApproved {
			derived[m.UserID] = derived[m.UserID].Sub(m.Nominal)
		}
		out.pencairan = append(out.pencairan, m)
	}
	for _, u := range d.Users {
		saldo := decimal.RequireFromString(u.Saldo)
		if recompute {
			saldo = derived[u.ID]
		}
		out.users = append(out.users, models.User{
			ID: u.ID, NamaLengkap: u.NamaLengkap, Email: strings.ToLower(strings.TrimSpace(u.Email)), HashedPassword: []byte(u.Password),
			RoleName: u.Role, Saldo: saldo.Round(2),
			Address: models.Address{
				NoHP: u.NoHP, Kelurahan: u.Kelurahan, Kecamatan: u.Kecamatan, Kabupaten: u.Kabupaten, DetailAlamat: u.DetailAlamat,
			},
			QRData: u.QRData, QRCode: u.QRCode, ProfileCompleted: u.ProfileCompleted,
			CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
		})
	}
	for _, a := range d.Artikel {
		out.artikel = append(out.artikel, models.Artikel{
			ID: a.ID, Judul: a.Judul, Konten: a.Konten, Gambar: a.Gambar, AdminID: a.AdminID,
			CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
		})
	}
	for _, s := range d.Settings {
		out.settings = append(out.settings, models.AppSetting{
			ID: s.ID, SettingKey: s.SettingKey, SettingValue: s.SettingValue, Description: s.Description,
			CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
		})
	}
	for _, j := range d.JenisSampah {
		out.jenis = append(out.jenis, models.JenisSampah{
			ID: j.ID, Nama: j.Nama, IsActive: j.IsActive, CreatedAt: j.CreatedAt, UpdatedAt: j.UpdatedAt,
		})
	}
	return out
}

func nullDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(*s))
}

func nullString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

package backup

import (
	"errors"
	"fmt"
	"strings"

	"banksampah/models"
	"banksampah/pkg/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalid matches every *ValidationError.
var ErrInvalid = errors.New("invalid backup")

// maxProblems caps how many problems are reported for one payload.
const maxProblems = 50

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid backup: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

type checker struct {
	problems []string
}

func (c *checker) addf(format string, args ...any) {
	if len(c.problems) < maxProblems {
		c.problems = append(c.problems, fmt.Sprintf(format, args...))
	}
}

func (c *checker) id(kind string, i int, id string, seen map[string]bool) {
	if _, err := uuid.Parse(id); err != nil {
		c.addf("%s[%d]: malformed id %q", kind, i, id)
		return
	}
	if seen[id] {
		c.addf("%s[%d]: duplicate id %s", kind, i, id)
	}
	seen[id] = true
}

func (c *checker) money(kind string, i int, field, v string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		c.addf("%s[%d]: %s %q is not a decimal", kind, i, field, v)
		return decimal.Zero, false
	}
	return d, true
}

func (c *checker) ref(kind string, i int, field string, id *string, users map[string]bool) {
	if id != nil && !users[*id] {
		c.addf("%s[%d]: %s %s does not match any user", kind, i, field, *id)
	}
}

// Validate checks the whole payload before anything is written. When
// recompute is false every user's saldo must already equal validated setoran
// totals minus approved pencairan; when true saldo is rebuilt from history
// and only has to come out non-negative.
func (p *Payload) Validate(recompute bool) error {
	c := &checker{}
	if p.Metadata.Version != Version {
		c.addf("metadata.version %q is not supported (want %q)", p.Metadata.Version, Version)
	}

	users := map[string]bool{}
	emails := map[string]bool{}
	saldo := map[string]decimal.Decimal{}
	admins := 0
	for i, u := range p.Data.Users {
		c.id("users", i, u.ID, users)
		email := strings.ToLower(strings.TrimSpace(u.Email))
		switch {
		case email == "":
			c.addf("users[%d]: email is required", i)
		case emails[email]:
			c.addf("users[%d]: duplicate email %s", i, u.Email)
		}
		emails[email] = true
		if strings.TrimSpace(u.NamaLengkap) == "" {
			c.addf("users[%d]: nama_lengkap is required", i)
		}
		if u.Password == "" {
			c.addf("users[%d]: password hash is required", i)
		}
		if !models.ValidRole(u.Role) {
			c.addf("users[%d]: unknown role %q", i, u.Role)
		}
		if u.Role == models.RoleAdmin {
			admins++
		}
		if s, ok := c.money("users", i, "saldo", u.Saldo); ok {
			if s.IsNegative() {
				c.addf("users[%d]: negative saldo %s", i, u.Saldo)
			}
			saldo[u.ID] = s
		}
	}
	if admins == 0 {
		c.addf("users: at least one admin is required")
	}

	derived := map[string]decimal.Decimal{}
	seen := map[string]bool{}
	for i, s := range p.Data.Setoran {
		c.id("setoran", i, s.ID, seen)
		c.ref("setoran", i, "user_id", &s.UserID, users)
		c.ref("setoran", i, "pengelola_id", s.PengelolaID, users)
		if strings.TrimSpace(s.JenisSampah) == "" {
			c.addf("setoran[%d]: jenis_sampah is required", i)
		}
		if !models.ValidMetode(s.Metode) {
			c.addf("setoran[%d]: unknown metode %q", i, s.Metode)
		}
		switch s.Status {
		case models.SetoranPending:
			if s.BeratSampah != nil || s.HargaPerKg != nil || s.TotalHarga != nil || s.TanggalValidasi != nil {
				c.addf("setoran[%d]: pending setoran carries validation values", i)
			}
		case models.SetoranValidated:
			if s.BeratSampah == nil || s.HargaPerKg == nil || s.TotalHarga == nil || s.TanggalValidasi == nil || s.PengelolaID == nil {
				c.addf("setoran[%d]: validated setoran is missing weight, price, total, validator or time", i)
				continue
			}
			w, ok1 := c.money("setoran", i, "berat_sampah", *s.BeratSampah)
			pr, ok2 := c.money("setoran", i, "harga_per_kg", *s.HargaPerKg)
			t, ok3 := c.money("setoran", i, "total_harga", *s.TotalHarga)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			if !w.IsPositive() || !pr.IsPositive() {
				c.addf("setoran[%d]: weight and price must be positive", i)
			}
			if want := ledger.DepositTotal(w, pr); !t.Equal(want) {
				c.addf("setoran[%d]: total_harga %s != %s × %s", i, t, w, pr)
			}
			derived[s.UserID] = derived[s.UserID].Add(t)
		default:
			c.addf("setoran[%d]: unknown status %q", i, s.Status)
		}
	}

	seen = map[string]bool{}
	for i, w := range p.Data.Pencairan {
		c.id("pencairan", i, w.ID, seen)
		c.ref("pencairan", i, "user_id", &w.UserID, users)
		c.ref("pencairan", i, "pengelola_id", w.PengelolaID, users)
		n, ok := c.money("pencairan", i, "nominal", w.Nominal)
		if ok && !n.IsPositive() {
			c.addf("pencairan[%d]: nominal must be positive", i)
		}
		switch w.Status {
		case models.PencairanPending:
			if w.TanggalPencairan != nil {
				c.addf("pencairan[%d]: pending pencairan has tanggal_pencairan", i)
			}
		case models.PencairanApproved, models.PencairanRejected:
			if w.TanggalPencairan == nil {
				c.addf("pencairan[%d]: %s pencairan without tanggal_pencairan", i, w.Status)
			}
			if ok && w.Status == models.PencairanApproved {
				derived[w.UserID] = derived[w.UserID].Sub(n)
			}
		default:
			c.addf("pencairan[%d]: unknown status %q", i, w.Status)
		}
	}

	seen = map[string]bool{}
	for i, a := range p.Data.Artikel {
		c.id("artikel", i, a.ID, seen)
		c.ref("artikel", i, "admin_id", a.AdminID, users)
		if strings.TrimSpace(a.Judul) == "" {
			c.addf("artikel[%d]: judul is required", i)
		}
	}

	seen = map[string]bool{}
	keys := map[string]bool{}
	for i, s := range p.Data.Settings {
		c.id("settings", i, s.ID, seen)
		switch {
		case strings.TrimSpace(s.SettingKey) == "":
			c.addf("settings[%d]: setting_key is required", i)
		case keys[s.SettingKey]:
			c.addf("settings[%d]: duplicate setting_key %q", i, s.SettingKey)
		}
		keys[s.SettingKey] = true
	}

	seen = map[string]bool{}
	names := map[string]bool{}
	for i, j := range p.Data.JenisSampah {
		c.id("jenis_sampah", i, j.ID, seen)
		n := strings.ToLower(strings.TrimSpace(j.Nama))
		switch {
		case n == "":
			c.addf("jenis_sampah[%d]: nama is required", i)
		case names[n]:
			c.addf("jenis_sampah[%d]: duplicate nama %q", i, j.Nama)
		}
		names[n] = true
	}

	for _, u := range p.Data.Users {
		stored, ok := saldo[u.ID]
		if !ok {
			continue
		}
		want := derived[u.ID]
		if recompute {
			if want.IsNegative() {
				c.addf("user %s: history yields negative saldo %s", u.ID, want.StringFixed(2))
			}
		} else if !stored.Equal(want) {
			c.addf("user %s: saldo %s does not match history %s", u.ID, stored.StringFixed(2), want.StringFixed(2))
		}
	}

	if len(c.problems) > 0 {
		return &ValidationError{Problems: c.problems}
	}
	return nil
}

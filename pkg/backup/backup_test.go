package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"banksampah/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// samplePayload holds one admin, one member with two validated setoran, an
// approved and a rejected pencairan, and a pending setoran.
func samplePayload(t *testing.T) *Payload {
	t.Helper()
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	admin := models.User{ID: uuid.NewString(), NamaLengkap: "Admin", Email: "admin@x.id", HashedPassword: []byte("$2a$hash"), RoleName: models.RoleAdmin}
	member := models.User{ID: uuid.NewString(), NamaLengkap: "Siti", Email: "siti@x.id", HashedPassword: []byte("$2a$hash"), RoleName: models.RolePengguna, Saldo: d("15000")}
	validated := func(w, p string) models.Setoran {
		return models.Setoran{
			ID: uuid.NewString(), UserID: member.ID, JenisSampah: "Plastik", Metode: models.MetodePickUp,
			Status: models.SetoranValidated, BeratSampah: decimal.NewNullDecimal(d(w)), HargaPerKg: decimal.NewNullDecimal(d(p)),
			TotalHarga: decimal.NewNullDecimal(d(w).Mul(d(p))), PengelolaID: &admin.ID, TanggalSetor: at, TanggalValidasi: &at,
		}
	}
	setoran := []models.Setoran{
		validated("10", "2000"),
		validated("5", "2000"),
		{ID: uuid.NewString(), UserID: member.ID, JenisSampah: "Kaca", Metode: models.MetodeDropOff, Status: models.SetoranPending, TanggalSetor: at},
	}
	pencairan := []models.Pencairan{
		{ID: uuid.NewString(), UserID: member.ID, Nominal: d("15000"), Status: models.PencairanApproved, PengelolaID: &admin.ID, TanggalRequest: at, TanggalPencairan: &at},
		{ID: uuid.NewString(), UserID: member.ID, Nominal: d("1000"), Status: models.PencairanRejected, PengelolaID: &admin.ID, TanggalRequest: at, TanggalPencairan: &at},
	}
	artikel := []models.Artikel{{ID: uuid.NewString(), Judul: "Pilah sampah", Konten: "...", AdminID: &admin.ID}}
	settings := []models.AppSetting{{ID: uuid.NewString(), SettingKey: "cs_whatsapp_number", SettingValue: "0812"}}
	jenis := []models.JenisSampah{{ID: uuid.NewString(), Nama: "Plastik", IsActive: true}}
	return Snapshot("test", at, []models.User{admin, member}, setoran, pencairan, artikel, settings, jenis)
}

func problems(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	return strings.Join(ve.Problems, "\n")
}

func TestSnapshotShape(t *testing.T) {
	p := samplePayload(t)
	if p.Metadata.Version != Version || p.Metadata.Counts.Setoran != 3 || p.Metadata.Counts.Users != 2 {
		t.Fatalf("metadata = %+v", p.Metadata)
	}
	if p.Data.Users[1].Saldo != "15000.00" || *p.Data.Setoran[0].TotalHarga != "20000.00" {
		t.Fatalf("money not rendered as fixed strings: %+v", p.Data.Users[1])
	}
	if p.Data.Setoran[2].TotalHarga != nil {
		t.Fatal("pending setoran total should be null")
	}
	if err := p.Validate(false); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeRoundTripAndStrictness(t *testing.T) {
	p := samplePayload(t)
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := got.Validate(false); err != nil {
		t.Fatalf("Validate after decode: %v", err)
	}

	withExtra := strings.Replace(string(b), `"source":"test"`, `"source":"test","extra":1`, 1)
	if _, err := Decode(strings.NewReader(withExtra)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("unknown field err = %v", err)
	}
	if _, err := Decode(strings.NewReader(string(b) + "{}")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("trailing data err = %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *Payload)
		want   string
	}{
		{"version", func(p *Payload) { p.Metadata.Version = "2.0" }, "metadata.version"},
		{"bad id", func(p *Payload) { p.Data.Artikel[0].ID = "17" }, "malformed id"},
		{"dup email", func(p *Payload) { p.Data.Users[1].Email = "ADMIN@x.id" }, "duplicate email"},
		{"role", func(p *Payload) { p.Data.Users[1].Role = "superuser" }, "unknown role"},
		{"no admin", func(p *Payload) { p.Data.Users[0].Role = models.RolePengelola }, "at least one admin"},
		{"saldo decimal", func(p *Payload) { p.Data.Users[1].Saldo = "lima" }, "not a decimal"},
		{"dangling user", func(p *Payload) { p.Data.Pencairan[1].UserID = uuid.NewString() }, "does not match any user"},
		{"total mismatch", func(p *Payload) { s := "19999.00"; p.Data.Setoran[0].TotalHarga = &s }, "total_harga"},
		{"validated without time", func(p *Payload) { p.Data.Setoran[1].TanggalValidasi = nil }, "missing"},
		{"decided without time", func(p *Payload) { p.Data.Pencairan[0].TanggalPencairan = nil }, "without tanggal_pencairan"},
		{"status", func(p *Payload) { p.Data.Pencairan[1].Status = "cancelled" }, "unknown status"},
		{"dup setting", func(p *Payload) {
			p.Data.Settings = append(p.Data.Settings, Setting{ID: uuid.NewString(), SettingKey: "cs_whatsapp_number"})
		}, "duplicate setting_key"},
		{"saldo drift", func(p *Payload) { p.Data.Users[1].Saldo = "16000" }, "does not match history"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := samplePayload(t)
			tc.mutate(p)
			if got := problems(t, p.Validate(false)); !strings.Contains(got, tc.want) {
				t.Fatalf("problems %q do not mention %q", got, tc.want)
			}
		})
	}
}

func TestRecomputeSaldo(t *testing.T) {
	p := samplePayload(t)
	member := p.Data.Users[1].ID
	p.Data.Users[1].Saldo = "99999"
	if err := p.Validate(false); err == nil {
		t.Fatal("drifted saldo accepted without recompute")
	}
	if err := p.Validate(true); err != nil {
		t.Fatalf("Validate(recompute): %v", err)
	}
	rows := p.Data.toModels(true)
	for _, u := range rows.users {
		if u.ID == member && !u.Saldo.Equal(d("15000")) {
			t.Fatalf("recomputed saldo = %s, want 15000", u.Saldo)
		}
	}

	// history that would leave a member below zero cannot be recomputed
	p.Data.Pencairan[1].Status = models.PencairanApproved
	p.Data.Pencairan[1].Nominal = "20000.00"
	if got := problems(t, p.Validate(true)); !strings.Contains(got, "negative saldo") {
		t.Fatalf("problems = %q", got)
	}
}

func TestToModelsKeepsValues(t *testing.T) {
	p := samplePayload(t)
	rows := p.Data.toModels(false)
	if len(rows.users) != 2 || len(rows.setoran) != 3 || len(rows.pencairan) != 2 {
		t.Fatalf("row counts: %d users %d setoran %d pencairan", len(rows.users), len(rows.setoran), len(rows.pencairan))
	}
	if !rows.users[1].Saldo.Equal(d("15000")) || string(rows.users[1].HashedPassword) != "$2a$hash" {
		t.Fatalf("user = %+v", rows.users[1])
	}
	if rows.setoran[2].TotalHarga.Valid {
		t.Fatal("pending setoran got a total")
	}
}

func TestToModelsNormalisesEmails(t *testing.T) {
	p := samplePayload(t)
	p.Data.Users[1].Email = "  Siti@X.ID "
	rows := p.Data.toModels(false)
	if got := rows.users[1].Email; got != "siti@x.id" {
		t.Fatalf("email = %q, want siti@x.id", got)
	}
}

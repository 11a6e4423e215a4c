package report

import (
	"sort"
	"time"

	"banksampah/models"

	"github.com/shopspring/decimal"
)

// MonthTotal aggregates one calendar month. Only validated setoran and
// approved pencairan are counted.
type MonthTotal struct {
	Month          string          `json:"month"` // YYYY-MM
	SetoranCount   int             `json:"setoran_count"`
	BeratTotal     decimal.Decimal `json:"berat_total"`
	SetoranTotal   decimal.Decimal `json:"setoran_total"`
	PencairanCount int             `json:"pencairan_count"`
	PencairanTotal decimal.Decimal `json:"pencairan_total"`
}

// Summarize groups setoran by validation month and pencairan by decision
// month, oldest month first.
func Summarize(setoran []models.Setoran, pencairan []models.Pencairan, loc *time.Location) []MonthTotal {
	byMonth := map[string]*MonthTotal{}
	get := func(t time.Time) *MonthTotal {
		key := t.In(loc).Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthTotal{Month: key}
			byMonth[key] = m
		}
		return m
	}
	for _, s := range setoran {
		if s.Status != models.SetoranValidated || s.TanggalValidasi == nil {
			continue
		}
		m := get(*s.TanggalValidasi)
		m.SetoranCount++
		if s.BeratSampah.Valid {
			m.BeratTotal = m.BeratTotal.Add(s.BeratSampah.Decimal)
		}
		if s.TotalHarga.Valid {
			m.SetoranTotal = m.SetoranTotal.Add(s.TotalHarga.Decimal)
		}
	}
	for _, p := range pencairan {
		if p.Status != models.PencairanApproved || p.TanggalPencairan == nil {
			continue
		}
		m := get(*p.TanggalPencairan)
		m.PencairanCount++
		m.PencairanTotal = m.PencairanTotal.Add(p.Nominal)
	}

	out := make([]MonthTotal, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

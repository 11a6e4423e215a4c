// Package report builds the laporan spreadsheets and monthly summaries
// from setoran and pencairan records.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"banksampah/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	KindSetoran   = "setoran"
	KindPencairan = "pencairan"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	dateLayout = "02/01/2006"
	dayLayout  = "2006-01-02"
	empty      = "-"
)

var ErrBadPeriod = errors.New("invalid report period")

var (
	setoranHeaders = []string{
		"Tanggal", "Nama Pengguna", "Email", "Jenis Sampah", "Berat (kg)",
		"Harga/kg", "Total", "Metode", "Status", "Pengelola",
	}
	pencairanHeaders = []string{
		"Tanggal Request", "Nama Pengguna", "Email", "Nominal", "Status",
		"Tanggal Pencairan", "Pengelola", "Catatan",
	}
)

// ValidKind reports whether k names a laporan type.
func ValidKind(k string) bool {
	return k == KindSetoran || k == KindPencairan
}

// FileName is the download name for a laporan generated at the given time.
func FileName(kind string, at time.Time) string {
	return fmt.Sprintf("laporan-%s-%s.xlsx", kind, at.Format(dayLayout))
}

// ParsePeriod reads optional YYYY-MM-DD bounds. Both ends are whole days, so
// the returned To is the start of the day after end (exclusive).
func ParsePeriod(start, end string, loc *time.Location) (from, to time.Time, err error) {
	if start != "" {
		if from, err = time.ParseInLocation(dayLayout, start, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrBadPeriod)
		}
	}
	if end != "" {
		var e time.Time
		if e, err = time.ParseInLocation(dayLayout, end, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrBadPeriod)
		}
		to = e.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date after end_date", ErrBadPeriod)
	}
	return from, to, nil
}

type sheet struct {
	f         *excelize.File
	name      string
	moneyFmt  int
	headerFmt int
	row       int
}

func newSheet(name string, headers []string) (*sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}
	s := &sheet{f: f, name: name, moneyFmt: money, headerFmt: header, row: 1}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(name, "A1", last, header); err != nil {
		return nil, err
	}
	return s, nil
}

// append writes one row; decimal cells get the money format.
func (s *sheet) append(values ...any) error {
	s.row++
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, s.row)
		switch d := v.(type) {
		case decimal.Decimal:
			if err := s.f.SetCellFloat(s.name, cell, d.InexactFloat64(), 2, 64); err != nil {
				return err
			}
			if err := s.f.SetCellStyle(s.name, cell, cell, s.moneyFmt); err != nil {
				return err
			}
		default:
			if err := s.f.SetCellValue(s.name, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Setoran builds the "Setoran" workbook. Dates are rendered in loc.
func Setoran(rows []models.Setoran, loc *time.Location) (*excelize.File, error) {
	s, err := newSheet("Setoran", setoranHeaders)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		err := s.append(
			r.TanggalSetor.In(loc).Format(dateLayout),
			userName(r.User),
			userEmail(r.User),
			r.JenisSampah,
			nullable(r.BeratSampah),
			nullable(r.HargaPerKg),
			nullable(r.TotalHarga),
			r.Metode,
			r.Status,
			userName(r.Pengelola),
		)
		if err != nil {
			_ = s.f.Close()
			return nil, fmt.Errorf("write setoran %s: %w", r.ID, err)
		}
	}
	return s.f, nil
}

// Pencairan builds the "Pencairan" workbook. Dates are rendered in loc.
func Pencairan(rows []models.Pencairan, loc *time.Location) (*excelize.File, error) {
	s, err := newSheet("Pencairan", pencairanHeaders)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		decided := empty
		if r.TanggalPencairan != nil {
			decided = r.TanggalPencairan.In(loc).Format(dateLayout)
		}
		note := empty
		if r.Catatan != nil && *r.Catatan != "" {
			note = *r.Catatan
		}
		err := s.append(
			r.TanggalRequest.In(loc).Format(dateLayout),
			userName(r.User),
			userEmail(r.User),
			r.Nominal,
			r.Status,
			decided,
			userName(r.Pengelola),
			note,
		)
		if err != nil {
			_ = s.f.Close()
			return nil, fmt.Errorf("write pencairan %s: %w", r.ID, err)
		}
	}
	return s.f, nil
}

// Write serialises f to w and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func nullable(d decimal.NullDecimal) any {
	if !d.Valid {
		return empty
	}
	return d.Decimal
}

func userName(u *models.User) string {
	if u == nil || u.NamaLengkap == "" {
		return empty
	}
	return u.NamaLengkap
}

func userEmail(u *models.User) string {
	if u == nil || u.Email == "" {
		return empty
	}
	return u.Email
}

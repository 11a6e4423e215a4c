// Package laporan writes report workbooks and a monthly summary from the
// command line, reading through the same ledger service the API uses.
package laporan

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"banksampah/models"
	"banksampah/pkg/ledger"
	"banksampah/pkg/report"

	"github.com/xuri/excelize/v2"
)

type Options struct {
	Kind   string // report.KindSetoran or report.KindPencairan
	Start  string // YYYY-MM-DD, optional
	End    string // YYYY-MM-DD inclusive, optional
	UserID string // restrict to one member when set
	Out    string // workbook path; empty means report.FileName in the working dir
	Loc    *time.Location
}

// Run writes the workbook for opts and prints monthly totals to w. It
// returns the path written.
func Run(ctx context.Context, store ledger.Store, opts Options, w io.Writer) (string, error) {
	if !report.ValidKind(opts.Kind) {
		return "", fmt.Errorf("unknown report type %q", opts.Kind)
	}
	loc := opts.Loc
	if loc == nil {
		loc = time.Local
	}
	from, to, err := report.ParsePeriod(opts.Start, opts.End, loc)
	if err != nil {
		return "", err
	}

	svc := ledger.NewService(store)
	// reports are read with staff visibility
	actor := ledger.Actor{Role: models.RoleAdmin}
	filter := ledger.Filter{UserID: opts.UserID, From: from, To: to}

	setoran, err := svc.Deposits(ctx, actor, filter)
	if err != nil {
		return "", err
	}
	pencairan, err := svc.Withdrawals(ctx, actor, filter)
	if err != nil {
		return "", err
	}

	var f *excelize.File
	var rows int
	if opts.Kind == report.KindSetoran {
		f, err = report.Setoran(setoran, loc)
		rows = len(setoran)
	} else {
		f, err = report.Pencairan(pencairan, loc)
		rows = len(pencairan)
	}
	if err != nil {
		return "", err
	}

	out := opts.Out
	if out == "" {
		out = report.FileName(opts.Kind, time.Now().In(loc))
	}
	file, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := report.Write(file, f); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	fmt.Fprintf(w, "wrote %s (%d rows)\n", out, rows)
	fmt.Fprintln(w, "month    setoran  berat_kg  total_setoran  pencairan  total_pencairan")
	for _, m := range report.Summarize(setoran, pencairan, loc) {
		fmt.Fprintf(w, "%s  %7d  %8s  %13s  %9d  %15s\n",
			m.Month, m.SetoranCount, m.BeratTotal.StringFixed(2), m.SetoranTotal.StringFixed(2),
			m.PencairanCount, m.PencairanTotal.StringFixed(2))
	}
	return out, nil
}

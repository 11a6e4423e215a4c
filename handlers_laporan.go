package main

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"banksampah/models"
	"banksampah/pkg/ledger"
	"banksampah/pkg/report"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// exportLaporanHandler streams an xlsx of setoran or pencairan. Read only.
func (s *server) exportLaporanHandler(c *gin.Context) {
	kind := c.DefaultQuery("type", report.KindSetoran)
	if !report.ValidKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be setoran or pencairan"})
		return
	}
	from, to, err := report.ParsePeriod(c.Query("start_date"), c.Query("end_date"), time.Local)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	actor := actorFrom(c)
	filter := ledger.Filter{From: from, To: to}

	var f *excelize.File
	if kind == report.KindSetoran {
		rows, err := s.ledger.Deposits(ctx, actor, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		f, err = report.Setoran(rows, time.Local)
		if err != nil {
			respondError(c, err)
			return
		}
	} else {
		rows, err := s.ledger.Withdrawals(ctx, actor, filter)
		if err != nil {
			respondError(c, err)
			return
		}
		f, err = report.Pencairan(rows, time.Local)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, f); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", report.FileName(kind, s.now())))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

// summaryLaporanHandler returns monthly totals of validated setoran and
// approved pencairan within the optional period.
func (s *server) summaryLaporanHandler(c *gin.Context) {
	from, to, err := report.ParsePeriod(c.Query("start_date"), c.Query("end_date"), time.Local)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	actor := actorFrom(c)
	setoran, err := s.ledger.Deposits(ctx, actor, ledger.Filter{Status: models.SetoranValidated, From: from, To: to})
	if err != nil {
		respondError(c, err)
		return
	}
	pencairan, err := s.ledger.Withdrawals(ctx, actor, ledger.Filter{Status: models.PencairanApproved, From: from, To: to})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": report.Summarize(setoran, pencairan, time.Local)})
}

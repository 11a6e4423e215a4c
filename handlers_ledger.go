package main

import (
	"net/http"

	"banksampah/pkg/ledger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (s *server) createSetoranHandler(c *gin.Context) {
	var req struct {
		JenisSampah string `json:"jenis_sampah"`
		Metode      string `json:"metode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := s.ledger.CreateDeposit(c.Request.Context(), actorFrom(c), req.JenisSampah, req.Metode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "setoran created", "setoran": d})
}

func (s *server) listSetoranHandler(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	list, err := s.ledger.Deposits(c.Request.Context(), actorFrom(c), ledger.Filter{
		Status: c.Query("status"),
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"setoran": list})
}

// validateSetoranHandler prices a pending setoran and credits the member.
func (s *server) validateSetoranHandler(c *gin.Context) {
	var req struct {
		BeratSampah decimal.Decimal `json:"berat_sampah"`
		HargaPerKg  decimal.Decimal `json:"harga_per_kg"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := s.ledger.ValidateDeposit(c.Request.Context(), actorFrom(c), c.Param("id"), req.BeratSampah, req.HargaPerKg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "setoran validated", "setoran": d})
}

func (s *server) requestPencairanHandler(c *gin.Context) {
	var req struct {
		Nominal decimal.Decimal `json:"nominal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, err := s.ledger.RequestWithdrawal(c.Request.Context(), actorFrom(c), req.Nominal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "pencairan requested", "pencairan": w})
}

func (s *server) listPencairanHandler(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	list, err := s.ledger.Withdrawals(c.Request.Context(), actorFrom(c), ledger.Filter{
		Status: c.Query("status"),
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pencairan": list})
}

// decidePencairanHandler approves or rejects; body {"status": "approved"|"rejected", "catatan": "..."}.
func (s *server) decidePencairanHandler(c *gin.Context) {
	var req struct {
		Status  string  `json:"status"`
		Catatan *string `json:"catatan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, err := s.ledger.DecideWithdrawal(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status, req.Catatan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pencairan " + w.Status, "pencairan": w})
}

func (s *server) saldoHandler(c *gin.Context) {
	b, err := s.ledger.Balance(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"saldo": b})
}

func (s *server) reconcileHandler(c *gin.Context) {
	rec, err := s.ledger.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": rec, "consistent": rec.Consistent()})
}

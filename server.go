package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"banksampah/config"
	"banksampah/pkg/backup"
	"banksampah/pkg/imgproc"
	"banksampah/pkg/ledger"
	"banksampah/pkg/logger"
	"banksampah/pkg/report"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	errNotFound = errors.New("not found")
	errInUse    = errors.New("still referenced")
)

type server struct {
	db     *gorm.DB
	cfg    *config.Config
	ledger *ledger.Service
	now    func() time.Time
}

func newServer(db *gorm.DB, cfg *config.Config, store ledger.Store) *server {
	return &server{
		db:     db,
		cfg:    cfg,
		ledger: ledger.NewService(store),
		now:    time.Now,
	}
}

// respondError maps domain errors to status codes. Unclassified errors are
// logged and reported as 500 without detail.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, backup.ErrInvalid),
		errors.Is(err, report.ErrBadPeriod),
		errors.Is(err, imgproc.ErrUnsupported):
		status = http.StatusBadRequest
	case errors.Is(err, errInvalidCredentials), errors.Is(err, errInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, ledger.ErrDepositNotFound),
		errors.Is(err, ledger.ErrWithdrawalNotFound),
		errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyProcessed),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, errEmailTaken),
		errors.Is(err, errInUse),
		errors.Is(err, gorm.ErrDuplicatedKey):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed",
			logger.String("path", c.FullPath()),
			logger.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	body := gin.H{"error": err.Error()}
	var ve *backup.ValidationError
	if errors.As(err, &ve) {
		body["problems"] = ve.Problems
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

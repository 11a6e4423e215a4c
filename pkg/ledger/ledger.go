// Package ledger owns member saldo. Saldo only changes when a setoran is
// validated (credit) or a pencairan is approved (debit), and each of those
// changes is applied in the same unit of work as the status transition that
// causes it.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"banksampah/models"
	"banksampah/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// moneyScale is the number of decimal places kept for weights, prices and saldo.
const moneyScale = 2

// Actor is the verified identity behind a call, as produced by the auth middleware.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) hasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Staff reports whether the actor may validate setoran and decide pencairan.
func (a Actor) Staff() bool {
	return a.hasRole(models.RoleAdmin, models.RolePengelola)
}

// Reconciliation compares stored saldo with the value derived from history.
type Reconciliation struct {
	UserID   string          `json:"user_id"`
	Stored   decimal.Decimal `json:"stored"`
	Credited decimal.Decimal `json:"credited"`
	Debited  decimal.Decimal `json:"debited"`
	Derived  decimal.Decimal `json:"derived"`
	Drift    decimal.Decimal `json:"drift"`
}

// Consistent reports whether stored saldo matches history.
func (r Reconciliation) Consistent() bool {
	return r.Drift.IsZero()
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateDeposit records a pending setoran for the calling member.
func (s *Service) CreateDeposit(ctx context.Context, actor Actor, jenisSampah, metode string) (*models.Setoran, error) {
	if !actor.hasRole(models.RolePengguna) {
		return nil, ErrForbidden
	}
	jenisSampah = strings.TrimSpace(jenisSampah)
	if jenisSampah == "" {
		return nil, fmt.Errorf("%w: jenis_sampah is required", ErrInvalidInput)
	}
	metode = strings.TrimSpace(metode)
	if !models.ValidMetode(metode) {
		return nil, fmt.Errorf("%w: metode must be %q or %q", ErrInvalidInput, models.MetodePickUp, models.MetodeDropOff)
	}
	d := &models.Setoran{
		ID:           uuid.NewString(),
		UserID:       actor.UserID,
		JenisSampah:  jenisSampah,
		Metode:       metode,
		Status:       models.SetoranPending,
		TanggalSetor: s.now(),
	}
	err := s.store.Atomic(ctx, func(tx Tx) error {
		if _, err := tx.LockBalance(actor.UserID); err != nil {
			return err
		}
		return tx.InsertDeposit(d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ValidateDeposit prices a pending setoran and credits its owner with
// weight × pricePerKg. A second call for the same setoran fails with
// ErrAlreadyProcessed and credits nothing.
func (s *Service) ValidateDeposit(ctx context.Context, actor Actor, id string, weight, pricePerKg decimal.Decimal) (*models.Setoran, error) {
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	weight = weight.Round(moneyScale)
	pricePerKg = pricePerKg.Round(moneyScale)
	if !weight.IsPositive() {
		return nil, fmt.Errorf("%w: berat_sampah must be positive", ErrInvalidInput)
	}
	if !pricePerKg.IsPositive() {
		return nil, fmt.Errorf("%w: harga_per_kg must be positive", ErrInvalidInput)
	}
	v := Validation{
		Weight:      weight,
		PricePerKg:  pricePerKg,
		Total:       DepositTotal(weight, pricePerKg),
		ValidatorID: actor.UserID,
		At:          s.now(),
	}

	var out *models.Setoran
	var saldo decimal.Decimal
	err := s.store.Atomic(ctx, func(tx Tx) error {
		d, err := tx.MarkDepositValidated(id, v)
		if err != nil {
			return err
		}
		saldo, err = tx.AdjustBalance(d.UserID, v.Total)
		if err != nil {
			return fmt.Errorf("credit saldo: %w", err)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("setoran validated",
		logger.String("setoran_id", out.ID),
		logger.String("user_id", out.UserID),
		logger.String("pengelola_id", actor.UserID),
		logger.String("total", v.Total.StringFixed(moneyScale)),
		logger.String("saldo", saldo.StringFixed(moneyScale)),
	)
	return out, nil
}

// RequestWithdrawal creates a pending pencairan for the calling member. The
// nominal must be covered by saldo at request time; nothing is reserved.
func (s *Service) RequestWithdrawal(ctx context.Context, actor Actor, nominal decimal.Decimal) (*models.Pencairan, error) {
	if !actor.hasRole(models.RolePengguna) {
		return nil, ErrForbidden
	}
	nominal = nominal.Round(moneyScale)
	if !nominal.IsPositive() {
		return nil, fmt.Errorf("%w: nominal must be positive", ErrInvalidInput)
	}
	w := &models.Pencairan{
		ID:             uuid.NewString(),
		UserID:         actor.UserID,
		Nominal:        nominal,
		Status:         models.PencairanPending,
		TanggalRequest: s.now(),
	}
	err := s.store.Atomic(ctx, func(tx Tx) error {
		saldo, err := tx.LockBalance(actor.UserID)
		if err != nil {
			return err
		}
		if saldo.LessThan(nominal) {
			return fmt.Errorf("%w: %w: saldo %s < nominal %s", ErrInvalidInput, ErrInsufficientBalance,
				saldo.StringFixed(moneyScale), nominal.StringFixed(moneyScale))
		}
		return tx.InsertWithdrawal(w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// DecideWithdrawal approves or rejects a pending pencairan. Approval debits
// the owner's saldo in the same unit of work; if saldo no longer covers the
// nominal the whole decision is rolled back with ErrInsufficientBalance.
func (s *Service) DecideWithdrawal(ctx context.Context, actor Actor, id, status string, note *string) (*models.Pencairan, error) {
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	if status != models.PencairanApproved && status != models.PencairanRejected {
		return nil, fmt.Errorf("%w: status must be %q or %q", ErrInvalidInput, models.PencairanApproved, models.PencairanRejected)
	}
	if note != nil {
		trimmed := strings.TrimSpace(*note)
		if trimmed == "" {
			note = nil
		} else {
			note = &trimmed
		}
	}
	d := Decision{Status: status, ApproverID: actor.UserID, Note: note, At: s.now()}

	var out *models.Pencairan
	err := s.store.Atomic(ctx, func(tx Tx) error {
		w, err := tx.MarkWithdrawalDecided(id, d)
		if err != nil {
			return err
		}
		if status == models.PencairanApproved {
			if _, err := tx.AdjustBalance(w.UserID, w.Nominal.Neg()); err != nil {
				return fmt.Errorf("debit saldo: %w", err)
			}
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("pencairan decided",
		logger.String("pencairan_id", out.ID),
		logger.String("user_id", out.UserID),
		logger.String("status", status),
		logger.String("nominal", out.Nominal.StringFixed(moneyScale)),
	)
	return out, nil
}

// Balance returns the stored saldo of a user.
func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if err := checkID(userID); err != nil {
		return decimal.Zero, err
	}
	return s.store.Balance(ctx, userID)
}

// Reconcile compares stored saldo with Σ validated totals − Σ approved nominals.
func (s *Service) Reconcile(ctx context.Context, userID string) (Reconciliation, error) {
	if err := checkID(userID); err != nil {
		return Reconciliation{}, err
	}
	stored, err := s.store.Balance(ctx, userID)
	if err != nil {
		return Reconciliation{}, err
	}
	credited, debited, err := s.store.Totals(ctx, userID)
	if err != nil {
		return Reconciliation{}, err
	}
	derived := credited.Sub(debited)
	return Reconciliation{
		UserID:   userID,
		Stored:   stored,
		Credited: credited,
		Debited:  debited,
		Derived:  derived,
		Drift:    stored.Sub(derived),
	}, nil
}

// Deposits lists setoran. Members only ever see their own.
func (s *Service) Deposits(ctx context.Context, actor Actor, f Filter) ([]models.Setoran, error) {
	if !actor.Staff() {
		f.UserID = actor.UserID
	}
	f.Status = normalizeStatus(f.Status)
	if f.Status != "" && f.Status != models.SetoranPending && f.Status != models.SetoranValidated {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.store.Deposits(ctx, f)
}

// Withdrawals lists pencairan. Members only ever see their own.
func (s *Service) Withdrawals(ctx context.Context, actor Actor, f Filter) ([]models.Pencairan, error) {
	if !actor.Staff() {
		f.UserID = actor.UserID
	}
	f.Status = normalizeStatus(f.Status)
	switch f.Status {
	case "", models.PencairanPending, models.PencairanApproved, models.PencairanRejected:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.store.Withdrawals(ctx, f)
}

// statusAll is accepted by listings as an explicit "no status filter".
const statusAll = "all"

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == statusAll {
		return ""
	}
	return s
}

// DepositTotal is weight × price rounded to the money scale.
func DepositTotal(weight, pricePerKg decimal.Decimal) decimal.Decimal {
	return weight.Mul(pricePerKg).Round(moneyScale)
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed id %q", ErrInvalidInput, id)
	}
	return nil
}

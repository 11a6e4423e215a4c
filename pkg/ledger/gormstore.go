package ledger

import (
	"context"
	"errors"
	"fmt"

	"banksampah/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps the ledger in the application database. Atomic maps to a
// database transaction; status transitions and saldo changes are single
// conditional UPDATE statements.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (g *GormStore) Deposit(ctx context.Context, id string) (*models.Setoran, error) {
	var d models.Setoran
	err := g.db.WithContext(ctx).Preload("User", userSummary).Preload("Pengelola", userSummary).
		Where("id = ?", id).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDepositNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch setoran: %w", err)
	}
	return &d, nil
}

func (g *GormStore) Withdrawal(ctx context.Context, id string) (*models.Pencairan, error) {
	var w models.Pencairan
	err := g.db.WithContext(ctx).Preload("User", userSummary).Preload("Pengelola", userSummary).
		Where("id = ?", id).Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch pencairan: %w", err)
	}
	return &w, nil
}

func (g *GormStore) Deposits(ctx context.Context, f Filter) ([]models.Setoran, error) {
	q := g.db.WithContext(ctx).Model(&models.Setoran{}).
		Preload("User", userSummary).Preload("Pengelola", userSummary)
	q = applyFilter(q, f, "tanggal_setor")
	var out []models.Setoran
	if err := q.Order("tanggal_setor desc").Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list setoran: %w", err)
	}
	return out, nil
}

func (g *GormStore) Withdrawals(ctx context.Context, f Filter) ([]models.Pencairan, error) {
	q := g.db.WithContext(ctx).Model(&models.Pencairan{}).
		Preload("User", userSummary).Preload("Pengelola", userSummary)
	q = applyFilter(q, f, "tanggal_request")
	var out []models.Pencairan
	if err := q.Order("tanggal_request desc").Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list pencairan: %w", err)
	}
	return out, nil
}

func (g *GormStore) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var u models.User
	err := g.db.WithContext(ctx).Select("id", "saldo").Where("id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch saldo: %w", err)
	}
	return u.Saldo, nil
}

func (g *GormStore) Totals(ctx context.Context, userID string) (decimal.Decimal, decimal.Decimal, error) {
	db := g.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return decimal.Zero, decimal.Zero, ErrUserNotFound
	}
	var credited, debited decimal.Decimal
	if err := db.Model(&models.Setoran{}).Select("COALESCE(SUM(total_harga), 0)").
		Where("user_id = ? AND status = ?", userID, models.SetoranValidated).Row().Scan(&credited); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum setoran: %w", err)
	}
	if err := db.Model(&models.Pencairan{}).Select("COALESCE(SUM(nominal), 0)").
		Where("user_id = ? AND status = ?", userID, models.PencairanApproved).Row().Scan(&debited); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum pencairan: %w", err)
	}
	return credited, debited, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockBalance(userID string) (decimal.Decimal, error) {
	var u models.User
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "saldo").Where("id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock saldo: %w", err)
	}
	return u.Saldo, nil
}

func (t *gormTx) AdjustBalance(userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	q := t.db.Model(&models.User{}).Where("id = ?", userID)
	if delta.IsNegative() {
		q = q.Where("saldo + ? >= 0", delta)
	}
	res := q.Update("saldo", gorm.Expr("saldo + ?", delta))
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("update saldo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := t.db.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return decimal.Zero, fmt.Errorf("count user: %w", err)
		}
		if n == 0 {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, ErrInsufficientBalance
	}
	var u models.User
	if err := t.db.Select("id", "saldo").Where("id = ?", userID).Take(&u).Error; err != nil {
		return decimal.Zero, fmt.Errorf("read saldo: %w", err)
	}
	return u.Saldo, nil
}

func (t *gormTx) InsertDeposit(d *models.Setoran) error {
	if err := t.db.Omit(clause.Associations).Create(d).Error; err != nil {
		return fmt.Errorf("insert setoran: %w", err)
	}
	return nil
}

func (t *gormTx) InsertWithdrawal(w *models.Pencairan) error {
	if err := t.db.Omit(clause.Associations).Create(w).Error; err != nil {
		return fmt.Errorf("insert pencairan: %w", err)
	}
	return nil
}

func (t *gormTx) MarkDepositValidated(id string, v Validation) (*models.Setoran, error) {
	res := t.db.Model(&models.Setoran{}).
		Where("id = ? AND status = ?", id, models.SetoranPending).
		Updates(map[string]any{
			"status":           models.SetoranValidated,
			"berat_sampah":     v.Weight,
			"harga_per_kg":     v.PricePerKg,
			"total_harga":      v.Total,
			"pengelola_id":     v.ValidatorID,
			"tanggal_validasi": v.At,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("validate setoran: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, t.missOrConflict(&models.Setoran{}, id, ErrDepositNotFound)
	}
	var d models.Setoran
	if err := t.db.Where("id = ?", id).Take(&d).Error; err != nil {
		return nil, fmt.Errorf("reload setoran: %w", err)
	}
	return &d, nil
}

func (t *gormTx) MarkWithdrawalDecided(id string, dec Decision) (*models.Pencairan, error) {
	res := t.db.Model(&models.Pencairan{}).
		Where("id = ? AND status = ?", id, models.PencairanPending).
		Updates(map[string]any{
			"status":            dec.Status,
			"pengelola_id":      dec.ApproverID,
			"tanggal_pencairan": dec.At,
			"catatan":           dec.Note,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("decide pencairan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, t.missOrConflict(&models.Pencairan{}, id, ErrWithdrawalNotFound)
	}
	var w models.Pencairan
	if err := t.db.Where("id = ?", id).Take(&w).Error; err != nil {
		return nil, fmt.Errorf("reload pencairan: %w", err)
	}
	return &w, nil
}

// missOrConflict explains a conditional update that matched no rows.
func (t *gormTx) missOrConflict(model any, id string, notFound error) error {
	var n int64
	if err := t.db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("count %T: %w", model, err)
	}
	if n == 0 {
		return notFound
	}
	return ErrAlreadyProcessed
}

func userSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "nama_lengkap", "email", "no_hp", "role")
}

func applyFilter(q *gorm.DB, f Filter, dateColumn string) *gorm.DB {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where(dateColumn+" >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where(dateColumn+" < ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

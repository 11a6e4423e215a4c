package ledger

import (
	"context"
	"time"

	"banksampah/models"

	"github.com/shopspring/decimal"
)

// Filter narrows setoran/pencairan listings. Zero values mean "any".
type Filter struct {
	UserID string
	Status string
	From   time.Time // inclusive
	To     time.Time // exclusive
	Limit  int
}

// Validation carries the values written when a setoran is validated.
type Validation struct {
	Weight      decimal.Decimal
	PricePerKg  decimal.Decimal
	Total       decimal.Decimal
	ValidatorID string
	At          time.Time
}

// Decision carries the values written when a pencairan is approved or rejected.
type Decision struct {
	Status     string
	ApproverID string
	Note       *string
	At         time.Time
}

// Store is the persistence boundary of the ledger. Reads may run outside a
// transaction; every mutation goes through Atomic.
type Store interface {
	// Atomic runs fn in a single unit of work. If fn returns an error
	// nothing it did is kept.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	Deposit(ctx context.Context, id string) (*models.Setoran, error)
	Withdrawal(ctx context.Context, id string) (*models.Pencairan, error)
	Deposits(ctx context.Context, f Filter) ([]models.Setoran, error)
	Withdrawals(ctx context.Context, f Filter) ([]models.Pencairan, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)

	// Totals returns the sum of validated setoran totals and the sum of
	// approved pencairan nominals for a user.
	Totals(ctx context.Context, userID string) (credited, debited decimal.Decimal, err error)
}

// Tx is the set of mutations available inside Store.Atomic. Each method is a
// single conditional statement against the store.
type Tx interface {
	// LockBalance reads saldo while holding the user row for the rest of the unit.
	LockBalance(userID string) (decimal.Decimal, error)

	// AdjustBalance applies saldo = saldo + delta and returns the new saldo.
	// A negative delta fails with ErrInsufficientBalance rather than
	// driving saldo below zero.
	AdjustBalance(userID string, delta decimal.Decimal) (decimal.Decimal, error)

	InsertDeposit(d *models.Setoran) error
	InsertWithdrawal(w *models.Pencairan) error

	// MarkDepositValidated moves a pending setoran to validated. It fails with
	// ErrDepositNotFound or ErrAlreadyProcessed when no pending row matched.
	MarkDepositValidated(id string, v Validation) (*models.Setoran, error)

	// MarkWithdrawalDecided moves a pending pencairan to d.Status. It fails
	// with ErrWithdrawalNotFound or ErrAlreadyProcessed when no pending row matched.
	MarkWithdrawalDecided(id string, d Decision) (*models.Pencairan, error)
}

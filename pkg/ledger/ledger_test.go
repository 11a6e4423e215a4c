package ledger

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"banksampah/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store    *MemoryStore
	svc      *Service
	member   Actor
	operator Actor
	admin    Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := NewMemoryStore()
	f := &fixture{
		store:    st,
		svc:      NewService(st),
		member:   Actor{UserID: uuid.NewString(), Role: models.RolePengguna},
		operator: Actor{UserID: uuid.NewString(), Role: models.RolePengelola},
		admin:    Actor{UserID: uuid.NewString(), Role: models.RoleAdmin},
	}
	st.AddUser(f.member.UserID, decimal.Zero)
	st.AddUser(f.operator.UserID, decimal.Zero)
	st.AddUser(f.admin.UserID, decimal.Zero)
	return f
}

func (f *fixture) deposit(t *testing.T) *models.Setoran {
	t.Helper()
	d, err := f.svc.CreateDeposit(context.Background(), f.member, "Plastik", models.MetodePickUp)
	if err != nil {
		t.Fatalf("create setoran: %v", err)
	}
	return d
}

func (f *fixture) saldo(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	b, err := f.svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func assertSaldo(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("saldo = %s, want %s", got, want)
	}
}

func TestScenarioDepositsThenFullWithdrawal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	d1 := f.deposit(t)
	v1, err := f.svc.ValidateDeposit(ctx, f.operator, d1.ID, dec("10"), dec("2000"))
	if err != nil {
		t.Fatalf("validate 1: %v", err)
	}
	if !v1.TotalHarga.Valid || !v1.TotalHarga.Decimal.Equal(dec("20000")) {
		t.Fatalf("total = %v, want 20000", v1.TotalHarga)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "20000")

	d2 := f.deposit(t)
	if _, err := f.svc.ValidateDeposit(ctx, f.admin, d2.ID, dec("5"), dec("2000")); err != nil {
		t.Fatalf("validate 2: %v", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "30000")

	w, err := f.svc.RequestWithdrawal(ctx, f.member, dec("30000"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if w.Status != models.PencairanPending {
		t.Fatalf("status = %s, want pending", w.Status)
	}
	// requesting does not reserve anything
	assertSaldo(t, f.saldo(t, f.member.UserID), "30000")

	if _, err := f.svc.DecideWithdrawal(ctx, f.operator, w.ID, models.PencairanApproved, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "0")

	_, err = f.svc.DecideWithdrawal(ctx, f.operator, w.ID, models.PencairanApproved, nil)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("second approve err = %v, want ErrAlreadyProcessed", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "0")

	rec, err := f.svc.Reconcile(ctx, f.member.UserID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !rec.Consistent() {
		t.Fatalf("reconcile drift %s (stored %s derived %s)", rec.Drift, rec.Stored, rec.Derived)
	}
}

func TestValidateTwiceCreditsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.deposit(t)

	if _, err := f.svc.ValidateDeposit(ctx, f.operator, d.ID, dec("3"), dec("1500")); err != nil {
		t.Fatalf("validate: %v", err)
	}
	_, err := f.svc.ValidateDeposit(ctx, f.operator, d.ID, dec("3"), dec("1500"))
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("err = %v, want ErrAlreadyProcessed", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "4500")
}

func TestConcurrentValidationCreditsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.deposit(t)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflicts int
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.ValidateDeposit(ctx, f.operator, d.ID, dec("2.5"), dec("4000"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyProcessed):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if ok != 1 || conflicts != callers-1 {
		t.Fatalf("ok=%d conflicts=%d, want 1 and %d", ok, conflicts, callers-1)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "10000")
}

func TestConcurrentApprovalDebitsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddUser(f.member.UserID, dec("50000"))
	w, err := f.svc.RequestWithdrawal(ctx, f.member, dec("20000"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.DecideWithdrawal(ctx, f.operator, w.ID, models.PencairanApproved, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrAlreadyProcessed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d approvals succeeded, want 1", ok)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "30000")
}

func TestRejectLeavesSaldo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddUser(f.member.UserID, dec("12000"))
	w, err := f.svc.RequestWithdrawal(ctx, f.member, dec("10000"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	note := "  rekening tidak valid "
	got, err := f.svc.DecideWithdrawal(ctx, f.operator, w.ID, models.PencairanRejected, &note)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.PencairanRejected || got.Catatan == nil || *got.Catatan != "rekening tidak valid" {
		t.Fatalf("unexpected pencairan after reject: %+v", got)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "12000")

	_, err = f.svc.DecideWithdrawal(ctx, f.operator, w.ID, models.PencairanApproved, nil)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("approve after reject err = %v, want ErrAlreadyProcessed", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "12000")
}

func TestRequestAboveSaldoIsValidationError(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser(f.member.UserID, dec("5000"))
	_, err := f.svc.RequestWithdrawal(context.Background(), f.member, dec("5000.01"))
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInvalidInput wrapping ErrInsufficientBalance", err)
	}
	list, _ := f.svc.Withdrawals(context.Background(), f.member, Filter{})
	if len(list) != 0 {
		t.Fatalf("%d pencairan created, want 0", len(list))
	}
}

func TestApprovalNeverDrivesSaldoNegative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddUser(f.member.UserID, dec("10000"))

	// both requests are individually covered at request time
	w1, err := f.svc.RequestWithdrawal(ctx, f.member, dec("8000"))
	if err != nil {
		t.Fatalf("request 1: %v", err)
	}
	w2, err := f.svc.RequestWithdrawal(ctx, f.member, dec("8000"))
	if err != nil {
		t.Fatalf("request 2: %v", err)
	}
	if _, err := f.svc.DecideWithdrawal(ctx, f.operator, w1.ID, models.PencairanApproved, nil); err != nil {
		t.Fatalf("approve 1: %v", err)
	}
	_, err = f.svc.DecideWithdrawal(ctx, f.operator, w2.ID, models.PencairanApproved, nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("approve 2 err = %v, want ErrInsufficientBalance", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "2000")

	// the failed approval rolled back its status change too
	got, err := f.store.Withdrawal(ctx, w2.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Status != models.PencairanPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
}

func TestRoleChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.deposit(t)

	if _, err := f.svc.CreateDeposit(ctx, f.operator, "Kertas", models.MetodeDropOff); !errors.Is(err, ErrForbidden) {
		t.Fatalf("operator create setoran err = %v", err)
	}
	if _, err := f.svc.ValidateDeposit(ctx, f.member, d.ID, dec("1"), dec("1")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member validate err = %v", err)
	}
	if _, err := f.svc.RequestWithdrawal(ctx, f.admin, dec("1")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin request err = %v", err)
	}
	if _, err := f.svc.DecideWithdrawal(ctx, f.member, uuid.NewString(), models.PencairanApproved, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member decide err = %v", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "0")
}

func TestInputValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.deposit(t)

	cases := []struct {
		name string
		err  error
	}{
		{"empty jenis", func() error { _, err := f.svc.CreateDeposit(ctx, f.member, "  ", models.MetodePickUp); return err }()},
		{"bad metode", func() error { _, err := f.svc.CreateDeposit(ctx, f.member, "Plastik", "kurir"); return err }()},
		{"zero weight", func() error { _, err := f.svc.ValidateDeposit(ctx, f.operator, d.ID, dec("0"), dec("100")); return err }()},
		{"negative price", func() error { _, err := f.svc.ValidateDeposit(ctx, f.operator, d.ID, dec("1"), dec("-5")); return err }()},
		{"malformed id", func() error { _, err := f.svc.ValidateDeposit(ctx, f.operator, "42", dec("1"), dec("1")); return err }()},
		{"zero nominal", func() error { _, err := f.svc.RequestWithdrawal(ctx, f.member, decimal.Zero); return err }()},
		{"bad decision", func() error {
			_, err := f.svc.DecideWithdrawal(ctx, f.operator, uuid.NewString(), "pending", nil)
			return err
		}()},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", tc.name, tc.err)
		}
	}

	if _, err := f.svc.ValidateDeposit(ctx, f.operator, uuid.NewString(), dec("1"), dec("1")); !errors.Is(err, ErrDepositNotFound) {
		t.Fatalf("unknown setoran err = %v", err)
	}
	if _, err := f.svc.DecideWithdrawal(ctx, f.operator, uuid.NewString(), models.PencairanRejected, nil); !errors.Is(err, ErrWithdrawalNotFound) {
		t.Fatalf("unknown pencairan err = %v", err)
	}
}

func TestMembersOnlySeeOwnRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := Actor{UserID: uuid.NewString(), Role: models.RolePengguna}
	f.store.AddUser(other.UserID, decimal.Zero)

	f.deposit(t)
	if _, err := f.svc.CreateDeposit(ctx, other, "Logam", models.MetodeDropOff); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := f.svc.Deposits(ctx, f.member, Filter{UserID: other.UserID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].UserID != f.member.UserID {
		t.Fatalf("member listing leaked records: %+v", mine)
	}
	all, _ := f.svc.Deposits(ctx, f.operator, Filter{})
	if len(all) != 2 {
		t.Fatalf("operator sees %d setoran, want 2", len(all))
	}
	if all, err := f.svc.Deposits(ctx, f.operator, Filter{Status: "all"}); err != nil || len(all) != 2 {
		t.Fatalf("status all: %d setoran, err %v", len(all), err)
	}
	if _, err := f.svc.Withdrawals(ctx, f.operator, Filter{Status: "all"}); err != nil {
		t.Fatalf("withdrawals status all: %v", err)
	}
	if _, err := f.svc.Deposits(ctx, f.operator, Filter{Status: "done"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad status filter err = %v", err)
	}
}

// TestRandomSequencesKeepSaldoConsistent drives a random mix of operations and checks
// saldo == Σ validated totals − Σ approved nominals after every step.
func TestRandomSequencesKeepSaldoConsistent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rng := rand.New(rand.NewSource(7))

	var pendingDeposits, pendingWithdrawals []string
	for step := 0; step < 400; step++ {
		switch rng.Intn(4) {
		case 0:
			d := f.deposit(t)
			pendingDeposits = append(pendingDeposits, d.ID)
		case 1:
			if len(pendingDeposits) == 0 {
				continue
			}
			id := pendingDeposits[rng.Intn(len(pendingDeposits))]
			w := decimal.New(int64(rng.Intn(500)+1), -1)
			p := decimal.New(int64(rng.Intn(3000)+500), 0)
			_, err := f.svc.ValidateDeposit(ctx, f.operator, id, w, p)
			if err != nil && !errors.Is(err, ErrAlreadyProcessed) {
				t.Fatalf("step %d validate: %v", step, err)
			}
		case 2:
			saldo := f.saldo(t, f.member.UserID)
			if !saldo.IsPositive() {
				continue
			}
			n := saldo.Mul(decimal.NewFromFloat(rng.Float64())).Round(2)
			w, err := f.svc.RequestWithdrawal(ctx, f.member, n)
			if err == nil {
				pendingWithdrawals = append(pendingWithdrawals, w.ID)
			} else if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("step %d request: %v", step, err)
			}
		case 3:
			if len(pendingWithdrawals) == 0 {
				continue
			}
			id := pendingWithdrawals[rng.Intn(len(pendingWithdrawals))]
			status := models.PencairanApproved
			if rng.Intn(3) == 0 {
				status = models.PencairanRejected
			}
			_, err := f.svc.DecideWithdrawal(ctx, f.operator, id, status, nil)
			if err != nil && !errors.Is(err, ErrAlreadyProcessed) && !errors.Is(err, ErrInsufficientBalance) {
				t.Fatalf("step %d decide: %v", step, err)
			}
		}

		rec, err := f.svc.Reconcile(ctx, f.member.UserID)
		if err != nil {
			t.Fatalf("step %d reconcile: %v", step, err)
		}
		if !rec.Consistent() {
			t.Fatalf("step %d: stored %s derived %s", step, rec.Stored, rec.Derived)
		}
		if rec.Stored.IsNegative() {
			t.Fatalf("step %d: negative saldo %s", step, rec.Stored)
		}
	}
}

func TestCancelledContextDoesNothing(t *testing.T) {
	f := newFixture(t)
	d := f.deposit(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.ValidateDeposit(ctx, f.operator, d.ID, dec("1"), dec("1000")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	assertSaldo(t, f.saldo(t, f.member.UserID), "0")
}

package ledger

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"banksampah/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is a Store kept in process memory. A single mutex serialises
// every unit of work, and a unit only becomes visible when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	balances    map[string]decimal.Decimal
	deposits    map[string]models.Setoran
	withdrawals map[string]models.Pencairan
}

func (s memState) clone() memState {
	return memState{
		balances:    maps.Clone(s.balances),
		deposits:    maps.Clone(s.deposits),
		withdrawals: maps.Clone(s.withdrawals),
	}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		balances:    make(map[string]decimal.Decimal),
		deposits:    make(map[string]models.Setoran),
		withdrawals: make(map[string]models.Pencairan),
	}}
}

// AddUser registers a user with an opening saldo.
func (m *MemoryStore) AddUser(userID string, saldo decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.balances[userID] = saldo
}

func (m *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) Deposit(ctx context.Context, id string) (*models.Setoran, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.state.deposits[id]
	if !ok {
		return nil, ErrDepositNotFound
	}
	return &d, nil
}

func (m *MemoryStore) Withdrawal(ctx context.Context, id string) (*models.Pencairan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.state.withdrawals[id]
	if !ok {
		return nil, ErrWithdrawalNotFound
	}
	return &w, nil
}

func (m *MemoryStore) Deposits(ctx context.Context, f Filter) ([]models.Setoran, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Setoran, 0, len(m.state.deposits))
	for _, d := range m.state.deposits {
		if !f.match(d.UserID, d.Status) || !f.inRange(d.TanggalSetor) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TanggalSetor.Equal(out[j].TanggalSetor) {
			return out[i].ID < out[j].ID
		}
		return out[i].TanggalSetor.After(out[j].TanggalSetor)
	})
	return limit(out, f.Limit), nil
}

func (m *MemoryStore) Withdrawals(ctx context.Context, f Filter) ([]models.Pencairan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Pencairan, 0, len(m.state.withdrawals))
	for _, w := range m.state.withdrawals {
		if !f.match(w.UserID, w.Status) || !f.inRange(w.TanggalRequest) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TanggalRequest.Equal(out[j].TanggalRequest) {
			return out[i].ID < out[j].ID
		}
		return out[i].TanggalRequest.After(out[j].TanggalRequest)
	})
	return limit(out, f.Limit), nil
}

func (m *MemoryStore) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.state.balances[userID]
	if !ok {
		return decimal.Zero, ErrUserNotFound
	}
	return b, nil
}

func (m *MemoryStore) Totals(ctx context.Context, userID string) (decimal.Decimal, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.balances[userID]; !ok {
		return decimal.Zero, decimal.Zero, ErrUserNotFound
	}
	credited, debited := decimal.Zero, decimal.Zero
	for _, d := range m.state.deposits {
		if d.UserID == userID && d.Status == models.SetoranValidated && d.TotalHarga.Valid {
			credited = credited.Add(d.TotalHarga.Decimal)
		}
	}
	for _, w := range m.state.withdrawals {
		if w.UserID == userID && w.Status == models.PencairanApproved {
			debited = debited.Add(w.Nominal)
		}
	}
	return credited, debited, nil
}

type memTx struct {
	st memState
}

func (t *memTx) LockBalance(userID string) (decimal.Decimal, error) {
	b, ok := t.st.balances[userID]
	if !ok {
		return decimal.Zero, ErrUserNotFound
	}
	return b, nil
}

func (t *memTx) AdjustBalance(userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	b, ok := t.st.balances[userID]
	if !ok {
		return decimal.Zero, ErrUserNotFound
	}
	next := b.Add(delta)
	if delta.IsNegative() && next.IsNegative() {
		return b, ErrInsufficientBalance
	}
	t.st.balances[userID] = next
	return next, nil
}

func (t *memTx) InsertDeposit(d *models.Setoran) error {
	if _, ok := t.st.balances[d.UserID]; !ok {
		return ErrUserNotFound
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, dup := t.st.deposits[d.ID]; dup {
		return fmt.Errorf("setoran %s already exists", d.ID)
	}
	t.st.deposits[d.ID] = *d
	return nil
}

func (t *memTx) InsertWithdrawal(w *models.Pencairan) error {
	if _, ok := t.st.balances[w.UserID]; !ok {
		return ErrUserNotFound
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if _, dup := t.st.withdrawals[w.ID]; dup {
		return fmt.Errorf("pencairan %s already exists", w.ID)
	}
	t.st.withdrawals[w.ID] = *w
	return nil
}

func (t *memTx) MarkDepositValidated(id string, v Validation) (*models.Setoran, error) {
	d, ok := t.st.deposits[id]
	if !ok {
		return nil, ErrDepositNotFound
	}
	if d.Status != models.SetoranPending {
		return nil, ErrAlreadyProcessed
	}
	at := v.At
	validator := v.ValidatorID
	d.Status = models.SetoranValidated
	d.BeratSampah = decimal.NewNullDecimal(v.Weight)
	d.HargaPerKg = decimal.NewNullDecimal(v.PricePerKg)
	d.TotalHarga = decimal.NewNullDecimal(v.Total)
	d.PengelolaID = &validator
	d.TanggalValidasi = &at
	t.st.deposits[id] = d
	return &d, nil
}

func (t *memTx) MarkWithdrawalDecided(id string, dec Decision) (*models.Pencairan, error) {
	w, ok := t.st.withdrawals[id]
	if !ok {
		return nil, ErrWithdrawalNotFound
	}
	if w.Status != models.PencairanPending {
		return nil, ErrAlreadyProcessed
	}
	at := dec.At
	approver := dec.ApproverID
	w.Status = dec.Status
	w.PengelolaID = &approver
	w.TanggalPencairan = &at
	w.Catatan = dec.Note
	t.st.withdrawals[id] = w
	return &w, nil
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

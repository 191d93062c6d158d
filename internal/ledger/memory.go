package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store with the same CAS and commit-boundary
// semantics as the Postgres backend. It backs the service tests and is
// handy for local experiments without a database.
type MemoryStore struct {
	mu sync.Mutex
	st memState
}

type memState struct {
	users        map[uint]models.User
	accounts     map[uint]models.Account
	transactions map[uint]models.Transaction
	approvals    []models.TransferApproval
	nextID       uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: memState{
		users:        map[uint]models.User{},
		accounts:     map[uint]models.Account{},
		transactions: map[uint]models.Transaction{},
	}}
}

func (st *memState) clone() memState {
	c := memState{
		users:        make(map[uint]models.User, len(st.users)),
		accounts:     make(map[uint]models.Account, len(st.accounts)),
		transactions: make(map[uint]models.Transaction, len(st.transactions)),
		approvals:    append([]models.TransferApproval(nil), st.approvals...),
		nextID:       st.nextID,
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	return c
}

func (st *memState) allocID() uint {
	st.nextID++
	return st.nextID
}

// AddUser and AddAccount are seeding helpers for tests.
func (s *MemoryStore) AddUser(u models.User) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.st.allocID()
	}
	s.st.users[u.ID] = u
	return u.ID
}

func (s *MemoryStore) AddAccount(a models.Account) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.st.allocID()
	}
	s.st.accounts[a.ID] = a
	return a.ID
}

// Approvals returns a copy of all audit entries, for assertions.
func (s *MemoryStore) Approvals() []models.TransferApproval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TransferApproval(nil), s.st.approvals...)
}

// Transactions returns a copy of all transaction records, for assertions.
func (s *MemoryStore) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, 0, len(s.st.transactions))
	for _, t := range s.st.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.userByID(id)
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.userByEmail(email)
}

func (s *MemoryStore) SetUserStatus(ctx context.Context, id uint, status models.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.setUserStatus(id, status)
}

func (s *MemoryStore) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.accountByID(id)
}

func (s *MemoryStore) AccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.accountByNumber(number)
}

func (s *MemoryStore) AccountsByUser(ctx context.Context, userID uint) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.accountsByUser(userID)
}

func (s *MemoryStore) SetAccountBalance(ctx context.Context, id uint, expected, next decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.setAccountBalance(id, expected, next)
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createTransaction(txn)
}

func (s *MemoryStore) TransactionByID(ctx context.Context, id uint) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.transactionByID(id)
}

func (s *MemoryStore) TransactionsByUser(ctx context.Context, userID uint, f TransactionFilter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.transactionsByUser(userID, f)
}

func (s *MemoryStore) PendingTransactions(ctx context.Context) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.pendingTransactions()
}

func (s *MemoryStore) MarkTransactionStatus(ctx context.Context, id uint, expected, next models.Status, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.markTransactionStatus(id, expected, next, fields)
}

func (s *MemoryStore) CreateApproval(ctx context.Context, a *models.TransferApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createApproval(a)
}

// WithTransaction serializes against all other writers, snapshots the
// state, and restores the snapshot if fn fails. fn receives a view that
// reuses the already-held lock.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&memTx{st: &s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// memTx is the in-transaction view; the MemoryStore mutex is held for its
// whole lifetime, so its methods call the unlocked state ops directly.
type memTx struct {
	st *memState
}

func (t *memTx) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return t.st.userByID(id)
}

func (t *memTx) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return t.st.userByEmail(email)
}

func (t *memTx) SetUserStatus(ctx context.Context, id uint, status models.UserStatus) error {
	return t.st.setUserStatus(id, status)
}

func (t *memTx) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	return t.st.accountByID(id)
}

func (t *memTx) AccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	return t.st.accountByNumber(number)
}

func (t *memTx) AccountsByUser(ctx context.Context, userID uint) ([]models.Account, error) {
	return t.st.accountsByUser(userID)
}

func (t *memTx) SetAccountBalance(ctx context.Context, id uint, expected, next decimal.Decimal) error {
	return t.st.setAccountBalance(id, expected, next)
}

func (t *memTx) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return t.st.createTransaction(txn)
}

func (t *memTx) TransactionByID(ctx context.Context, id uint) (*models.Transaction, error) {
	return t.st.transactionByID(id)
}

func (t *memTx) TransactionsByUser(ctx context.Context, userID uint, f TransactionFilter) ([]models.Transaction, error) {
	return t.st.transactionsByUser(userID, f)
}

func (t *memTx) PendingTransactions(ctx context.Context) ([]models.Transaction, error) {
	return t.st.pendingTransactions()
}

func (t *memTx) MarkTransactionStatus(ctx context.Context, id uint, expected, next models.Status, fields map[string]any) error {
	return t.st.markTransactionStatus(id, expected, next, fields)
}

func (t *memTx) CreateApproval(ctx context.Context, a *models.TransferApproval) error {
	return t.st.createApproval(a)
}

func (t *memTx) WithTransaction(ctx context.Context, fn func(Store) error) error {
	// Already inside the commit boundary; flatten.
	return fn(t)
}

func (st *memState) userByID(id uint) (*models.User, error) {
	u, ok := st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (st *memState) userByEmail(email string) (*models.User, error) {
	for _, u := range st.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (st *memState) setUserStatus(id uint, status models.UserStatus) error {
	u, ok := st.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	st.users[id] = u
	return nil
}

func (st *memState) accountByID(id uint) (*models.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (st *memState) accountByNumber(number string) (*models.Account, error) {
	for _, a := range st.accounts {
		if a.Number == number {
			a := a
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (st *memState) accountsByUser(userID uint) ([]models.Account, error) {
	var out []models.Account
	for _, a := range st.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *memState) setAccountBalance(id uint, expected, next decimal.Decimal) error {
	a, ok := st.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if !a.Balance.Equal(expected) {
		return ErrConcurrentModification
	}
	a.Balance = next
	st.accounts[id] = a
	return nil
}

func (st *memState) createTransaction(txn *models.Transaction) error {
	if txn.ID == 0 {
		txn.ID = st.allocID()
	}
	st.transactions[txn.ID] = *txn
	return nil
}

func (st *memState) transactionByID(id uint) (*models.Transaction, error) {
	txn, ok := st.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &txn, nil
}

func (st *memState) transactionsByUser(userID uint, f TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range st.transactions {
		if t.UserID != userID {
			continue
		}
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (st *memState) pendingTransactions() ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range st.transactions {
		if t.Status == models.StatusPending {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *memState) markTransactionStatus(id uint, expected, next models.Status, fields map[string]any) error {
	txn, ok := st.transactions[id]
	if !ok {
		return ErrNotFound
	}
	if txn.Status != expected {
		return ErrConcurrentModification
	}
	txn.Status = next
	for k, v := range fields {
		switch k {
		case "failure_reason":
			txn.FailureReason, _ = v.(string)
		case "completed_at":
			if ts, ok := v.(*time.Time); ok {
				txn.CompletedAt = ts
			}
		}
	}
	st.transactions[id] = txn
	return nil
}

func (st *memState) createApproval(a *models.TransferApproval) error {
	if a.ID == 0 {
		a.ID = st.allocID()
	}
	st.approvals = append(st.approvals, *a)
	return nil
}

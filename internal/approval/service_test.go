package approval

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/Officialbobos/hometownpas-sub000/internal/ledger"
	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/Officialbobos/hometownpas-sub000/internal/transfer"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Notify(ctx context.Context, to, subject, body string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return true
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return v
}

type bank struct {
	store     *ledger.MemoryStore
	transfers *transfer.Service
	approvals *Service
	notifier  *fakeNotifier

	admin   uint
	alice   uint
	bob     uint
	aliceUS uint // USD 500.00, number 1000000001
	aliceEU uint // EUR 200.00, number 2000000001
	bobUS   uint // USD 300.00, number 1000000003
}

func newBank(t *testing.T) *bank {
	t.Helper()
	st := ledger.NewMemoryStore()
	b := &bank{store: st, notifier: &fakeNotifier{}}

	b.admin = st.AddUser(models.User{Name: "Admin", Email: "admin@bank.local", Role: models.RoleAdmin, Status: models.UserActive})
	b.alice = st.AddUser(models.User{Name: "Alice", Email: "alice@test.com", Role: models.RoleCustomer, Status: models.UserActive})
	b.bob = st.AddUser(models.User{Name: "Bob", Email: "bob@test.com", Role: models.RoleCustomer, Status: models.UserActive})

	b.aliceUS = st.AddAccount(models.Account{UserID: b.alice, Number: "1000000001", Currency: "USD", Status: models.AccountActive, Balance: dec(t, "500.00")})
	b.aliceEU = st.AddAccount(models.Account{UserID: b.alice, Number: "2000000001", Currency: "EUR", Status: models.AccountActive, Balance: dec(t, "200.00")})
	b.bobUS = st.AddAccount(models.Account{UserID: b.bob, Number: "1000000003", Currency: "USD", Status: models.AccountActive, Balance: dec(t, "300.00")})

	b.transfers = transfer.NewService(st, b.notifier, []string{"USD", "EUR"}, 2)
	b.approvals = NewService(st, b.notifier, 2)
	return b
}

func (b *bank) balance(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	acc, err := b.store.AccountByID(context.Background(), id)
	if err != nil {
		t.Fatalf("AccountByID(%d): %v", id, err)
	}
	return acc.Balance
}

// initiate runs a transfer and returns the id of the PENDING record.
func (b *bank) initiate(t *testing.T, req transfer.Request) uint {
	t.Helper()
	res, err := b.transfers.Initiate(context.Background(), b.alice, req)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	for _, txn := range b.store.Transactions() {
		if txn.Reference == res.Reference {
			return txn.ID
		}
	}
	t.Fatalf("pending transaction %s not found", res.Reference)
	return 0
}

func TestResolveCompleteBankTransfer(t *testing.T) {
	t.Parallel()
	b := newBank(t)
	ctx := context.Background()

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "100.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})
	if got := b.balance(t, b.aliceUS); !got.Equal(dec(t, "400.00")) {
		t.Fatalf("after initiation: sender balance %s, want 400.00", got)
	}

	res, err := b.approvals.Resolve(ctx, b.admin, id, ActionComplete, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != models.StatusCompleted {
		t.Errorf("status: got %s, want COMPLETED", res.Status)
	}

	if got := b.balance(t, b.bobUS); !got.Equal(dec(t, "400.00")) {
		t.Errorf("recipient balance: got %s, want 400.00", got)
	}
	if got := b.balance(t, b.aliceUS); !got.Equal(dec(t, "400.00")) {
		t.Errorf("sender balance changed at resolution: %s", got)
	}

	txns := b.store.Transactions()
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want outbound + credit", len(txns))
	}
	orig, credit := txns[0], txns[1]
	if orig.Status != models.StatusCompleted {
		t.Errorf("original status: %s", orig.Status)
	}
	if orig.CompletedAt == nil {
		t.Error("original missing completion timestamp")
	}
	if credit.Type != models.TypeBankIn || credit.UserID != b.bob || credit.AccountID != b.bobUS {
		t.Errorf("credit record: type %s user %d account %d", credit.Type, credit.UserID, credit.AccountID)
	}
	if !credit.Amount.Equal(orig.Amount) {
		t.Errorf("credit amount %s != original %s", credit.Amount, orig.Amount)
	}
	if credit.LinkedReference != orig.Reference || credit.Reference != "CR-"+orig.Reference {
		t.Errorf("credit linkage: ref %q linked %q", credit.Reference, credit.LinkedReference)
	}

	approvals := b.store.Approvals()
	if len(approvals) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(approvals))
	}
	a := approvals[0]
	if a.TransactionID != id || a.AdminID != b.admin || a.ResultingStatus != models.StatusCompleted || a.Reason != "N/A" {
		t.Errorf("audit entry: %+v", a)
	}
}

func TestResolveRestrictRefundsSender(t *testing.T) {
	t.Parallel()
	b := newBank(t)
	ctx := context.Background()

	// EUR 200.00 account sends 50.00 via IBAN.
	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceEU, Method: models.MethodIBAN, Amount: "50.00",
		Recipient: transfer.Recipient{Name: "Hans", IBAN: "DE89370400440532013000", SWIFT: "DEUTDEFF"},
	})
	if got := b.balance(t, b.aliceEU); !got.Equal(dec(t, "150.00")) {
		t.Fatalf("after initiation: balance %s, want 150.00", got)
	}

	res, err := b.approvals.Resolve(ctx, b.admin, id, ActionRestrict, "compliance hold")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != models.StatusRejected {
		t.Errorf("status: got %s, want REJECTED", res.Status)
	}

	if got := b.balance(t, b.aliceEU); !got.Equal(dec(t, "200.00")) {
		t.Errorf("balance after refund: got %s, want 200.00", got)
	}

	txns := b.store.Transactions()
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want outbound + refund", len(txns))
	}
	orig, refund := txns[0], txns[1]
	if orig.Status != models.StatusRejected || orig.FailureReason != "compliance hold" {
		t.Errorf("original: status %s reason %q", orig.Status, orig.FailureReason)
	}
	if !orig.Amount.Equal(dec(t, "50.00")) {
		t.Errorf("original monetary fields mutated: amount %s", orig.Amount)
	}
	if refund.Type != models.TypeRefund || !refund.Amount.Equal(dec(t, "50.00")) || refund.Reference != "RF-"+orig.Reference {
		t.Errorf("refund record: %+v", refund)
	}

	approvals := b.store.Approvals()
	if len(approvals) != 1 || approvals[0].Reason != "compliance hold" {
		t.Errorf("audit entries: %+v", approvals)
	}
}

func TestResolveFailRefundsSender(t *testing.T) {
	t.Parallel()
	b := newBank(t)

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodSortCode, Amount: "75.00",
		Recipient: transfer.Recipient{Name: "Nigel", SortCode: "123456", AccountNumber: "12345678"},
	})

	res, err := b.approvals.Resolve(context.Background(), b.admin, id, ActionFail, "bounced")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != models.StatusFailed {
		t.Errorf("status: got %s, want FAILED", res.Status)
	}
	if got := b.balance(t, b.aliceUS); !got.Equal(dec(t, "500.00")) {
		t.Errorf("balance after refund: got %s, want 500.00", got)
	}
}

func TestResolveDeliverExternalOnly(t *testing.T) {
	t.Parallel()
	b := newBank(t)
	ctx := context.Background()

	internal := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "10.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})
	_, err := b.approvals.Resolve(ctx, b.admin, internal, ActionDeliver, "")
	if !errors.Is(err, ErrInvalidActionForMethod) {
		t.Fatalf("deliver on internal: got %v, want ErrInvalidActionForMethod", err)
	}
	txn, _ := b.store.TransactionByID(ctx, internal)
	if txn.Status != models.StatusPending {
		t.Errorf("internal transaction left %s, want PENDING", txn.Status)
	}
	if n := len(b.store.Approvals()); n != 0 {
		t.Errorf("audit entry written for rejected action: %d", n)
	}

	external := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodIBAN, Amount: "10.00",
		Recipient: transfer.Recipient{Name: "Hans", IBAN: "DE89370400440532013000", SWIFT: "DEUTDEFF"},
	})
	res, err := b.approvals.Resolve(ctx, b.admin, external, ActionDeliver, "wire confirmed")
	if err != nil {
		t.Fatalf("deliver on external: %v", err)
	}
	if res.Status != models.StatusDelivered {
		t.Errorf("status: got %s, want DELIVERED", res.Status)
	}
	// Deliver moves no money and writes no paired record.
	if got := b.balance(t, b.aliceUS); !got.Equal(dec(t, "480.00")) {
		t.Errorf("balance: got %s, want 480.00", got)
	}
	if n := len(b.store.Transactions()); n != 2 {
		t.Errorf("got %d transactions, want the two outbound records only", n)
	}
}

func TestResolveCompleteExternalNoSecondRecord(t *testing.T) {
	t.Parallel()
	b := newBank(t)

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodUSA, Amount: "30.00",
		Recipient: transfer.Recipient{Name: "Pat", RoutingNumber: "123456789", AccountNumber: "987654", AccountType: "Checking", Address: "1 Main St"},
	})

	res, err := b.approvals.Resolve(context.Background(), b.admin, id, ActionComplete, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != models.StatusCompleted {
		t.Errorf("status: %s", res.Status)
	}
	// Money left the system; no credit record, sender stays debited.
	if n := len(b.store.Transactions()); n != 1 {
		t.Errorf("got %d transactions, want 1", n)
	}
	if got := b.balance(t, b.aliceUS); !got.Equal(dec(t, "470.00")) {
		t.Errorf("balance: got %s, want 470.00", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()
	b := newBank(t)
	ctx := context.Background()

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "100.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})

	if _, err := b.approvals.Resolve(ctx, b.admin, id, ActionComplete, ""); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	bobBefore := b.balance(t, b.bobUS)
	txnsBefore := len(b.store.Transactions())
	auditBefore := len(b.store.Approvals())

	_, err := b.approvals.Resolve(ctx, b.admin, id, ActionComplete, "")
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("second resolve: got %v, want ErrNotPending", err)
	}
	// Same for a different action.
	_, err = b.approvals.Resolve(ctx, b.admin, id, ActionFail, "late change of heart")
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("conflicting resolve: got %v, want ErrNotPending", err)
	}

	if got := b.balance(t, b.bobUS); !got.Equal(bobBefore) {
		t.Errorf("balance mutated by duplicate resolution: %s", got)
	}
	if n := len(b.store.Transactions()); n != txnsBefore {
		t.Errorf("duplicate resolution created records: %d -> %d", txnsBefore, n)
	}
	if n := len(b.store.Approvals()); n != auditBefore {
		t.Errorf("duplicate resolution added audit entries: %d -> %d", auditBefore, n)
	}
}

// Only one of two concurrent resolvers may win; the loser observes the
// terminal status via the CAS.
func TestResolveConcurrentDuplicates(t *testing.T) {
	t.Parallel()
	b := newBank(t)
	ctx := context.Background()

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "20.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = b.approvals.Resolve(ctx, b.admin, id, ActionComplete, "")
		}(i)
	}
	wg.Wait()

	var wins, notPending int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrNotPending):
			notPending++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || notPending != 1 {
		t.Fatalf("got %d wins and %d not-pending, want 1 and 1", wins, notPending)
	}
	if got := b.balance(t, b.bobUS); !got.Equal(dec(t, "320.00")) {
		t.Errorf("recipient balance: got %s, want a single 20.00 credit on 300.00", got)
	}
	if n := len(b.store.Approvals()); n != 1 {
		t.Errorf("audit entries: got %d, want 1", n)
	}
}

func TestResolveRecipientAccountMissingRollsBack(t *testing.T) {
	t.Parallel()
	b := newBank(t)
	ctx := context.Background()

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "40.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})

	// Bob's account is closed between initiation and resolution.
	acc, err := b.store.AccountByID(ctx, b.bobUS)
	if err != nil {
		t.Fatalf("AccountByID: %v", err)
	}
	acc.Status = models.AccountClosed
	b.store.AddAccount(*acc)

	_, err = b.approvals.Resolve(ctx, b.admin, id, ActionComplete, "")
	if !errors.Is(err, ErrRecipientAccountMissing) {
		t.Fatalf("got %v, want ErrRecipientAccountMissing", err)
	}

	// The status flip inside the aborted transaction must not survive.
	txn, _ := b.store.TransactionByID(ctx, id)
	if txn.Status != models.StatusPending {
		t.Errorf("transaction left %s, want PENDING for re-attempt", txn.Status)
	}
	if n := len(b.store.Approvals()); n != 0 {
		t.Errorf("audit entry survived rollback: %d", n)
	}
	if got := b.balance(t, b.bobUS); !got.Equal(dec(t, "300.00")) {
		t.Errorf("closed account credited: %s", got)
	}
}

func TestResolveUnknownTransaction(t *testing.T) {
	t.Parallel()
	b := newBank(t)

	_, err := b.approvals.Resolve(context.Background(), b.admin, 9999, ActionComplete, "")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("got %v, want ledger.ErrNotFound", err)
	}
}

func TestResolveUnknownAction(t *testing.T) {
	t.Parallel()
	b := newBank(t)

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "10.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})

	_, err := b.approvals.Resolve(context.Background(), b.admin, id, Action("approve-ish"), "")
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("got %v, want ErrUnknownAction", err)
	}
	txn, _ := b.store.TransactionByID(context.Background(), id)
	if txn.Status != models.StatusPending {
		t.Errorf("transaction left %s, want PENDING", txn.Status)
	}
}

// Internal-only transfer cycles conserve total ledger balance: initiation
// moves money into a PENDING transaction, resolution moves it to the
// recipient or back to the sender.
func TestConservationAcrossInternalCycles(t *testing.T) {
	t.Parallel()
	b := newBank(t)
	ctx := context.Background()

	total := func() decimal.Decimal {
		sum := decimal.Zero
		for _, id := range []uint{b.aliceUS, b.bobUS} {
			acc, err := b.store.AccountByID(ctx, id)
			if err != nil {
				t.Fatalf("AccountByID: %v", err)
			}
			sum = sum.Add(acc.Balance)
		}
		for _, txn := range b.store.Transactions() {
			if txn.Status == models.StatusPending {
				sum = sum.Add(txn.Amount)
			}
		}
		return sum
	}

	start := total()

	// Completed bank transfer.
	id1 := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "120.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})
	if got := total(); !got.Equal(start) {
		t.Errorf("after initiation: total %s, want %s", got, start)
	}
	if _, err := b.approvals.Resolve(ctx, b.admin, id1, ActionComplete, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := total(); !got.Equal(start) {
		t.Errorf("after completion: total %s, want %s", got, start)
	}

	// Rejected bank transfer refunds in full.
	id2 := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "35.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})
	if _, err := b.approvals.Resolve(ctx, b.admin, id2, ActionRestrict, "limits"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := total(); !got.Equal(start) {
		t.Errorf("after rejection refund: total %s, want %s", got, start)
	}
}

func TestResolveNotifiesParties(t *testing.T) {
	t.Parallel()
	b := newBank(t)

	id := b.initiate(t, transfer.Request{
		AccountID: b.aliceUS, Method: models.MethodBank, Amount: "15.00",
		Recipient: transfer.Recipient{Name: "Bob", AccountNumber: "1000000003"},
	})
	if _, err := b.approvals.Resolve(context.Background(), b.admin, id, ActionComplete, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	b.notifier.mu.Lock()
	defer b.notifier.mu.Unlock()
	// Initiation notice to Alice, then resolution notices to Alice and Bob.
	var alice, bob int
	for _, to := range b.notifier.sent {
		switch to {
		case "alice@test.com":
			alice++
		case "bob@test.com":
			bob++
		}
	}
	if alice != 2 || bob != 1 {
		t.Errorf("notifications: %v", b.notifier.sent)
	}
}

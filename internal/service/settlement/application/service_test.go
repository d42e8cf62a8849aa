package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"bazaar/internal/service/settlement/domain"
)

// memoryStore 把全部仓储放进一个内存结构，同时充当 TransactionScope。
// Execute 直接执行 fn，不模拟回滚，测试只验证业务编排。
type memoryStore struct {
	wallets      map[string]*domain.VendorWallet
	transactions map[string]*domain.WalletTransaction
	payouts      map[int64]*domain.VendorPayout
	nextPayoutID int64
	resolver     func(vendorID string, orderValue float64) (*domain.ResolvedCommission, error)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		wallets:      make(map[string]*domain.VendorWallet),
		transactions: make(map[string]*domain.WalletTransaction),
		payouts:      make(map[int64]*domain.VendorPayout),
		resolver: func(vendorID string, orderValue float64) (*domain.ResolvedCommission, error) {
			return &domain.ResolvedCommission{RuleID: 1, RuleName: "default", Amount: orderValue * 0.10}, nil
		},
	}
}

func (s *memoryStore) Execute(ctx context.Context, fn func(repos domain.TxRepos) error) error {
	return fn(s)
}

func (s *memoryStore) Wallets() domain.WalletRepository           { return &memoryWalletRepo{s} }
func (s *memoryStore) Transactions() domain.TransactionRepository { return &memoryTxnRepo{s} }
func (s *memoryStore) Payouts() domain.PayoutRepository           { return &memoryPayoutRepo{s} }
func (s *memoryStore) Rules() domain.RuleReader                   { return s }

func (s *memoryStore) ResolveCommission(ctx context.Context, vendorID, categoryID, productID string, orderValue float64) (*domain.ResolvedCommission, error) {
	return s.resolver(vendorID, orderValue)
}

type memoryWalletRepo struct{ s *memoryStore }

func (r *memoryWalletRepo) FindByVendor(ctx context.Context, vendorID string) (*domain.VendorWallet, error) {
	wallet, ok := r.s.wallets[vendorID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return wallet, nil
}

func (r *memoryWalletRepo) FindByVendorForUpdate(ctx context.Context, vendorID string) (*domain.VendorWallet, error) {
	return r.FindByVendor(ctx, vendorID)
}

func (r *memoryWalletRepo) Save(ctx context.Context, wallet *domain.VendorWallet) error {
	if wallet.ID == 0 {
		wallet.ID = int64(len(r.s.wallets) + 1)
	}
	r.s.wallets[wallet.VendorID] = wallet
	return nil
}

func (r *memoryWalletRepo) ListActive(ctx context.Context, since time.Time) ([]*domain.VendorWallet, error) {
	var out []*domain.VendorWallet
	for _, wallet := range r.s.wallets {
		out = append(out, wallet)
	}
	return out, nil
}

type memoryTxnRepo struct{ s *memoryStore }

func (r *memoryTxnRepo) Append(ctx context.Context, txn *domain.WalletTransaction) error {
	if _, ok := r.s.transactions[txn.ReferenceID]; ok {
		return domain.ErrDuplicateBooking
	}
	r.s.transactions[txn.ReferenceID] = txn
	return nil
}

func (r *memoryTxnRepo) ExistsByReference(ctx context.Context, referenceID string) (bool, error) {
	_, ok := r.s.transactions[referenceID]
	return ok, nil
}

func (r *memoryTxnRepo) ListByVendor(ctx context.Context, vendorID string, page, limit int) ([]*domain.WalletTransaction, int64, error) {
	var out []*domain.WalletTransaction
	for _, txn := range r.s.transactions {
		if txn.VendorID == vendorID {
			out = append(out, txn)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryTxnRepo) SumSalesByVendor(ctx context.Context, vendorID string, from, to time.Time) (float64, error) {
	total := decimal.Zero
	for _, txn := range r.s.transactions {
		if txn.VendorID == vendorID && txn.Type == domain.TransactionCredit {
			total = total.Add(txn.OrderValue)
		}
	}
	return total.InexactFloat64(), nil
}

type memoryPayoutRepo struct{ s *memoryStore }

func (r *memoryPayoutRepo) Create(ctx context.Context, payout *domain.VendorPayout) error {
	r.s.nextPayoutID++
	payout.ID = r.s.nextPayoutID
	r.s.payouts[payout.ID] = payout
	return nil
}

func (r *memoryPayoutRepo) Update(ctx context.Context, payout *domain.VendorPayout) error {
	if _, ok := r.s.payouts[payout.ID]; !ok {
		return domain.ErrPayoutNotFound
	}
	r.s.payouts[payout.ID] = payout
	return nil
}

func (r *memoryPayoutRepo) FindByID(ctx context.Context, id int64) (*domain.VendorPayout, error) {
	payout, ok := r.s.payouts[id]
	if !ok {
		return nil, domain.ErrPayoutNotFound
	}
	return payout, nil
}

func (r *memoryPayoutRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.VendorPayout, error) {
	return r.FindByID(ctx, id)
}

func (r *memoryPayoutRepo) ListByVendor(ctx context.Context, vendorID string, page, limit int) ([]*domain.VendorPayout, int64, error) {
	var out []*domain.VendorPayout
	for _, payout := range r.s.payouts {
		if payout.VendorID == vendorID {
			out = append(out, payout)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryPayoutRepo) ExistsForPeriod(ctx context.Context, vendorID string, periodStart, periodEnd time.Time) (bool, error) {
	for _, payout := range r.s.payouts {
		if payout.VendorID == vendorID && payout.PeriodStart.Equal(periodStart) && payout.PeriodEnd.Equal(periodEnd) && payout.Status != domain.PayoutCancelled {
			return true, nil
		}
	}
	return false, nil
}

// fakeGuard 记录占用过的键
type fakeGuard struct {
	reserved map[string]bool
	released []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{reserved: make(map[string]bool)}
}

func (g *fakeGuard) Reserve(ctx context.Context, key string) (bool, error) {
	if g.reserved[key] {
		return false, nil
	}
	g.reserved[key] = true
	return true, nil
}

func (g *fakeGuard) Release(ctx context.Context, key string) error {
	delete(g.reserved, key)
	g.released = append(g.released, key)
	return nil
}

// fakeProducer 收集发布的事件
type fakeProducer struct {
	events []*domain.CommissionBookedEvent
}

func (p *fakeProducer) ProduceCommissionBooked(ctx context.Context, event *domain.CommissionBookedEvent) error {
	p.events = append(p.events, event)
	return nil
}

// fakeGateway 按预设返回打款结果
type fakeGateway struct {
	ref string
	err error
}

func (g *fakeGateway) Disburse(ctx context.Context, payout *domain.VendorPayout) (string, error) {
	return g.ref, g.err
}

func newTestSettlementService(store *memoryStore, guard IdempotencyGuard, producer EventProducer, gateway PaymentGateway) *SettlementService {
	return NewSettlementService(store, store.Wallets(), store.Transactions(), store.Payouts(), guard, producer, gateway, otel.Tracer("test"))
}

func orderEvent(orderID, vendorID string, orderValue float64) *domain.OrderCompletedEvent {
	return &domain.OrderCompletedEvent{
		OrderID:     orderID,
		VendorID:    vendorID,
		OrderValue:  orderValue,
		CompletedAt: time.Now(),
	}
}

func TestHandleOrderCompletedEvent_BooksCommission(t *testing.T) {
	store := newMemoryStore()
	producer := &fakeProducer{}
	svc := newTestSettlementService(store, newFakeGuard(), producer, nil)

	err := svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 500))
	require.NoError(t, err)

	wallet, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(50)), "balance: %s", wallet.Balance)
	assert.True(t, wallet.TotalCommissionEarned.Equal(decimal.NewFromInt(50)))

	require.Len(t, producer.events, 1)
	assert.Equal(t, "o-1", producer.events[0].OrderID)
	assert.InDelta(t, 50.0, producer.events[0].CommissionAmount, 1e-9)
}

func TestHandleOrderCompletedEvent_DuplicateIsNoOp(t *testing.T) {
	store := newMemoryStore()
	producer := &fakeProducer{}
	// 不挂去重屏障，走流水表兜底路径
	svc := newTestSettlementService(store, nil, producer, nil)

	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 500)))
	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 500)))

	wallet, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(50)), "second event must not double-credit")
	assert.Len(t, producer.events, 1)
}

func TestHandleOrderCompletedEvent_GuardShortCircuits(t *testing.T) {
	store := newMemoryStore()
	guard := newFakeGuard()
	svc := newTestSettlementService(store, guard, nil, nil)

	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 500)))
	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 500)))

	assert.Len(t, store.transactions, 1)
}

func TestHandleOrderCompletedEvent_ReleasesGuardOnFailure(t *testing.T) {
	store := newMemoryStore()
	store.resolver = func(vendorID string, orderValue float64) (*domain.ResolvedCommission, error) {
		return nil, assert.AnError
	}
	guard := newFakeGuard()
	svc := newTestSettlementService(store, guard, nil, nil)

	err := svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 500))
	require.Error(t, err)
	assert.Contains(t, guard.released, "order:o-1", "reservation must be released so the event can retry")
}

func TestRequestWithdrawal(t *testing.T) {
	store := newMemoryStore()
	svc := newTestSettlementService(store, nil, nil, nil)
	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 1000)))

	resp, err := svc.RequestWithdrawal(context.Background(), &WithdrawRequest{VendorID: "v-1", Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, "DEBIT", resp.Type)
	assert.InDelta(t, 100.0, resp.BalanceBefore, 1e-9)
	assert.InDelta(t, 60.0, resp.BalanceAfter, 1e-9)

	wallet, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, wallet.PendingWithdrawal.Equal(decimal.NewFromInt(40)))
}

func TestRequestWithdrawal_InsufficientBalance(t *testing.T) {
	store := newMemoryStore()
	svc := newTestSettlementService(store, nil, nil, nil)
	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 100)))

	_, err := svc.RequestWithdrawal(context.Background(), &WithdrawRequest{VendorID: "v-1", Amount: 50})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestProcessPayout_Completed(t *testing.T) {
	store := newMemoryStore()
	gateway := &fakeGateway{ref: "txn-abc"}
	svc := newTestSettlementService(store, nil, nil, gateway)

	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 1000)))

	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()
	created, err := svc.CreatePayout(context.Background(), &CreatePayoutRequest{
		VendorID:       "v-1",
		PeriodStart:    start,
		PeriodEnd:      end,
		CommissionRate: 10,
		ProcessingFee:  2.50,
	})
	require.NoError(t, err)
	// 周期销售额 1000，抽佣 100 -> 900，扣手续费后净额 897.50
	assert.InDelta(t, 1000.0, created.TotalSales, 1e-9)
	assert.InDelta(t, 897.50, created.NetAmount, 1e-9)

	held, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, held.PendingWithdrawal.Equal(decimal.RequireFromString("897.5")), "net amount held while payout is in flight")

	processed, err := svc.ProcessPayout(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", processed.Status)
	assert.Equal(t, "txn-abc", processed.TransactionRef)

	wallet, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, wallet.TotalWithdrawn.Equal(decimal.RequireFromString("897.5")))
	assert.True(t, wallet.PendingWithdrawal.IsZero(), "hold must be settled, got %s", wallet.PendingWithdrawal)
}

func TestProcessPayout_GatewayFailure(t *testing.T) {
	store := newMemoryStore()
	gateway := &fakeGateway{err: assert.AnError}
	svc := newTestSettlementService(store, nil, nil, gateway)

	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 1000)))
	created, err := svc.CreatePayout(context.Background(), &CreatePayoutRequest{
		VendorID:       "v-1",
		PeriodStart:    time.Now().Add(-24 * time.Hour),
		PeriodEnd:      time.Now(),
		CommissionRate: 10,
	})
	require.NoError(t, err)

	processed, err := svc.ProcessPayout(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "FAILED", processed.Status)
	assert.NotEmpty(t, processed.FailureReason)

	wallet, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, wallet.PendingWithdrawal.IsZero(), "hold must be released on failure, got %s", wallet.PendingWithdrawal)
	assert.True(t, wallet.TotalWithdrawn.IsZero())
}

func TestCreatePayout_RejectsDuplicatePeriod(t *testing.T) {
	store := newMemoryStore()
	svc := newTestSettlementService(store, nil, nil, nil)

	req := &CreatePayoutRequest{
		VendorID:       "v-1",
		PeriodStart:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CommissionRate: 10,
	}
	_, err := svc.CreatePayout(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreatePayout(context.Background(), req)
	assert.Error(t, err)
}

func TestCancelPayout(t *testing.T) {
	store := newMemoryStore()
	svc := newTestSettlementService(store, nil, nil, nil)
	require.NoError(t, svc.HandleOrderCompletedEvent(context.Background(), orderEvent("o-1", "v-1", 1000)))

	created, err := svc.CreatePayout(context.Background(), &CreatePayoutRequest{
		VendorID:       "v-1",
		PeriodStart:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CommissionRate: 10,
	})
	require.NoError(t, err)

	held, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, held.PendingWithdrawal.Equal(decimal.NewFromInt(900)))

	cancelled, err := svc.CancelPayout(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)

	wallet, err := store.Wallets().FindByVendor(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, wallet.PendingWithdrawal.IsZero(), "hold must be released on cancel, got %s", wallet.PendingWithdrawal)

	_, err = svc.CancelPayout(context.Background(), created.ID)
	assert.ErrorIs(t, err, domain.ErrPayoutStateInvalid)
}

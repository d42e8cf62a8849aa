package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType 标识一笔钱包流水的方向
type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

// VendorWallet 是每个商家唯一的资金账户聚合根。
// 余额只能通过 Credit/Debit 变更，每次变更都会产出一条不可变的流水。
// 并发安全由仓储层的行锁保证，聚合本身只负责记账规则。
type VendorWallet struct {
	ID                    int64
	VendorID              string
	Balance               decimal.Decimal
	TotalEarned           decimal.Decimal
	TotalWithdrawn        decimal.Decimal
	PendingWithdrawal     decimal.Decimal
	TotalCommissionEarned decimal.Decimal
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// WalletTransaction 是一条只追加的钱包流水。
// BalanceBefore/BalanceAfter 构成可审计的余额链。
// 佣金入账的流水额外记录订单销售额 OrderValue，结算单派生时按它汇总周期销售额。
type WalletTransaction struct {
	ID            string
	WalletID      int64
	VendorID      string
	Type          TransactionType
	Amount        decimal.Decimal
	OrderValue    decimal.Decimal
	Reason        string
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceID   string
	CreatedAt     time.Time
}

// NewVendorWallet 初始化一个零余额的商家钱包。
func NewVendorWallet(vendorID string) *VendorWallet {
	now := time.Now()
	return &VendorWallet{
		VendorID:              vendorID,
		Balance:               decimal.Zero,
		TotalEarned:           decimal.Zero,
		TotalWithdrawn:        decimal.Zero,
		PendingWithdrawal:     decimal.Zero,
		TotalCommissionEarned: decimal.Zero,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Credit 入账。余额与累计收入增加，返回对应的流水记录。
func (w *VendorWallet) Credit(amount decimal.Decimal, reason, referenceID string) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	before := w.Balance
	w.Balance = w.Balance.Add(amount)
	w.TotalEarned = w.TotalEarned.Add(amount)
	w.UpdatedAt = time.Now()

	return &WalletTransaction{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		VendorID:      w.VendorID,
		Type:          TransactionCredit,
		Amount:        amount,
		Reason:        reason,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		ReferenceID:   referenceID,
		CreatedAt:     w.UpdatedAt,
	}, nil
}

// CreditCommission 佣金入账，除常规入账外同时累计 TotalCommissionEarned，
// 并在流水上留存触发本次佣金的订单销售额。
func (w *VendorWallet) CreditCommission(amount, orderValue decimal.Decimal, reason, referenceID string) (*WalletTransaction, error) {
	txn, err := w.Credit(amount, reason, referenceID)
	if err != nil {
		return nil, err
	}
	txn.OrderValue = orderValue
	w.TotalCommissionEarned = w.TotalCommissionEarned.Add(amount)
	return txn, nil
}

// Debit 出账。余额不足时拒绝并返回 ErrInsufficientBalance。
func (w *VendorWallet) Debit(amount decimal.Decimal, reason, referenceID string) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	before := w.Balance
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = time.Now()

	return &WalletTransaction{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		VendorID:      w.VendorID,
		Type:          TransactionDebit,
		Amount:        amount,
		Reason:        reason,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		ReferenceID:   referenceID,
		CreatedAt:     w.UpdatedAt,
	}, nil
}

// HoldForWithdrawal 把一笔待打款金额标记为在途。
// 提现出账和结算单创建都会先占用在途额度，完结或失败时再结转/释放。
func (w *VendorWallet) HoldForWithdrawal(amount decimal.Decimal) {
	w.PendingWithdrawal = w.PendingWithdrawal.Add(amount)
	w.UpdatedAt = time.Now()
}

// SettleWithdrawal 打款完成，在途金额转入累计已提现。
// 必须与先前等额的 HoldForWithdrawal 配对，保证在途金额不为负。
func (w *VendorWallet) SettleWithdrawal(amount decimal.Decimal) {
	w.PendingWithdrawal = w.PendingWithdrawal.Sub(amount)
	w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
	w.UpdatedAt = time.Now()
}

// ReleaseWithdrawal 打款失败或取消，在途金额释放。
func (w *VendorWallet) ReleaseWithdrawal(amount decimal.Decimal) {
	w.PendingWithdrawal = w.PendingWithdrawal.Sub(amount)
	w.UpdatedAt = time.Now()
}

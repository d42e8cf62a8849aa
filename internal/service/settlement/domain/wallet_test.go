package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestVendorWallet_LedgerChain(t *testing.T) {
	wallet := NewVendorWallet("v-1")

	credit, err := wallet.Credit(dec("100"), "commission for order o-1", "order:o-1")
	require.NoError(t, err)
	debit, err := wallet.Debit(dec("40"), "withdrawal", "withdrawal:1")
	require.NoError(t, err)

	// 余额链: 0 -> 100 -> 60，两条流水首尾相接
	assert.True(t, credit.BalanceBefore.IsZero())
	assert.True(t, credit.BalanceAfter.Equal(dec("100")))
	assert.True(t, debit.BalanceBefore.Equal(credit.BalanceAfter))
	assert.True(t, debit.BalanceAfter.Equal(dec("60")))
	assert.True(t, wallet.Balance.Equal(dec("60")))
	assert.True(t, wallet.TotalEarned.Equal(dec("100")))

	assert.Equal(t, TransactionCredit, credit.Type)
	assert.Equal(t, TransactionDebit, debit.Type)
	assert.NotEmpty(t, credit.ID)
	assert.NotEqual(t, credit.ID, debit.ID)
}

func TestVendorWallet_CreditCommission(t *testing.T) {
	wallet := NewVendorWallet("v-1")

	txn, err := wallet.CreditCommission(dec("25.50"), dec("510"), "commission", "order:o-2")
	require.NoError(t, err)

	assert.True(t, wallet.Balance.Equal(dec("25.50")))
	assert.True(t, wallet.TotalEarned.Equal(dec("25.50")))
	assert.True(t, wallet.TotalCommissionEarned.Equal(dec("25.50")))
	// 流水留存订单销售额，结算时按它汇总周期销售额
	assert.True(t, txn.OrderValue.Equal(dec("510")))
}

func TestVendorWallet_DebitInsufficientBalance(t *testing.T) {
	wallet := NewVendorWallet("v-1")
	_, err := wallet.Credit(dec("30"), "commission", "order:o-1")
	require.NoError(t, err)

	_, err = wallet.Debit(dec("30.01"), "withdrawal", "withdrawal:1")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	// 失败的出账不得改变任何状态
	assert.True(t, wallet.Balance.Equal(dec("30")))
}

func TestVendorWallet_RejectsNonPositiveAmounts(t *testing.T) {
	wallet := NewVendorWallet("v-1")

	_, err := wallet.Credit(decimal.Zero, "noop", "ref")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = wallet.Credit(dec("-5"), "noop", "ref")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = wallet.Debit(decimal.Zero, "noop", "ref")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestVendorWallet_WithdrawalLifecycle(t *testing.T) {
	wallet := NewVendorWallet("v-1")
	_, err := wallet.Credit(dec("100"), "commission", "order:o-1")
	require.NoError(t, err)

	_, err = wallet.Debit(dec("40"), "withdrawal", "withdrawal:1")
	require.NoError(t, err)
	wallet.HoldForWithdrawal(dec("40"))
	assert.True(t, wallet.PendingWithdrawal.Equal(dec("40")))

	wallet.SettleWithdrawal(dec("40"))
	assert.True(t, wallet.PendingWithdrawal.IsZero())
	assert.True(t, wallet.TotalWithdrawn.Equal(dec("40")))
}

// internal/service/settlement/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// VendorWalletModel 对应 vendor_wallets 表
type VendorWalletModel struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement"`
	VendorID              string          `gorm:"type:varchar(64);uniqueIndex:uk_vendor;not null"`
	Balance               decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalEarned           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalWithdrawn        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PendingWithdrawal     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalCommissionEarned decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (VendorWalletModel) TableName() string {
	return "vendor_wallets"
}

// WalletTransactionModel 对应 wallet_transactions 表。
// reference_id 的唯一约束是入账幂等的最终防线。
type WalletTransactionModel struct {
	ID            string          `gorm:"type:varchar(36);primaryKey"`
	WalletID      int64           `gorm:"index;not null"`
	VendorID      string          `gorm:"type:varchar(64);index:idx_vendor_created;not null"`
	Type          string          `gorm:"type:varchar(16);index;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	OrderValue    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Reason        string          `gorm:"type:varchar(255)"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ReferenceID   string          `gorm:"type:varchar(128);uniqueIndex:uk_reference;not null"`
	CreatedAt     time.Time       `gorm:"index:idx_vendor_created"`
}

func (WalletTransactionModel) TableName() string {
	return "wallet_transactions"
}

// VendorPayoutModel 对应 vendor_payouts 表
type VendorPayoutModel struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	VendorID         string          `gorm:"type:varchar(64);index:idx_vendor_period;not null"`
	PeriodStart      time.Time       `gorm:"index:idx_vendor_period;not null"`
	PeriodEnd        time.Time       `gorm:"index:idx_vendor_period;not null"`
	TotalSales       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ProcessingFee    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	NetAmount        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Status           string          `gorm:"type:varchar(16);index;not null"`
	TransactionRef   string          `gorm:"type:varchar(128)"`
	FailureReason    string          `gorm:"type:varchar(255)"`
	ProcessedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (VendorPayoutModel) TableName() string {
	return "vendor_payouts"
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus 表示一笔结算单的生命周期状态
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "PENDING"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutCompleted  PayoutStatus = "COMPLETED"
	PayoutFailed     PayoutStatus = "FAILED"
	PayoutCancelled  PayoutStatus = "CANCELLED"
)

// VendorPayout 是一笔覆盖结算周期的批量结算单。
// 状态机: PENDING -> PROCESSING -> COMPLETED|FAILED，PENDING 可直接 CANCELLED。
type VendorPayout struct {
	ID               int64
	VendorID         string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	TotalSales       decimal.Decimal
	CommissionRate   decimal.Decimal
	CommissionAmount decimal.Decimal
	Amount           decimal.Decimal
	ProcessingFee    decimal.Decimal
	NetAmount        decimal.Decimal
	Status           PayoutStatus
	TransactionRef   string
	FailureReason    string
	ProcessedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewVendorPayout 由周期销售额和商家佣金率派生出一笔待处理结算单。
// commission = totalSales * rate / 100；amount 为扣佣后的应结金额；
// netAmount 再扣除通道手续费。
func NewVendorPayout(vendorID string, periodStart, periodEnd time.Time, totalSales, commissionRate, processingFee decimal.Decimal) (*VendorPayout, error) {
	if !periodStart.Before(periodEnd) {
		return nil, ErrInvalidPayoutPeriod
	}
	if totalSales.IsNegative() {
		return nil, ErrInvalidAmount
	}

	commission := totalSales.Mul(commissionRate).Div(oneHundred).Round(2)
	amount := totalSales.Sub(commission)
	netAmount := amount.Sub(processingFee)

	now := time.Now()
	return &VendorPayout{
		VendorID:         vendorID,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		TotalSales:       totalSales,
		CommissionRate:   commissionRate,
		CommissionAmount: commission,
		Amount:           amount,
		ProcessingFee:    processingFee,
		NetAmount:        netAmount,
		Status:           PayoutPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

var oneHundred = decimal.NewFromInt(100)

// MarkProcessing 开始处理。只允许从 PENDING 进入。
func (p *VendorPayout) MarkProcessing() error {
	if p.Status != PayoutPending {
		return ErrPayoutStateInvalid
	}
	p.Status = PayoutProcessing
	p.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted 处理成功，记录外部支付流水号。
func (p *VendorPayout) MarkCompleted(transactionRef string) error {
	if p.Status != PayoutProcessing {
		return ErrPayoutStateInvalid
	}
	now := time.Now()
	p.Status = PayoutCompleted
	p.TransactionRef = transactionRef
	p.ProcessedAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkFailed 处理失败，记录失败原因。
func (p *VendorPayout) MarkFailed(reason string) error {
	if p.Status != PayoutProcessing {
		return ErrPayoutStateInvalid
	}
	p.Status = PayoutFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	return nil
}

// Cancel 取消一笔尚未开始处理的结算单。
func (p *VendorPayout) Cancel() error {
	if p.Status != PayoutPending {
		return ErrPayoutStateInvalid
	}
	p.Status = PayoutCancelled
	p.UpdatedAt = time.Now()
	return nil
}

package application

import (
	"time"

	"bazaar/internal/service/settlement/domain"
)

// WalletResponse 是钱包查询的出参
type WalletResponse struct {
	VendorID              string  `json:"vendor_id"`
	Balance               float64 `json:"balance"`
	TotalEarned           float64 `json:"total_earned"`
	TotalWithdrawn        float64 `json:"total_withdrawn"`
	PendingWithdrawal     float64 `json:"pending_withdrawal"`
	TotalCommissionEarned float64 `json:"total_commission_earned"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func NewWalletResponse(w *domain.VendorWallet) *WalletResponse {
	return &WalletResponse{
		VendorID:              w.VendorID,
		Balance:               w.Balance.InexactFloat64(),
		TotalEarned:           w.TotalEarned.InexactFloat64(),
		TotalWithdrawn:        w.TotalWithdrawn.InexactFloat64(),
		PendingWithdrawal:     w.PendingWithdrawal.InexactFloat64(),
		TotalCommissionEarned: w.TotalCommissionEarned.InexactFloat64(),
		UpdatedAt:             w.UpdatedAt,
	}
}

// TransactionResponse 是一条钱包流水的出参
type TransactionResponse struct {
	ID            string    `json:"id"`
	VendorID      string    `json:"vendor_id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Reason        string    `json:"reason"`
	BalanceBefore float64   `json:"balance_before"`
	BalanceAfter  float64   `json:"balance_after"`
	ReferenceID   string    `json:"reference_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewTransactionResponse(t *domain.WalletTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            t.ID,
		VendorID:      t.VendorID,
		Type:          string(t.Type),
		Amount:        t.Amount.InexactFloat64(),
		Reason:        t.Reason,
		BalanceBefore: t.BalanceBefore.InexactFloat64(),
		BalanceAfter:  t.BalanceAfter.InexactFloat64(),
		ReferenceID:   t.ReferenceID,
		CreatedAt:     t.CreatedAt,
	}
}

// ListTransactionsResponse 是流水分页查询的出参
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int64                  `json:"total"`
	Page         int                    `json:"page"`
	Limit        int                    `json:"limit"`
}

// WithdrawRequest 是商家发起提现的入参
type WithdrawRequest struct {
	VendorID string  `json:"vendor_id"`
	Amount   float64 `json:"amount"`
	Reason   string  `json:"reason,omitempty"`
}

// CreatePayoutRequest 是手工创建结算单的入参
type CreatePayoutRequest struct {
	VendorID       string    `json:"vendor_id"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	CommissionRate float64   `json:"commission_rate"`
	ProcessingFee  float64   `json:"processing_fee"`
}

// PayoutResponse 是结算单的出参
type PayoutResponse struct {
	ID               int64      `json:"id"`
	VendorID         string     `json:"vendor_id"`
	PeriodStart      time.Time  `json:"period_start"`
	PeriodEnd        time.Time  `json:"period_end"`
	TotalSales       float64    `json:"total_sales"`
	CommissionRate   float64    `json:"commission_rate"`
	CommissionAmount float64    `json:"commission_amount"`
	Amount           float64    `json:"amount"`
	ProcessingFee    float64    `json:"processing_fee"`
	NetAmount        float64    `json:"net_amount"`
	Status           string     `json:"status"`
	TransactionRef   string     `json:"transaction_ref,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func NewPayoutResponse(p *domain.VendorPayout) *PayoutResponse {
	return &PayoutResponse{
		ID:               p.ID,
		VendorID:         p.VendorID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		TotalSales:       p.TotalSales.InexactFloat64(),
		CommissionRate:   p.CommissionRate.InexactFloat64(),
		CommissionAmount: p.CommissionAmount.InexactFloat64(),
		Amount:           p.Amount.InexactFloat64(),
		ProcessingFee:    p.ProcessingFee.InexactFloat64(),
		NetAmount:        p.NetAmount.InexactFloat64(),
		Status:           string(p.Status),
		TransactionRef:   p.TransactionRef,
		FailureReason:    p.FailureReason,
		ProcessedAt:      p.ProcessedAt,
		CreatedAt:        p.CreatedAt,
	}
}

// ListPayoutsResponse 是结算单分页查询的出参
type ListPayoutsResponse struct {
	Payouts []*PayoutResponse `json:"payouts"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
}

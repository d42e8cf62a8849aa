// internal/service/settlement/infrastructure/mapper.go
package infrastructure

import (
	"bazaar/internal/service/settlement/domain"
)

func toDomainWallet(m *VendorWalletModel) *domain.VendorWallet {
	return &domain.VendorWallet{
		ID:                    m.ID,
		VendorID:              m.VendorID,
		Balance:               m.Balance,
		TotalEarned:           m.TotalEarned,
		TotalWithdrawn:        m.TotalWithdrawn,
		PendingWithdrawal:     m.PendingWithdrawal,
		TotalCommissionEarned: m.TotalCommissionEarned,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func fromDomainWallet(w *domain.VendorWallet) *VendorWalletModel {
	return &VendorWalletModel{
		ID:                    w.ID,
		VendorID:              w.VendorID,
		Balance:               w.Balance,
		TotalEarned:           w.TotalEarned,
		TotalWithdrawn:        w.TotalWithdrawn,
		PendingWithdrawal:     w.PendingWithdrawal,
		TotalCommissionEarned: w.TotalCommissionEarned,
		CreatedAt:             w.CreatedAt,
		UpdatedAt:             w.UpdatedAt,
	}
}

func toDomainTransaction(m *WalletTransactionModel) *domain.WalletTransaction {
	return &domain.WalletTransaction{
		ID:            m.ID,
		WalletID:      m.WalletID,
		VendorID:      m.VendorID,
		Type:          domain.TransactionType(m.Type),
		Amount:        m.Amount,
		OrderValue:    m.OrderValue,
		Reason:        m.Reason,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		ReferenceID:   m.ReferenceID,
		CreatedAt:     m.CreatedAt,
	}
}

func fromDomainTransaction(t *domain.WalletTransaction) *WalletTransactionModel {
	return &WalletTransactionModel{
		ID:            t.ID,
		WalletID:      t.WalletID,
		VendorID:      t.VendorID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		OrderValue:    t.OrderValue,
		Reason:        t.Reason,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		ReferenceID:   t.ReferenceID,
		CreatedAt:     t.CreatedAt,
	}
}

func toDomainPayout(m *VendorPayoutModel) *domain.VendorPayout {
	return &domain.VendorPayout{
		ID:               m.ID,
		VendorID:         m.VendorID,
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		TotalSales:       m.TotalSales,
		CommissionRate:   m.CommissionRate,
		CommissionAmount: m.CommissionAmount,
		Amount:           m.Amount,
		ProcessingFee:    m.ProcessingFee,
		NetAmount:        m.NetAmount,
		Status:           domain.PayoutStatus(m.Status),
		TransactionRef:   m.TransactionRef,
		FailureReason:    m.FailureReason,
		ProcessedAt:      m.ProcessedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromDomainPayout(p *domain.VendorPayout) *VendorPayoutModel {
	return &VendorPayoutModel{
		ID:               p.ID,
		VendorID:         p.VendorID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		TotalSales:       p.TotalSales,
		CommissionRate:   p.CommissionRate,
		CommissionAmount: p.CommissionAmount,
		Amount:           p.Amount,
		ProcessingFee:    p.ProcessingFee,
		NetAmount:        p.NetAmount,
		Status:           string(p.Status),
		TransactionRef:   p.TransactionRef,
		FailureReason:    p.FailureReason,
		ProcessedAt:      p.ProcessedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

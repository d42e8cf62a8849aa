// internal/service/settlement/application/service.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/settlement/domain"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var (
	commissionsBookedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commissions_booked_total",
		Help: "Total number of commissions booked into vendor wallets.",
	})
	commissionsDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commissions_duplicate_total",
		Help: "Total number of order-completed events skipped as duplicates.",
	})
)

// IdempotencyGuard 是入账前的快速去重屏障。
// 它只是性能优化，真正的幂等由流水表 reference_id 唯一约束兜底。
type IdempotencyGuard interface {
	// Reserve 尝试占位，返回 false 表示该键已被占用。
	Reserve(ctx context.Context, key string) (bool, error)
	// Release 入账失败时释放占位，允许事件重试。
	Release(ctx context.Context, key string) error
}

// EventProducer 发布佣金入账事件。
type EventProducer interface {
	ProduceCommissionBooked(ctx context.Context, event *domain.CommissionBookedEvent) error
}

// PaymentGateway 是外部打款通道的端口。
type PaymentGateway interface {
	// Disburse 发起一笔打款，成功时返回通道侧流水号。
	Disburse(ctx context.Context, payout *domain.VendorPayout) (string, error)
}

// SettlementService 定义了钱包记账与结算单管理的所有业务用例。
type SettlementService struct {
	txScope  domain.TransactionScope
	wallets  domain.WalletRepository
	txns     domain.TransactionRepository
	payouts  domain.PayoutRepository
	guard    IdempotencyGuard
	producer EventProducer
	gateway  PaymentGateway
	tracer   trace.Tracer
}

// NewSettlementService 创建一个新的结算服务实例。guard 与 producer 可为 nil。
func NewSettlementService(
	txScope domain.TransactionScope,
	wallets domain.WalletRepository,
	txns domain.TransactionRepository,
	payouts domain.PayoutRepository,
	guard IdempotencyGuard,
	producer EventProducer,
	gateway PaymentGateway,
	tracer trace.Tracer,
) *SettlementService {
	return &SettlementService{
		txScope:  txScope,
		wallets:  wallets,
		txns:     txns,
		payouts:  payouts,
		guard:    guard,
		producer: producer,
		gateway:  gateway,
		tracer:   tracer,
	}
}

// HandleOrderCompletedEvent 消费订单完成事件，为商家入账佣金。
// 整个「解析规则 -> 钱包加锁 -> 入账 -> 追加流水」在同一个数据库事务内完成，
// 以 order_id 为幂等键，重复事件是无害的 no-op。
func (s *SettlementService) HandleOrderCompletedEvent(ctx context.Context, event *domain.OrderCompletedEvent) error {
	ctx, span := s.tracer.Start(ctx, "settlement.HandleOrderCompletedEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("vendor.id", event.VendorID),
		attribute.Float64("order.value", event.OrderValue),
	)

	referenceID := bookingReference(event.OrderID)

	if s.guard != nil {
		reserved, err := s.guard.Reserve(ctx, referenceID)
		if err != nil {
			// 去重屏障不可用时放行，由数据库唯一约束兜底
			logger.Ctx(ctx).Warn().Err(err).Str("order_id", event.OrderID).Msg("idempotency guard unavailable, relying on ledger constraint")
		} else if !reserved {
			commissionsDuplicateTotal.Inc()
			logger.Ctx(ctx).Info().Str("order_id", event.OrderID).Msg("Duplicate order-completed event skipped")
			return nil
		}
	}

	var (
		booked *domain.ResolvedCommission
		txn    *domain.WalletTransaction
	)
	err := s.txScope.Execute(ctx, func(repos domain.TxRepos) error {
		exists, err := repos.Transactions().ExistsByReference(ctx, referenceID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateBooking
		}

		resolved, err := repos.Rules().ResolveCommission(ctx, event.VendorID, event.CategoryID, event.ProductID, event.OrderValue)
		if err != nil {
			return err
		}

		wallet, err := repos.Wallets().FindByVendorForUpdate(ctx, event.VendorID)
		if errors.Is(err, domain.ErrWalletNotFound) {
			// 首次入账时自动开户
			wallet = domain.NewVendorWallet(event.VendorID)
			if err := repos.Wallets().Save(ctx, wallet); err != nil {
				return err
			}
			wallet, err = repos.Wallets().FindByVendorForUpdate(ctx, event.VendorID)
		}
		if err != nil {
			return err
		}

		amount := decimal.NewFromFloat(resolved.Amount)
		orderValue := decimal.NewFromFloat(event.OrderValue)
		reason := fmt.Sprintf("commission for order %s (rule %q)", event.OrderID, resolved.RuleName)
		walletTxn, err := wallet.CreditCommission(amount, orderValue, reason, referenceID)
		if err != nil {
			return err
		}
		if err := repos.Wallets().Save(ctx, wallet); err != nil {
			return err
		}
		if err := repos.Transactions().Append(ctx, walletTxn); err != nil {
			return err
		}

		booked = resolved
		txn = walletTxn
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateBooking) {
			commissionsDuplicateTotal.Inc()
			logger.Ctx(ctx).Info().Str("order_id", event.OrderID).Msg("Commission already booked, skipping")
			return nil
		}
		if s.guard != nil {
			if releaseErr := s.guard.Release(ctx, referenceID); releaseErr != nil {
				logger.Ctx(ctx).Warn().Err(releaseErr).Str("order_id", event.OrderID).Msg("Failed to release idempotency reservation")
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "commission booking failed")
		return err
	}

	commissionsBookedTotal.Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", event.OrderID).
		Str("vendor_id", event.VendorID).
		Int64("rule_id", booked.RuleID).
		Float64("amount", booked.Amount).
		Msg("Commission booked")

	if s.producer != nil {
		bookedEvent := &domain.CommissionBookedEvent{
			OrderID:          event.OrderID,
			VendorID:         event.VendorID,
			RuleID:           booked.RuleID,
			RuleName:         booked.RuleName,
			OrderValue:       event.OrderValue,
			CommissionAmount: booked.Amount,
			WalletBalance:    txn.BalanceAfter.InexactFloat64(),
			BookedAt:         time.Now(),
		}
		if err := s.producer.ProduceCommissionBooked(ctx, bookedEvent); err != nil {
			// 入账已提交，事件发布失败只记录，不回滚
			logger.Ctx(ctx).Error().Err(err).Str("order_id", event.OrderID).Msg("Failed to produce commission-booked event")
		}
	}
	return nil
}

// GetWallet 查询商家钱包。
func (s *SettlementService) GetWallet(ctx context.Context, vendorID string) (*WalletResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.GetWallet")
	defer span.End()

	wallet, err := s.wallets.FindByVendor(ctx, vendorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return NewWalletResponse(wallet), nil
}

// ListTransactions 按时间倒序分页查询商家流水。
func (s *SettlementService) ListTransactions(ctx context.Context, vendorID string, page, limit int) (*ListTransactionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.ListTransactions")
	defer span.End()

	page, limit = normalizePage(page, limit)
	txns, total, err := s.txns.ListByVendor(ctx, vendorID, page, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	items := make([]*TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		items = append(items, NewTransactionResponse(txn))
	}
	return &ListTransactionsResponse{Transactions: items, Total: total, Page: page, Limit: limit}, nil
}

// RequestWithdrawal 商家发起提现。出账与在途标记在同一事务内完成。
func (s *SettlementService) RequestWithdrawal(ctx context.Context, req *WithdrawRequest) (*TransactionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.RequestWithdrawal")
	defer span.End()
	span.SetAttributes(
		attribute.String("vendor.id", req.VendorID),
		attribute.Float64("amount", req.Amount),
	)

	amount := decimal.NewFromFloat(req.Amount)
	reason := req.Reason
	if reason == "" {
		reason = "vendor withdrawal request"
	}

	var txn *domain.WalletTransaction
	err := s.txScope.Execute(ctx, func(repos domain.TxRepos) error {
		wallet, err := repos.Wallets().FindByVendorForUpdate(ctx, req.VendorID)
		if err != nil {
			return err
		}

		referenceID := fmt.Sprintf("withdrawal:%s:%d", req.VendorID, time.Now().UnixNano())
		walletTxn, err := wallet.Debit(amount, reason, referenceID)
		if err != nil {
			return err
		}
		wallet.HoldForWithdrawal(amount)

		if err := repos.Wallets().Save(ctx, wallet); err != nil {
			return err
		}
		if err := repos.Transactions().Append(ctx, walletTxn); err != nil {
			return err
		}
		txn = walletTxn
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("vendor_id", req.VendorID).Float64("amount", req.Amount).Msg("Withdrawal requested")
	return NewTransactionResponse(txn), nil
}

// CreatePayout 为商家创建一笔覆盖给定周期的结算单。
// 周期销售额按流水上的订单销售额汇总得出，同周期重复创建会被拒绝。
// 净额为正时在同一事务内占用钱包在途额度，打款完结或失败时再结转/释放。
func (s *SettlementService) CreatePayout(ctx context.Context, req *CreatePayoutRequest) (*PayoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.CreatePayout")
	defer span.End()
	span.SetAttributes(attribute.String("vendor.id", req.VendorID))

	var payout *domain.VendorPayout
	err := s.txScope.Execute(ctx, func(repos domain.TxRepos) error {
		exists, err := repos.Payouts().ExistsForPeriod(ctx, req.VendorID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if exists {
			return errors.Errorf("payout already exists for vendor %s in period %s to %s",
				req.VendorID, req.PeriodStart.Format(time.RFC3339), req.PeriodEnd.Format(time.RFC3339))
		}

		totalSales, err := repos.Transactions().SumSalesByVendor(ctx, req.VendorID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}

		p, err := domain.NewVendorPayout(
			req.VendorID,
			req.PeriodStart,
			req.PeriodEnd,
			decimal.NewFromFloat(totalSales),
			decimal.NewFromFloat(req.CommissionRate),
			decimal.NewFromFloat(req.ProcessingFee),
		)
		if err != nil {
			return err
		}

		if p.NetAmount.IsPositive() {
			wallet, err := repos.Wallets().FindByVendorForUpdate(ctx, req.VendorID)
			if err != nil {
				return err
			}
			wallet.HoldForWithdrawal(p.NetAmount)
			if err := repos.Wallets().Save(ctx, wallet); err != nil {
				return err
			}
		}

		if err := repos.Payouts().Create(ctx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("vendor_id", req.VendorID).
		Int64("payout_id", payout.ID).
		Float64("net_amount", payout.NetAmount.InexactFloat64()).
		Msg("Payout created")
	return NewPayoutResponse(payout), nil
}

// GetPayout 查询一笔结算单。
func (s *SettlementService) GetPayout(ctx context.Context, id int64) (*PayoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.GetPayout")
	defer span.End()

	payout, err := s.payouts.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return NewPayoutResponse(payout), nil
}

// ListPayouts 分页查询商家结算单。
func (s *SettlementService) ListPayouts(ctx context.Context, vendorID string, page, limit int) (*ListPayoutsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.ListPayouts")
	defer span.End()

	page, limit = normalizePage(page, limit)
	payouts, total, err := s.payouts.ListByVendor(ctx, vendorID, page, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	items := make([]*PayoutResponse, 0, len(payouts))
	for _, payout := range payouts {
		items = append(items, NewPayoutResponse(payout))
	}
	return &ListPayoutsResponse{Payouts: items, Total: total, Page: page, Limit: limit}, nil
}

// ProcessPayout 处理一笔待结算单: 标记处理中，调用打款通道，
// 成功则完结并结转钱包在途金额，失败则记录原因并释放在途金额。
func (s *SettlementService) ProcessPayout(ctx context.Context, id int64) (*PayoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.ProcessPayout")
	defer span.End()
	span.SetAttributes(attribute.Int64("payout.id", id))

	// 先在独立事务里抢占 PENDING -> PROCESSING，避免并发重复打款
	var payout *domain.VendorPayout
	err := s.txScope.Execute(ctx, func(repos domain.TxRepos) error {
		p, err := repos.Payouts().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.MarkProcessing(); err != nil {
			return err
		}
		if err := repos.Payouts().Update(ctx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	transactionRef, gatewayErr := s.gateway.Disburse(ctx, payout)

	err = s.txScope.Execute(ctx, func(repos domain.TxRepos) error {
		p, err := repos.Payouts().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if gatewayErr != nil {
			if err := p.MarkFailed(gatewayErr.Error()); err != nil {
				return err
			}
			if p.NetAmount.IsPositive() {
				wallet, err := repos.Wallets().FindByVendorForUpdate(ctx, p.VendorID)
				if err != nil {
					return err
				}
				wallet.ReleaseWithdrawal(p.NetAmount)
				if err := repos.Wallets().Save(ctx, wallet); err != nil {
					return err
				}
			}
		} else {
			if err := p.MarkCompleted(transactionRef); err != nil {
				return err
			}
			if p.NetAmount.IsPositive() {
				wallet, err := repos.Wallets().FindByVendorForUpdate(ctx, p.VendorID)
				if err != nil {
					return err
				}
				wallet.SettleWithdrawal(p.NetAmount)
				if err := repos.Wallets().Save(ctx, wallet); err != nil {
					return err
				}
			}
		}

		if err := repos.Payouts().Update(ctx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to finalize payout")
		return nil, err
	}

	if gatewayErr != nil {
		logger.Ctx(ctx).Error().Err(gatewayErr).Int64("payout_id", id).Msg("Payout disbursement failed")
	} else {
		logger.Ctx(ctx).Info().Int64("payout_id", id).Str("transaction_ref", transactionRef).Msg("Payout completed")
	}
	return NewPayoutResponse(payout), nil
}

// CancelPayout 取消一笔尚未开始处理的结算单，并释放创建时占用的在途额度。
func (s *SettlementService) CancelPayout(ctx context.Context, id int64) (*PayoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settlement.CancelPayout")
	defer span.End()
	span.SetAttributes(attribute.Int64("payout.id", id))

	var payout *domain.VendorPayout
	err := s.txScope.Execute(ctx, func(repos domain.TxRepos) error {
		p, err := repos.Payouts().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Cancel(); err != nil {
			return err
		}
		if p.NetAmount.IsPositive() {
			wallet, err := repos.Wallets().FindByVendorForUpdate(ctx, p.VendorID)
			if err != nil {
				return err
			}
			wallet.ReleaseWithdrawal(p.NetAmount)
			if err := repos.Wallets().Save(ctx, wallet); err != nil {
				return err
			}
		}
		if err := repos.Payouts().Update(ctx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Int64("payout_id", id).Msg("Payout cancelled")
	return NewPayoutResponse(payout), nil
}

func bookingReference(orderID string) string {
	return "order:" + orderID
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

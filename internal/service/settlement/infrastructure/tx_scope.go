// internal/service/settlement/infrastructure/tx_scope.go
package infrastructure

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	commissiondomain "bazaar/internal/service/commission/domain"
	commissioninfra "bazaar/internal/service/commission/infrastructure"
	"bazaar/internal/service/settlement/domain"
)

// GormTransactionScope 是 domain.TransactionScope 的 GORM 实现。
// Execute 内所有仓储共享同一个 *gorm.DB 事务句柄，fn 返回错误即整体回滚。
type GormTransactionScope struct {
	db     *gorm.DB
	engine commissiondomain.ConditionEngine
}

// NewGormTransactionScope 创建事务范围。engine 供事务内的规则解析使用，可为 nil。
func NewGormTransactionScope(db *gorm.DB, engine commissiondomain.ConditionEngine) *GormTransactionScope {
	return &GormTransactionScope{db: db, engine: engine}
}

var _ domain.TransactionScope = (*GormTransactionScope)(nil)

func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos domain.TxRepos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxRepos{tx: tx, engine: s.engine})
	})
}

// gormTxRepos 把同一个事务句柄分发给各仓储
type gormTxRepos struct {
	tx     *gorm.DB
	engine commissiondomain.ConditionEngine
}

var _ domain.TxRepos = (*gormTxRepos)(nil)

func (r *gormTxRepos) Wallets() domain.WalletRepository {
	return NewGormWalletRepository(r.tx)
}

func (r *gormTxRepos) Transactions() domain.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTxRepos) Payouts() domain.PayoutRepository {
	return NewGormPayoutRepository(r.tx)
}

func (r *gormTxRepos) Rules() domain.RuleReader {
	// 规则读取必须与钱包写入同事务，因此这里绕过缓存装饰器直连事务句柄
	return &txRuleReader{
		resolver: commissiondomain.NewResolver(commissioninfra.NewGormRuleRepository(r.tx), r.engine),
	}
}

// txRuleReader 把佣金域的解析器适配成结算域的只读端口
type txRuleReader struct {
	resolver *commissiondomain.Resolver
}

var _ domain.RuleReader = (*txRuleReader)(nil)

func (r *txRuleReader) ResolveCommission(ctx context.Context, vendorID, categoryID, productID string, orderValue float64) (*domain.ResolvedCommission, error) {
	rule, amount, err := r.resolver.ResolveAndCalculate(ctx, commissiondomain.ResolveInput{
		VendorID:   vendorID,
		CategoryID: categoryID,
		ProductID:  productID,
		OrderValue: decimal.NewFromFloat(orderValue),
	})
	if err != nil {
		return nil, err
	}
	return &domain.ResolvedCommission{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Amount:   amount.InexactFloat64(),
	}, nil
}

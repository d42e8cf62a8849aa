package domain

import (
	"context"
	"time"
)

// WalletRepository 定义商家钱包的持久化端口。
type WalletRepository interface {
	// FindByVendor 按商家 ID 查询钱包，不存在时返回 ErrWalletNotFound。
	FindByVendor(ctx context.Context, vendorID string) (*VendorWallet, error)
	// FindByVendorForUpdate 在当前事务内以行锁方式加载钱包。
	// 必须在 TransactionScope 内调用，不存在时返回 ErrWalletNotFound。
	FindByVendorForUpdate(ctx context.Context, vendorID string) (*VendorWallet, error)
	// Save 写回钱包状态，首次保存时分配 ID。
	Save(ctx context.Context, wallet *VendorWallet) error
	// ListActive 返回在给定周期内有入账流水的商家钱包，供结算批处理扫描。
	ListActive(ctx context.Context, since time.Time) ([]*VendorWallet, error)
}

// TransactionRepository 定义钱包流水的只追加持久化端口。
type TransactionRepository interface {
	// Append 追加一条流水。reference_id 唯一约束冲突时返回 ErrDuplicateBooking。
	Append(ctx context.Context, txn *WalletTransaction) error
	// ExistsByReference 判断某个幂等键是否已经入账。
	ExistsByReference(ctx context.Context, referenceID string) (bool, error)
	// ListByVendor 按时间倒序分页返回商家流水。
	ListByVendor(ctx context.Context, vendorID string, page, limit int) ([]*WalletTransaction, int64, error)
	// SumSalesByVendor 汇总周期内佣金入账对应的订单销售额，供结算单派生。
	// 销售额取自流水上记录的 order_value，而非佣金金额本身。
	SumSalesByVendor(ctx context.Context, vendorID string, from, to time.Time) (float64, error)
}

// PayoutRepository 定义结算单的持久化端口。
type PayoutRepository interface {
	Create(ctx context.Context, payout *VendorPayout) error
	Update(ctx context.Context, payout *VendorPayout) error
	// FindByID 不存在时返回 ErrPayoutNotFound。
	FindByID(ctx context.Context, id int64) (*VendorPayout, error)
	// FindByIDForUpdate 在当前事务内以行锁方式加载结算单。
	FindByIDForUpdate(ctx context.Context, id int64) (*VendorPayout, error)
	ListByVendor(ctx context.Context, vendorID string, page, limit int) ([]*VendorPayout, int64, error)
	// ExistsForPeriod 判断商家在给定周期是否已有结算单，批处理用它防止重复生成。
	ExistsForPeriod(ctx context.Context, vendorID string, periodStart, periodEnd time.Time) (bool, error)
}

// RuleReader 是结算侧对佣金规则解析能力的只读依赖。
// 入账事务内的规则读取与钱包写入必须共享同一个数据库事务，
// 因此该接口由 TxRepos 暴露事务绑定的实现。
type RuleReader interface {
	ResolveCommission(ctx context.Context, vendorID, categoryID, productID string, orderValue float64) (*ResolvedCommission, error)
}

// ResolvedCommission 是规则解析的结果快照，入账时落进流水与事件。
type ResolvedCommission struct {
	RuleID   int64
	RuleName string
	Amount   float64
}

// TxRepos 暴露绑定在同一数据库事务上的各仓储。
type TxRepos interface {
	Wallets() WalletRepository
	Transactions() TransactionRepository
	Payouts() PayoutRepository
	Rules() RuleReader
}

// TransactionScope 在单个数据库事务内执行 fn。
// fn 返回错误时整个事务回滚，否则提交。
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TxRepos) error) error
}

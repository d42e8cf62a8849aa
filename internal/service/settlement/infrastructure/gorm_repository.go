// internal/service/settlement/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bazaar/internal/service/settlement/domain"
)

const mysqlDuplicateEntry = 1062

// GormWalletRepository 是 domain.WalletRepository 的 GORM 实现
type GormWalletRepository struct {
	db *gorm.DB
}

func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

var _ domain.WalletRepository = (*GormWalletRepository)(nil)

func (r *GormWalletRepository) FindByVendor(ctx context.Context, vendorID string) (*domain.VendorWallet, error) {
	var model VendorWalletModel
	err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainWallet(&model), nil
}

func (r *GormWalletRepository) FindByVendorForUpdate(ctx context.Context, vendorID string) (*domain.VendorWallet, error) {
	var model VendorWalletModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainWallet(&model), nil
}

func (r *GormWalletRepository) Save(ctx context.Context, wallet *domain.VendorWallet) error {
	model := fromDomainWallet(wallet)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	wallet.ID = model.ID
	return nil
}

func (r *GormWalletRepository) ListActive(ctx context.Context, since time.Time) ([]*domain.VendorWallet, error) {
	var models []VendorWalletModel
	err := r.db.WithContext(ctx).
		Where("vendor_id IN (?)", r.db.WithContext(ctx).
			Model(&WalletTransactionModel{}).
			Select("DISTINCT vendor_id").
			Where("type = ? AND created_at >= ?", string(domain.TransactionCredit), since)).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	wallets := make([]*domain.VendorWallet, 0, len(models))
	for i := range models {
		wallets = append(wallets, toDomainWallet(&models[i]))
	}
	return wallets, nil
}

// GormTransactionRepository 是 domain.TransactionRepository 的 GORM 实现
type GormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

var _ domain.TransactionRepository = (*GormTransactionRepository)(nil)

func (r *GormTransactionRepository) Append(ctx context.Context, txn *domain.WalletTransaction) error {
	err := r.db.WithContext(ctx).Create(fromDomainTransaction(txn)).Error
	if isDuplicateEntry(err) {
		return domain.ErrDuplicateBooking
	}
	return err
}

func (r *GormTransactionRepository) ExistsByReference(ctx context.Context, referenceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&WalletTransactionModel{}).
		Where("reference_id = ?", referenceID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormTransactionRepository) ListByVendor(ctx context.Context, vendorID string, page, limit int) ([]*domain.WalletTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&WalletTransactionModel{}).Where("vendor_id = ?", vendorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []WalletTransactionModel
	err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	txns := make([]*domain.WalletTransaction, 0, len(models))
	for i := range models {
		txns = append(txns, toDomainTransaction(&models[i]))
	}
	return txns, total, nil
}

// SumSalesByVendor 汇总的是流水上记录的订单销售额，不是佣金金额，
// 结算单在此基础上再按费率抽佣。
func (r *GormTransactionRepository) SumSalesByVendor(ctx context.Context, vendorID string, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&WalletTransactionModel{}).
		Where("vendor_id = ? AND type = ? AND created_at >= ? AND created_at < ?",
			vendorID, string(domain.TransactionCredit), from, to).
		Select("COALESCE(SUM(order_value), 0)").
		Scan(&total).Error
	return total, err
}

// GormPayoutRepository 是 domain.PayoutRepository 的 GORM 实现
type GormPayoutRepository struct {
	db *gorm.DB
}

func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

var _ domain.PayoutRepository = (*GormPayoutRepository)(nil)

func (r *GormPayoutRepository) Create(ctx context.Context, payout *domain.VendorPayout) error {
	model := fromDomainPayout(payout)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	payout.ID = model.ID
	return nil
}

func (r *GormPayoutRepository) Update(ctx context.Context, payout *domain.VendorPayout) error {
	result := r.db.WithContext(ctx).
		Model(&VendorPayoutModel{}).
		Where("id = ?", payout.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(fromDomainPayout(payout))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrPayoutNotFound
	}
	return nil
}

func (r *GormPayoutRepository) FindByID(ctx context.Context, id int64) (*domain.VendorPayout, error) {
	var model VendorPayoutModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainPayout(&model), nil
}

func (r *GormPayoutRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.VendorPayout, error) {
	var model VendorPayoutModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainPayout(&model), nil
}

func (r *GormPayoutRepository) ListByVendor(ctx context.Context, vendorID string, page, limit int) ([]*domain.VendorPayout, int64, error) {
	query := r.db.WithContext(ctx).Model(&VendorPayoutModel{}).Where("vendor_id = ?", vendorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []VendorPayoutModel
	err := query.
		Order("period_start DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	payouts := make([]*domain.VendorPayout, 0, len(models))
	for i := range models {
		payouts = append(payouts, toDomainPayout(&models[i]))
	}
	return payouts, total, nil
}

func (r *GormPayoutRepository) ExistsForPeriod(ctx context.Context, vendorID string, periodStart, periodEnd time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&VendorPayoutModel{}).
		Where("vendor_id = ? AND period_start = ? AND period_end = ? AND status <> ?",
			vendorID, periodStart, periodEnd, string(domain.PayoutCancelled)).
		Count(&count).Error
	return count > 0, err
}

func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

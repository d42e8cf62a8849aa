// internal/service/commission/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bazaar/internal/service/commission/domain"
)

// GormRuleRepository 是 domain.RuleRepository 的 GORM 实现。
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository 创建一个新的 GORM 仓储实例。
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

var _ domain.RuleRepository = (*GormRuleRepository)(nil)

// Create 落盘一条新规则。
// 新规则携带默认标记时，同作用域键下旧的默认规则在同一事务内被加锁清除，
// 保证并发写下 "每个作用域键至多一条默认规则"。
func (r *GormRuleRepository) Create(ctx context.Context, rule *domain.CommissionRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rule.IsDefault {
			if err := clearPreviousDefault(tx, rule.Scope, 0); err != nil {
				return err
			}
		}
		model := fromDomainRule(rule)
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		rule.ID = model.ID
		rule.CreatedAt = model.CreatedAt
		rule.UpdatedAt = model.UpdatedAt
		return nil
	})
}

// Update 全量更新一条规则，默认标记的排他性处理与 Create 相同。
func (r *GormRuleRepository) Update(ctx context.Context, rule *domain.CommissionRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing CommissionRuleModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", rule.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRuleNotFound
			}
			return err
		}

		if rule.IsDefault {
			if err := clearPreviousDefault(tx, rule.Scope, rule.ID); err != nil {
				return err
			}
		}

		model := fromDomainRule(rule)
		return tx.Model(&CommissionRuleModel{}).
			Where("id = ?", rule.ID).
			Select("*").Omit("id", "created_at").
			Updates(model).Error
	})
}

// clearPreviousDefault 清除同作用域键下其他规则的默认标记。
// 先以 SELECT ... FOR UPDATE 锁定旧默认规则的行，再执行更新。
func clearPreviousDefault(tx *gorm.DB, scope domain.Scope, excludeID int64) error {
	var ids []int64
	query := tx.Model(&CommissionRuleModel{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope_kind = ? AND target_id = ? AND is_default = ?", string(scope.Kind), scope.TargetID, true)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to lock previous default rules: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&CommissionRuleModel{}).
		Where("id IN ?", ids).
		Update("is_default", false).Error
}

// Delete 删除一条规则。
func (r *GormRuleRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&CommissionRuleModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// FindByID 按主键查询。
func (r *GormRuleRepository) FindByID(ctx context.Context, id int64) (*domain.CommissionRule, error) {
	var model CommissionRuleModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, err
	}
	return toDomainRule(&model), nil
}

// 允许的排序字段白名单，防止把任意输入拼进 ORDER BY。
var sortColumns = map[string]string{
	"name":       "name",
	"priority":   "priority",
	"value":      "value",
	"created_at": "created_at",
}

// List 按过滤条件分页查询。
func (r *GormRuleRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.CommissionRule, int64, error) {
	query := r.db.WithContext(ctx).Model(&CommissionRuleModel{})

	if filter.ScopeKind != nil {
		query = query.Where("scope_kind = ?", string(*filter.ScopeKind))
	}
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsDefault != nil {
		query = query.Where("is_default = ?", *filter.IsDefault)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}

	var models []*CommissionRuleModel
	err := query.
		Order(fmt.Sprintf("%s %s, id ASC", column, direction)).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainRules(models), total, nil
}

// FindActiveByScope 返回指定作用域下所有启用的规则，按 priority 降序。
func (r *GormRuleRepository) FindActiveByScope(ctx context.Context, scope domain.Scope) ([]*domain.CommissionRule, error) {
	var models []*CommissionRuleModel
	err := r.db.WithContext(ctx).
		Where("scope_kind = ? AND target_id = ? AND is_active = ?", string(scope.Kind), scope.TargetID, true).
		Order("priority DESC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainRules(models), nil
}

// FindGlobalDefault 返回启用的全局默认规则。
func (r *GormRuleRepository) FindGlobalDefault(ctx context.Context) (*domain.CommissionRule, error) {
	var model CommissionRuleModel
	err := r.db.WithContext(ctx).
		Where("scope_kind = ? AND is_default = ? AND is_active = ?", string(domain.ScopeGlobal), true, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, err
	}
	return toDomainRule(&model), nil
}

// Stats 聚合规则统计。
func (r *GormRuleRepository) Stats(ctx context.Context) (*domain.RuleStats, error) {
	stats := &domain.RuleStats{
		ByScope: make(map[domain.ScopeKind]int64),
		ByType:  make(map[domain.RuleType]int64),
	}

	db := r.db.WithContext(ctx).Model(&CommissionRuleModel{})
	if err := db.Session(&gorm.Session{}).Count(&stats.TotalRules).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("is_active = ?", true).Count(&stats.ActiveRules).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("is_default = ?", true).Count(&stats.DefaultRules).Error; err != nil {
		return nil, err
	}

	type groupRow struct {
		Key   string
		Count int64
	}
	var scopeRows []groupRow
	if err := db.Session(&gorm.Session{}).
		Select("scope_kind AS `key`, COUNT(*) AS count").
		Group("scope_kind").Scan(&scopeRows).Error; err != nil {
		return nil, err
	}
	for _, row := range scopeRows {
		stats.ByScope[domain.ScopeKind(row.Key)] = row.Count
	}

	var typeRows []groupRow
	if err := db.Session(&gorm.Session{}).
		Select("type AS `key`, COUNT(*) AS count").
		Group("type").Scan(&typeRows).Error; err != nil {
		return nil, err
	}
	for _, row := range typeRows {
		stats.ByType[domain.RuleType(row.Key)] = row.Count
	}

	return stats, nil
}

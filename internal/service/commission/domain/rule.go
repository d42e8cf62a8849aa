// internal/service/commission/domain/rule.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType 定义了佣金的计算方式。
type RuleType string

const (
	RuleTypeFlat       RuleType = "FLAT"       // 固定金额
	RuleTypePercentage RuleType = "PERCENTAGE" // 按订单金额百分比
)

var oneHundred = decimal.NewFromInt(100)

// CommissionRule 是平台抽佣规则的聚合根。
// 规则按作用域层级（PRODUCT > VENDOR > CATEGORY > GLOBAL）解析，
// 同层级内 Priority 越大越优先。
type CommissionRule struct {
	ID        int64
	Name      string
	Type      RuleType
	Value     decimal.Decimal // FLAT 为金额，PERCENTAGE 为百分比数值
	Scope     Scope
	IsDefault bool
	IsActive  bool

	// 生效窗口与订单金额区间，nil 表示不限制
	MinOrderValue *decimal.Decimal
	MaxOrderValue *decimal.Decimal
	StartDate     *time.Time
	EndDate       *time.Time

	Priority int

	// Condition 是可选的 CEL 表达式，对命中层级后的规则做附加过滤。
	// 空串表示无条件命中。
	Condition string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate 校验规则自身的合法性，创建和更新时都必须通过。
func (r *CommissionRule) Validate() error {
	if err := r.Scope.Validate(); err != nil {
		return err
	}

	switch r.Type {
	case RuleTypeFlat, RuleTypePercentage:
	default:
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRuleValue, r.Type)
	}

	if r.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidRuleValue)
	}
	if r.Type == RuleTypePercentage && r.Value.GreaterThan(oneHundred) {
		return fmt.Errorf("%w: percentage value must not exceed 100", ErrInvalidRuleValue)
	}

	if r.StartDate != nil && r.EndDate != nil && !r.StartDate.Before(*r.EndDate) {
		return ErrInvalidDateRange
	}

	if r.MinOrderValue != nil && r.MaxOrderValue != nil && !r.MinOrderValue.LessThan(*r.MaxOrderValue) {
		return ErrInvalidOrderValueRange
	}

	return nil
}

// IsCurrentlyActive 判断规则在给定时刻是否生效：
// isActive 为真，且当前时刻落在 [StartDate, EndDate] 闭区间内（未设置的一侧不限制）。
func (r *CommissionRule) IsCurrentlyActive(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.StartDate != nil && now.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return false
	}
	return true
}

// CheckOrderValue 校验订单金额落在规则的金额区间内，边界值视为合格。
func (r *CommissionRule) CheckOrderValue(orderValue decimal.Decimal) error {
	if r.MinOrderValue != nil && orderValue.LessThan(*r.MinOrderValue) {
		return ErrOrderValueBelowMinimum
	}
	if r.MaxOrderValue != nil && orderValue.GreaterThan(*r.MaxOrderValue) {
		return ErrOrderValueAboveMaximum
	}
	return nil
}

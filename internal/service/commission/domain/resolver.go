// internal/service/commission/domain/resolver.go
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"bazaar/internal/pkg/logger"
)

// ResolveInput 是一次佣金解析请求的输入。
type ResolveInput struct {
	VendorID   string
	CategoryID string
	ProductID  string
	OrderValue decimal.Decimal
}

// Resolver 按严格的层级优先序解析唯一适用的佣金规则：
// PRODUCT > VENDOR > CATEGORY > GLOBAL 默认规则。
//
// 某一层级只要存在任何启用规则，就在该层级内定胜负（Priority 降序），
// 不再回退到更低层级, 即使命中的规则随后未通过生效窗口或金额区间校验。
type Resolver struct {
	repo   RuleRepository
	engine ConditionEngine // 可为 nil，此时跳过附加条件求值
}

func NewResolver(repo RuleRepository, engine ConditionEngine) *Resolver {
	return &Resolver{repo: repo, engine: engine}
}

// Resolve 返回适用的规则，或以下领域错误之一：
// ErrNoApplicableRule、ErrRuleNotCurrentlyActive、
// ErrOrderValueBelowMinimum、ErrOrderValueAboveMaximum。
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*CommissionRule, error) {
	now := time.Now().UTC()

	var tiers []Scope
	if in.ProductID != "" {
		tiers = append(tiers, ProductScope(in.ProductID))
	}
	if in.VendorID != "" {
		tiers = append(tiers, VendorScope(in.VendorID))
	}
	if in.CategoryID != "" {
		tiers = append(tiers, CategoryScope(in.CategoryID))
	}

	for _, scope := range tiers {
		candidates, err := r.repo.FindActiveByScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}
		// 层级命中：在本层级内挑第一条通过附加条件的规则，不再向下回退
		rule := r.firstPassingCondition(ctx, candidates, in)
		if rule == nil {
			return nil, ErrNoApplicableRule
		}
		return checkEligibility(rule, in.OrderValue, now)
	}

	def, err := r.repo.FindGlobalDefault(ctx)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return nil, ErrNoApplicableRule
		}
		return nil, err
	}
	if !r.conditionPasses(ctx, def, in) {
		return nil, ErrNoApplicableRule
	}
	return checkEligibility(def, in.OrderValue, now)
}

// ResolveAndCalculate 解析规则并计算佣金金额。
func (r *Resolver) ResolveAndCalculate(ctx context.Context, in ResolveInput) (*CommissionRule, decimal.Decimal, error) {
	rule, err := r.Resolve(ctx, in)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return rule, CalculateAmount(rule, in.OrderValue), nil
}

func (r *Resolver) firstPassingCondition(ctx context.Context, candidates []*CommissionRule, in ResolveInput) *CommissionRule {
	for _, rule := range candidates {
		if r.conditionPasses(ctx, rule, in) {
			return rule
		}
	}
	return nil
}

// conditionPasses 对规则的附加 CEL 条件求值。
// 表达式本身非法或求值失败时按不命中处理（fail closed），并记录错误日志。
func (r *Resolver) conditionPasses(ctx context.Context, rule *CommissionRule, in ResolveInput) bool {
	if rule.Condition == "" || r.engine == nil {
		return true
	}
	orderValue, _ := in.OrderValue.Float64()
	ok, err := r.engine.Evaluate(rule.Condition, Fact{
		OrderValue: orderValue,
		VendorID:   in.VendorID,
		CategoryID: in.CategoryID,
		ProductID:  in.ProductID,
	})
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("rule_id", rule.ID).Msg("commission rule condition evaluation failed, treating rule as not applicable")
		return false
	}
	return ok
}

func checkEligibility(rule *CommissionRule, orderValue decimal.Decimal, now time.Time) (*CommissionRule, error) {
	if !rule.IsCurrentlyActive(now) {
		return nil, ErrRuleNotCurrentlyActive
	}
	if err := rule.CheckOrderValue(orderValue); err != nil {
		return nil, err
	}
	return rule, nil
}

// internal/service/commission/infrastructure/mapper.go
package infrastructure

import (
	"bazaar/internal/service/commission/domain"
)

// toDomainRule 将数据库模型转换为领域模型。
func toDomainRule(model *CommissionRuleModel) *domain.CommissionRule {
	if model == nil {
		return nil
	}
	return &domain.CommissionRule{
		ID:            model.ID,
		Name:          model.Name,
		Type:          domain.RuleType(model.Type),
		Value:         model.Value,
		Scope:         domain.Scope{Kind: domain.ScopeKind(model.ScopeKind), TargetID: model.TargetID},
		IsDefault:     model.IsDefault,
		IsActive:      model.IsActive,
		MinOrderValue: model.MinOrderValue,
		MaxOrderValue: model.MaxOrderValue,
		StartDate:     model.StartDate,
		EndDate:       model.EndDate,
		Priority:      model.Priority,
		Condition:     model.Condition,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toDomainRules(models []*CommissionRuleModel) []*domain.CommissionRule {
	rules := make([]*domain.CommissionRule, len(models))
	for i, m := range models {
		rules[i] = toDomainRule(m)
	}
	return rules
}

// fromDomainRule 将领域模型转换为数据库模型。
func fromDomainRule(rule *domain.CommissionRule) *CommissionRuleModel {
	if rule == nil {
		return nil
	}
	return &CommissionRuleModel{
		ID:            rule.ID,
		Name:          rule.Name,
		Type:          string(rule.Type),
		Value:         rule.Value,
		ScopeKind:     string(rule.Scope.Kind),
		TargetID:      rule.Scope.TargetID,
		IsDefault:     rule.IsDefault,
		IsActive:      rule.IsActive,
		MinOrderValue: rule.MinOrderValue,
		MaxOrderValue: rule.MaxOrderValue,
		StartDate:     rule.StartDate,
		EndDate:       rule.EndDate,
		Priority:      rule.Priority,
		Condition:     rule.Condition,
		CreatedAt:     rule.CreatedAt,
		UpdatedAt:     rule.UpdatedAt,
	}
}

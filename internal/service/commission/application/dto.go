// internal/service/commission/application/dto.go
package application

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bazaar/internal/service/commission/domain"
)

// RuleInput 是创建/更新规则共用的请求体。
// scope 与三个目标ID字段必须一致：非 GLOBAL 作用域只允许携带与之匹配的那一个ID。
type RuleInput struct {
	Name       string `json:"name"`
	Type       string `json:"type"`  // FLAT / PERCENTAGE
	Value      float64 `json:"value"`
	Scope      string `json:"scope"` // GLOBAL / CATEGORY / VENDOR / PRODUCT
	CategoryID string `json:"category_id,omitempty"`
	VendorID   string `json:"vendor_id,omitempty"`
	ProductID  string `json:"product_id,omitempty"`

	IsDefault bool  `json:"is_default"`
	IsActive  *bool `json:"is_active,omitempty"` // 缺省为 true

	MinOrderValue *float64   `json:"min_order_value,omitempty"`
	MaxOrderValue *float64   `json:"max_order_value,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`

	Priority  int    `json:"priority"`
	Condition string `json:"condition,omitempty"`
}

// ToDomain 把请求体转换为领域对象。作用域与ID不一致时返回 ErrInvalidScope。
func (in *RuleInput) ToDomain() (*domain.CommissionRule, error) {
	scope, err := in.buildScope()
	if err != nil {
		return nil, err
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	rule := &domain.CommissionRule{
		Name:      in.Name,
		Type:      domain.RuleType(in.Type),
		Value:     decimal.NewFromFloat(in.Value),
		Scope:     scope,
		IsDefault: in.IsDefault,
		IsActive:  isActive,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Priority:  in.Priority,
		Condition: in.Condition,
	}
	if in.MinOrderValue != nil {
		v := decimal.NewFromFloat(*in.MinOrderValue)
		rule.MinOrderValue = &v
	}
	if in.MaxOrderValue != nil {
		v := decimal.NewFromFloat(*in.MaxOrderValue)
		rule.MaxOrderValue = &v
	}
	return rule, nil
}

func (in *RuleInput) buildScope() (domain.Scope, error) {
	reject := func(field string) (domain.Scope, error) {
		return domain.Scope{}, fmt.Errorf("%w: %s scope must not carry %s", domain.ErrInvalidScope, in.Scope, field)
	}

	switch domain.ScopeKind(in.Scope) {
	case domain.ScopeGlobal:
		if in.CategoryID != "" || in.VendorID != "" || in.ProductID != "" {
			return reject("any target id")
		}
		return domain.GlobalScope(), nil
	case domain.ScopeCategory:
		if in.VendorID != "" {
			return reject("vendor_id")
		}
		if in.ProductID != "" {
			return reject("product_id")
		}
		return domain.CategoryScope(in.CategoryID), nil
	case domain.ScopeVendor:
		if in.CategoryID != "" {
			return reject("category_id")
		}
		if in.ProductID != "" {
			return reject("product_id")
		}
		return domain.VendorScope(in.VendorID), nil
	case domain.ScopeProduct:
		if in.CategoryID != "" {
			return reject("category_id")
		}
		if in.VendorID != "" {
			return reject("vendor_id")
		}
		return domain.ProductScope(in.ProductID), nil
	default:
		return domain.Scope{}, fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidScope, in.Scope)
	}
}

// UpdateRuleRequest 是全量更新请求。
type UpdateRuleRequest struct {
	ID int64 `json:"id"`
	RuleInput
}

// RuleResponse 是规则的对外表示。
type RuleResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Value      float64 `json:"value"`
	Scope      string  `json:"scope"`
	CategoryID string  `json:"category_id,omitempty"`
	VendorID   string  `json:"vendor_id,omitempty"`
	ProductID  string  `json:"product_id,omitempty"`

	IsDefault bool `json:"is_default"`
	IsActive  bool `json:"is_active"`

	MinOrderValue *float64   `json:"min_order_value,omitempty"`
	MaxOrderValue *float64   `json:"max_order_value,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`

	Priority  int       `json:"priority"`
	Condition string    `json:"condition,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRuleResponse 把领域对象转换为对外表示。
func NewRuleResponse(rule *domain.CommissionRule) *RuleResponse {
	resp := &RuleResponse{
		ID:        rule.ID,
		Name:      rule.Name,
		Type:      string(rule.Type),
		Value:     rule.Value.InexactFloat64(),
		Scope:     string(rule.Scope.Kind),
		IsDefault: rule.IsDefault,
		IsActive:  rule.IsActive,
		StartDate: rule.StartDate,
		EndDate:   rule.EndDate,
		Priority:  rule.Priority,
		Condition: rule.Condition,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
	switch rule.Scope.Kind {
	case domain.ScopeCategory:
		resp.CategoryID = rule.Scope.TargetID
	case domain.ScopeVendor:
		resp.VendorID = rule.Scope.TargetID
	case domain.ScopeProduct:
		resp.ProductID = rule.Scope.TargetID
	}
	if rule.MinOrderValue != nil {
		v := rule.MinOrderValue.InexactFloat64()
		resp.MinOrderValue = &v
	}
	if rule.MaxOrderValue != nil {
		v := rule.MaxOrderValue.InexactFloat64()
		resp.MaxOrderValue = &v
	}
	return resp
}

// ListRulesResponse 是分页列表响应。
type ListRulesResponse struct {
	Items []*RuleResponse `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// CalculateRequest 对应订单完成时的佣金试算/解析请求。
type CalculateRequest struct {
	VendorID   string  `json:"vendor_id"`
	CategoryID string  `json:"category_id"`
	ProductID  string  `json:"product_id"`
	OrderValue float64 `json:"order_value"`
}

// CalculateResponse 返回命中的规则与计算出的佣金金额。
type CalculateResponse struct {
	Commission *RuleResponse `json:"commission"`
	Amount     float64       `json:"amount"`
}

// StatsResponse 是规则统计响应。
type StatsResponse struct {
	TotalRules   int64            `json:"total_rules"`
	ActiveRules  int64            `json:"active_rules"`
	DefaultRules int64            `json:"default_rules"`
	ByScope      map[string]int64 `json:"by_scope"`
	ByType       map[string]int64 `json:"by_type"`
}

// internal/service/commission/application/service.go
package application

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/commission/domain"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// CommissionService 定义了佣金规则管理与解析的所有业务用例。
type CommissionService struct {
	repo     domain.RuleRepository
	resolver *domain.Resolver
	tracer   trace.Tracer
}

// NewCommissionService 创建一个新的佣金服务实例。engine 可为 nil。
func NewCommissionService(repo domain.RuleRepository, engine domain.ConditionEngine, tracer trace.Tracer) *CommissionService {
	return &CommissionService{
		repo:     repo,
		resolver: domain.NewResolver(repo, engine),
		tracer:   tracer,
	}
}

// CreateRule 创建一条佣金规则。
// 规则携带 isDefault=true 时，同作用域键下旧的默认标记由仓储在同一事务内清除。
func (s *CommissionService) CreateRule(ctx context.Context, in *RuleInput) (*RuleResponse, error) {
	ctx, span := s.tracer.Start(ctx, "commission.CreateRule")
	defer span.End()

	rule, err := in.ToDomain()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist commission rule")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("rule.id", rule.ID),
		attribute.String("rule.scope", rule.Scope.Key()),
	)
	logger.Ctx(ctx).Info().Int64("rule_id", rule.ID).Str("scope", rule.Scope.Key()).Msg("Commission rule created")
	return NewRuleResponse(rule), nil
}

// UpdateRule 全量更新一条规则。
func (s *CommissionService) UpdateRule(ctx context.Context, req *UpdateRuleRequest) (*RuleResponse, error) {
	ctx, span := s.tracer.Start(ctx, "commission.UpdateRule")
	defer span.End()
	span.SetAttributes(attribute.Int64("rule.id", req.ID))

	existing, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	rule, err := req.ToDomain()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	if err := rule.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update commission rule")
		return nil, err
	}

	logger.Ctx(ctx).Info().Int64("rule_id", rule.ID).Msg("Commission rule updated")
	return NewRuleResponse(rule), nil
}

// DeleteRule 删除一条规则。
func (s *CommissionService) DeleteRule(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "commission.DeleteRule")
	defer span.End()
	span.SetAttributes(attribute.Int64("rule.id", id))

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	logger.Ctx(ctx).Info().Int64("rule_id", id).Msg("Commission rule deleted")
	return nil
}

// GetRule 按ID查询规则。
func (s *CommissionService) GetRule(ctx context.Context, id int64) (*RuleResponse, error) {
	ctx, span := s.tracer.Start(ctx, "commission.GetRule")
	defer span.End()

	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return NewRuleResponse(rule), nil
}

// ListRules 分页查询规则列表。
func (s *CommissionService) ListRules(ctx context.Context, filter domain.ListFilter) (*ListRulesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "commission.ListRules")
	defer span.End()

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	rules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list commission rules")
		return nil, err
	}

	items := make([]*RuleResponse, len(rules))
	for i, rule := range rules {
		items[i] = NewRuleResponse(rule)
	}
	return &ListRulesResponse{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// Calculate 为一笔销售解析唯一适用的规则并计算佣金金额。
func (s *CommissionService) Calculate(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "commission.Calculate")
	defer span.End()

	span.SetAttributes(
		attribute.String("vendor.id", req.VendorID),
		attribute.String("category.id", req.CategoryID),
		attribute.String("product.id", req.ProductID),
		attribute.Float64("order.value", req.OrderValue),
	)

	rule, amount, err := s.resolver.ResolveAndCalculate(ctx, domain.ResolveInput{
		VendorID:   req.VendorID,
		CategoryID: req.CategoryID,
		ProductID:  req.ProductID,
		OrderValue: decimal.NewFromFloat(req.OrderValue),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.AddEvent("Commission resolved", trace.WithAttributes(
		attribute.Int64("rule.id", rule.ID),
		attribute.String("rule.scope", rule.Scope.Key()),
	))
	return &CalculateResponse{
		Commission: NewRuleResponse(rule),
		Amount:     amount.InexactFloat64(),
	}, nil
}

// Stats 返回规则统计。
func (s *CommissionService) Stats(ctx context.Context) (*StatsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "commission.Stats")
	defer span.End()

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp := &StatsResponse{
		TotalRules:   stats.TotalRules,
		ActiveRules:  stats.ActiveRules,
		DefaultRules: stats.DefaultRules,
		ByScope:      make(map[string]int64, len(stats.ByScope)),
		ByType:       make(map[string]int64, len(stats.ByType)),
	}
	for kind, count := range stats.ByScope {
		resp.ByScope[string(kind)] = count
	}
	for ruleType, count := range stats.ByType {
		resp.ByType[string(ruleType)] = count
	}
	return resp, nil
}

package domain

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuleRepository 是内存版 RuleRepository，按作用域键分桶并模拟 Priority 降序返回。
type fakeRuleRepository struct {
	rules  map[string][]*CommissionRule
	nextID int64
}

func newFakeRuleRepository() *fakeRuleRepository {
	return &fakeRuleRepository{rules: make(map[string][]*CommissionRule)}
}

func (f *fakeRuleRepository) add(rule *CommissionRule) *CommissionRule {
	f.nextID++
	rule.ID = f.nextID
	key := rule.Scope.Key()
	f.rules[key] = append(f.rules[key], rule)
	return rule
}

func (f *fakeRuleRepository) Create(ctx context.Context, rule *CommissionRule) error {
	f.add(rule)
	return nil
}

func (f *fakeRuleRepository) Update(ctx context.Context, rule *CommissionRule) error {
	return nil
}

func (f *fakeRuleRepository) Delete(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeRuleRepository) FindByID(ctx context.Context, id int64) (*CommissionRule, error) {
	for _, bucket := range f.rules {
		for _, rule := range bucket {
			if rule.ID == id {
				return rule, nil
			}
		}
	}
	return nil, ErrRuleNotFound
}

func (f *fakeRuleRepository) List(ctx context.Context, filter ListFilter) ([]*CommissionRule, int64, error) {
	var all []*CommissionRule
	for _, bucket := range f.rules {
		all = append(all, bucket...)
	}
	return all, int64(len(all)), nil
}

func (f *fakeRuleRepository) FindActiveByScope(ctx context.Context, scope Scope) ([]*CommissionRule, error) {
	var active []*CommissionRule
	for _, rule := range f.rules[scope.Key()] {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})
	return active, nil
}

func (f *fakeRuleRepository) FindGlobalDefault(ctx context.Context) (*CommissionRule, error) {
	for _, rule := range f.rules[GlobalScope().Key()] {
		if rule.IsDefault && rule.IsActive {
			return rule, nil
		}
	}
	return nil, ErrRuleNotFound
}

func (f *fakeRuleRepository) Stats(ctx context.Context) (*RuleStats, error) {
	return &RuleStats{}, nil
}

// fakeConditionEngine 按预设表返回求值结果。
type fakeConditionEngine struct {
	results map[string]bool
	err     error
}

func (f *fakeConditionEngine) Evaluate(condition string, fact Fact) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.results[condition], nil
}

func percentageRule(name string, value int64, scope Scope) *CommissionRule {
	return &CommissionRule{
		Name:     name,
		Type:     RuleTypePercentage,
		Value:    decimal.NewFromInt(value),
		Scope:    scope,
		IsActive: true,
	}
}

func TestResolver_TierPrecedence(t *testing.T) {
	repo := newFakeRuleRepository()
	product := repo.add(percentageRule("product rule", 5, ProductScope("p-1")))
	repo.add(percentageRule("vendor rule", 8, VendorScope("v-1")))
	repo.add(percentageRule("category rule", 12, CategoryScope("cat-1")))

	resolver := NewResolver(repo, nil)

	// 三个层级都命中时，PRODUCT 胜出，即使其它层级的 Priority 更高
	rule, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		CategoryID: "cat-1",
		ProductID:  "p-1",
		OrderValue: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, product.ID, rule.ID)
}

func TestResolver_FallsThroughEmptyTiers(t *testing.T) {
	repo := newFakeRuleRepository()
	vendor := repo.add(percentageRule("vendor rule", 8, VendorScope("v-1")))

	resolver := NewResolver(repo, nil)

	rule, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		CategoryID: "cat-1",
		ProductID:  "p-1",
		OrderValue: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, rule.ID)
}

func TestResolver_PriorityWithinTier(t *testing.T) {
	repo := newFakeRuleRepository()
	low := percentageRule("low priority", 5, VendorScope("v-1"))
	low.Priority = 1
	repo.add(low)
	high := percentageRule("high priority", 7, VendorScope("v-1"))
	high.Priority = 10
	high = repo.add(high)

	resolver := NewResolver(repo, nil)

	rule, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		OrderValue: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, high.ID, rule.ID)
}

func TestResolver_NoFallbackAfterTierHit(t *testing.T) {
	repo := newFakeRuleRepository()
	future := time.Now().UTC().Add(48 * time.Hour)
	productRule := percentageRule("not yet active", 5, ProductScope("p-1"))
	productRule.StartDate = &future
	repo.add(productRule)
	// 更低层级存在一条完全合格的规则，但不应被考虑
	repo.add(percentageRule("vendor rule", 8, VendorScope("v-1")))

	resolver := NewResolver(repo, nil)

	_, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		ProductID:  "p-1",
		OrderValue: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, ErrRuleNotCurrentlyActive)
}

func TestResolver_OrderValueEligibility(t *testing.T) {
	tests := []struct {
		name       string
		orderValue string
		wantErr    error
	}{
		{name: "inside range", orderValue: "100"},
		{name: "min boundary", orderValue: "50"},
		{name: "max boundary", orderValue: "500"},
		{name: "below minimum", orderValue: "49.99", wantErr: ErrOrderValueBelowMinimum},
		{name: "above maximum", orderValue: "500.01", wantErr: ErrOrderValueAboveMaximum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRuleRepository()
			rule := percentageRule("bounded rule", 10, VendorScope("v-1"))
			rule.MinOrderValue = decPtr("50")
			rule.MaxOrderValue = decPtr("500")
			repo.add(rule)

			resolver := NewResolver(repo, nil)
			_, err := resolver.Resolve(context.Background(), ResolveInput{
				VendorID:   "v-1",
				OrderValue: decimal.RequireFromString(tt.orderValue),
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResolver_GlobalDefaultFallback(t *testing.T) {
	repo := newFakeRuleRepository()
	def := percentageRule("platform default", 3, GlobalScope())
	def.IsDefault = true
	def = repo.add(def)

	resolver := NewResolver(repo, nil)

	rule, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		CategoryID: "cat-1",
		OrderValue: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, def.ID, rule.ID)
}

func TestResolver_NoApplicableRule(t *testing.T) {
	resolver := NewResolver(newFakeRuleRepository(), nil)

	_, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		OrderValue: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, ErrNoApplicableRule)
}

func TestResolver_ConditionFiltersWithinTier(t *testing.T) {
	repo := newFakeRuleRepository()
	conditional := percentageRule("big orders only", 15, VendorScope("v-1"))
	conditional.Priority = 10
	conditional.Condition = "order_value > 500.0"
	repo.add(conditional)
	fallback := percentageRule("any order", 8, VendorScope("v-1"))
	fallback.Priority = 1
	fallback = repo.add(fallback)

	engine := &fakeConditionEngine{results: map[string]bool{"order_value > 500.0": false}}
	resolver := NewResolver(repo, engine)

	// 条件不满足时落到同层级的下一条规则，而不是下一层级
	rule, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		OrderValue: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, rule.ID)
}

func TestResolver_ConditionFailureIsFailClosed(t *testing.T) {
	repo := newFakeRuleRepository()
	rule := percentageRule("broken condition", 10, VendorScope("v-1"))
	rule.Condition = "not valid cel ((("
	repo.add(rule)

	engine := &fakeConditionEngine{err: assert.AnError}
	resolver := NewResolver(repo, engine)

	_, err := resolver.Resolve(context.Background(), ResolveInput{
		VendorID:   "v-1",
		OrderValue: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, ErrNoApplicableRule)
}

func TestResolver_ResolveAndCalculate_EndToEnd(t *testing.T) {
	repo := newFakeRuleRepository()
	repo.add(percentageRule("category rule", 12, CategoryScope("cat-1")))
	repo.add(percentageRule("product rule", 5, ProductScope("p-1")))

	resolver := NewResolver(repo, nil)

	rule, amount, err := resolver.ResolveAndCalculate(context.Background(), ResolveInput{
		CategoryID: "cat-1",
		ProductID:  "p-1",
		OrderValue: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "product rule", rule.Name)
	assert.True(t, amount.Equal(decimal.NewFromInt(50)), "want 50, got %s", amount)
}

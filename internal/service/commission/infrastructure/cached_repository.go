// internal/service/commission/infrastructure/cached_repository.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"bazaar/internal/pkg/logger"
	redispkg "bazaar/internal/pkg/redis"
	"bazaar/internal/service/commission/domain"
)

const (
	ruleCacheKeyPrefix    = "commission:rules:"
	globalDefaultCacheKey = "commission:rules:GLOBAL_DEFAULT"
	ruleCacheTTL          = 5 * time.Minute
)

// CachedRuleRepository 是 RuleRepository 的 read-through 缓存装饰器。
// 只缓存解析热路径（按作用域取候选规则、取全局默认规则），
// 写操作直写底层仓储并失效相关缓存键。缓存故障一律降级为直查数据库。
type CachedRuleRepository struct {
	inner domain.RuleRepository
	rdb   *redispkg.Client
}

func NewCachedRuleRepository(inner domain.RuleRepository, rdb *redispkg.Client) *CachedRuleRepository {
	return &CachedRuleRepository{inner: inner, rdb: rdb}
}

var _ domain.RuleRepository = (*CachedRuleRepository)(nil)

func (r *CachedRuleRepository) FindActiveByScope(ctx context.Context, scope domain.Scope) ([]*domain.CommissionRule, error) {
	key := ruleCacheKeyPrefix + scope.Key()

	if cached, err := r.rdb.Get(ctx, key); err == nil {
		var rules []*domain.CommissionRule
		if jsonErr := json.Unmarshal([]byte(cached), &rules); jsonErr == nil {
			return rules, nil
		}
		// 缓存内容损坏时删除后回源
		_ = r.rdb.Del(ctx, key)
	} else if !redispkg.IsNil(err) {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("rule cache read failed, falling back to database")
	}

	rules, err := r.inner.FindActiveByScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	// 空候选列表同样缓存，避免未配置规则的作用域反复穿透
	if data, jsonErr := json.Marshal(rules); jsonErr == nil {
		if cacheErr := r.rdb.Set(ctx, key, data, ruleCacheTTL); cacheErr != nil {
			logger.Ctx(ctx).Warn().Err(cacheErr).Str("key", key).Msg("rule cache write failed")
		}
	}
	return rules, nil
}

func (r *CachedRuleRepository) FindGlobalDefault(ctx context.Context) (*domain.CommissionRule, error) {
	if cached, err := r.rdb.Get(ctx, globalDefaultCacheKey); err == nil {
		var rule domain.CommissionRule
		if jsonErr := json.Unmarshal([]byte(cached), &rule); jsonErr == nil {
			return &rule, nil
		}
		_ = r.rdb.Del(ctx, globalDefaultCacheKey)
	}

	rule, err := r.inner.FindGlobalDefault(ctx)
	if err != nil {
		return nil, err
	}
	if data, jsonErr := json.Marshal(rule); jsonErr == nil {
		_ = r.rdb.Set(ctx, globalDefaultCacheKey, data, ruleCacheTTL)
	}
	return rule, nil
}

func (r *CachedRuleRepository) Create(ctx context.Context, rule *domain.CommissionRule) error {
	if err := r.inner.Create(ctx, rule); err != nil {
		return err
	}
	r.invalidate(ctx, rule.Scope)
	return nil
}

func (r *CachedRuleRepository) Update(ctx context.Context, rule *domain.CommissionRule) error {
	// 作用域可能被本次更新修改，旧作用域的候选列表也要失效
	oldScope := rule.Scope
	if existing, err := r.inner.FindByID(ctx, rule.ID); err == nil {
		oldScope = existing.Scope
	}
	if err := r.inner.Update(ctx, rule); err != nil {
		return err
	}
	r.invalidate(ctx, oldScope, rule.Scope)
	return nil
}

func (r *CachedRuleRepository) Delete(ctx context.Context, id int64) error {
	scope, haveScope := domain.Scope{}, false
	if existing, err := r.inner.FindByID(ctx, id); err == nil {
		scope, haveScope = existing.Scope, true
	}
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	if haveScope {
		r.invalidate(ctx, scope)
	}
	return nil
}

func (r *CachedRuleRepository) invalidate(ctx context.Context, scopes ...domain.Scope) {
	keys := []string{globalDefaultCacheKey}
	for _, scope := range scopes {
		keys = append(keys, ruleCacheKeyPrefix+scope.Key())
	}
	if err := r.rdb.Del(ctx, keys...); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("rule cache invalidation failed")
	}
}

func (r *CachedRuleRepository) FindByID(ctx context.Context, id int64) (*domain.CommissionRule, error) {
	return r.inner.FindByID(ctx, id)
}

func (r *CachedRuleRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.CommissionRule, int64, error) {
	return r.inner.List(ctx, filter)
}

func (r *CachedRuleRepository) Stats(ctx context.Context) (*domain.RuleStats, error) {
	return r.inner.Stats(ctx)
}

// internal/service/commission/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ListFilter 描述规则列表查询的过滤、排序与分页参数。
type ListFilter struct {
	Page  int
	Limit int

	SortBy    string // name / priority / created_at，默认 created_at
	SortOrder string // asc / desc，默认 desc

	ScopeKind   *ScopeKind
	Type        *RuleType
	TargetID    string
	IsActive    *bool
	IsDefault   *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// RuleStats 是规则统计聚合结果。
type RuleStats struct {
	TotalRules   int64
	ActiveRules  int64
	DefaultRules int64
	ByScope      map[ScopeKind]int64
	ByType       map[RuleType]int64
}

// RuleRepository 定义了佣金规则的持久化接口。
//
// Create/Update 携带 IsDefault=true 时，实现必须在同一个数据库事务内、
// 对同作用域键的旧默认规则加行锁后清除其默认标记，再落盘新规则，
// 以保证 "每个作用域键至多一条默认规则" 的不变量在并发写下成立。
type RuleRepository interface {
	Create(ctx context.Context, rule *CommissionRule) error
	Update(ctx context.Context, rule *CommissionRule) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*CommissionRule, error)
	List(ctx context.Context, filter ListFilter) ([]*CommissionRule, int64, error)

	// FindActiveByScope 返回指定作用域下所有启用的规则，按 priority 降序。
	FindActiveByScope(ctx context.Context, scope Scope) ([]*CommissionRule, error)
	// FindGlobalDefault 返回全局默认规则；不存在时返回 ErrRuleNotFound。
	FindGlobalDefault(ctx context.Context) (*CommissionRule, error)

	Stats(ctx context.Context) (*RuleStats, error)
}

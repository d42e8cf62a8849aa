// internal/service/commission/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionRuleModel 是 CommissionRule 领域对象在数据库中的表示。
// (scope_kind, target_id) 组成解析热路径上的联合索引。
type CommissionRuleModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(255);not null"`
	Type      string `gorm:"type:varchar(16);not null"`
	Value     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ScopeKind string `gorm:"type:varchar(16);not null;index:idx_scope,priority:1"`
	TargetID  string `gorm:"type:varchar(64);not null;default:'';index:idx_scope,priority:2"`
	IsDefault bool   `gorm:"not null;default:false"`
	IsActive  bool   `gorm:"not null;default:true"`

	MinOrderValue *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MaxOrderValue *decimal.Decimal `gorm:"type:decimal(12,2)"`
	StartDate     *time.Time
	EndDate       *time.Time

	Priority  int    `gorm:"not null;default:0"`
	Condition string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CommissionRuleModel) TableName() string {
	return "commission_rules"
}

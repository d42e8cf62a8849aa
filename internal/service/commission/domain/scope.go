// internal/service/commission/domain/scope.go
package domain

import "fmt"

// ScopeKind 定义了佣金规则的作用层级。
type ScopeKind string

const (
	ScopeGlobal   ScopeKind = "GLOBAL"
	ScopeCategory ScopeKind = "CATEGORY"
	ScopeVendor   ScopeKind = "VENDOR"
	ScopeProduct  ScopeKind = "PRODUCT"
)

// Scope 是带标签的作用域值对象。
// 非 GLOBAL 作用域必须且只能携带与标签匹配的一个目标ID，
// 这样 "作用域与ID必须一致" 的约束在构造时就被固定，而不是运行期的空值检查。
type Scope struct {
	Kind     ScopeKind
	TargetID string // GLOBAL 时为空
}

func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

func CategoryScope(categoryID string) Scope {
	return Scope{Kind: ScopeCategory, TargetID: categoryID}
}

func VendorScope(vendorID string) Scope {
	return Scope{Kind: ScopeVendor, TargetID: vendorID}
}

func ProductScope(productID string) Scope {
	return Scope{Kind: ScopeProduct, TargetID: productID}
}

// Validate 校验作用域标签与目标ID的一致性。
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeGlobal:
		if s.TargetID != "" {
			return fmt.Errorf("%w: global scope must not carry a target id", ErrInvalidScope)
		}
	case ScopeCategory, ScopeVendor, ScopeProduct:
		if s.TargetID == "" {
			return fmt.Errorf("%w: %s scope requires a target id", ErrInvalidScope, s.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown scope kind %q", ErrInvalidScope, s.Kind)
	}
	return nil
}

// Key 返回作用域的唯一键，用于默认规则的排他范围和缓存键。
func (s Scope) Key() string {
	if s.Kind == ScopeGlobal {
		return string(ScopeGlobal)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.TargetID)
}

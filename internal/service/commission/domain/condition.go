// internal/service/commission/domain/condition.go
package domain

// Fact 是规则条件表达式求值时可见的事实集合。
type Fact struct {
	OrderValue float64 `json:"order_value"`
	VendorID   string  `json:"vendor_id"`
	CategoryID string  `json:"category_id"`
	ProductID  string  `json:"product_id"`
}

// ConditionEngine 定义了规则附加条件的求值接口。
// 这是领域层与具体表达式引擎（基础设施层的 CEL 适配器）之间的插座。
type ConditionEngine interface {
	Evaluate(condition string, fact Fact) (bool, error)
}

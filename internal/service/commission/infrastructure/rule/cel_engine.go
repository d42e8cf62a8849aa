// internal/service/commission/infrastructure/rule/cel_engine.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"bazaar/internal/service/commission/domain"
)

// CELEngineAdapter 是 domain.ConditionEngine 接口的 CEL 实现。
// 它将 cel-go 的 API 适配到我们自己的领域接口，规则条件以 CEL 表达式
// 的形式存储在规则上，例如 "order_value > 500.0 && vendor_id != 'v-9'"。
// 编译后的程序按表达式文本缓存，解析热路径只付一次编译成本。
type CELEngineAdapter struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCELEngineAdapter 创建规则条件引擎。环境中声明的变量与 domain.Fact 一一对应。
func NewCELEngineAdapter() (*CELEngineAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("order_value", cel.DoubleType),
		cel.Variable("vendor_id", cel.StringType),
		cel.Variable("category_id", cel.StringType),
		cel.Variable("product_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel environment: %w", err)
	}
	return &CELEngineAdapter{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现 domain.ConditionEngine 接口。
// 表达式必须求值为布尔类型，否则视为规则定义错误。
func (a *CELEngineAdapter) Evaluate(condition string, fact domain.Fact) (bool, error) {
	prg, err := a.program(condition)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"order_value": fact.OrderValue,
		"vendor_id":   fact.VendorID,
		"category_id": fact.CategoryID,
		"product_id":  fact.ProductID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition %q: %w", condition, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean", condition)
	}
	return result, nil
}

func (a *CELEngineAdapter) program(condition string) (cel.Program, error) {
	a.mu.RLock()
	prg, ok := a.programs[condition]
	a.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := a.env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile condition %q: %w", condition, issues.Err())
	}
	prg, err := a.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program for condition %q: %w", condition, err)
	}

	a.mu.Lock()
	a.programs[condition] = prg
	a.mu.Unlock()
	return prg, nil
}

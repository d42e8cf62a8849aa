// internal/service/commission/domain/calculator.go
package domain

import "github.com/shopspring/decimal"

// CalculateAmount 根据已解析出的规则计算佣金金额。
// PERCENTAGE: orderValue * value / 100；FLAT: value（与订单金额无关）。
// 结果保留两位小数，按分位做标准货币舍入（round-half-up）。
func CalculateAmount(rule *CommissionRule, orderValue decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch rule.Type {
	case RuleTypePercentage:
		amount = orderValue.Mul(rule.Value).Div(oneHundred)
	case RuleTypeFlat:
		amount = rule.Value
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

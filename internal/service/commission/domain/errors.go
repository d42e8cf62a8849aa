// internal/service/commission/domain/errors.go
package domain

import "errors"

// 解析与校验失败的领域错误。接口层通过 errors.Is 将它们映射为 HTTP 状态码。
var (
	ErrRuleNotFound           = errors.New("commission rule not found")
	ErrNoApplicableRule       = errors.New("no applicable commission found")
	ErrRuleNotCurrentlyActive = errors.New("commission is not currently active")
	ErrOrderValueBelowMinimum = errors.New("order value is below the commission's minimum order value")
	ErrOrderValueAboveMaximum = errors.New("order value exceeds the commission's maximum order value")

	ErrInvalidScope           = errors.New("invalid commission scope")
	ErrInvalidRuleValue       = errors.New("invalid commission value")
	ErrInvalidDateRange       = errors.New("commission start date must be before end date")
	ErrInvalidOrderValueRange = errors.New("commission min order value must be below max order value")
)

package domain

import "errors"

// 领域错误定义。接口层通过 errors.Is 将其映射为 HTTP 状态码。
var (
	ErrWalletNotFound       = errors.New("vendor wallet not found")
	ErrPayoutNotFound       = errors.New("vendor payout not found")
	ErrInsufficientBalance  = errors.New("insufficient wallet balance")
	ErrDuplicateBooking     = errors.New("commission already booked for this reference")
	ErrPayoutStateInvalid   = errors.New("payout state transition not allowed")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidPayoutPeriod  = errors.New("payout period start must be before end")
)

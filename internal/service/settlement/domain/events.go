package domain

import "time"

// OrderCompletedEvent 是订单域发布的完成事件，结算服务消费它入账佣金。
// OrderID 作为幂等键，同一订单只允许入账一次。
type OrderCompletedEvent struct {
	OrderID     string    `json:"order_id"`
	VendorID    string    `json:"vendor_id"`
	CategoryID  string    `json:"category_id,omitempty"`
	ProductID   string    `json:"product_id,omitempty"`
	OrderValue  float64   `json:"order_value"`
	CompletedAt time.Time `json:"completed_at"`
}

// CommissionBookedEvent 在佣金成功入账后发布，供下游（推送网关等）消费。
type CommissionBookedEvent struct {
	OrderID          string    `json:"order_id"`
	VendorID         string    `json:"vendor_id"`
	RuleID           int64     `json:"rule_id"`
	RuleName         string    `json:"rule_name"`
	OrderValue       float64   `json:"order_value"`
	CommissionAmount float64   `json:"commission_amount"`
	WalletBalance    float64   `json:"wallet_balance"`
	BookedAt         time.Time `json:"booked_at"`
}

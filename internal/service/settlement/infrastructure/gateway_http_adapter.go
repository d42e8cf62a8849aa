// internal/service/settlement/infrastructure/gateway_http_adapter.go
package infrastructure

import (
	"context"
	"fmt"

	"bazaar/internal/pkg/httpclient"
	"bazaar/internal/service/settlement/domain"
)

// HTTPPaymentGateway 通过带链路追踪的 HTTP 客户端调用外部打款通道。
type HTTPPaymentGateway struct {
	client  *httpclient.Client
	baseURL string
}

func NewHTTPPaymentGateway(client *httpclient.Client, baseURL string) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{client: client, baseURL: baseURL}
}

type disburseRequest struct {
	PayoutID  int64   `json:"payout_id"`
	VendorID  string  `json:"vendor_id"`
	NetAmount float64 `json:"net_amount"`
	Currency  string  `json:"currency"`
}

type disburseResponse struct {
	TransactionRef string `json:"transaction_ref"`
	Status         string `json:"status"`
}

func (g *HTTPPaymentGateway) Disburse(ctx context.Context, payout *domain.VendorPayout) (string, error) {
	req := disburseRequest{
		PayoutID:  payout.ID,
		VendorID:  payout.VendorID,
		NetAmount: payout.NetAmount.InexactFloat64(),
		Currency:  "USD",
	}

	var resp disburseResponse
	if err := g.client.PostJSON(ctx, g.baseURL+"/disburse", req, &resp); err != nil {
		return "", err
	}
	if resp.Status != "accepted" {
		return "", fmt.Errorf("payment gateway rejected disbursement for payout %d: %s", payout.ID, resp.Status)
	}
	return resp.TransactionRef, nil
}

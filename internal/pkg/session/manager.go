// internal/pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	gatewayKeyPrefix = "push:vendor_gateway:"
	sessionTTL       = 24 * time.Hour
)

// Manager 维护 "vendorID -> 网关节点" 的会话映射。
// 推送方查询该映射即可知道某个商家当前连接在哪个网关节点上。
type Manager struct {
	rdb redis.UniversalClient
}

func NewManager(addr string) *Manager {
	return &Manager{
		rdb: redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}}),
	}
}

// SetVendorGateway 记录商家连接所在的网关节点。
func (m *Manager) SetVendorGateway(ctx context.Context, vendorID, nodeID string) error {
	return m.rdb.Set(ctx, gatewayKeyPrefix+vendorID, nodeID, sessionTTL).Err()
}

// GetVendorGateway 查询商家当前所在的网关节点，不在线时返回空串。
func (m *Manager) GetVendorGateway(ctx context.Context, vendorID string) (string, error) {
	node, err := m.rdb.Get(ctx, gatewayKeyPrefix+vendorID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query vendor gateway session: %w", err)
	}
	return node, nil
}

// RemoveVendorGateway 在连接断开时清理会话映射。
func (m *Manager) RemoveVendorGateway(ctx context.Context, vendorID string) error {
	return m.rdb.Del(ctx, gatewayKeyPrefix+vendorID).Err()
}

// internal/zookeeper/conn.go
package zookeeper

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

// Conn 封装了 ZooKeeper 连接。
type Conn struct {
	*zk.Conn
}

// Connect 建立到 ZooKeeper 集群的连接。addrs 为逗号分隔的地址列表。
func Connect(addrs string) (*Conn, error) {
	conn, _, err := zk.Connect(strings.Split(addrs, ","), 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper at %s: %w", addrs, err)
	}
	return &Conn{Conn: conn}, nil
}

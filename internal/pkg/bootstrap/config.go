// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 聚合了所有基础设施依赖的连接配置。
// 优先从 CONFIG_PATH 指向的 yaml 文件加载，环境变量覆盖文件取值，
// 两者都缺省时退回到本地开发默认值。
type Config struct {
	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Zookeeper struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"zookeeper"`
		PaymentGateway struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"payment_gateway"`
	} `yaml:"infra"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置。各服务的 main 必须在 StartService 之前调用。
func Init() {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("FATAL: cannot read config file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: cannot parse config file %s: %v", path, err)
		}
	}

	// 环境变量覆盖，便于容器化部署时注入
	if v := getEnv("MYSQL_DSN", ""); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := getEnv("REDIS_ADDRS", ""); v != "" {
		cfg.Infra.Redis.Addrs = v
	}
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getEnv("JAEGER_ENDPOINT", ""); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := getEnv("ZOOKEEPER_ADDRS", ""); v != "" {
		cfg.Infra.Zookeeper.Addrs = v
	}
	if v := getEnv("PAYMENT_GATEWAY_URL", ""); v != "" {
		cfg.Infra.PaymentGateway.BaseURL = v
	}

	// 本地开发默认值
	if cfg.Infra.Mysql.DSN == "" {
		cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/bazaar?charset=utf8mb4&parseTime=True&loc=UTC"
	}
	if cfg.Infra.Redis.Addrs == "" {
		cfg.Infra.Redis.Addrs = "localhost:6379"
	}
	if len(cfg.Infra.Kafka.Brokers) == 0 {
		cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Infra.Jaeger.Endpoint == "" {
		cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	}
	if cfg.Infra.Zookeeper.Addrs == "" {
		cfg.Infra.Zookeeper.Addrs = "localhost:2181"
	}

	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		log.Fatal("FATAL: bootstrap.Init() must be called before GetCurrentConfig()")
	}
	return cfg
}

// getEnv 从环境变量中读取配置，不存在时返回默认值。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// internal/pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 汇总了所有服务共享的基础设施配置。
// 配置来源优先级: 环境变量 > YAML 文件 > 默认值。
type Config struct {
	Infra InfraConfig `yaml:"infra"`
	RPC   RPCConfig   `yaml:"rpc"`
	Cart  CartConfig  `yaml:"cart"`
}

type InfraConfig struct {
	KafkaBrokers []string    `yaml:"kafka_brokers"`
	RedisAddr    string      `yaml:"redis_addr"`
	MysqlDSN     string      `yaml:"mysql_dsn"`
	Jaeger       JaegerConf  `yaml:"jaeger"`
	Nacos        NacosConf   `yaml:"nacos"`
	Zk           ZkConf      `yaml:"zookeeper"`
	Lock         LockingConf `yaml:"locking"`
}

type JaegerConf struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConf struct {
	ServerAddrs string `yaml:"server_addrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

type ZkConf struct {
	Servers []string `yaml:"servers"`
}

// LockingConf 决定库存协调器使用哪种按商品串行化的方式。
// "local" 为进程内锁，"zookeeper" 为跨实例分布式锁。
type LockingConf struct {
	Mode string `yaml:"mode"`
}

type RPCConfig struct {
	CallTimeout     time.Duration `yaml:"call_timeout"`
	MaxInflight     int64         `yaml:"max_inflight"`
	MaxDeliveries   int           `yaml:"max_deliveries"`
	ReplyTopicRetry time.Duration `yaml:"reply_topic_retry"`
}

type CartConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	SyncInterval time.Duration `yaml:"sync_interval"`
}

var (
	current *Config
	once    sync.Once
)

// Init 加载配置文件并应用环境变量覆盖。路径来自 CONFIG_PATH，缺省 config.yaml。
// 文件不存在时不报错，直接使用默认值，方便本地开发。
func Init() {
	once.Do(func() {
		cfg := defaultConfig()

		path := getEnv("CONFIG_PATH", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(fmt.Sprintf("invalid config file %s: %v", path, err))
			}
		}

		applyEnvOverrides(cfg)
		current = cfg
	})
}

// GetCurrentConfig 返回当前生效的配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	if current == nil {
		Init()
	}
	return current
}

func defaultConfig() *Config {
	return &Config{
		Infra: InfraConfig{
			KafkaBrokers: []string{"localhost:9092"},
			RedisAddr:    "localhost:6379",
			MysqlDSN:     "root:root@tcp(localhost:3306)/storefront?parseTime=true",
			Jaeger:       JaegerConf{Endpoint: "http://localhost:14268/api/traces"},
			Nacos:        NacosConf{ServerAddrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			Zk:           ZkConf{Servers: []string{"localhost:2181"}},
			Lock:         LockingConf{Mode: "local"},
		},
		RPC: RPCConfig{
			CallTimeout:   10 * time.Second,
			MaxInflight:   32,
			MaxDeliveries: 3,
		},
		Cart: CartConfig{
			TTL:          24 * time.Hour,
			SyncInterval: time.Hour,
		},
	}
}

// applyEnvOverrides 允许容器环境下不挂载配置文件直接覆盖关键项。
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.KafkaBrokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Infra.RedisAddr = v
	}
	if v, ok := os.LookupEnv("MYSQL_DSN"); ok {
		cfg.Infra.MysqlDSN = v
	}
	if v, ok := os.LookupEnv("JAEGER_ENDPOINT"); ok {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v, ok := os.LookupEnv("NACOS_SERVER_ADDRS"); ok {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v, ok := os.LookupEnv("NACOS_NAMESPACE"); ok {
		cfg.Infra.Nacos.Namespace = v
	}
	if v, ok := os.LookupEnv("NACOS_GROUP"); ok {
		cfg.Infra.Nacos.Group = v
	}
	if v, ok := os.LookupEnv("ZK_SERVERS"); ok {
		cfg.Infra.Zk.Servers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("LOCK_MODE"); ok {
		cfg.Infra.Lock.Mode = v
	}
	if v, ok := os.LookupEnv("CART_SYNC_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cart.SyncInterval = d
		}
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Package config loads the gateway's layered configuration: a YAML file on
// disk, overridden by PREFIX__SECTION__KEY environment variables, with
// jwt.secret eligible for hot-reload without a process restart.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "IMWS"

// Config is the fully-resolved, validated configuration tree.
type Config struct {
	BrokerID  string          `mapstructure:"broker_id"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Handshake HandshakeConfig `mapstructure:"handshake"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Outbound  OutboundConfig  `mapstructure:"outbound"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	Consul    ConsulConfig    `mapstructure:"consul"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
}

type WebsocketConfig struct {
	Ports []int  `mapstructure:"ports"`
	Path  string `mapstructure:"path"`
}

type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	Algorithm string `mapstructure:"algorithm"`
}

type HeartbeatConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type HandshakeConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type DirectoryConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	Endpoint    string        `mapstructure:"endpoint"`
	Credentials string        `mapstructure:"credentials"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
}

type OutboundConfig struct {
	QueueCapacity int           `mapstructure:"queue_capacity"`
	DrainTimeout  time.Duration `mapstructure:"drain_timeout"`
}

type AMQPConfig struct {
	URI            string `mapstructure:"uri"`
	PrefetchCount  int    `mapstructure:"prefetch_count"`
	DedupCacheSize int    `mapstructure:"dedup_cache_size"`
}

type ConsulConfig struct {
	Address string `mapstructure:"address"`
}

type AdminConfig struct {
	GRPCPort int `mapstructure:"grpc_port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("websocket.ports", []int{8080})
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("heartbeat.interval", 30*time.Second)
	v.SetDefault("heartbeat.timeout", 90*time.Second)
	v.SetDefault("handshake.timeout", 10*time.Second)
	v.SetDefault("directory.ttl", 5*time.Minute)
	v.SetDefault("directory.db", 0)
	v.SetDefault("directory.pool_size", 10)
	v.SetDefault("outbound.queue_capacity", 256)
	v.SetDefault("outbound.drain_timeout", time.Second)
	v.SetDefault("amqp.prefetch_count", 64)
	v.SetDefault("amqp.dedup_cache_size", 4096)
	v.SetDefault("admin.grpc_port", 9090)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate enforces the required fields and the TTL >= 3x heartbeat
// interval invariant the directory record relies on.
func validate(cfg *Config) error {
	if cfg.BrokerID == "" {
		return fmt.Errorf("config: broker_id is required")
	}
	if len(cfg.Websocket.Ports) == 0 {
		return fmt.Errorf("config: websocket.ports must name at least one port")
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	switch cfg.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: jwt.algorithm %q is not one of HS256/HS384/HS512", cfg.JWT.Algorithm)
	}
	if cfg.Directory.TTL < 3*cfg.Heartbeat.Interval {
		return fmt.Errorf("config: directory.ttl (%s) must be at least 3x heartbeat.interval (%s)",
			cfg.Directory.TTL, cfg.Heartbeat.Interval)
	}
	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/im-ws-gateway")
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the configuration file at path (or the default search path
// when path is empty), applies PREFIX__SECTION__KEY environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return decode(v)
}

// Watcher holds the live, swappable Config plus the viper instance watching
// its source file for changes. jwt.secret rotation is the motivating use
// case: operators can rewrite the secret and have it take effect without a
// restart, without any other field changing underneath a running session.
type Watcher struct {
	v *viper.Viper

	mu        sync.RWMutex
	cfg       *Config
	listeners []func(*Config)
}

// NewWatcher loads the configuration and starts watching its source file.
// A reload that fails validation is logged by the caller via onReloadError
// and discarded; the previously-loaded Config keeps serving until a valid
// reload arrives.
func NewWatcher(path string, onReloadError func(error)) (*Watcher, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	w := &Watcher{v: v, cfg: cfg}

	v.OnConfigChange(func(_ fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			if onReloadError != nil {
				onReloadError(fmt.Errorf("config: reload rejected: %w", err))
			}
			return
		}
		w.mu.Lock()
		w.cfg = next
		listeners := append([]func(*Config){}, w.listeners...)
		w.mu.Unlock()

		for _, fn := range listeners {
			fn(next)
		}
	})
	v.WatchConfig()

	return w, nil
}

// Current returns the most recently validated Config. Safe for concurrent
// use; callers should re-call it rather than cache the result across a
// long-lived goroutine if they want to observe rotations.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// OnChange registers fn to run after every successfully-validated reload.
// Used by components that need to pick up a rotated value (jwt.secret)
// without re-resolving their dependency graph entry.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

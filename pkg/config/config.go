// Package config loads Name Server and Storage Server configuration the way
// the teacher stack does: spf13/viper for layered precedence (env > file >
// defaults; there is no command-line flag layer), yaml.v3 struct tags for
// the on-disk format, and
// go-playground/validator for fail-fast validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NameServerConfig is the static configuration of a Name Server process.
type NameServerConfig struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// BindAddress is the interface the NS listens on for clients and SSes.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the single TCP port clients and storage servers connect to.
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535" yaml:"port"`

	// SnapshotPath is the file the NS persists its metadata blob to (§6).
	SnapshotPath string `mapstructure:"snapshot_path" validate:"required" yaml:"snapshot_path"`

	// HeartbeatInterval is how often the NS probes every registered SS.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"required,gt=0" yaml:"heartbeat_interval"`

	// ProbeTimeout bounds the existence-probe round trip to an SS (§4.1, §5).
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" validate:"required,gt=0" yaml:"probe_timeout"`

	// CacheTTL is the validity window of the search cache (§3).
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"required,gt=0" yaml:"cache_ttl"`

	// CacheCapacity bounds the number of entries kept in the search cache.
	CacheCapacity int `mapstructure:"cache_capacity" validate:"required,gt=0" yaml:"cache_capacity"`

	// MaxACLEntries bounds the ACL set size per file (§3).
	MaxACLEntries int `mapstructure:"max_acl_entries" validate:"required,gt=0" yaml:"max_acl_entries"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics controls the Prometheus metrics HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// StorageServerConfig is the static configuration of a Storage Server process.
type StorageServerConfig struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// BindAddress is the interface both listeners bind to.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// AdvertiseIP is published to the NS/clients in place of BindAddress when
	// the SS sits behind NAT or a container network (§6 Environment).
	AdvertiseIP string `mapstructure:"advertise_ip" yaml:"advertise_ip,omitempty"`

	// ControlPort serves the NS and peer SS (CREATE/DELETE/READ/MOVE/SS_ACK/REPL_*).
	ControlPort int `mapstructure:"control_port" validate:"required,gt=0,lte=65535" yaml:"control_port"`

	// ClientPort serves end users directly (READ/WRITE/STREAM/UNDO/locks/checkpoints).
	ClientPort int `mapstructure:"client_port" validate:"required,gt=0,lte=65535" yaml:"client_port"`

	// NSAddress is host:port of the Name Server to register with.
	NSAddress string `mapstructure:"ns_address" validate:"required" yaml:"ns_address"`

	// StorageRoot is the directory file bytes and .meta sidecars live under.
	StorageRoot string `mapstructure:"storage_root" validate:"required" yaml:"storage_root"`

	// CheckpointRoot is the directory checkpoint snapshots live under.
	CheckpointRoot string `mapstructure:"checkpoint_root" validate:"required" yaml:"checkpoint_root"`

	// MaxLocksPerFile bounds the sentence-lock table per file (§3).
	MaxLocksPerFile int `mapstructure:"max_locks_per_file" validate:"required,gt=0" yaml:"max_locks_per_file"`

	// ReplicationTimeout bounds the best-effort fan-out to the partner SS.
	ReplicationTimeout time.Duration `mapstructure:"replication_timeout" validate:"required,gt=0" yaml:"replication_timeout"`

	// StreamWordDelay is the pacing between STREAM words (§4.2, ~100ms).
	StreamWordDelay time.Duration `mapstructure:"stream_word_delay" validate:"required,gt=0" yaml:"stream_word_delay"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls internal/logger output behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,gt=0,lte=65535" yaml:"port"`
}

var validate = validator.New()

// LoadNameServerConfig loads NS configuration from defaults, then the YAML
// file at configPath if it exists, then DFS_NS_* environment variables. An
// environment variable only takes effect for a key the file also sets, except
// the logging level, which applyEnvOverrides always applies. There is no
// command-line flag layer.
func LoadNameServerConfig(configPath string) (*NameServerConfig, error) {
	cfg := DefaultNameServerConfig()
	v := newViper("DFS_NS", configPath)

	found, err := readConfigFile(v, configPath)
	if err != nil {
		return nil, err
	}
	if found {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal name server config: %w", err)
		}
	}
	applyEnvOverrides(v, cfg)
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// LoadStorageServerConfig loads SS configuration with the same precedence.
func LoadStorageServerConfig(configPath string) (*StorageServerConfig, error) {
	cfg := DefaultStorageServerConfig()
	v := newViper("DFS_SS", configPath)

	found, err := readConfigFile(v, configPath)
	if err != nil {
		return nil, err
	}
	if found {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal storage server config: %w", err)
		}
	}
	applyEnvOverrides(v, cfg)
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func newViper(envPrefix, configPath string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return v
}

func readConfigFile(v *viper.Viper, configPath string) (bool, error) {
	if configPath == "" {
		return false, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false, nil
	}
	if err := v.ReadInConfig(); err != nil {
		return false, fmt.Errorf("config: read %s: %w", configPath, err)
	}
	return true, nil
}

// applyEnvOverrides re-applies viper's environment bindings onto an already
// YAML-populated struct. Viper's Unmarshal only merges keys it knows in
// advance (those named in the file), so the logging level is applied here by
// hand; it is the only field handled this way, and other environment
// variables apply only to keys the file sets.
func applyEnvOverrides(v *viper.Viper, cfg any) {
	switch c := cfg.(type) {
	case *NameServerConfig:
		if s := v.GetString("logging.level"); s != "" {
			c.Logging.Level = s
		}
	case *StorageServerConfig:
		if s := v.GetString("logging.level"); s != "" {
			c.Logging.Level = s
		}
	}
}

// SaveConfig writes cfg to path as YAML, using yaml tags.
func SaveConfig(cfg any, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

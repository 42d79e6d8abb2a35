package config

import "time"

// DefaultNameServerConfig returns the baseline NS configuration applied
// before file/env overrides, the way the teacher's ApplyDefaults does.
func DefaultNameServerConfig() *NameServerConfig {
	return &NameServerConfig{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		BindAddress:       "0.0.0.0",
		Port:              9000,
		SnapshotPath:      "./data/ns-snapshot.dat",
		HeartbeatInterval: 5 * time.Second,
		ProbeTimeout:      300 * time.Millisecond,
		CacheTTL:          60 * time.Second,
		CacheCapacity:     1024,
		MaxACLEntries:     256,
		ShutdownTimeout:   10 * time.Second,
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9100,
		},
	}
}

// DefaultStorageServerConfig returns the baseline SS configuration applied
// before file/env overrides.
func DefaultStorageServerConfig() *StorageServerConfig {
	return &StorageServerConfig{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		BindAddress:        "0.0.0.0",
		ControlPort:        9001,
		ClientPort:         9002,
		NSAddress:          "127.0.0.1:9000",
		StorageRoot:        "./data/storage",
		CheckpointRoot:     "./data/checkpoints",
		MaxLocksPerFile:    100,
		ReplicationTimeout: 3 * time.Second,
		StreamWordDelay:    100 * time.Millisecond,
		ShutdownTimeout:    10 * time.Second,
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9101,
		},
	}
}

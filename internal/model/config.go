package model

type Config struct {
	Project ProjectConfig `yaml:"project"`
	Sync    SyncConfig    `yaml:"sync"`
	Watcher WatcherConfig `yaml:"watcher"`
	Limits  LimitsConfig  `yaml:"limits"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
}

type ProjectConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SyncConfig struct {
	// IntervalSec is the periodic sync interval. Manual syncs share the
	// same entry point and contract.
	IntervalSec int `yaml:"interval_sec"`
}

type WatcherConfig struct {
	// DebounceMs suppresses duplicate refresh signals for the same owner
	// within the window; the engine's own publish and the filesystem
	// watcher would otherwise both fire for one write burst.
	DebounceMs int `yaml:"debounce_ms"`
}

type LimitsConfig struct {
	MaxRecordBytes int `yaml:"max_record_bytes"`
}

type DaemonConfig struct {
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type AuditConfig struct {
	MaxLogSizeBytes int64 `yaml:"max_log_size_bytes"`
}

// DefaultConfig returns the configuration written by `salespulse init`.
func DefaultConfig(projectName string) Config {
	return Config{
		Project: ProjectConfig{Name: projectName},
		Sync:    SyncConfig{IntervalSec: 60},
		Watcher: WatcherConfig{DebounceMs: 500},
		Limits:  LimitsConfig{MaxRecordBytes: 1 << 20},
		Daemon:  DaemonConfig{ShutdownTimeoutSec: 30},
		Logging: LoggingConfig{Level: "info"},
	}
}

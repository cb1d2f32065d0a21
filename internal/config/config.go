package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/objectstream/streamer/internal/limits"
)

// FileName is the config file looked up in the config directory.
const FileName = "objectstream.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the embedded SQLite backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the session storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds the InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
}

// MonitorConfig controls the status file writer and the metrics endpoint
type MonitorConfig struct {
	Enabled     bool
	Interval    time.Duration
	StatusFile  string
	MetricsAddr string
}

// ArchiveConfig holds the S3 bucket finished sessions are uploaded to
type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// RecorderConfig controls the session recorder
type RecorderConfig struct {
	BufferSize    int
	SnapshotEvery int
}

// SimConfig controls the simulation loop
type SimConfig struct {
	TickInterval time.Duration
	Ticks        int
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; commands that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("limits.maxObjects", limits.DefaultMaxObjects)
	viper.SetDefault("limits.maxStandard", 0)
	viper.SetDefault("limits.maxEntryInfoNodes", limits.DefaultMaxEntryInfoNodes)
	viper.SetDefault("limits.maxPointerSingleLinks", limits.DefaultMaxPointerSingleLinks)
	viper.SetDefault("limits.maxPointerDoubleLinks", limits.DefaultMaxPointerDoubleLinks)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./sessions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "objectstream")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "objectstream")
	viper.SetDefault("influx.bucket", "limits")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "objectstream")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "./status.txt")
	viper.SetDefault("monitor.metricsAddr", "")

	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.bucket", "")
	viper.SetDefault("archive.region", "us-east-1")
	viper.SetDefault("archive.endpoint", "")
	viper.SetDefault("archive.prefix", "sessions")
	viper.SetDefault("archive.pathStyle", false)
	viper.SetDefault("archive.accessKeyId", "")
	viper.SetDefault("archive.secretAccessKey", "")

	viper.SetDefault("sim.tickInterval", "50ms")
	viper.SetDefault("sim.ticks", 100)

	viper.SetDefault("recorder.bufferSize", 256)
	viper.SetDefault("recorder.snapshotEvery", 10)
}

// GetLimits returns the configured admission ceilings with the object ceiling split
// between the two categories.
func GetLimits() limits.Limits {
	return limits.Split(limits.Limits{
		MaxObjects:            viper.GetInt("limits.maxObjects"),
		MaxEntryInfoNodes:     viper.GetInt("limits.maxEntryInfoNodes"),
		MaxPointerSingleLinks: viper.GetInt("limits.maxPointerSingleLinks"),
		MaxPointerDoubleLinks: viper.GetInt("limits.maxPointerDoubleLinks"),
	}, viper.GetInt("limits.maxStandard"))
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:     viper.GetBool("monitor.enabled"),
		Interval:    viper.GetDuration("monitor.interval"),
		StatusFile:  viper.GetString("monitor.statusFile"),
		MetricsAddr: viper.GetString("monitor.metricsAddr"),
	}
}

// GetArchiveConfig returns the session archive settings.
func GetArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Enabled:         viper.GetBool("archive.enabled"),
		Bucket:          viper.GetString("archive.bucket"),
		Region:          viper.GetString("archive.region"),
		Endpoint:        viper.GetString("archive.endpoint"),
		Prefix:          viper.GetString("archive.prefix"),
		PathStyle:       viper.GetBool("archive.pathStyle"),
		AccessKeyID:     viper.GetString("archive.accessKeyId"),
		SecretAccessKey: viper.GetString("archive.secretAccessKey"),
	}
}

// GetRecorderConfig returns the recorder settings.
func GetRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BufferSize:    viper.GetInt("recorder.bufferSize"),
		SnapshotEvery: viper.GetInt("recorder.snapshotEvery"),
	}
}

// GetSimConfig returns the simulation loop settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickInterval: viper.GetDuration("sim.tickInterval"),
		Ticks:        viper.GetInt("sim.ticks"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

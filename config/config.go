package config

// Config represents the core floorcheck configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Reader    ReaderConfig    `mapstructure:"reader"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Kiosk     KioskConfig     `mapstructure:"kiosk"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the kiosk web server
type ServerConfig struct {
	Port           *int     `mapstructure:"port"` // nil = default 8460, 0 is invalid (omit for default)
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogJSON        bool     `mapstructure:"log_json"` // JSON log output instead of console
}

// Server port constants
const (
	DefaultServerPort = 8460
)

// ReaderConfig configures the card reader connection
type ReaderConfig struct {
	Addr string `mapstructure:"addr"` // host:port of the network-attached reader
}

// GeneratorConfig configures the assignment generator ticker
type GeneratorConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"` // How often to run the generator (default: 3600)
}

// DirectoryConfig configures the HR directory integration
type DirectoryConfig struct {
	BaseURL         string `mapstructure:"base_url"` // HR endpoint; empty = cache-only
	APIKey          string `mapstructure:"api_key"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"` // 0 = cached entries never go stale
}

// KioskConfig identifies this workstation
type KioskConfig struct {
	Name    string  `mapstructure:"name"`    // defaults to the hostname
	Sectors []int64 `mapstructure:"sectors"` // fallback when no kiosk_sectors binding exists
}

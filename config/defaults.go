package config

import "github.com/spf13/viper"

// SetDefaults applies default configuration values to a Viper instance
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "floorcheck.db")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.log_json", false)

	// Reader defaults
	v.SetDefault("reader.addr", "127.0.0.1:9100")

	// Generator defaults
	v.SetDefault("generator.interval_seconds", 3600)

	// Directory defaults
	v.SetDefault("directory.timeout_seconds", 5)
	v.SetDefault("directory.cache_ttl_minutes", 720) // half a day, one shift

	// Kiosk defaults: name falls back to the hostname at load time
	v.SetDefault("kiosk.sectors", []int64{})
}

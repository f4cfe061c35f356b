package memory

import (
	"time"

	"github.com/spf13/viper"
)

// EnvConnection is the environment variable carrying the MongoDB connection
// string.
const EnvConnection = "MCP_MONGO_MEMORY_CONNECTION"

// DanglingPolicy controls what DeleteEntity does about relationships that
// still reference the deleted entity by name.
type DanglingPolicy string

const (
	// DanglingKeep leaves relationships in place; their references dangle.
	DanglingKeep DanglingPolicy = "keep"
	// DanglingCascade deletes every relationship touching the entity.
	DanglingCascade DanglingPolicy = "cascade"
	// DanglingReject refuses to delete an entity that is still referenced.
	DanglingReject DanglingPolicy = "reject"
)

/*
Config carries everything a Store needs at construction. Passing it
explicitly keeps multiple independently configured stores possible in one
process and keeps tests isolated from ambient state.
*/
type Config struct {
	// URI is the MongoDB connection string.
	URI string
	// Database holds the entities and relationships collections.
	Database string
	// SystemDatabase holds the sys collection with the structure record.
	SystemDatabase string
	// Dangling selects the DeleteEntity policy for referencing relationships.
	Dangling DanglingPolicy
	// Timeout bounds the connectivity probe at construction.
	Timeout time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.Database == "" {
		cfg.Database = "agent_memory"
	}

	if cfg.SystemDatabase == "" {
		cfg.SystemDatabase = "memory"
	}

	if cfg.Dangling == "" {
		cfg.Dangling = DanglingKeep
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return cfg
}

// ConfigFromViper builds a Config from the memory.* keys of the loaded
// configuration. The connection string also binds to MCP_MONGO_MEMORY_CONNECTION
// so the service can be pointed at a database without a config file.
func ConfigFromViper() Config {
	v := viper.GetViper()

	_ = v.BindEnv("memory.connection", EnvConnection)

	return Config{
		URI:            v.GetString("memory.connection"),
		Database:       v.GetString("memory.database"),
		SystemDatabase: v.GetString("memory.system_database"),
		Dangling:       DanglingPolicy(v.GetString("memory.dangling")),
		Timeout:        v.GetDuration("memory.timeout"),
	}
}

package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	DynamoDB DynamoDBConfig
	Search   SearchConfig
	API      APIConfig
	MCP      MCPConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

type StorageConfig struct {
	Backend string
	DataDir string
}

type DynamoDBConfig struct {
	Region        string
	Endpoint      string // empty uses the regional AWS endpoint
	ProfilesTable string
	RequestsTable string
}

type SearchConfig struct {
	MaxResults int
}

type APIConfig struct {
	RateLimit   float64 // connection sends per second per client
	RateBurst   int
	CORSOrigins string // comma-separated
	TrustProxy  bool   // honor X-Forwarded-For / X-Real-IP; only behind a trusted proxy
}

type MCPConfig struct {
	Enabled bool
}

// Origins splits CORSOrigins into a trimmed list.
func (c APIConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			DataDir: defaultDataDir(),
		},
		DynamoDB: DynamoDBConfig{
			Region:        "us-east-1",
			ProfilesTable: "backroom_profiles",
			RequestsTable: "backroom_connection_requests",
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
		API: APIConfig{
			RateLimit:   5,
			RateBurst:   10,
			CORSOrigins: "*",
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/backroom/config.json, then applies environment variable
// overrides (BACKROOM_*).
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the sqlite backend")
		}
	case BackendDynamoDB:
		if c.DynamoDB.ProfilesTable == "" || c.DynamoDB.RequestsTable == "" {
			return fmt.Errorf("dynamodb.profiles_table and dynamodb.requests_table are required")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendSQLite, BackendDynamoDB, c.Storage.Backend)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	return nil
}

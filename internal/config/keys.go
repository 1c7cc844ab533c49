package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

// keySpec binds a dotted config key to its env var and Config field. Secret
// keys have no Config field; they are read through GetAPIToken.
type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "BACKROOM_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "BACKROOM_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "storage.backend", typ: kString, env: "BACKROOM_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "BACKROOM_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "dynamodb.region", typ: kString, env: "BACKROOM_DYNAMODB_REGION",
		apply:   func(cfg *Config, v any) { cfg.DynamoDB.Region = v.(string) },
		extract: func(cfg Config) any { return cfg.DynamoDB.Region },
	},
	{
		key: "dynamodb.endpoint", typ: kString, env: "BACKROOM_DYNAMODB_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.DynamoDB.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.DynamoDB.Endpoint },
	},
	{
		key: "dynamodb.profiles_table", typ: kString, env: "BACKROOM_DYNAMODB_PROFILES_TABLE",
		apply:   func(cfg *Config, v any) { cfg.DynamoDB.ProfilesTable = v.(string) },
		extract: func(cfg Config) any { return cfg.DynamoDB.ProfilesTable },
	},
	{
		key: "dynamodb.requests_table", typ: kString, env: "BACKROOM_DYNAMODB_REQUESTS_TABLE",
		apply:   func(cfg *Config, v any) { cfg.DynamoDB.RequestsTable = v.(string) },
		extract: func(cfg Config) any { return cfg.DynamoDB.RequestsTable },
	},
	{
		key: "search.max_results", typ: kInt, env: "BACKROOM_SEARCH_MAX_RESULTS",
		apply:   func(cfg *Config, v any) { cfg.Search.MaxResults = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.MaxResults },
	},
	{
		key: "api.rate_limit", typ: kFloat, env: "BACKROOM_API_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.API.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.API.RateLimit },
	},
	{
		key: "api.rate_burst", typ: kInt, env: "BACKROOM_API_RATE_BURST",
		apply:   func(cfg *Config, v any) { cfg.API.RateBurst = v.(int) },
		extract: func(cfg Config) any { return cfg.API.RateBurst },
	},
	{
		key: "api.cors_origins", typ: kString, env: "BACKROOM_API_CORS_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.API.CORSOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.API.CORSOrigins },
	},
	{
		key: "api.trust_proxy", typ: kBool, env: "BACKROOM_API_TRUST_PROXY",
		apply:   func(cfg *Config, v any) { cfg.API.TrustProxy = v.(bool) },
		extract: func(cfg Config) any { return cfg.API.TrustProxy },
	},
	{
		key: "mcp.enabled", typ: kBool, env: "BACKROOM_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.MCP.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.MCP.Enabled },
	},
	{
		key: "api.token", typ: kString, env: "BACKROOM_API_TOKEN",
		secret: true,
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" || s.secret {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

// Package config resolves process configuration for visiond from the
// environment, following the recognized options in spec.md §6.
package config

import (
	"time"

	"visionguard/internal/repository/postgres"
	"visionguard/internal/resolver"
	pkgconfig "visionguard/pkg/config"
	"visionguard/pkg/server"
)

// AngleWrapMode records the angle.wrap_mode option. mod360 is the only
// defined mode; the resolver always wraps angles with mod360 and does not
// read this setting.
type AngleWrapMode string

const ModeMod360 AngleWrapMode = "mod360"

// Config is the fully resolved process configuration.
type Config struct {
	ServiceName string
	HTTPPort    string

	Database postgres.Config

	Resolver resolver.Config

	// AllowHandlerOverride is broker.allow_handler_override: the
	// process-wide default for RegisterMessageType's allow_override flag.
	// A per-call override always remains possible regardless of this
	// setting (spec.md §6).
	AllowHandlerOverride bool

	AngleWrapMode AngleWrapMode
}

// Load reads every recognized option from the environment, falling back to
// spec.md §6's documented defaults.
func Load() Config {
	resolverCfg := resolver.DefaultConfig()
	resolverCfg.CacheTTL = time.Duration(pkgconfig.GetEnvInt("RESOLVER_CACHE_TTL_MS", int(resolverCfg.CacheTTL/time.Millisecond))) * time.Millisecond
	resolverCfg.MaxRetries = pkgconfig.GetEnvInt("RESOLVER_MAX_RETRIES", resolverCfg.MaxRetries)
	resolverCfg.InitialBackoff = time.Duration(pkgconfig.GetEnvInt("RESOLVER_INITIAL_BACKOFF_MS", int(resolverCfg.InitialBackoff/time.Millisecond))) * time.Millisecond

	dbCfg := postgres.DefaultConfig()
	dbCfg.URL = pkgconfig.RequireEnv("DATABASE_URL")
	dbCfg.MaxOpenConns = pkgconfig.GetEnvInt("DATABASE_MAX_OPEN_CONNS", dbCfg.MaxOpenConns)
	dbCfg.MaxIdleConns = pkgconfig.GetEnvInt("DATABASE_MAX_IDLE_CONNS", dbCfg.MaxIdleConns)

	return Config{
		ServiceName:          "visiond",
		HTTPPort:             pkgconfig.GetEnv("PORT", "8080"),
		Database:             dbCfg,
		Resolver:             resolverCfg,
		AllowHandlerOverride: pkgconfig.GetEnvBool("BROKER_ALLOW_HANDLER_OVERRIDE", false),
		AngleWrapMode:        AngleWrapMode(pkgconfig.GetEnv("ANGLE_WRAP_MODE", string(ModeMod360))),
	}
}

// ServerConfig adapts Config into pkg/server's Config shape.
func (c Config) ServerConfig() server.Config {
	cfg := server.DefaultConfig(c.ServiceName, c.HTTPPort)
	cfg.Port = c.HTTPPort
	return cfg
}

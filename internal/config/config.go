// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/feedback"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/statestore"
	"github.com/helmgate-dev/helmgate/internal/transport"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// Config is the top-level Helmgate configuration.
type Config struct {
	Server     ServerConfig                        `mapstructure:"server"`
	Catalog    CatalogConfig                       `mapstructure:"catalog"`
	StateStore statestore.Config                   `mapstructure:"state_store"`
	Routing    RoutingConfig                       `mapstructure:"routing"`
	Cooldown   routing.CooldownConfig              `mapstructure:"cooldown"`
	Feedback   feedback.Config                     `mapstructure:"feedback"`
	Providers  map[string]transport.ProviderConfig `mapstructure:"providers"`
}

// ServerConfig controls how the gateway listens for connections.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// CatalogConfig locates the logical model catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// RoutingConfig tunes the decision engine.
type RoutingConfig struct {
	DefaultStrategy    string `mapstructure:"default_strategy"`
	HealthCheckEnabled bool   `mapstructure:"health_check_enabled"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix HELMGATE_).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("catalog.path", "models.yaml")
	v.SetDefault("state_store.backend", "memory")
	v.SetDefault("state_store.addr", "127.0.0.1:6379")
	v.SetDefault("routing.default_strategy", routing.StrategyBalanced)
	v.SetDefault("routing.health_check_enabled", true)
	v.SetDefault("cooldown.threshold", 3)
	v.SetDefault("cooldown.window", "60s")
	v.SetDefault("feedback.alpha", feedback.DefaultAlpha)
	v.SetDefault("feedback.ttl", "10m")

	v.SetEnvPrefix("HELMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, helmerr.Errorf(helmerr.CodeConfigLoadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, helmerr.Errorf(helmerr.CodeConfigLoadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, helmerr.Errorf(helmerr.CodeConfigInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found, collecting issues rather than stopping at
// the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateCatalog()...)
	errs = append(errs, c.validateStateStore()...)
	errs = append(errs, c.validateRouting()...)
	errs = append(errs, c.validateProviders()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: server.listen must not be empty"))
		return errs
	}
	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err))
		return errs
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateCatalog() []error {
	if c.Catalog.Path == "" {
		return []error{helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: catalog.path must not be empty")}
	}
	return nil
}

func (c *Config) validateStateStore() []error {
	var errs []error

	switch c.StateStore.Backend {
	case statestore.BackendMemory:
	case statestore.BackendRedis:
		if c.StateStore.Addr == "" {
			errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
				"config: state_store.addr must not be empty when backend is redis"))
		}
	default:
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: state_store.backend must be one of [memory, redis], got %q",
			c.StateStore.Backend))
	}

	return errs
}

func (c *Config) validateRouting() []error {
	var errs []error

	if !routing.KnownStrategy(c.Routing.DefaultStrategy) {
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: routing.default_strategy must be one of [balanced, latency_first, cost_first, reliability_first], got %q",
			c.Routing.DefaultStrategy))
	}
	if c.Cooldown.Threshold <= 0 {
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: cooldown.threshold must be greater than 0, got %d", c.Cooldown.Threshold))
	}
	if c.Cooldown.Window <= 0 {
		errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
			"config: cooldown.window must be greater than 0, got %s", c.Cooldown.Window))
	}

	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error

	for id, p := range c.Providers {
		if !p.Kind.Valid() {
			errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
				"config: providers.%s.kind must be one of [http, sdk, claude_cli], got %q", id, p.Kind))
			continue
		}
		if p.Kind == catalog.TransportSDK && p.APIKey == "" {
			errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
				"config: providers.%s.api_key must not be empty for sdk transport", id))
		}
		if p.Timeout < 0 {
			errs = append(errs, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
				"config: providers.%s.timeout must not be negative, got %s", id, p.Timeout))
		}
	}

	return errs
}

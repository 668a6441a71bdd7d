// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/config"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/statestore"
	"github.com/helmgate-dev/helmgate/internal/transport"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helmgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Listen)
	assert.Equal(t, "models.yaml", cfg.Catalog.Path)
	assert.Equal(t, statestore.BackendMemory, cfg.StateStore.Backend)
	assert.Equal(t, routing.StrategyBalanced, cfg.Routing.DefaultStrategy)
	assert.True(t, cfg.Routing.HealthCheckEnabled)
	assert.Equal(t, 3, cfg.Cooldown.Threshold)
	assert.Equal(t, 60*time.Second, cfg.Cooldown.Window)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: "0.0.0.0:9090"
catalog:
  path: /etc/helmgate/models.yaml
state_store:
  backend: redis
  addr: "redis.internal:6379"
routing:
  default_strategy: latency_first
  health_check_enabled: false
cooldown:
  threshold: 5
  window: 2m
providers:
  openai:
    kind: http
    base_url: https://api.openai.com/v1/chat/completions
    api_key: sk-live
    timeout: 30s
  anthropic:
    kind: sdk
    api_key: sk-ant
  local:
    kind: claude_cli
    cli_path: /usr/local/bin/claude
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Listen)
	assert.Equal(t, statestore.BackendRedis, cfg.StateStore.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.StateStore.Addr)
	assert.Equal(t, "latency_first", cfg.Routing.DefaultStrategy)
	assert.False(t, cfg.Routing.HealthCheckEnabled)
	assert.Equal(t, 5, cfg.Cooldown.Threshold)
	assert.Equal(t, 2*time.Minute, cfg.Cooldown.Window)

	require.Len(t, cfg.Providers, 3)
	openai := cfg.Providers["openai"]
	assert.Equal(t, catalog.TransportHTTP, openai.Kind)
	assert.Equal(t, 30*time.Second, openai.Timeout)
	assert.Equal(t, catalog.TransportSDK, cfg.Providers["anthropic"].Kind)
	assert.Equal(t, "/usr/local/bin/claude", cfg.Providers["local"].CLIPath)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HELMGATE_SERVER_LISTEN", "127.0.0.1:7000")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, helmerr.CodeConfigLoadFailure, helmerr.CodeOf(err))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Server:     config.ServerConfig{Listen: "not-an-address"},
		Catalog:    config.CatalogConfig{Path: ""},
		StateStore: statestore.Config{Backend: "etcd"},
		Routing:    config.RoutingConfig{DefaultStrategy: "fastest_cheapest"},
		Cooldown:   routing.CooldownConfig{Threshold: 0, Window: 0},
	}

	errs := cfg.Validate()
	require.GreaterOrEqual(t, len(errs), 5)
	joined := ""
	for _, e := range errs {
		joined += e.Error() + "\n"
	}
	assert.Contains(t, joined, "server.listen")
	assert.Contains(t, joined, "catalog.path")
	assert.Contains(t, joined, "state_store.backend")
	assert.Contains(t, joined, "default_strategy")
	assert.Contains(t, joined, "cooldown.threshold")
}

func TestValidateRedisRequiresAddr(t *testing.T) {
	path := writeConfig(t, `
state_store:
  backend: redis
  addr: ""
`)
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_store.addr")
}

func TestValidateProviderKinds(t *testing.T) {
	cfg := &config.Config{
		Server:     config.ServerConfig{Listen: "127.0.0.1:8787"},
		Catalog:    config.CatalogConfig{Path: "models.yaml"},
		StateStore: statestore.Config{Backend: statestore.BackendMemory},
		Routing:    config.RoutingConfig{DefaultStrategy: routing.StrategyBalanced},
		Cooldown:   routing.CooldownConfig{Threshold: 3, Window: time.Minute},
		Providers: map[string]transport.ProviderConfig{
			"grpcish": {Kind: "grpc"},
			"keyless": {Kind: catalog.TransportSDK},
		},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 2)
	joined := errs[0].Error() + errs[1].Error()
	assert.Contains(t, joined, "kind")
	assert.Contains(t, joined, "api_key")
}

func TestValidatePortRange(t *testing.T) {
	cfg := &config.Config{
		Server:     config.ServerConfig{Listen: "127.0.0.1:99999"},
		Catalog:    config.CatalogConfig{Path: "models.yaml"},
		StateStore: statestore.Config{Backend: statestore.BackendMemory},
		Routing:    config.RoutingConfig{DefaultStrategy: routing.StrategyBalanced},
		Cooldown:   routing.CooldownConfig{Threshold: 3, Window: time.Minute},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "between 1 and 65535")
}

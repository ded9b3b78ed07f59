package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/deployment"
	"github.com/roach88/xcmreserve/internal/location"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xcmreserve.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, deployment.AssetHubPolkadotName, cfg.Deployment)
	assert.Equal(t, StoreSQLite, cfg.StoreType)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDevelopment)
	assert.Equal(t, deployment.DefaultParams(), cfg.Params())
	assert.Empty(t, cfg.RulesFile)
	assert.Empty(t, cfg.MetricsFile)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
deployment = "asset-hub-kusama"
store_type = "badger"
data_dir = "/var/lib/xcmreserve"
log_level = "debug"
log_development = true
asset_hub_id = 1001
ethereum_chain_id = 11155111
metrics_file = "/var/lib/node_exporter/xcmreserve.prom"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, deployment.AssetHubKusamaName, cfg.Deployment)
	assert.Equal(t, StoreBadger, cfg.StoreType)
	assert.Equal(t, "/var/lib/xcmreserve", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogDevelopment)
	assert.Equal(t, deployment.Params{AssetHubID: 1001, EthereumChainID: 11155111}, cfg.Params())
	assert.Equal(t, "/var/lib/node_exporter/xcmreserve.prom", cfg.MetricsFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `store_type = "sqlite"
asset_hub_id = 1001
`)
	t.Setenv("XCMRESERVE_STORE_TYPE", "badger")
	t.Setenv("XCMRESERVE_ASSET_HUB_ID", "1002")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreBadger, cfg.StoreType)
	assert.Equal(t, uint32(1002), cfg.AssetHubID)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown deployment", `deployment = "asset-hub-westend"`, "unknown deployment"},
		{"unknown store", `store_type = "postgres"`, "store type not supported"},
		{"bad log level", `log_level = "loud"`, "invalid log level"},
		{"zero asset hub", `asset_hub_id = 0`, "asset hub id"},
		{"zero chain id", `ethereum_chain_id = 0`, "ethereum chain id"},
		{"sqlite without dir", `data_dir = ""`, "data_dir is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestRuleTable(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	table, err := cfg.RuleTable()
	require.NoError(t, err)
	assert.Equal(t, deployment.AssetHubPolkadotName, table.Deployment)

	rulesFile, err := filepath.Abs("../ruleset/testdata/asset_hub_kusama.cue")
	require.NoError(t, err)
	cfg, err = Load(writeConfig(t, `deployment = "custom"
rules_file = "`+filepath.ToSlash(rulesFile)+`"
`))
	require.NoError(t, err, "a rules file makes the deployment name free-form")

	table, err = cfg.RuleTable()
	require.NoError(t, err)
	got, err := table.Hash()
	require.NoError(t, err)
	want, err := deployment.AssetHubKusama(deployment.DefaultParams()).Hash()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRuleTable_InvalidFile(t *testing.T) {
	rulesFile, err := filepath.Abs("../ruleset/testdata/misordered.cue")
	require.NoError(t, err)
	cfg := &Config{RulesFile: rulesFile}
	_, err = cfg.RuleTable()
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	asset := location.New(1, location.Parachain{ID: 2000})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"sqlite", Config{StoreType: StoreSQLite, DataDir: filepath.Join(t.TempDir(), "nested")}},
		{"badger on disk", Config{StoreType: StoreBadger, DataDir: t.TempDir()}},
		{"badger in memory", Config{StoreType: StoreBadger}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := tt.cfg.OpenStore(zap.NewNop())
			require.NoError(t, err)
			defer backend.Close()

			added, err := backend.RegisterAsset(ctx, asset)
			require.NoError(t, err)
			assert.True(t, added)
		})
	}

	_, err := (&Config{StoreType: "postgres"}).OpenStore(zap.NewNop())
	assert.Error(t, err)
}

func TestMigration(t *testing.T) {
	cfg := &Config{
		Deployment:      deployment.AssetHubKusamaName,
		StoreType:       StoreBadger,
		AssetHubID:      1000,
		EthereumChainID: 1,
	}
	backend, err := cfg.OpenStore(zap.NewNop())
	require.NoError(t, err)
	defer backend.Close()

	m, err := cfg.Migration(backend, zap.NewNop())
	require.NoError(t, err)
	want, err := deployment.AssetHubKusama(cfg.Params()).Hash()
	require.NoError(t, err)
	assert.Equal(t, want, m.RulesHash())

	pending, err := m.Pending(context.Background())
	require.NoError(t, err)
	assert.True(t, pending)
}

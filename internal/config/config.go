// Package config loads operator settings from a TOML file and XCMRESERVE_*
// environment variables and builds the services they select.
package config

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/xcmreserve/internal/deployment"
	"github.com/roach88/xcmreserve/internal/location"
	"github.com/roach88/xcmreserve/internal/migration"
	"github.com/roach88/xcmreserve/internal/reserve"
	"github.com/roach88/xcmreserve/internal/ruleset"
)

// EnvPrefix prefixes every environment variable, e.g. XCMRESERVE_DATA_DIR.
const EnvPrefix = "XCMRESERVE"

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

const (
	defaultDeployment = deployment.AssetHubPolkadotName
	defaultStoreType  = StoreSQLite
	defaultDataDir    = "data"
	defaultLogLevel   = "info"
)

var supportedStores = supportedType{
	StoreSQLite: {},
	StoreBadger: {},
}

// Config is the resolved operator configuration.
type Config struct {
	Deployment      string
	RulesFile       string
	StoreType       string
	DataDir         string
	LogLevel        string
	LogDevelopment  bool
	AssetHubID      uint32
	EthereumChainID uint64
	MetricsFile     string
}

// Load reads the TOML file at path, when non-empty, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	params := deployment.DefaultParams()
	v.SetDefault("deployment", defaultDeployment)
	v.SetDefault("rules_file", "")
	v.SetDefault("store_type", defaultStoreType)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_development", false)
	v.SetDefault("asset_hub_id", params.AssetHubID)
	v.SetDefault("ethereum_chain_id", params.EthereumChainID)
	v.SetDefault("metrics_file", "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Deployment:      v.GetString("deployment"),
		RulesFile:       v.GetString("rules_file"),
		StoreType:       strings.ToLower(v.GetString("store_type")),
		DataDir:         v.GetString("data_dir"),
		LogLevel:        v.GetString("log_level"),
		LogDevelopment:  v.GetBool("log_development"),
		AssetHubID:      v.GetUint32("asset_hub_id"),
		EthereumChainID: v.GetUint64("ethereum_chain_id"),
		MetricsFile:     v.GetString("metrics_file"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected services exist and the parameters are
// usable.
func (c *Config) Validate() error {
	if c.RulesFile == "" {
		if _, err := deployment.Lookup(c.Deployment, c.Params()); err != nil {
			return err
		}
	}
	if !supportedStores.supports(c.StoreType) {
		return fmt.Errorf("store type not supported, please select one of: %s", supportedStores)
	}
	if c.StoreType == StoreSQLite && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for the sqlite store")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.AssetHubID == 0 {
		return fmt.Errorf("invalid asset hub id, must be a parachain id above 0")
	}
	if c.EthereumChainID == 0 {
		return fmt.Errorf("invalid ethereum chain id, must be above 0")
	}
	return nil
}

// Params returns the deployment constants.
func (c *Config) Params() deployment.Params {
	return deployment.Params{AssetHubID: c.AssetHubID, EthereumChainID: c.EthereumChainID}
}

// RuleTable returns the CUE table from rules_file when set, otherwise the
// built-in table of the configured deployment.
func (c *Config) RuleTable() (reserve.RuleTable, error) {
	if c.RulesFile == "" {
		return deployment.Lookup(c.Deployment, c.Params())
	}
	table, err := ruleset.CompileFile(c.RulesFile)
	if err != nil {
		return reserve.RuleTable{}, err
	}
	if errs := ruleset.Validate(table); len(errs) > 0 {
		return reserve.RuleTable{}, fmt.Errorf("rules file %s: %w", c.RulesFile, errs[0])
	}
	return table, nil
}

// Migration wires the reserve migration over the configured table and store.
func (c *Config) Migration(backend Backend, logger *zap.Logger, opts ...migration.Option) (*migration.Migration, error) {
	table, err := c.RuleTable()
	if err != nil {
		return nil, err
	}
	resolver := reserve.NewResolver(table, reserve.WithLogger(logger))
	opts = append([]migration.Option{migration.WithLedger(backend), migration.WithLogger(logger)}, opts...)
	return migration.New(migration.DefaultID, resolver, backend, backend, opts...)
}

// Backend is a store serving the registry, reserve mapping and ledger.
type Backend interface {
	migration.Registry
	migration.ReserveStore
	migration.Ledger
	RegisterAsset(ctx context.Context, asset location.Location) (bool, error)
	RemoveAsset(ctx context.Context, asset location.Location) error
	RawReserves(ctx context.Context, asset location.Location) ([]byte, bool, error)
	Close() error
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	slices.Sort(types)
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/termvault/termvault/vault/plans"
)

// Config collects every daemon setting. Values resolve in order: built-in
// defaults, then the YAML file, then TERMVAULT_* environment variables,
// then explicit command line flags.
type Config struct {
	DataDir    string `yaml:"dataDir"    split_words:"true"`
	RPCURL     string `yaml:"rpcUrl"     envconfig:"RPC_URL"`
	Token      string `yaml:"token"`
	Operator   string `yaml:"operator"`
	KeyFile    string `yaml:"keyFile"    split_words:"true"`
	CapPercent uint64 `yaml:"capPercent" split_words:"true"`
	Cache      uint64 `yaml:"cache"`

	// Plans overrides rows of the built-in plan table, keyed by plan name.
	// A zero field keeps the built-in value, so a row may override just the
	// rate or just the lock term.
	Plans map[string]PlanConfig `yaml:"plans" ignored:"true"`

	API     APIConfig     `yaml:"api"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// PlanConfig is one overridden row of the plan table.
type PlanConfig struct {
	Rate     uint64 `yaml:"rate"`
	LockDays uint64 `yaml:"lockDays"`
}

// APIConfig tunes the REST and websocket surface.
type APIConfig struct {
	Addr              string `yaml:"addr"`
	Cors              string `yaml:"cors"`
	Timeout           uint64 `yaml:"timeout"`
	LogsLimit         uint64 `yaml:"logsLimit"         split_words:"true"`
	AdminToken        string `yaml:"adminToken"        split_words:"true"`
	EnableRequestLogs bool   `yaml:"enableRequestLogs" split_words:"true"`
	RequestLogsFile   string `yaml:"requestLogsFile"   split_words:"true"`
	Pprof             bool   `yaml:"pprof"`
	SkipLogs          bool   `yaml:"skipLogs"          split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func defaults() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		RPCURL:  "http://localhost:8545",
		Cache:   512,
		API: APIConfig{
			Addr:      "localhost:8679",
			Timeout:   10000,
			LogsLimit: 1000,
		},
		Metrics: MetricsConfig{
			Addr: "localhost:2112",
		},
	}
}

// loadConfig resolves the daemon configuration for ctx. A missing --config
// falls back to <config-dir>/config.yaml when one exists.
func loadConfig(ctx *cli.Context) (*Config, error) {
	cfg := defaults()

	path := ctx.String(configFlag.Name)
	if path == "" {
		fallback := filepath.Join(ctx.String(configDirFlag.Name), "config.yaml")
		if _, err := os.Stat(fallback); err == nil {
			path = fallback
		}
	}
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file [%v]", path)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file [%v]", path)
		}
	}

	if err := envconfig.Process("termvault", cfg); err != nil {
		return nil, errors.Wrap(err, "process environment")
	}

	applyFlags(ctx, cfg)
	return cfg, nil
}

// planTerms merges the configured plan overrides over the built-in table.
func (c *Config) planTerms() ([plans.Count]plans.Term, error) {
	terms := plans.DefaultTerms()
	for name, row := range c.Plans {
		plan, err := plans.Parse(name)
		if err != nil {
			return terms, errors.Wrap(err, "plans")
		}
		if row.Rate != 0 {
			terms[plan].Rate = row.Rate
		}
		if row.LockDays != 0 {
			terms[plan].LockDays = row.LockDays
		}
	}
	return terms, nil
}

// applyFlags overrides cfg with flags the user passed explicitly.
func applyFlags(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(rpcURLFlag.Name) {
		cfg.RPCURL = ctx.String(rpcURLFlag.Name)
	}
	if ctx.IsSet(tokenFlag.Name) {
		cfg.Token = ctx.String(tokenFlag.Name)
	}
	if ctx.IsSet(operatorFlag.Name) {
		cfg.Operator = ctx.String(operatorFlag.Name)
	}
	if ctx.IsSet(keyFileFlag.Name) {
		cfg.KeyFile = ctx.String(keyFileFlag.Name)
	}
	if ctx.IsSet(capPercentFlag.Name) {
		cfg.CapPercent = ctx.Uint64(capPercentFlag.Name)
	}
	if ctx.IsSet(cacheFlag.Name) {
		cfg.Cache = ctx.Uint64(cacheFlag.Name)
	}
	if ctx.IsSet(apiAddrFlag.Name) {
		cfg.API.Addr = ctx.String(apiAddrFlag.Name)
	}
	if ctx.IsSet(apiCorsFlag.Name) {
		cfg.API.Cors = ctx.String(apiCorsFlag.Name)
	}
	if ctx.IsSet(apiTimeoutFlag.Name) {
		cfg.API.Timeout = ctx.Uint64(apiTimeoutFlag.Name)
	}
	if ctx.IsSet(apiLogsLimitFlag.Name) {
		cfg.API.LogsLimit = ctx.Uint64(apiLogsLimitFlag.Name)
	}
	if ctx.IsSet(adminTokenFlag.Name) {
		cfg.API.AdminToken = ctx.String(adminTokenFlag.Name)
	}
	if ctx.IsSet(enableAPILogsFlag.Name) {
		cfg.API.EnableRequestLogs = ctx.Bool(enableAPILogsFlag.Name)
	}
	if ctx.IsSet(apiLogsFileFlag.Name) {
		cfg.API.RequestLogsFile = ctx.String(apiLogsFileFlag.Name)
	}
	if ctx.IsSet(pprofFlag.Name) {
		cfg.API.Pprof = ctx.Bool(pprofFlag.Name)
	}
	if ctx.IsSet(skipLogsFlag.Name) {
		cfg.API.SkipLogs = ctx.Bool(skipLogsFlag.Name)
	}
	if ctx.IsSet(enableMetricsFlag.Name) {
		cfg.Metrics.Enabled = ctx.Bool(enableMetricsFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		cfg.Metrics.Addr = ctx.String(metricsAddrFlag.Name)
	}
}

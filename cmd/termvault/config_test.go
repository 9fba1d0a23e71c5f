// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/termvault/termvault/vault/plans"
)

func loadConfigWith(t *testing.T, args ...string) *Config {
	var cfg *Config
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		configFlag,
		configDirFlag,
		dataDirFlag,
		rpcURLFlag,
		cacheFlag,
		apiAddrFlag,
	}
	app.Action = func(ctx *cli.Context) error {
		var err error
		cfg, err = loadConfig(ctx)
		return err
	}

	argv := append([]string{"termvault", "--config-dir", t.TempDir()}, args...)
	require.NoError(t, app.Run(argv))
	require.NotNil(t, cfg)
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfigWith(t)

	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, uint64(512), cfg.Cache)
	assert.Equal(t, "localhost:8679", cfg.API.Addr)
	assert.Equal(t, uint64(10000), cfg.API.Timeout)
	assert.Equal(t, "localhost:2112", cfg.Metrics.Addr)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpcUrl: http://rpc.example:8545
cache: 1024
api:
  addr: 0.0.0.0:9000
plans:
  90d:
    rate: 80
`), 0600))

	cfg := loadConfigWith(t, "--config", path)

	assert.Equal(t, "http://rpc.example:8545", cfg.RPCURL)
	assert.Equal(t, uint64(1024), cfg.Cache)
	assert.Equal(t, "0.0.0.0:9000", cfg.API.Addr)
	assert.Equal(t, PlanConfig{Rate: 80}, cfg.Plans["90d"])
	// untouched sections keep their defaults
	assert.Equal(t, uint64(10000), cfg.API.Timeout)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpcUrl: http://from-file:8545
cache: 1024
api:
  addr: from-file:9000
`), 0600))

	// environment beats the file, flags beat both
	t.Setenv("TERMVAULT_CACHE", "2048")
	t.Setenv("TERMVAULT_API_ADDR", "from-env:9000")

	cfg := loadConfigWith(t, "--config", path, "--api-addr", "from-flag:9000")

	assert.Equal(t, "http://from-file:8545", cfg.RPCURL)
	assert.Equal(t, uint64(2048), cfg.Cache)
	assert.Equal(t, "from-flag:9000", cfg.API.Addr)
}

func TestPlanTerms(t *testing.T) {
	t.Run("empty keeps defaults", func(t *testing.T) {
		cfg := defaults()
		terms, err := cfg.planTerms()
		require.NoError(t, err)
		assert.Equal(t, plans.DefaultTerms(), terms)
	})

	t.Run("partial row override", func(t *testing.T) {
		cfg := defaults()
		cfg.Plans = map[string]PlanConfig{
			"90d":      {Rate: 80},
			"flexible": {LockDays: 7},
		}
		terms, err := cfg.planTerms()
		require.NoError(t, err)

		assert.Equal(t, uint64(80), terms[plans.Days90].Rate)
		assert.Equal(t, uint64(90), terms[plans.Days90].LockDays)
		assert.Equal(t, uint64(30), terms[plans.Flexible].Rate)
		assert.Equal(t, uint64(7), terms[plans.Flexible].LockDays)
		// rows without an override stay put
		assert.Equal(t, plans.DefaultTerms()[plans.Days30], terms[plans.Days30])
	})

	t.Run("unknown plan name", func(t *testing.T) {
		cfg := defaults()
		cfg.Plans = map[string]PlanConfig{"45d": {Rate: 60}}
		_, err := cfg.planTerms()
		assert.ErrorContains(t, err, "unknown plan")
	})
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML config file, flags win over file and environment values",
	}
	configDirFlag = cli.StringFlag{
		Name:   "config-dir",
		Value:  defaultConfigDir(),
		Hidden: true,
		Usage:  "directory for user global configurations",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for vault databases",
	}
	rpcURLFlag = cli.StringFlag{
		Name:  "rpc-url",
		Value: "http://localhost:8545",
		Usage: "Ethereum JSON-RPC endpoint the token lives behind",
	}
	tokenFlag = cli.StringFlag{
		Name:  "token",
		Usage: "address of the ERC-20 token the vault takes custody of",
	}
	operatorFlag = cli.StringFlag{
		Name:  "operator",
		Usage: "initial operator address, a stored handover wins on restart",
	}
	keyFileFlag = cli.StringFlag{
		Name:  "key-file",
		Usage: "path to the vault key (defaults to <config-dir>/vault.key)",
	}
	capPercentFlag = cli.Uint64Flag{
		Name:  "cap-percent",
		Usage: "holding cap after a payout as percent of token supply (0 = protocol default)",
	}
	cacheFlag = cli.Uint64Flag{
		Name:  "cache",
		Value: 512,
		Usage: "megabytes of ram allocated to the state store cache",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8679",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.Uint64Flag{
		Name:  "api-timeout",
		Value: 10000,
		Usage: "API request timeout value in milliseconds",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of logs returned by /logs API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiLogsFileFlag = cli.StringFlag{
		Name:  "api-logs-file",
		Usage: "path for the API request log (defaults to <instance-dir>/requests.log)",
	}
	adminTokenFlag = cli.StringFlag{
		Name:  "admin-token",
		Usage: "bearer token guarding the admin API, admin endpoints stay locked when empty",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	skipLogsFlag = cli.BoolFlag{
		Name:  "skip-logs",
		Usage: "skip writing staking logs (/logs API will be disabled)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}

	// solo mode only flags
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "vault data storage option, if set data will be saved to disk",
	}
)

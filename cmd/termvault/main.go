// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/termvault/termvault/api"
	"github.com/termvault/termvault/cmd/termvault/httpserver"
	"github.com/termvault/termvault/health"
	"github.com/termvault/termvault/log"
	"github.com/termvault/termvault/logdb"
	"github.com/termvault/termvault/metrics"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/token"
	"github.com/termvault/termvault/token/erc20"
	"github.com/termvault/termvault/vault"
	"github.com/termvault/termvault/vault/plans"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "TermVault",
		Usage:     "Time locked deposit vault daemon",
		Copyright: "2025 The TermVault developers",
		Flags: []cli.Flag{
			configFlag,
			configDirFlag,
			dataDirFlag,
			rpcURLFlag,
			tokenFlag,
			operatorFlag,
			keyFileFlag,
			capPercentFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiLogsLimitFlag,
			enableAPILogsFlag,
			apiLogsFileFlag,
			adminTokenFlag,
			verbosityFlag,
			jsonLogsFlag,
			pprofFlag,
			skipLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "solo",
				Usage: "vault over an in-process dev token, for test & dev",
				Flags: []cli.Flag{
					dataDirFlag,
					persistFlag,
					cacheFlag,
					apiAddrFlag,
					apiCorsFlag,
					apiTimeoutFlag,
					apiLogsLimitFlag,
					enableAPILogsFlag,
					apiLogsFileFlag,
					adminTokenFlag,
					verbosityFlag,
					jsonLogsFlag,
					pprofFlag,
					skipLogsFlag,
					enableMetricsFlag,
					metricsAddrFlag,
				},
				Action: soloAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		fatal(fmt.Sprintf("load config: %v", err))
	}
	if cfg.Token == "" {
		cli.ShowAppHelp(ctx)
		fmt.Println("token address not specified")
		os.Exit(1)
	}
	tokenAddr := mustParseAddress(tokenFlag.Name, cfg.Token)

	instanceDir := makeInstanceDir(cfg.DataDir, tokenAddr)

	// enable metrics as soon as possible
	metricsURL := ""
	if cfg.Metrics.Enabled {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(cfg.Metrics.Addr)
		if err != nil {
			fatal(fmt.Sprintf("start metrics server: %v", err))
		}
		defer func() { logger.Info("stopping metrics server..."); closeFunc() }()
		metricsURL = url
	}

	str := openStore(instanceDir, int(cfg.Cache))
	defer func() { logger.Info("closing state database..."); str.Close() }()

	var logDB *logdb.LogDB
	if !cfg.API.SkipLogs {
		logDB = openLogDB(instanceDir)
		defer func() { logger.Info("closing log database..."); logDB.Close() }()
	}

	key, err := loadOrGeneratePrivateKey(vaultKeyPath(ctx, cfg))
	if err != nil {
		fatal(fmt.Sprintf("load or generate vault key: %v", err))
	}
	vaultAddr := termvault.Address(crypto.PubkeyToAddress(key.PublicKey))

	client, err := ethclient.DialContext(exitSignal, cfg.RPCURL)
	if err != nil {
		fatal(fmt.Sprintf("dial rpc [%v]: %v", cfg.RPCURL, err))
	}
	defer client.Close()

	chainID, err := client.ChainID(exitSignal)
	if err != nil {
		fatal(fmt.Sprintf("fetch chain id: %v", err))
	}
	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		fatal(fmt.Sprintf("build transactor: %v", err))
	}
	tokenClient, err := erc20.NewClient(client, tokenAddr, signer)
	if err != nil {
		fatal(fmt.Sprintf("bind token [%v]: %v", tokenAddr, err))
	}

	// the vault account defaults to operating itself until a real
	// operator is configured or a stored handover is restored
	operator := vaultAddr
	if cfg.Operator != "" {
		operator = mustParseAddress(operatorFlag.Name, cfg.Operator)
	}

	terms, err := cfg.planTerms()
	if err != nil {
		fatal(fmt.Sprintf("resolve plan table: %v", err))
	}
	registry, err := plans.NewRegistry(terms)
	if err != nil {
		fatal(fmt.Sprintf("build plan table: %v", err))
	}
	vlt, err := vault.New(token.NewGateway(tokenClient, vaultAddr), registry, str, vault.Options{
		Operator:   operator,
		CapPercent: cfg.CapPercent,
	})
	if err != nil {
		fatal(fmt.Sprintf("initialize vault: %v", err))
	}
	defer func() { logger.Info("closing vault..."); vlt.Close() }()

	healthz := health.New(tokenClient)
	defer healthz.Close()

	goes, goesCtx := errgroup.WithContext(exitSignal)
	goes.Go(func() error {
		return newJournal(vlt, logDB, healthz).Run(goesCtx)
	})

	reqLogPath := cfg.API.RequestLogsFile
	if reqLogPath == "" {
		reqLogPath = filepath.Join(instanceDir, "requests.log")
	}
	reqLogger, stopReqLogger := makeRequestLogger(cfg.API.EnableRequestLogs, reqLogPath)
	defer stopReqLogger()

	apiHandler, apiCloser := api.New(vlt, registry, logDB, healthz, reqLogger, api.Options{
		AllowedOrigins:  cfg.API.Cors,
		AdminToken:      cfg.API.AdminToken,
		PprofOn:         cfg.API.Pprof,
		SkipLogs:        cfg.API.SkipLogs,
		EnableReqLogger: cfg.API.EnableRequestLogs,
		EnableMetrics:   cfg.Metrics.Enabled,
		LogsLimit:       cfg.API.LogsLimit,
	})
	defer func() { logger.Info("closing API..."); apiCloser() }()

	apiURL, srvCloser, err := httpserver.StartAPIServer(cfg.API.Addr, apiHandler, cfg.API.Timeout)
	if err != nil {
		fatal(fmt.Sprintf("start API server: %v", err))
	}
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	printStartupMessage(tokenAddr, vaultAddr, vlt, instanceDir, apiURL, metricsURL)

	return goes.Wait()
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/termvault/termvault/api"
	"github.com/termvault/termvault/cmd/termvault/httpserver"
	"github.com/termvault/termvault/health"
	"github.com/termvault/termvault/logdb"
	"github.com/termvault/termvault/metrics"
	"github.com/termvault/termvault/store"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/token"
	"github.com/termvault/termvault/vault"
	"github.com/termvault/termvault/vault/plans"
)

// Solo mode runs the vault over an in-process dev token. There are no keys
// to manage, the API trusts the account path segment, so the dev accounts
// below are plain addresses.
var (
	soloVaultAddr = termvault.BytesToAddress([]byte("solo-vault"))

	soloAccounts = []termvault.Address{
		termvault.MustParseAddress("0x4f51c1187e63e72e0dd2e3b24eca1b3a4dbe2a5d"),
		termvault.MustParseAddress("0x9b7c301ff8c0e3f27cc1ea4c4bd0c54f0e45dfa6"),
		termvault.MustParseAddress("0x27d8be4e75ef8c5e470cca553fc534ab3927b8b3"),
		termvault.MustParseAddress("0xd30a1183e7c379fd702e0f1a8e0a07e54a4e9bc1"),
		termvault.MustParseAddress("0x61c7a0131e1c8f0690c47f2eabfd4fcdbcec85e2"),
		termvault.MustParseAddress("0xee66f53f4eb48c300a5a9eb2a1d18b4e928cd5c7"),
		termvault.MustParseAddress("0x7f8f04a26ed142b4357de1b9e1e9e0ccca41d1ec"),
		termvault.MustParseAddress("0x12110c8e04c313f5f40cb1c327bca5c3a53943a5"),
		termvault.MustParseAddress("0xb54d9e3d24a8b04fb3d4ea7f90a6d0c94bf9de84"),
		termvault.MustParseAddress("0x08e8243c2cbfa5c7eb6a63b2e3a8b3e7cadd341d"),
	}

	// every dev account starts with 1e24 units, the reward pool seeds with 1e22
	soloBalance = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	soloPool    = new(big.Int).Exp(big.NewInt(10), big.NewInt(22), nil)
)

func soloAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	initLogger(ctx)

	// enable metrics as soon as possible
	metricsURL := ""
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			fatal(fmt.Sprintf("start metrics server: %v", err))
		}
		defer func() { logger.Info("stopping metrics server..."); closeFunc() }()
		metricsURL = url
	}

	var (
		str         *store.Store
		logDB       *logdb.LogDB
		instanceDir string
	)
	if ctx.Bool(persistFlag.Name) {
		instanceDir = makeInstanceDir(ctx.String(dataDirFlag.Name), soloVaultAddr)
		str = openStore(instanceDir, ctx.Int(cacheFlag.Name))
		if !ctx.Bool(skipLogsFlag.Name) {
			logDB = openLogDB(instanceDir)
		}
	} else {
		instanceDir = "Memory"
		str = store.NewMem()
		if !ctx.Bool(skipLogsFlag.Name) {
			logDB = openMemLogDB()
		}
	}
	defer func() { logger.Info("closing state database..."); str.Close() }()
	if logDB != nil {
		defer func() { logger.Info("closing log database..."); logDB.Close() }()
	}

	tok := token.NewMemory(soloVaultAddr)
	for _, acc := range soloAccounts {
		tok.Mint(acc, soloBalance)
	}

	registry := plans.MustNewRegistry(plans.DefaultTerms())
	vlt, err := vault.New(token.NewGateway(tok, soloVaultAddr), registry, str, vault.Options{
		Operator: soloAccounts[0],
	})
	if err != nil {
		fatal(fmt.Sprintf("initialize vault: %v", err))
	}
	defer func() { logger.Info("closing vault..."); vlt.Close() }()

	// the dev token is memory only, so a persisted ledger needs its
	// custody balance rebuilt before anyone can exit
	if backing := new(big.Int).Add(vlt.TotalStaked(), vlt.PoolBalance()); backing.Sign() > 0 {
		tok.Mint(soloVaultAddr, backing)
	}

	// seed the reward pool so payouts work out of the box
	if vlt.PoolBalance().Sign() == 0 {
		funder := vlt.Owner()
		if funder.IsZero() {
			logger.Warn("ownership was renounced, skipping pool seed")
		} else {
			tok.Approve(funder, soloVaultAddr, soloPool)
			if err := vlt.FundPool(exitSignal, funder, soloPool); err != nil {
				fatal(fmt.Sprintf("seed reward pool: %v", err))
			}
		}
	}

	healthz := health.New(tok)
	defer healthz.Close()

	goes, goesCtx := errgroup.WithContext(exitSignal)
	goes.Go(func() error {
		return newJournal(vlt, logDB, healthz).Run(goesCtx)
	})

	var reqLogPath string
	if ctx.Bool(enableAPILogsFlag.Name) {
		reqLogPath = ctx.String(apiLogsFileFlag.Name)
		if reqLogPath == "" {
			reqLogPath = filepath.Join(makeDataDir(ctx.String(dataDirFlag.Name)), "requests.log")
		}
	}
	reqLogger, stopReqLogger := makeRequestLogger(ctx.Bool(enableAPILogsFlag.Name), reqLogPath)
	defer stopReqLogger()

	apiHandler, apiCloser := api.New(vlt, registry, logDB, healthz, reqLogger, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		AdminToken:      ctx.String(adminTokenFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		SkipLogs:        ctx.Bool(skipLogsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		LogsLimit:       ctx.Uint64(apiLogsLimitFlag.Name),
	})
	defer func() { logger.Info("closing API..."); apiCloser() }()

	apiURL, srvCloser, err := httpserver.StartAPIServer(
		ctx.String(apiAddrFlag.Name), apiHandler, ctx.Uint64(apiTimeoutFlag.Name))
	if err != nil {
		fatal(fmt.Sprintf("start API server: %v", err))
	}
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	printSoloStartupMessage(tok, registry, vlt, instanceDir, apiURL, metricsURL)

	return goes.Wait()
}

func printSoloStartupMessage(
	tok *token.Memory,
	registry *plans.Registry,
	vlt *vault.Vault,
	dataDir string,
	apiURL string,
	metricsURL string,
) {
	tableHead := `
┌────────────────────────────────────────────┬───────────────────────────┐
│                  Address                   │          Balance          │`
	tableContent := `
├────────────────────────────────────────────┼───────────────────────────┤
│ %v │ %25v │`
	tableEnd := `
└────────────────────────────────────────────┴───────────────────────────┘`

	var terms []string
	for _, p := range plans.All() {
		terms = append(terms, fmt.Sprintf("%v %v‰", p, registry.Rate(p)))
	}

	info := fmt.Sprintf(`Starting %v
    Plans       [ %v ]
    Operator    [ %v ]
    Reward pool [ %v ]
    Data dir    [ %v ]
    API portal  [ %v ]`,
		makeName("TermVault solo"),
		strings.Join(terms, ", "),
		vlt.Owner(),
		vlt.PoolBalance(),
		dataDir,
		apiURL)
	if metricsURL != "" {
		info += fmt.Sprintf(`
    Metrics     [ %v ]`, metricsURL)
	}

	info += tableHead
	for _, acc := range soloAccounts {
		balance, _ := tok.BalanceOf(context.Background(), acc)
		info += fmt.Sprintf(tableContent, acc, balance)
	}
	info += tableEnd + "\r\n"

	fmt.Print(info)
}

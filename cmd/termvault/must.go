// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/crypto"
	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/termvault/termvault/api"
	"github.com/termvault/termvault/log"
	"github.com/termvault/termvault/logdb"
	"github.com/termvault/termvault/store"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault"
)

func fatal(args ...interface{}) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) {
	logLevel := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
	output := io.Writer(os.Stdout)

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(output, logLevel)
	} else {
		useColor := isatty.IsTerminal(os.Stdout.Fd())
		handler = log.NewTerminalHandlerWithLevel(output, logLevel, useColor)
	}
	log.SetDefault(log.NewLogger(handler))

	// quiet the go-ethereum client library
	ethlog.SetDefault(ethlog.NewLogger(ethlog.DiscardHandler()))
}

// handleExitSignal returns a context canceled on interrupt or terminate.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func makeConfigDir(ctx *cli.Context) string {
	dir := ctx.String(configDirFlag.Name)
	if dir == "" {
		fatal(fmt.Sprintf("unable to infer default config dir, use -%s to specify", configDirFlag.Name))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		fatal(fmt.Sprintf("create config dir [%v]: %v", dir, err))
	}
	return dir
}

func makeDataDir(dir string) string {
	if dir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dir, err))
	}
	return dir
}

// makeInstanceDir keys the instance by token address, so one data dir can
// host vaults over different tokens side by side.
func makeInstanceDir(dataDir string, tokenAddr termvault.Address) string {
	makeDataDir(dataDir)

	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", tokenAddr.Bytes()[12:]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		fatal(fmt.Sprintf("create instance dir [%v]: %v", instanceDir, err))
	}
	return instanceDir
}

func openStore(instanceDir string, cacheMB int) *store.Store {
	cacheMB = normalizeCacheSize(cacheMB)
	logger.Debug("cache size(MB)", "size", cacheMB)

	// Ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))
	logger.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	dir := filepath.Join(instanceDir, "main.db")
	db, err := store.Open(dir, cacheMB)
	if err != nil {
		fatal(fmt.Sprintf("open state database [%v]: %v", dir, err))
	}
	return db
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func openLogDB(instanceDir string) *logdb.LogDB {
	dir := filepath.Join(instanceDir, "logs.db")
	db, err := logdb.New(dir)
	if err != nil {
		fatal(fmt.Sprintf("open log database [%v]: %v", dir, err))
	}
	return db
}

func openMemLogDB() *logdb.LogDB {
	db, err := logdb.NewMem()
	if err != nil {
		fatal(fmt.Sprintf("open log database: %v", err))
	}
	return db
}

func loadOrGeneratePrivateKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

func vaultKeyPath(ctx *cli.Context, cfg *Config) string {
	if cfg.KeyFile != "" {
		return cfg.KeyFile
	}
	return filepath.Join(makeConfigDir(ctx), "vault.key")
}

func mustParseAddress(name, value string) termvault.Address {
	addr, err := termvault.ParseAddress(value)
	if err != nil {
		fatal(fmt.Sprintf("invalid -%s address [%v]: %v", name, value, err))
	}
	return *addr
}

// makeRequestLogger builds the API request logger over a rotating file.
// The closer parks the writer and closes the file.
func makeRequestLogger(enabled bool, path string) (*api.RequestLogger, func()) {
	if !enabled {
		return api.NewRequestLogger(false, io.Discard), func() {}
	}
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	reqLogger := api.NewRequestLogger(true, out)
	return reqLogger, func() {
		reqLogger.Stop()
		if err := out.Close(); err != nil {
			logger.Warn("failed to close request log", "err", err)
		}
	}
}

func makeName(name string) string {
	return fmt.Sprintf("%v/%v/%v/%v", name, fullVersion(), runtime.GOOS, runtime.Version())
}

func printStartupMessage(
	tokenAddr termvault.Address,
	vaultAddr termvault.Address,
	vlt *vault.Vault,
	instanceDir string,
	apiURL string,
	metricsURL string,
) {
	fmt.Printf(`Starting %v
    Token        [ %v ]
    Vault        [ %v ]
    Operator     [ %v ]
    Positions    [ %v ]
    Reward pool  [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		makeName("TermVault"),
		tokenAddr,
		vaultAddr,
		vlt.Owner(),
		vlt.PositionCount(),
		vlt.PoolBalance(),
		instanceDir,
		apiURL)
	if metricsURL != "" {
		fmt.Printf("    Metrics      [ %v ]\n", metricsURL)
	}
}

// copied from go-ethereum
func defaultDataDir() string {
	// Try to place the data folder in the user's home dir
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "org.termvault")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "org.termvault")
		default:
			return filepath.Join(home, ".org.termvault")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

func defaultConfigDir() string {
	return defaultDataDir()
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log routes structured logging through a process-wide root logger.
// It rides on the go-ethereum slog wrapper for the handler and level
// machinery, but keeps its own root so quieting the ethereum client library
// does not quiet the vault.
package log

import (
	"context"
	"log/slog"
	"sync/atomic"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Logger is the leveled key-value logging interface.
type Logger = ethlog.Logger

const (
	LevelTrace = ethlog.LevelTrace
	LevelDebug = ethlog.LevelDebug
	LevelInfo  = ethlog.LevelInfo
	LevelWarn  = ethlog.LevelWarn
	LevelError = ethlog.LevelError
	LevelCrit  = ethlog.LevelCrit
)

// Handler constructors, re-exported so call sites need no second import.
var (
	NewLogger                   = ethlog.NewLogger
	NewTerminalHandlerWithLevel = ethlog.NewTerminalHandlerWithLevel
	JSONHandlerWithLevel        = ethlog.JSONHandlerWithLevel
	DiscardHandler              = ethlog.DiscardHandler
	FromLegacyLevel             = ethlog.FromLegacyLevel
)

type holder struct {
	l Logger
}

var root atomic.Pointer[holder]

func init() {
	root.Store(&holder{NewLogger(DiscardHandler())})
}

// SetDefault sets the root logger.
func SetDefault(l Logger) {
	root.Store(&holder{l})
}

// Root returns the root logger.
func Root() Logger {
	return root.Load().l
}

// WithContext returns a logger carrying the given context attributes whose
// output follows the process root logger. Unlike Root().With, the binding is
// late: package-level loggers created before SetDefault still pick up the
// configured handler.
func WithContext(ctx ...interface{}) Logger {
	return &ctxLogger{ctx: ctx}
}

type ctxLogger struct {
	ctx []interface{}
}

func (c *ctxLogger) resolve() Logger {
	return Root().With(c.ctx...)
}

func (c *ctxLogger) With(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(c.ctx)+len(ctx))
	merged = append(merged, c.ctx...)
	merged = append(merged, ctx...)
	return &ctxLogger{ctx: merged}
}

func (c *ctxLogger) New(ctx ...interface{}) Logger { return c.With(ctx...) }

func (c *ctxLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	c.resolve().Write(level, msg, ctx...)
}

func (c *ctxLogger) Trace(msg string, ctx ...interface{}) { c.resolve().Write(LevelTrace, msg, ctx...) }
func (c *ctxLogger) Debug(msg string, ctx ...interface{}) { c.resolve().Write(LevelDebug, msg, ctx...) }
func (c *ctxLogger) Info(msg string, ctx ...interface{})  { c.resolve().Write(LevelInfo, msg, ctx...) }
func (c *ctxLogger) Warn(msg string, ctx ...interface{})  { c.resolve().Write(LevelWarn, msg, ctx...) }
func (c *ctxLogger) Error(msg string, ctx ...interface{}) { c.resolve().Write(LevelError, msg, ctx...) }
func (c *ctxLogger) Crit(msg string, ctx ...interface{})  { c.resolve().Crit(msg, ctx...) }

func (c *ctxLogger) Write(level slog.Level, msg string, attrs ...interface{}) {
	c.resolve().Write(level, msg, attrs...)
}

func (c *ctxLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return Root().Enabled(ctx, level)
}

func (c *ctxLogger) Handler() slog.Handler {
	return Root().Handler()
}

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...interface{}) {
	Root().Write(LevelTrace, msg, ctx...)
}

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...interface{}) {
	Root().Write(LevelDebug, msg, ctx...)
}

// Info is a convenient alias for Root().Info
func Info(msg string, ctx ...interface{}) {
	Root().Write(LevelInfo, msg, ctx...)
}

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...interface{}) {
	Root().Write(LevelWarn, msg, ctx...)
}

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...interface{}) {
	Root().Write(LevelError, msg, ctx...)
}

// Crit is a convenient alias for Root().Crit
func Crit(msg string, ctx ...interface{}) {
	Root().Crit(msg, ctx...)
}

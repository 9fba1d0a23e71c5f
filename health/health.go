// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health watches the things the vault depends on: the token
// endpoint, the wall clock and the flow of committed operations.
package health

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/ethereum/go-ethereum/common"

	"github.com/termvault/termvault/log"
)

var logger = log.WithContext("pkg", "health")

var ntpQuery = ntp.Query

const (
	probeInterval   = 10 * time.Second
	probeTimeout    = 5 * time.Second
	clockInterval   = 10 * time.Minute
	delayBuffer     = 5 * time.Second
	offsetTolerance = 10 * time.Second
	ntpHost         = "pool.ntp.org"
)

// TokenReader is the probe surface: any token client that answers a
// supply query counts as reachable.
type TokenReader interface {
	TotalSupply(ctx context.Context) (*big.Int, error)
}

// TokenStatus reports the last probe of the token endpoint.
type TokenStatus struct {
	Reachable bool       `json:"reachable"`
	CheckedAt *time.Time `json:"checkedAt"`
	Error     string     `json:"error,omitempty"`
}

// Status is the structured health report.
type Status struct {
	Healthy     bool         `json:"healthy"`
	Token       *TokenStatus `json:"token"`
	ClockOffset string       `json:"clockOffset"`
	LastCommit  *time.Time   `json:"lastCommit,omitempty"`
}

// Health tracks liveness signals in the background. Healthy means the
// token endpoint answered a recent probe; the clock offset and last
// commit time ride along as diagnostics.
type Health struct {
	lock        sync.RWMutex
	token       TokenReader
	tokenOK     bool
	tokenErr    string
	lastProbe   time.Time
	clockOffset time.Duration
	lastCommit  time.Time

	stop chan struct{}
}

// New starts the watcher over the given token endpoint. Close is
// required to be called at end.
func New(token TokenReader) *Health {
	h := &Health{
		token: token,
		stop:  make(chan struct{}),
	}
	go h.run()
	return h
}

// Close stops the background probing.
func (h *Health) Close() {
	close(h.stop)
}

func (h *Health) run() {
	probeTicker := time.NewTicker(probeInterval)
	clockTicker := time.NewTicker(clockInterval)
	defer probeTicker.Stop()
	defer clockTicker.Stop()

	h.probeToken()
	go h.checkClockOffset()

	for {
		select {
		case <-h.stop:
			return
		case <-probeTicker.C:
			h.probeToken()
		case <-clockTicker.C:
			go h.checkClockOffset()
		}
	}
}

// NoteCommit records that an operation just committed.
func (h *Health) NoteCommit() {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.lastCommit = time.Now()
}

// Status reports the current view.
func (h *Health) Status() (*Status, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	token := &TokenStatus{
		Reachable: h.tokenOK && time.Since(h.lastProbe) <= probeInterval+delayBuffer,
		Error:     h.tokenErr,
	}
	if !h.lastProbe.IsZero() {
		at := h.lastProbe
		token.CheckedAt = &at
	}

	status := &Status{
		Healthy:     token.Reachable,
		Token:       token,
		ClockOffset: h.clockOffset.String(),
	}
	if !h.lastCommit.IsZero() {
		at := h.lastCommit
		status.LastCommit = &at
	}
	return status, nil
}

func (h *Health) probeToken() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	_, err := h.token.TotalSupply(ctx)

	h.lock.Lock()
	defer h.lock.Unlock()

	h.lastProbe = time.Now()
	h.tokenOK = err == nil
	if err != nil {
		h.tokenErr = err.Error()
		logger.Debug("token probe failed", "err", err)
	} else {
		h.tokenErr = ""
	}
}

func (h *Health) checkClockOffset() {
	resp, err := ntpQuery(ntpHost)
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}

	h.lock.Lock()
	h.clockOffset = resp.ClockOffset
	h.lock.Unlock()

	if resp.ClockOffset > offsetTolerance || resp.ClockOffset < -offsetTolerance {
		logger.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/token"
)

type deadToken struct{}

func (deadToken) TotalSupply(context.Context) (*big.Int, error) {
	return nil, errors.New("connection refused")
}

func liveToken() *token.Memory {
	return token.NewMemory(termvault.BytesToAddress([]byte("vault")))
}

func TestProbeTracksTokenEndpoint(t *testing.T) {
	h := &Health{token: liveToken()}

	status, err := h.Status()
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.Nil(t, status.Token.CheckedAt)

	h.probeToken()

	status, err = h.Status()
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.True(t, status.Token.Reachable)
	require.NotNil(t, status.Token.CheckedAt)
	assert.WithinDuration(t, time.Now(), *status.Token.CheckedAt, time.Second)
	assert.Empty(t, status.Token.Error)
}

func TestProbeFailureReported(t *testing.T) {
	h := &Health{token: deadToken{}}
	h.probeToken()

	status, err := h.Status()
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.False(t, status.Token.Reachable)
	assert.Equal(t, "connection refused", status.Token.Error)
}

func TestStaleProbeGoesUnhealthy(t *testing.T) {
	h := &Health{token: liveToken()}
	h.probeToken()
	h.lastProbe = time.Now().Add(-probeInterval - delayBuffer - time.Second)

	status, err := h.Status()
	require.NoError(t, err)
	assert.False(t, status.Healthy)
}

func TestNoteCommit(t *testing.T) {
	h := &Health{token: liveToken()}

	status, err := h.Status()
	require.NoError(t, err)
	assert.Nil(t, status.LastCommit)

	h.NoteCommit()

	status, err = h.Status()
	require.NoError(t, err)
	require.NotNil(t, status.LastCommit)
	assert.WithinDuration(t, time.Now(), *status.LastCommit, time.Second)
}

func TestClockOffsetRecorded(t *testing.T) {
	defer func(orig func(string) (*ntp.Response, error)) { ntpQuery = orig }(ntpQuery)

	ntpQuery = func(string) (*ntp.Response, error) {
		return &ntp.Response{ClockOffset: 1500 * time.Millisecond}, nil
	}
	h := &Health{token: liveToken()}
	h.checkClockOffset()

	status, err := h.Status()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", status.ClockOffset)

	// a failed query keeps the last reading
	ntpQuery = func(string) (*ntp.Response, error) { return nil, errors.New("timeout") }
	h.checkClockOffset()

	status, err = h.Status()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", status.ClockOffset)
}

func TestWatcherLifecycle(t *testing.T) {
	defer func(orig func(string) (*ntp.Response, error)) { ntpQuery = orig }(ntpQuery)
	ntpQuery = func(string) (*ntp.Response, error) { return &ntp.Response{}, nil }

	h := New(liveToken())
	defer h.Close()

	require.Eventually(t, func() bool {
		status, err := h.Status()
		return err == nil && status.Healthy
	}, time.Second, 10*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	h := &Health{token: liveToken()}
	router := mux.NewRouter()
	NewAPI(h).Mount(router, "/health")
	ts := httptest.NewServer(router)
	defer ts.Close()

	var status Status
	body, code := httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, status.Healthy)

	h.probeToken()

	body, code = httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, status.Healthy)
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	r, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termvault/termvault/health"
	"github.com/termvault/termvault/logdb"
)

func TestAPIAssembly(t *testing.T) {
	v, tok, registry := newTestVault(t)
	db, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	healthz := health.New(tok)
	t.Cleanup(healthz.Close)

	handler, closer := New(v, registry, db, healthz, nil, Options{
		AllowedOrigins: "*",
		AdminToken:     "s3cret",
		LogsLimit:      100,
	})
	t.Cleanup(closer)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	// every mounted surface answers
	_, code := httpGet(t, ts.URL+"/staking/plans")
	assert.Equal(t, 200, code)
	_, code = httpGet(t, ts.URL+"/staking/total")
	assert.Equal(t, 200, code)
	_, code = httpGet(t, ts.URL+"/logs/staking")
	assert.Equal(t, 200, code)

	// health flips once the first token probe lands
	require.Eventually(t, func() bool {
		res, err := http.Get(ts.URL + "/health") //#nosec G107
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond)

	// the admin bearer gate holds through the full middleware stack
	res, err := http.Post(ts.URL+"/admin/pool", "application/json", strings.NewReader(`{}`)) //#nosec G107
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// a write lands through CORS and compression
	tok.Mint(alice, big.NewInt(10_000))
	tok.Approve(alice, vaultAcc, big.NewInt(10_000))
	res, err = http.Post( //#nosec G107
		ts.URL+"/staking/accounts/"+alice.String()+"/positions/flexible/open",
		"application/json",
		strings.NewReader(`{"amount":"0x2710"}`),
	)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, 200, res.StatusCode)

	_, code = httpGet(t, ts.URL+"/staking/accounts/"+alice.String()+"/positions/flexible")
	assert.Equal(t, 200, code)

	// websocket upgrades survive the handler wrapping
	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/subscriptions/staking"}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	conn.Close()
}

func TestAPISkipLogs(t *testing.T) {
	v, tok, registry := newTestVault(t)
	healthz := health.New(tok)
	t.Cleanup(healthz.Close)

	handler, closer := New(v, registry, nil, healthz, nil, Options{SkipLogs: true})
	t.Cleanup(closer)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	_, code := httpGet(t, ts.URL+"/logs/staking")
	assert.Equal(t, 404, code)
	_, code = httpGet(t, ts.URL+"/staking/plans")
	assert.Equal(t, 200, code)
}

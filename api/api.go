// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the REST and websocket surface of the vault daemon.
package api

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/termvault/termvault/api/doc"
	"github.com/termvault/termvault/api/staking"
	"github.com/termvault/termvault/api/subscriptions"
	"github.com/termvault/termvault/health"
	"github.com/termvault/termvault/log"
	"github.com/termvault/termvault/logdb"
	"github.com/termvault/termvault/vault"
	"github.com/termvault/termvault/vault/plans"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	AdminToken      string
	PprofOn         bool
	SkipLogs        bool
	EnableReqLogger bool
	EnableMetrics   bool
	LogsLimit       uint64
}

// New returns the assembled api handler plus a closer that releases the
// long-lived websocket subscriptions.
func New(
	vlt *vault.Vault,
	registry *plans.Registry,
	logDB *logdb.LogDB,
	healthz *health.Health,
	reqLogger *RequestLogger,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	// to serve the api doc
	router.PathPrefix("/doc").Handler(
		http.StripPrefix("/doc/", http.FileServer(http.FS(doc.FS))),
	)

	// redirect to the doc
	router.Path("/").HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "doc/termvault.yaml", http.StatusTemporaryRedirect)
		})

	staking.New(vlt, registry).
		Mount(router, "/staking")
	if !opts.SkipLogs && logDB != nil {
		staking.NewLogs(logDB, opts.LogsLimit).
			Mount(router, "/logs/staking")
	}
	staking.NewAdmin(vlt, opts.AdminToken).
		Mount(router, "/admin")
	health.NewAPI(healthz).
		Mount(router, "/health")
	subs := subscriptions.New(vlt, origins)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "authorization"}),
	)(handler)

	if opts.EnableReqLogger && reqLogger != nil {
		handler = reqLogger.Handle(handler)
	}

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}

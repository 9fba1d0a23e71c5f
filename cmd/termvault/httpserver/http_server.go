// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package httpserver starts the daemon's listeners and hands back closers.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// StartAPIServer serves handler on addr. timeoutMS > 0 puts a deadline on
// every request context. The returned closer stops the server and waits
// for the serve loop to drain.
func StartAPIServer(addr string, handler http.Handler, timeoutMS uint64) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}

	if timeoutMS > 0 {
		handler = withTimeout(handler, time.Duration(timeoutMS)*time.Millisecond)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second}
	var goes sync.WaitGroup
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

// withTimeout deadlines the request context. Websocket upgrades are
// exempt, subscriptions outlive any sane request deadline.
func withTimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			h.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

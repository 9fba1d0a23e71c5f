// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pborman/uuid"
)

// RequestLogger journals every API request as a JSON line on an output
// writer, tagged with a fresh request ID.
type RequestLogger struct {
	enabled    bool
	writerChan chan entry
	stopChan   chan bool
	out        io.Writer
}

// NewRequestLogger creates a request logger writing to out, typically a
// rotating log file. Wrap handlers with Handle only when Enabled reports true.
func NewRequestLogger(enabled bool, out io.Writer) *RequestLogger {
	return &RequestLogger{
		enabled:    enabled,
		out:        out,
		writerChan: make(chan entry, 100_000),
		stopChan:   make(chan bool),
	}
}

func (l *RequestLogger) Enabled() bool {
	return l.enabled
}

// Handle returns an http handler to ensure requests are syphoned into the writer
func (l *RequestLogger) Handle(handler http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		// Read and log the body (note: this can only be done once)
		// Ensure you don't disrupt the request body for handlers that need to read it
		var bodyBytes []byte
		var err error
		if r.Body != nil {
			bodyBytes, err = io.ReadAll(r.Body)
			if err != nil {
				logger.Warn("unexpected body read error", "err", err)
				return // don't pass bad request to the next handler
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		e := entry{
			ID:        uuid.New(),
			Timestamp: time.Now(),
			URI:       r.URL.String(),
			Method:    r.Method,
			Body:      string(bodyBytes),
		}
		select {
		case l.writerChan <- e:
		default:
			logger.Warn("request log queue full, entry dropped", "uri", e.URI)
		}

		// call the original http.Handler we're wrapping
		handler.ServeHTTP(w, r)
	}

	// start the writer
	l.start()

	return http.HandlerFunc(fn)
}

// Stop parks the writer goroutine.
func (l *RequestLogger) Stop() {
	if !l.enabled {
		return
	}

	l.stopChan <- true
	<-l.stopChan
}

func (l *RequestLogger) start() {
	go func() {
		for {
			select {
			case item := <-l.writerChan:
				marshal, err := json.Marshal(item)
				if err != nil {
					logger.Warn("unable to marshal api request entry", "err", err)
					continue
				}
				if _, err := l.out.Write(append(marshal, '\n')); err != nil {
					logger.Warn("unable to write api request entry", "err", err)
				}
			case <-l.stopChan:
				close(l.stopChan)
				return
			}
		}
	}()
}

type entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	URI       string    `json:"uri"`
	Method    string    `json:"method"`
	Body      string    `json:"body"`
}

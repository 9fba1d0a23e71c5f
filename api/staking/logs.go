// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/termvault/termvault/api/utils"
	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/logdb"
	"github.com/termvault/termvault/termvault"
)

// Logs queries the stored notification history.
type Logs struct {
	db    *logdb.LogDB
	limit uint64
}

func NewLogs(db *logdb.LogDB, limit uint64) *Logs {
	return &Logs{
		db:    db,
		limit: limit,
	}
}

func (l *Logs) parseFilter(req *http.Request) (*logdb.Filter, error) {
	q := req.URL.Query()
	filter := &logdb.Filter{}

	if s := q.Get("owner"); s != "" {
		addr, err := termvault.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "owner"))
		}
		filter.Owner = addr
	}
	if s := q.Get("event"); s != "" {
		kind, err := event.ParseKind(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "event"))
		}
		filter.Kind = &kind
	}

	if q.Get("from") != "" || q.Get("to") != "" {
		r := &logdb.Range{To: math.MaxUint64}
		if s := q.Get("from"); s != "" {
			from, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, utils.BadRequest(errors.WithMessage(err, "from"))
			}
			r.From = from
		}
		if s := q.Get("to"); s != "" {
			to, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, utils.BadRequest(errors.WithMessage(err, "to"))
			}
			r.To = to
		}
		filter.Range = r
	}

	var offset uint64
	if s := q.Get("offset"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "offset"))
		}
		offset = v
	}
	limit := l.limit
	if s := q.Get("limit"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "limit"))
		}
		if v > l.limit {
			return nil, utils.Forbidden(fmt.Errorf("limit exceeds the maximum allowed value of %d", l.limit))
		}
		limit = v
	}
	filter.Options = &logdb.Options{
		Offset: offset,
		Limit:  limit,
	}

	if q.Get("order") == string(logdb.DESC) {
		filter.Order = logdb.DESC
	}
	return filter, nil
}

func (l *Logs) handleGetLogs(w http.ResponseWriter, req *http.Request) error {
	filter, err := l.parseFilter(req)
	if err != nil {
		return err
	}

	entries, err := l.db.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	out := make([]*LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, convertEntry(e))
	}
	return utils.WriteJSON(w, out)
}

func (l *Logs) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("staking_get_logs").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetLogs))
}

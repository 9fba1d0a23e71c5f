// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package logdb keeps the append-only record of committed staking
// notifications in sqlite, queryable by owner, kind and time range.
package logdb

import (
	"context"
	"database/sql"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/log"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/plans"
)

var logger = log.WithContext("pkg", "logdb")

const tableSchema = `
create table if not exists staking_log (
	seq integer primary key autoincrement,
	kind text not null,
	owner blob(20) not null,
	plan text,
	amount blob,
	principal blob,
	reward blob,
	prevOwner blob(20),
	ts integer not null
);

CREATE INDEX if not exists ownerIndex on staking_log(owner);
CREATE INDEX if not exists kindIndex on staking_log(kind);
CREATE INDEX if not exists tsIndex on staking_log(ts);
`

const insertStmt = `INSERT INTO staking_log(kind, owner, plan, amount, principal, reward, prevOwner, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type LogDB struct {
	path          string
	db            *sql.DB
	insert        *sql.Stmt
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	if path == ":memory:" {
		// the sql pool would otherwise hand each conn its own empty db
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(tableSchema); err != nil {
		return nil, err
	}
	insert, err := db.Prepare(insertStmt)
	if err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("log db opened", "path", path, "driver", driverVer)
	return &LogDB{
		path,
		db,
		insert,
		driverVer,
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() {
	db.insert.Close()
	db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// Log appends one committed notification.
func (db *LogDB) Log(ctx context.Context, ev event.Event) error {
	entry := newEntry(ev)
	_, err := db.insert.ExecContext(ctx,
		string(entry.Kind),
		entry.Owner.Bytes(),
		planValue(entry.Plan),
		amountValue(entry.Amount),
		amountValue(entry.Principal),
		amountValue(entry.Reward),
		addressValue(entry.PrevOwner),
		entry.Time,
	)
	return err
}

// Filter returns the entries matching filter, oldest first unless the
// filter says otherwise.
func (db *LogDB) Filter(ctx context.Context, filter *Filter) ([]*Entry, error) {
	if filter == nil {
		return db.query(ctx, "SELECT seq, kind, owner, plan, amount, principal, reward, prevOwner, ts FROM staking_log")
	}
	var args []interface{}
	stmt := "SELECT seq, kind, owner, plan, amount, principal, reward, prevOwner, ts FROM staking_log WHERE 1"
	if filter.Owner != nil {
		args = append(args, filter.Owner.Bytes())
		stmt += " AND owner = ? "
	}
	if filter.Kind != nil {
		args = append(args, string(*filter.Kind))
		stmt += " AND kind = ? "
	}
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND ts >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND ts <= ? "
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

func (db *LogDB) query(ctx context.Context, stmt string, args ...interface{}) ([]*Entry, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq       uint64
			kind      string
			owner     []byte
			plan      sql.NullString
			amount    []byte
			principal []byte
			reward    []byte
			prevOwner []byte
			ts        uint64
		)
		if err := rows.Scan(
			&seq,
			&kind,
			&owner,
			&plan,
			&amount,
			&principal,
			&reward,
			&prevOwner,
			&ts,
		); err != nil {
			return nil, err
		}
		entry := &Entry{
			Seq:       seq,
			Kind:      event.Kind(kind),
			Owner:     termvault.BytesToAddress(owner),
			Amount:    amountFromValue(amount),
			Principal: amountFromValue(principal),
			Reward:    amountFromValue(reward),
			Time:      ts,
		}
		if plan.Valid {
			parsed, err := plans.Parse(plan.String)
			if err != nil {
				return nil, err
			}
			entry.Plan = &parsed
		}
		if len(prevOwner) > 0 {
			prev := termvault.BytesToAddress(prevOwner)
			entry.PrevOwner = &prev
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func planValue(p *plans.Plan) interface{} {
	if p == nil {
		return nil
	}
	return p.String()
}

func amountValue(x *big.Int) []byte {
	if x == nil {
		return nil
	}
	return x.Bytes()
}

func amountFromValue(data []byte) *big.Int {
	if data == nil {
		return nil
	}
	return new(big.Int).SetBytes(data)
}

func addressValue(a *termvault.Address) []byte {
	if a == nil {
		return nil
	}
	return a.Bytes()
}

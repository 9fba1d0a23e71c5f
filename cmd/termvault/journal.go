// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"

	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/health"
	"github.com/termvault/termvault/logdb"
	"github.com/termvault/termvault/vault"
)

// journal tails committed vault events into the log database and the
// health tracker. It is the only logdb writer in the process.
type journal struct {
	vault   *vault.Vault
	db      *logdb.LogDB // nil skips log writes
	healthz *health.Health
}

func newJournal(vlt *vault.Vault, db *logdb.LogDB, healthz *health.Health) *journal {
	return &journal{
		vault:   vlt,
		db:      db,
		healthz: healthz,
	}
}

// Run drains events until ctx is done or the subscription drops. A failed
// write is logged and skipped, the API reads from live vault state anyway.
func (j *journal) Run(ctx context.Context) error {
	ch := make(chan event.Event, 256)
	sub := j.vault.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case ev := <-ch:
			j.record(ctx, ev)
		}
	}
}

func (j *journal) record(ctx context.Context, ev event.Event) {
	j.healthz.NoteCommit()
	if j.db == nil {
		return
	}
	if err := j.db.Log(ctx, ev); err != nil {
		logger.Warn("failed to write staking log", "kind", ev.Kind(), "err", err)
	}
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package vault is the deposit service: participants lock token balances
// under a plan and withdraw principal plus a time-prorated reward, paid
// from a pool the operator funds up front.
//
// Every mutating call runs the same protocol: take the reentry latch,
// check preconditions, move tokens through the gateway, commit ledger and
// pool state, persist, then emit the event. A call arriving while another
// is in flight is rejected busy rather than queued, which also rejects a
// token calling back into the vault mid-transfer.
package vault

import (
	"sync"
	"time"

	gethevent "github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/log"
	"github.com/termvault/termvault/store"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/token"
	"github.com/termvault/termvault/vault/accrual"
	"github.com/termvault/termvault/vault/auth"
	"github.com/termvault/termvault/vault/guard"
	"github.com/termvault/termvault/vault/ledger"
	"github.com/termvault/termvault/vault/plans"
	"github.com/termvault/termvault/vault/pool"
)

var logger = log.WithContext("pkg", "vault")

// Options tune a vault at construction.
type Options struct {
	// Operator is the initial pool funder and admin. A persisted owner from
	// an earlier run takes precedence.
	Operator termvault.Address

	// CapPercent bounds any single holding after a payout to this share of
	// the token's total supply. Zero means the protocol default.
	CapPercent uint64

	// Now supplies the clock, unix seconds. Defaults to wall time.
	Now func() uint64
}

// Vault composes the plan table, accrual engine, reward pool, position
// ledger, token gateway and operator authority behind one serialized
// surface.
type Vault struct {
	gateway *token.Gateway
	plans   *plans.Registry
	engine  *accrual.Engine
	pool    *pool.Pool
	ledger  *ledger.Ledger
	auth    *auth.Authority
	store   *store.Store // nil runs memory-only
	now     func() uint64

	mu    sync.RWMutex
	latch guard.Guard
	bus   event.Bus
}

// New builds a vault over the gateway and plan table, restoring persisted
// state when str holds any. Close is required to be called at end.
func New(gw *token.Gateway, registry *plans.Registry, str *store.Store, opts Options) (*Vault, error) {
	capPercent := opts.CapPercent
	if capPercent == 0 {
		capPercent = termvault.InitialWhaleCapPercent
	}
	now := opts.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	v := &Vault{
		gateway: gw,
		plans:   registry,
		engine:  accrual.New(registry, capPercent),
		pool:    pool.New(),
		ledger:  ledger.New(),
		auth:    auth.New(opts.Operator),
		store:   str,
		now:     now,
	}
	if err := v.restore(); err != nil {
		return nil, err
	}
	v.refreshGauges()
	return v, nil
}

// restore rebuilds state from the store. A stored owner wins over the
// configured one so handovers survive restarts; on first boot the
// configured owner is written out.
func (v *Vault) restore() error {
	if v.store == nil {
		return nil
	}

	owner, err := v.store.LoadOwner()
	if err != nil {
		return errors.Wrap(err, "restore owner")
	}
	if owner == nil {
		b := v.store.NewBatch()
		if err := b.PutOwner(v.auth.Owner()); err != nil {
			return errors.Wrap(err, "persist owner")
		}
		if err := v.store.Write(b); err != nil {
			return errors.Wrap(err, "persist owner")
		}
	} else {
		v.auth = auth.New(*owner)
	}

	balance, err := v.store.LoadPool()
	if err != nil {
		return errors.Wrap(err, "restore pool")
	}
	if balance != nil {
		v.pool = pool.NewWithBalance(balance)
	}

	positions, err := v.store.LoadPositions()
	if err != nil {
		return errors.Wrap(err, "restore positions")
	}
	if err := v.ledger.Restore(positions); err != nil {
		return errors.Wrap(err, "restore ledger")
	}

	total, err := v.store.LoadTotal()
	if err != nil {
		return errors.Wrap(err, "restore total")
	}
	if total != nil && total.Cmp(v.ledger.TotalStaked()) != 0 {
		logger.Warn("stored staked total disagrees with positions",
			"stored", total, "computed", v.ledger.TotalStaked())
	}

	if len(positions) > 0 || balance != nil {
		logger.Info("vault state restored",
			"positions", len(positions), "pool", v.pool.Balance(), "owner", v.auth.Owner())
	}
	return nil
}

// Close shuts the event bus down after in-flight deliveries land.
func (v *Vault) Close() {
	v.bus.Close()
	logger.Debug("closed")
}

// SubscribeEvents receivers will receive committed staking events.
func (v *Vault) SubscribeEvents(ch chan event.Event) gethevent.Subscription {
	return v.bus.Subscribe(ch)
}

// persist writes a committed batch, logging loudly instead of failing the
// call: once tokens moved, memory state is the truth and must not unwind.
func (v *Vault) persist(build func(b *store.Batch) error) {
	if v.store == nil {
		return
	}
	b := v.store.NewBatch()
	if err := build(b); err != nil {
		logger.Error("failed to build state batch", "err", err)
		return
	}
	if err := v.store.Write(b); err != nil {
		logger.Error("failed to persist vault state", "err", err)
	}
}

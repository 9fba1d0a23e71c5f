// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/reverts"
)

// Gateway wraps the raw token with the safe-transfer protocol: a
// code-presence probe, failure normalization across both mutator
// conventions, and balance-delta accounting on inbound transfers so
// fee-on-transfer tokens are recorded at what actually arrived.
//
// Delta accounting is inbound only. Payouts report the nominal amount; a
// token shaving outbound transfers shorts the recipient, not the ledger.
type Gateway struct {
	token Token
	self  termvault.Address // the vault's own token account
}

func NewGateway(token Token, self termvault.Address) *Gateway {
	return &Gateway{
		token: token,
		self:  self,
	}
}

// Token returns the unwrapped token. The emergency path pays through this,
// skipping the probe and leaving the token's ok result unchecked.
func (g *Gateway) Token() Token {
	return g.token
}

// Self returns the vault's own token account.
func (g *Gateway) Self() termvault.Address {
	return g.self
}

// Pull moves amount from the depositor into the vault's account and returns
// the balance delta actually observed. A transfer that moves nothing is
// rejected rather than recorded as an empty deposit.
func (g *Gateway) Pull(ctx context.Context, from termvault.Address, amount *big.Int) (*big.Int, error) {
	if err := g.probe(ctx); err != nil {
		return nil, err
	}

	before, err := g.token.BalanceOf(ctx, g.self)
	if err != nil {
		return nil, errors.Wrap(err, "balance before pull")
	}

	if err := normalize(g.token.TransferFrom(ctx, from, g.self, amount)); err != nil {
		return nil, err
	}

	after, err := g.token.BalanceOf(ctx, g.self)
	if err != nil {
		return nil, errors.Wrap(err, "balance after pull")
	}

	delta := new(big.Int).Sub(after, before)
	if delta.Sign() <= 0 {
		return nil, errors.Wrap(reverts.ErrTransferFailed, "transfer moved no balance")
	}
	return delta, nil
}

// Payout pays amount from the vault's account through the safe path. Zero
// payouts complete without touching the token.
func (g *Gateway) Payout(ctx context.Context, to termvault.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := g.probe(ctx); err != nil {
		return err
	}
	return normalize(g.token.Transfer(ctx, to, amount))
}

func (g *Gateway) probe(ctx context.Context) error {
	prober, ok := g.token.(CodeProber)
	if !ok {
		return nil
	}
	has, err := prober.HasCode(ctx)
	if err != nil {
		return errors.Wrap(err, "probe token code")
	}
	if !has {
		return reverts.ErrNotContract
	}
	return nil
}

// normalize folds the two mutator conventions into one error. A remote error
// keeps its reason; a bare ok=false becomes the generic transfer failure.
func normalize(ok bool, err error) error {
	if err != nil {
		return errors.Wrap(reverts.ErrTransferFailed, err.Error())
	}
	if !ok {
		return reverts.ErrTransferFailed
	}
	return nil
}

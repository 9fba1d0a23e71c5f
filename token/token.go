// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token defines the boundary to the external fungible-token ledger
// the vault holds deposits in, and the gateway that makes calling it safe.
package token

import (
	"context"
	"math/big"

	"github.com/termvault/termvault/termvault"
)

// Token is the external token ledger. Mutators report failure through either
// convention seen in the wild: ok=false with a nil error, or a non-nil error.
// The gateway treats both as failure; implementations pick whichever matches
// their transport.
type Token interface {
	// BalanceOf returns the balance held by holder.
	BalanceOf(ctx context.Context, holder termvault.Address) (*big.Int, error)

	// TotalSupply returns the token's total issued supply.
	TotalSupply(ctx context.Context) (*big.Int, error)

	// Transfer moves amount from the vault's own account to the recipient.
	Transfer(ctx context.Context, to termvault.Address, amount *big.Int) (bool, error)

	// TransferFrom moves amount between third-party accounts on the strength
	// of a prior approval for the vault.
	TransferFrom(ctx context.Context, from, to termvault.Address, amount *big.Int) (bool, error)
}

// CodeProber is implemented by tokens that can tell whether executable code
// actually lives behind the remote address. Tokens that cannot answer simply
// don't implement it and skip the probe.
type CodeProber interface {
	HasCode(ctx context.Context) (bool, error)
}

// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// ErrRevert is a rejected staking call. Errors of this type carry a message
// safe to surface to callers; anything else is an internal fault.
type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Rejections raised by the vault. Call sites wrap these with context; compare
// with errors.Is.
var (
	ErrUnknownPlan      = New("unknown plan")
	ErrZeroAmount       = New("amount must be greater than zero")
	ErrOperatorDeposit  = New("operator cannot hold a deposit")
	ErrPositionExists   = New("position already exists")
	ErrNoBalance        = New("no balance")
	ErrNotMatured       = New("deposit not matured")
	ErrMinimumHold      = New("minimum holding period not met")
	ErrInsufficientPool = New("insufficient reward pool")
	ErrHoldingCap       = New("holding would exceed cap")
	ErrReentrantCall    = New("reentrant call")
	ErrNotOwner         = New("caller is not the owner")
	ErrTransferFailed   = New("token transfer failed")
	ErrNotContract      = New("token address has no code")

	ErrPageInverted   = New("page start after end")
	ErrPageOutOfRange = New("page end out of range")
	ErrPageTooLarge   = New("page span too large")
)

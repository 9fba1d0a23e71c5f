// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package termvault

// Constants of the deposit protocol.
const (
	SecondsPerDay  uint64 = 24 * 60 * 60
	DaysPerYear    uint64 = 365
	SecondsPerYear uint64 = DaysPerYear * SecondsPerDay // accrual year, no leap handling

	RateDenominator uint64 = 1000 // plan rates are per-mille of principal per year

	MaxPageSize uint64 = 101 // max entries served by a single position page query

	FlexibleMinHoldSeconds uint64 = 3 * SecondsPerDay // early-exit window on flexible deposits

	InitialWhaleCapPercent uint64 = 10 // share of total token supply one account may hold post-claim
)

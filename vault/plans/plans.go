// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package plans

import (
	"fmt"

	"github.com/termvault/termvault/termvault"
)

// Plan identifies one of the deposit terms offered by the vault.
type Plan uint8

const (
	Days30 = Plan(iota)
	Days90
	Days180
	Days360
	Flexible // no maturity, withdrawable after the minimum hold
)

// Count number of plans. Plan values are dense, 0..Count-1.
const Count = 5

var names = [Count]string{"30d", "90d", "180d", "360d", "flexible"}

// All returns every plan in declaration order.
func All() [Count]Plan {
	return [Count]Plan{Days30, Days90, Days180, Days360, Flexible}
}

// Valid returns whether p is a known plan.
func (p Plan) Valid() bool {
	return p < Count
}

// String implements the stringer interface
func (p Plan) String() string {
	if !p.Valid() {
		return fmt.Sprintf("plan(%d)", uint8(p))
	}
	return names[p]
}

// IsFlexible returns whether p accrues open-ended instead of over a fixed term.
func (p Plan) IsFlexible() bool {
	return p == Flexible
}

// MarshalText implements encoding.TextMarshaler.
func (p Plan) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown plan %d", uint8(p))
	}
	return []byte(names[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Plan) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse converts a plan name into a Plan.
func Parse(s string) (Plan, error) {
	for i, name := range names {
		if name == s {
			return Plan(i), nil //nolint:gosec
		}
	}
	return 0, fmt.Errorf("unknown plan %q", s)
}

// Term is one row of the plan table.
type Term struct {
	Rate     uint64 // annual reward rate, per-mille of principal
	LockDays uint64 // maturity term in days; the minimum hold window for Flexible
}

// DefaultTerms returns the built-in plan table.
func DefaultTerms() [Count]Term {
	return [Count]Term{
		Days30:   {Rate: 50, LockDays: 30},
		Days90:   {Rate: 70, LockDays: 90},
		Days180:  {Rate: 100, LockDays: 180},
		Days360:  {Rate: 150, LockDays: 360},
		Flexible: {Rate: 30, LockDays: termvault.FlexibleMinHoldSeconds / termvault.SecondsPerDay},
	}
}

// Registry is the immutable plan table. It is fixed at construction; rates
// never change for the lifetime of the vault.
type Registry struct {
	terms [Count]Term
}

// NewRegistry builds a registry from the given table.
func NewRegistry(terms [Count]Term) (*Registry, error) {
	for plan, term := range terms {
		if term.LockDays == 0 {
			return nil, fmt.Errorf("plan %s: zero lock days", Plan(plan)) //nolint:gosec
		}
	}
	return &Registry{terms: terms}, nil
}

// MustNewRegistry builds a registry from the given table, panic on error.
func MustNewRegistry(terms [Count]Term) *Registry {
	r, err := NewRegistry(terms)
	if err != nil {
		panic(err)
	}
	return r
}

// Term returns the table row of the given plan.
func (r *Registry) Term(p Plan) Term {
	return r.terms[p]
}

// Rate returns the annual reward rate of the given plan, per-mille.
func (r *Registry) Rate(p Plan) uint64 {
	return r.terms[p].Rate
}

// LockDays returns the lock term of the given plan in days.
func (r *Registry) LockDays(p Plan) uint64 {
	return r.terms[p].LockDays
}

// LockSeconds returns the lock term of the given plan in seconds.
func (r *Registry) LockSeconds(p Plan) uint64 {
	return r.terms[p].LockDays * termvault.SecondsPerDay
}

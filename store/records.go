// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/ledger"
	"github.com/termvault/termvault/vault/plans"
)

var (
	posPrefix = []byte("p")
	poolKey   = []byte("pool-balance")
	ownerKey  = []byte("operator")
	totalKey  = []byte("total-staked")
)

func positionKey(owner termvault.Address, plan plans.Plan) []byte {
	hash := termvault.Blake2b([]byte("pos"), owner.Bytes(), []byte{byte(plan)})
	return append(append([]byte(nil), posPrefix...), hash.Bytes()...)
}

// positionRecord pairs a position with its ledger slot so a restore can
// rebuild the sequence in its pre-shutdown order.
type positionRecord struct {
	Index    uint32
	Position *ledger.Position
}

// signedBig carries a big.Int with its sign, which rlp alone cannot. The
// pool balance goes negative when settlements overdraw it.
type signedBig struct {
	Neg bool
	Abs []byte
}

func encodeSigned(x *big.Int) ([]byte, error) {
	return rlp.EncodeToBytes(&signedBig{Neg: x.Sign() < 0, Abs: x.Bytes()})
}

func decodeSigned(data []byte) (*big.Int, error) {
	var rec signedBig
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, err
	}
	x := new(big.Int).SetBytes(rec.Abs)
	if rec.Neg {
		x.Neg(x)
	}
	return x, nil
}

// PutPosition queues the position record under its current slot.
func (b *Batch) PutPosition(pos *ledger.Position) error {
	data, err := rlp.EncodeToBytes(&positionRecord{
		Index:    uint32(pos.Index()),
		Position: pos,
	})
	if err != nil {
		return errors.Wrap(err, "encode position")
	}
	return b.put(positionKey(pos.Owner(), pos.Plan()), data)
}

// DeletePosition queues removal of the (owner, plan) record.
func (b *Batch) DeletePosition(owner termvault.Address, plan plans.Plan) {
	b.delete(positionKey(owner, plan))
}

// PutPool queues the reward pool balance.
func (b *Batch) PutPool(balance *big.Int) error {
	data, err := encodeSigned(balance)
	if err != nil {
		return errors.Wrap(err, "encode pool")
	}
	return b.put(poolKey, data)
}

// PutTotal queues the staked total.
func (b *Batch) PutTotal(total *big.Int) error {
	data, err := encodeSigned(total)
	if err != nil {
		return errors.Wrap(err, "encode total")
	}
	return b.put(totalKey, data)
}

// PutOwner queues the operator address. The zero address marks a renounced
// vault, distinct from a store that never saw an owner.
func (b *Batch) PutOwner(owner termvault.Address) error {
	return b.put(ownerKey, owner.Bytes())
}

// LoadPool returns the stored pool balance, nil when never written.
func (s *Store) LoadPool() (*big.Int, error) {
	data, err := s.get(poolKey)
	if err != nil {
		if s.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load pool")
	}
	return decodeSigned(data)
}

// LoadTotal returns the stored staked total, nil when never written.
func (s *Store) LoadTotal() (*big.Int, error) {
	data, err := s.get(totalKey)
	if err != nil {
		if s.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load total")
	}
	return decodeSigned(data)
}

// LoadOwner returns the stored operator, nil when never written.
func (s *Store) LoadOwner() (*termvault.Address, error) {
	data, err := s.get(ownerKey)
	if err != nil {
		if s.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load owner")
	}
	owner := termvault.BytesToAddress(data)
	return &owner, nil
}

// LoadPositions returns every stored position in slot order.
func (s *Store) LoadPositions() ([]*ledger.Position, error) {
	var recs []*positionRecord
	if err := s.iteratePrefix(posPrefix, func(_, val []byte) error {
		rec := &positionRecord{Position: new(ledger.Position)}
		if err := rlp.DecodeBytes(val, rec); err != nil {
			return errors.Wrap(err, "decode position")
		}
		recs = append(recs, rec)
		return nil
	}); err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Index < recs[j].Index
	})
	positions := make([]*ledger.Position, 0, len(recs))
	for i, rec := range recs {
		if rec.Index != uint32(i) {
			return nil, errors.Errorf("position slots not contiguous at %d", rec.Index)
		}
		positions = append(positions, rec.Position)
	}
	return positions, nil
}

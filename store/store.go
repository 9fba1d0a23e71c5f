// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package store persists committed vault state in leveldb so a restarted
// daemon can rebuild the ledger. Records are rlp encoded; positions live
// under hashed keys, the pool balance, operator and staked total under
// named scalar keys.
package store

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	writeOpt = &opt.WriteOptions{}
	readOpt  = &opt.ReadOptions{}
)

// Store is a leveldb-backed record store.
type Store struct {
	db *leveldb.DB
}

func open(stg storage.Storage, cacheSize int) (*Store, error) {
	if cacheSize < 32 {
		cacheSize = 32
	}
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: 64,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open level db")
	}
	return &Store{db: db}, nil
}

// Open opens or creates the store at path.
func Open(path string, cacheSize int) (*Store, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}
	return open(stg, cacheSize)
}

// NewMem creates an ephemeral in-memory store for tests and solo mode.
func NewMem() *Store {
	s, err := open(storage.NewMemStorage(), 0)
	if err != nil {
		panic(errors.Wrap(err, "open mem storage"))
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

// IsNotFound tells whether err means the key was absent.
func (s *Store) IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

func (s *Store) get(key []byte) ([]byte, error) {
	return s.db.Get(key, readOpt)
}

func (s *Store) put(key, val []byte) error {
	return s.db.Put(key, val, writeOpt)
}

func (s *Store) delete(key []byte) error {
	return s.db.Delete(key, writeOpt)
}

// Batch collects writes to land atomically via Write.
type Batch struct {
	batch *leveldb.Batch
}

// NewBatch creates an empty write batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: &leveldb.Batch{}}
}

func (b *Batch) put(key, val []byte) error {
	b.batch.Put(key, val)
	return nil
}

func (b *Batch) delete(key []byte) {
	b.batch.Delete(key)
}

// Len returns the number of queued writes.
func (b *Batch) Len() int {
	return b.batch.Len()
}

// Write lands the batch atomically.
func (s *Store) Write(b *Batch) error {
	return s.db.Write(b.batch, writeOpt)
}

func (s *Store) iteratePrefix(prefix []byte, fn func(key, val []byte) error) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), readOpt)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/TrinityChain/TrinityChain/internal/storage"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO = []byte("u/") // u/<hash> -> Triangle JSON
	prefixAddr = []byte("a/") // a/<len(address) uint16><address><hash> -> empty (address index)
)

// Store implements Set backed by a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

func utxoKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], hash[:])
	return key
}

// addrPrefix returns the length-delimited address portion of the address
// index key, shared by addrKey and the GetByAddress scan prefix. The
// length prefix keeps one address from ever being a byte-prefix of
// another — addresses are arbitrary-length strings, unlike the teacher's
// fixed 20-byte type.
func addrPrefix(addr types.Address) []byte {
	buf := make([]byte, len(prefixAddr)+2+len(addr))
	off := copy(buf, prefixAddr)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(addr)))
	off += 2
	copy(buf[off:], addr)
	return buf
}

func addrKey(addr types.Address, hash types.Hash) []byte {
	prefix := addrPrefix(addr)
	key := make([]byte, len(prefix)+types.HashSize)
	off := copy(key, prefix)
	copy(key[off:], hash[:])
	return key
}

// Get retrieves the triangle UTXO keyed by hash. The ok result is false if
// no such UTXO exists or its stored bytes are corrupt — tx.UTXOLookup has no
// error channel, so Get degrades to "not found" rather than panicking.
func (s *Store) Get(hash types.Hash) (types.Triangle, bool) {
	data, err := s.db.Get(utxoKey(hash))
	if err != nil {
		return types.Triangle{}, false
	}
	var t types.Triangle
	if err := json.Unmarshal(data, &t); err != nil {
		return types.Triangle{}, false
	}
	return t, true
}

// Put stores a triangle UTXO and updates its address index entry.
func (s *Store) Put(hash types.Hash, tri types.Triangle) error {
	data, err := json.Marshal(tri)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := s.db.Put(utxoKey(hash), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	if err := s.db.Put(addrKey(tri.Owner, hash), []byte{}); err != nil {
		return fmt.Errorf("utxo index put: %w", err)
	}
	return nil
}

// Delete removes a triangle UTXO and its address index entry.
func (s *Store) Delete(hash types.Hash) error {
	if tri, ok := s.Get(hash); ok {
		if err := s.db.Delete(addrKey(tri.Owner, hash)); err != nil {
			return fmt.Errorf("utxo index delete: %w", err)
		}
	}
	if err := s.db.Delete(utxoKey(hash)); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

// Has reports whether a UTXO exists for the given hash.
func (s *Store) Has(hash types.Hash) (bool, error) {
	return s.db.Has(utxoKey(hash))
}

// ForEach iterates over every UTXO in the store.
func (s *Store) ForEach(fn func(hash types.Hash, tri types.Triangle) error) error {
	return s.db.ForEach(prefixUTXO, func(key, value []byte) error {
		if len(key) < len(prefixUTXO)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var hash types.Hash
		copy(hash[:], key[len(prefixUTXO):])
		var tri types.Triangle
		if err := json.Unmarshal(value, &tri); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(hash, tri)
	})
}

// GetByAddress returns every UTXO owned by addr, via the address index.
func (s *Store) GetByAddress(addr types.Address) ([]types.Triangle, error) {
	prefix := addrPrefix(addr)

	var out []types.Triangle
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		if len(key) < len(prefix)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var hash types.Hash
		copy(hash[:], key[len(key)-types.HashSize:])
		if tri, ok := s.Get(hash); ok {
			out = append(out, tri)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return out, nil
}

// ClearAll removes every UTXO and its address-index entries. Used when
// rebuilding the UTXO set from a fresh chain replay.
func (s *Store) ClearAll() error {
	var keys [][]byte
	for _, prefix := range [][]byte{prefixUTXO, prefixAddr} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			k := make([]byte, len(key))
			copy(k, key)
			keys = append(keys, k)
			return nil
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	for _, key := range keys {
		if err := s.db.Delete(key); err != nil {
			return fmt.Errorf("delete utxo key: %w", err)
		}
	}
	return nil
}

package spv

import (
	"bytes"
	"fmt"
	"sync"
)

// HeaderStore persists block headers for chain verification.
type HeaderStore interface {
	// PutHeader stores a block header.
	PutHeader(header *BlockHeader) error

	// GetHeader retrieves a header by block hash.
	GetHeader(blockHash []byte) (*BlockHeader, error)

	// GetHeaderByHeight retrieves a header by block height.
	GetHeaderByHeight(height uint32) (*BlockHeader, error)

	// GetTip returns the header with the greatest height.
	GetTip() (*BlockHeader, error)

	// GetHeaderCount returns the total number of stored headers.
	GetHeaderCount() (uint64, error)
}

// TxStore persists verified transactions with their Merkle proofs, indexed
// by TxID and optionally by the locking scripts they pay, so a caller
// watching a set of scripts can later recover every transaction touching
// them without rescanning the chain.
type TxStore interface {
	// PutTx stores a transaction with optional Merkle proof.
	PutTx(tx *StoredTx) error

	// PutTxWithScript stores a transaction and indexes it under script, so
	// GetTxsByScript(script) can find it later. An empty script stores the
	// transaction without indexing it.
	PutTxWithScript(tx *StoredTx, script []byte) error

	// GetTx retrieves a transaction by TxID.
	GetTx(txID []byte) (*StoredTx, error)

	// GetTxsByScript returns all transactions indexed under a locking script.
	GetTxsByScript(script []byte) ([]*StoredTx, error)

	// DeleteTx removes a transaction from the store.
	DeleteTx(txID []byte) error

	// ListTxs returns all stored transactions (for backup/export).
	ListTxs() ([]*StoredTx, error)
}

// MemHeaderStore is an in-memory implementation of HeaderStore for testing.
type MemHeaderStore struct {
	mu        sync.RWMutex
	byHash    map[string]*BlockHeader
	byHeight  map[uint32]*BlockHeader
	tipHeight uint32
	hasTip    bool
}

// NewMemHeaderStore creates a new in-memory header store.
func NewMemHeaderStore() *MemHeaderStore {
	return &MemHeaderStore{
		byHash:   make(map[string]*BlockHeader),
		byHeight: make(map[uint32]*BlockHeader),
	}
}

func hashKey(h []byte) string {
	return string(h)
}

// PutHeader stores a block header.
func (s *MemHeaderStore) PutHeader(header *BlockHeader) error {
	if header == nil {
		return fmt.Errorf("%w: header", ErrNilParam)
	}

	// Compute hash if not set
	if len(header.Hash) == 0 {
		header.Hash = ComputeHeaderHash(header)
	}

	if len(header.Hash) != HashSize {
		return fmt.Errorf("%w: header hash must be %d bytes", ErrInvalidHeader, HashSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashKey(header.Hash)
	if _, exists := s.byHash[key]; exists {
		return ErrDuplicateHeader
	}

	s.byHash[key] = header
	s.byHeight[header.Height] = header

	if !s.hasTip || header.Height > s.tipHeight {
		s.tipHeight = header.Height
		s.hasTip = true
	}

	return nil
}

// GetHeader retrieves a header by block hash.
func (s *MemHeaderStore) GetHeader(blockHash []byte) (*BlockHeader, error) {
	if len(blockHash) != HashSize {
		return nil, fmt.Errorf("%w: block hash must be %d bytes", ErrInvalidHeader, HashSize)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.byHash[hashKey(blockHash)]
	if !ok {
		return nil, ErrHeaderNotFound
	}
	return h, nil
}

// GetHeaderByHeight retrieves a header by block height.
func (s *MemHeaderStore) GetHeaderByHeight(height uint32) (*BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.byHeight[height]
	if !ok {
		return nil, ErrHeaderNotFound
	}
	return h, nil
}

// GetTip returns the header with the greatest height.
func (s *MemHeaderStore) GetTip() (*BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasTip {
		return nil, ErrHeaderNotFound
	}
	return s.byHeight[s.tipHeight], nil
}

// GetHeaderCount returns the total number of stored headers.
func (s *MemHeaderStore) GetHeaderCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.byHash)), nil
}

// MemTxStore is an in-memory implementation of TxStore for testing.
type MemTxStore struct {
	mu       sync.RWMutex
	byTxID   map[string]*StoredTx
	byScript map[string][]*StoredTx
}

// NewMemTxStore creates a new in-memory transaction store.
func NewMemTxStore() *MemTxStore {
	return &MemTxStore{
		byTxID:   make(map[string]*StoredTx),
		byScript: make(map[string][]*StoredTx),
	}
}

// PutTx stores a transaction with optional Merkle proof.
func (s *MemTxStore) PutTx(tx *StoredTx) error {
	if tx == nil {
		return fmt.Errorf("%w: stored transaction", ErrNilParam)
	}
	if len(tx.TxID) != HashSize {
		return fmt.Errorf("%w: TxID must be %d bytes", ErrInvalidTxID, HashSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashKey(tx.TxID)
	if _, exists := s.byTxID[key]; exists {
		return ErrDuplicateTx
	}

	s.byTxID[key] = tx
	return nil
}

// PutTxWithScript stores a transaction and indexes it by a locking script.
func (s *MemTxStore) PutTxWithScript(tx *StoredTx, script []byte) error {
	if tx == nil {
		return fmt.Errorf("%w: stored transaction", ErrNilParam)
	}
	if len(tx.TxID) != HashSize {
		return fmt.Errorf("%w: TxID must be %d bytes", ErrInvalidTxID, HashSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashKey(tx.TxID)
	if _, exists := s.byTxID[key]; exists {
		return ErrDuplicateTx
	}

	s.byTxID[key] = tx

	if len(script) > 0 {
		pkKey := hashKey(script)
		s.byScript[pkKey] = append(s.byScript[pkKey], tx)
	}

	return nil
}

// GetTx retrieves a transaction by TxID.
func (s *MemTxStore) GetTx(txID []byte) (*StoredTx, error) {
	if len(txID) != HashSize {
		return nil, fmt.Errorf("%w: TxID must be %d bytes", ErrInvalidTxID, HashSize)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byTxID[hashKey(txID)]
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

// GetTxsByScript returns all transactions related to a locking script.
func (s *MemTxStore) GetTxsByScript(script []byte) ([]*StoredTx, error) {
	if len(script) == 0 {
		return nil, fmt.Errorf("%w: script", ErrNilParam)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := s.byScript[hashKey(script)]
	if len(txs) == 0 {
		return nil, nil
	}

	// Return a copy to avoid mutation
	result := make([]*StoredTx, len(txs))
	copy(result, txs)
	return result, nil
}

// DeleteTx removes a transaction from the store.
func (s *MemTxStore) DeleteTx(txID []byte) error {
	if len(txID) != HashSize {
		return fmt.Errorf("%w: TxID must be %d bytes", ErrInvalidTxID, HashSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashKey(txID)
	if _, ok := s.byTxID[key]; !ok {
		return ErrTxNotFound
	}

	delete(s.byTxID, key)

	// Also remove from script index
	for pk, txs := range s.byScript {
		for i, tx := range txs {
			if bytes.Equal(tx.TxID, txID) {
				s.byScript[pk] = append(txs[:i], txs[i+1:]...)
				break
			}
		}
	}

	return nil
}

// ListTxs returns all stored transactions.
func (s *MemTxStore) ListTxs() ([]*StoredTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*StoredTx, 0, len(s.byTxID))
	for _, tx := range s.byTxID {
		result = append(result, tx)
	}
	return result, nil
}

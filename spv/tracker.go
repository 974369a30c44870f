package spv

import (
	"bytes"
	"fmt"

	"github.com/bitfsorg/txspv-go/transaction"
)

// Tracker implements transaction.ChainTracker over a HeaderStore, answering
// whether a merkle root matches the header stored at a given height.
type Tracker struct {
	Headers HeaderStore
}

var _ transaction.ChainTracker = (*Tracker)(nil)

// NewTracker returns a Tracker backed by headers.
func NewTracker(headers HeaderStore) *Tracker {
	return &Tracker{Headers: headers}
}

// IsValidRootForHeight implements transaction.ChainTracker.
func (t *Tracker) IsValidRootForHeight(root [32]byte, height uint32) (bool, error) {
	if t.Headers == nil {
		return false, fmt.Errorf("%w: header store", ErrNilParam)
	}
	header, err := t.Headers.GetHeaderByHeight(height)
	if err != nil {
		return false, err
	}
	if header == nil {
		return false, ErrHeaderNotFound
	}
	return bytes.Equal(header.MerkleRoot, root[:]), nil
}

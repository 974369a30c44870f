package transaction

import "fmt"

// MerklePath is the proof-of-inclusion collaborator. The verifier and BEEF
// codec use only the operations contracted here; this package's own
// wire-encodable implementation is BUMP (merklepath.go).
type MerklePath interface {
	// BlockHeight is the height of the block this path proves inclusion in.
	BlockHeight() uint32

	// ComputeRoot recomputes the merkle root implied by this path.
	ComputeRoot() ([32]byte, error)

	// Verify checks the path against tracker's view of chain history for txid.
	Verify(txid Hash32, tracker ChainTracker) (bool, error)

	// Combine merges another path covering the same block height into this
	// one (e.g. adding sibling leaves), returning an error if the two paths
	// are at different heights or cannot be merged consistently. BUMP checks
	// only for a conflicting hash at a shared offset, not the recomputed root.
	Combine(other MerklePath) error

	// LevelZeroTXIDs returns every leaf TXID this path proves inclusion for.
	// A BEEF payload's ancestor traversal treats these as terminal witnesses.
	LevelZeroTXIDs() []Hash32

	// Bytes returns this path's own binary encoding (opaque to this package).
	Bytes() []byte

	// SameAs reports reference identity with another MerklePath, used by the
	// BEEF encoder's first-choice BUMP-dedup rule.
	SameAs(other MerklePath) bool
}

// Transaction is the central aggregate: an ordered set of inputs and
// outputs plus the bookkeeping (version, locktime, cached hash, optional
// merkle proof) needed to sign, serialize, and verify it.
type Transaction struct {
	Version  uint32
	LockTime uint32

	Inputs  []*TxInput
	Outputs []*TxOutput

	// Metadata is free-form and never serialized.
	Metadata map[string]any

	// MerklePath, when present, anchors this transaction for SPV
	// short-circuiting and BEEF BUMP-table participation.
	MerklePath MerklePath

	cachedHash *[32]byte // wire/little-endian double-SHA256, cleared on mutation
}

// New returns an empty Transaction with the default version and locktime.
func New() *Transaction {
	return &Transaction{
		Version:  1,
		LockTime: 0,
		Metadata: make(map[string]any),
	}
}

// invalidate clears the memoized hash; called by every mutator per the
// hash-cache invariant in spec §3/§4.9.
func (tx *Transaction) invalidate() {
	tx.cachedHash = nil
}

// AddInput appends an input. At least one of in.SourceTXID (via
// SetSourceTXID) or in.SourceTransaction must already be set.
func (tx *Transaction) AddInput(in *TxInput) error {
	if in == nil {
		return ErrMissingSource
	}
	if !in.hasTXID && in.SourceTransaction == nil {
		return ErrMissingSource
	}
	tx.Inputs = append(tx.Inputs, in)
	tx.invalidate()
	return nil
}

// SetSourceTXID sets the explicit TXID identifying an input's source.
func (in *TxInput) SetSourceTXID(id Hash32) {
	in.SourceTXID = id
	in.hasTXID = true
}

// AddOutput appends an output. A negative amount is rejected by construction
// since Satoshis is unsigned; callers that need ErrNegativeAmount semantics
// (e.g. a signed-input parser) should check before calling SetSatoshis.
func (tx *Transaction) AddOutput(out *TxOutput) error {
	if out == nil {
		return ErrMissingAmount
	}
	tx.Outputs = append(tx.Outputs, out)
	tx.invalidate()
	return nil
}

// AddP2PKHOutput adds an output locked to address via template. If satoshis
// is nil the output is change-flagged (its amount resolved later by Fee);
// otherwise it carries the given fixed amount.
func (tx *Transaction) AddP2PKHOutput(template LockingTemplate, address string, satoshis *uint64) error {
	script, err := template.Lock(address)
	if err != nil {
		return err
	}
	out := &TxOutput{LockingScript: script}
	if satoshis != nil {
		out.SetSatoshis(*satoshis)
	} else {
		out.Change = true
	}
	return tx.AddOutput(out)
}

// UpdateMetadata merges kv into the transaction's free-form metadata map.
func (tx *Transaction) UpdateMetadata(kv map[string]any) {
	if tx.Metadata == nil {
		tx.Metadata = make(map[string]any)
	}
	for k, v := range kv {
		tx.Metadata[k] = v
	}
}

// Hash returns the double-SHA256 of the Raw serialization in wire
// (little-endian) byte order, memoizing the result until the next mutator.
func (tx *Transaction) Hash() [32]byte {
	if tx.cachedHash != nil {
		return *tx.cachedHash
	}
	h := doubleSHA256(tx.Bytes())
	tx.cachedHash = &h
	return h
}

// TxID returns the transaction's identifier in big-endian ("natural
// reading order") byte order, i.e. the reverse of Hash().
func (tx *Transaction) TxID() Hash32 {
	h := tx.Hash()
	return Hash32(reverse32(h[:]))
}

// ID returns the TxID rendered as lowercase hex.
func (tx *Transaction) ID() string {
	return tx.TxID().String()
}

// GetFee returns the transaction's implied fee: the sum of its inputs'
// source satoshis minus the sum of its outputs' satoshis. Every input must
// resolve a SourceOutput with a settled amount and every output must have a
// resolved amount (e.g. after Fee has settled any change outputs).
func (tx *Transaction) GetFee() (uint64, error) {
	var inputTotal uint64
	for _, in := range tx.Inputs {
		out, err := in.SourceOutput()
		if err != nil {
			return 0, err
		}
		sats, err := out.EffectiveSatoshis()
		if err != nil {
			return 0, err
		}
		inputTotal += sats
	}

	var outputTotal uint64
	for _, out := range tx.Outputs {
		sats, err := out.EffectiveSatoshis()
		if err != nil {
			return 0, err
		}
		outputTotal += sats
	}

	if outputTotal > inputTotal {
		return 0, fmt.Errorf("%w: outputs %d exceed inputs %d", ErrInsufficientFee, outputTotal, inputTotal)
	}
	return inputTotal - outputTotal, nil
}

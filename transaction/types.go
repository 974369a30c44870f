package transaction

// DefaultSequenceNumber is the sequence value assumed for any TxInput whose
// Sequence has never been explicitly set.
const DefaultSequenceNumber uint32 = 0xFFFFFFFF

// UnlockingTemplate produces the unlocking script for one input and can
// estimate its own length before signing (consulted by FeeModel
// implementations). Concrete templates (e.g. P2PKH) live outside this
// package; ECDSA and script construction are out of scope here.
type UnlockingTemplate interface {
	Sign(tx *Transaction, inputIndex int) ([]byte, error)
	EstimateLength() uint64
}

// LockingTemplate produces a locking script for a destination, e.g. a P2PKH
// address. Script construction is an external collaborator.
type LockingTemplate interface {
	Lock(destination string) ([]byte, error)
}

// TxInput is a single spend within a Transaction.
type TxInput struct {
	// SourceTXID identifies the previous transaction. Rendered/accepted as
	// big-endian ("natural reading order") hex, matching TxID.String().
	SourceTXID Hash32
	hasTXID    bool

	// SourceTransaction is a back-reference to the full previous transaction,
	// used to resolve SourceOutputIndex's satoshis/locking script without a
	// network round trip. At least one of SourceTXID or SourceTransaction
	// must be set.
	SourceTransaction *Transaction

	SourceOutputIndex uint32

	// UnlockingScript is nil until Sign (or manual assignment) populates it.
	UnlockingScript []byte

	// Sequence is nil until explicitly set; EffectiveSequence reports
	// DefaultSequenceNumber in that case.
	Sequence *uint32

	// UnlockingScriptTemplate, if set, is invoked by Signer to produce
	// UnlockingScript.
	UnlockingScriptTemplate UnlockingTemplate
}

// EffectiveSequence returns the input's sequence number, defaulting to
// DefaultSequenceNumber when unset.
func (in *TxInput) EffectiveSequence() uint32 {
	if in.Sequence == nil {
		return DefaultSequenceNumber
	}
	return *in.Sequence
}

// SetSequence explicitly sets the sequence number.
func (in *TxInput) SetSequence(seq uint32) {
	in.Sequence = &seq
}

// SourceOutput resolves the satoshis/locking script this input spends, via
// SourceTransaction. Returns ErrMissingSource if no back-reference is set or
// the referenced output index does not exist.
func (in *TxInput) SourceOutput() (*TxOutput, error) {
	if in.SourceTransaction == nil {
		return nil, ErrMissingSource
	}
	if int(in.SourceOutputIndex) >= len(in.SourceTransaction.Outputs) {
		return nil, ErrMissingSource
	}
	return in.SourceTransaction.Outputs[in.SourceOutputIndex], nil
}

// effectiveSourceTXID returns the TXID identifying this input's source,
// preferring the explicit SourceTXID and falling back to the back-reference's
// computed TxID.
func (in *TxInput) effectiveSourceTXID() (Hash32, bool) {
	if in.hasTXID {
		return in.SourceTXID, true
	}
	if in.SourceTransaction != nil {
		return in.SourceTransaction.TxID(), true
	}
	return Hash32{}, false
}

// TxOutput is a single payment destination within a Transaction.
type TxOutput struct {
	// Satoshis is nil when Change is true and the amount has not yet been
	// resolved by FeeEngine.
	Satoshis *uint64

	LockingScript []byte

	// Change marks an output whose amount FeeEngine fills in.
	Change bool
}

// EffectiveSatoshis returns the output's satoshi amount, or
// ErrMissingChangeAmount / ErrMissingAmount if it has not been resolved.
func (out *TxOutput) EffectiveSatoshis() (uint64, error) {
	if out.Satoshis == nil {
		if out.Change {
			return 0, ErrMissingChangeAmount
		}
		return 0, ErrMissingAmount
	}
	return *out.Satoshis, nil
}

// SetSatoshis assigns a concrete amount.
func (out *TxOutput) SetSatoshis(sats uint64) {
	out.Satoshis = &sats
}

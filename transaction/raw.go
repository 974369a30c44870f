package transaction

import "encoding/hex"

// Bytes serializes tx in the classic Raw format:
//
//	version(4LE) || varint(nInputs) || inputs || varint(nOutputs) || outputs || lockTime(4LE)
//
// It is lenient: an input with no UnlockingScript yet serializes as a
// zero-length script, and an output with unresolved Satoshis (change,
// pre-fee) serializes as zero. This lets Hash/TxID be computed at any point
// during construction, matching the cached-hash invariant. Callers that need
// a broadcast-ready encoding should use ToBinary, which validates first.
func (tx *Transaction) Bytes() []byte {
	c := newCursor(nil)
	c.WriteU32LE(tx.Version)

	c.WriteVarint(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		writeRawInput(c, in)
	}

	c.WriteVarint(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeRawOutput(c, out)
	}

	c.WriteU32LE(tx.LockTime)
	return c.buf
}

func writeRawInput(c *byteCursor, in *TxInput) {
	txid, _ := in.effectiveSourceTXID()
	c.WriteReverse(txid[:])
	c.WriteU32LE(in.SourceOutputIndex)
	c.WriteVarint(uint64(len(in.UnlockingScript)))
	c.Write(in.UnlockingScript)
	c.WriteU32LE(in.EffectiveSequence())
}

func writeRawOutput(c *byteCursor, out *TxOutput) {
	sats := uint64(0)
	if out.Satoshis != nil {
		sats = *out.Satoshis
	}
	c.WriteU64LE(sats)
	c.WriteVarint(uint64(len(out.LockingScript)))
	c.Write(out.LockingScript)
}

// ToBinary validates that the transaction is broadcast-ready (every output
// has a resolved amount, every input has an unlocking script) and returns its
// Raw encoding. An input whose sequence was never set is encoded with
// DefaultSequenceNumber.
func (tx *Transaction) ToBinary() ([]byte, error) {
	if err := tx.validateReady(); err != nil {
		return nil, err
	}
	return tx.Bytes(), nil
}

// Hex renders Bytes() (the lenient encoding) as lowercase hex.
func (tx *Transaction) Hex() string {
	return hex.EncodeToString(tx.Bytes())
}

// ToBinaryHex is the strict, broadcast-ready counterpart of Hex.
func (tx *Transaction) ToBinaryHex() (string, error) {
	b, err := tx.ToBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (tx *Transaction) validateReady() error {
	for _, in := range tx.Inputs {
		if len(in.UnlockingScript) == 0 {
			return ErrMissingUnlockingScript
		}
	}
	for _, out := range tx.Outputs {
		if _, err := out.EffectiveSatoshis(); err != nil {
			return err
		}
	}
	return nil
}

// ParseRaw decodes a Raw-format transaction. Errors are ErrShortRead /
// ErrBadVarint, from the underlying cursor.
func ParseRaw(data []byte) (*Transaction, error) {
	c := newCursor(data)
	tx, err := parseRawFrom(c)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ParseRawHex decodes a hex-encoded Raw transaction.
func ParseRawHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ParseRaw(b)
}

func parseRawFrom(c *byteCursor) (*Transaction, error) {
	tx := New()

	version, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}
	tx.Version = version

	nIn, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]*TxInput, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		in, err := readRawInput(c)
		if err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	nOut, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]*TxOutput, 0, nOut)
	for i := uint64(0); i < nOut; i++ {
		out, err := readRawOutput(c)
		if err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	lockTime, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}
	tx.LockTime = lockTime

	return tx, nil
}

func readRawInput(c *byteCursor) (*TxInput, error) {
	txidBytes, err := c.ReadReverse(32)
	if err != nil {
		return nil, err
	}
	vout, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}
	scriptLen, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	script, err := c.Read(int(scriptLen))
	if err != nil {
		return nil, err
	}
	seq, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}

	in := &TxInput{
		SourceOutputIndex: vout,
		UnlockingScript:   script,
	}
	in.SetSourceTXID(Hash32(bytesToHash32(txidBytes)))
	in.SetSequence(seq)
	return in, nil
}

// bytesToHash32 copies a 32-byte slice (already in canonical, display byte
// order courtesy of ReadReverse) into array form.
func bytesToHash32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

func readRawOutput(c *byteCursor) (*TxOutput, error) {
	sats, err := c.ReadU64LE()
	if err != nil {
		return nil, err
	}
	scriptLen, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	script, err := c.Read(int(scriptLen))
	if err != nil {
		return nil, err
	}
	out := &TxOutput{LockingScript: script}
	out.SetSatoshis(sats)
	return out, nil
}

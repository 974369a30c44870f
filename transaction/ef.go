package transaction

import "encoding/hex"

// efMarker is the 6-byte Extended Format marker (BRC-30): five zero bytes
// followed by 0xEF, immediately after the 4-byte version.
var efMarker = [6]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0xEF}

// ToEF serializes tx in Extended Format, inlining each input's source
// satoshis and locking script so a verifier can evaluate scripts without a
// separate lookup. Every input must have a resolvable SourceTransaction;
// otherwise ErrMissingSource is returned.
func (tx *Transaction) ToEF() ([]byte, error) {
	c := newCursor(nil)
	c.WriteU32LE(tx.Version)
	c.Write(efMarker[:])

	c.WriteVarint(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		srcOut, err := in.SourceOutput()
		if err != nil {
			return nil, err
		}
		sats, err := srcOut.EffectiveSatoshis()
		if err != nil {
			return nil, err
		}

		txid, _ := in.effectiveSourceTXID()
		c.WriteReverse(txid[:])
		c.WriteU32LE(in.SourceOutputIndex)
		c.WriteU64LE(sats)
		c.WriteVarint(uint64(len(srcOut.LockingScript)))
		c.Write(srcOut.LockingScript)
		c.WriteVarint(uint64(len(in.UnlockingScript)))
		c.Write(in.UnlockingScript)
		c.WriteU32LE(in.EffectiveSequence())
	}

	c.WriteVarint(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeRawOutput(c, out)
	}

	c.WriteU32LE(tx.LockTime)
	return c.buf, nil
}

// ToEFHex is the hex-encoded form of ToEF.
func (tx *Transaction) ToEFHex() (string, error) {
	b, err := tx.ToEF()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParseEF decodes an Extended Format transaction, materializing a synthetic
// SourceTransaction per input sized to SourceOutputIndex+1 and populated
// with the carried (satoshis, locking script) pair.
func ParseEF(data []byte) (*Transaction, error) {
	c := newCursor(data)

	version, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}
	marker, err := c.Read(6)
	if err != nil {
		return nil, err
	}
	for i := range efMarker {
		if marker[i] != efMarker[i] {
			return nil, ErrBadFormatEF
		}
	}

	tx := New()
	tx.Version = version

	nIn, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]*TxInput, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		in, err := readEFInput(c)
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

// ParseEFHex decodes a hex-encoded Extended Format transaction.
func ParseEFHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ParseEF(b)
}

func readEFInput(c *byteCursor) (*TxInput, error) {
	txidBytes, err := c.ReadReverse(32)
	if err != nil {
		return nil, err
	}
	vout, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}
	srcSats, err := c.ReadU64LE()
	if err != nil {
		return nil, err
	}
	srcScriptLen, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	srcScript, err := c.Read(int(srcScriptLen))
	if err != nil {
		return nil, err
	}
	unlockLen, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	unlockScript, err := c.Read(int(unlockLen))
	if err != nil {
		return nil, err
	}
	seq, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}

	txid := Hash32(bytesToHash32(txidBytes))

	src := New()
	src.Outputs = make([]*TxOutput, vout+1)
	for i := range src.Outputs {
		src.Outputs[i] = &TxOutput{}
	}
	src.Outputs[vout] = &TxOutput{LockingScript: srcScript}
	src.Outputs[vout].SetSatoshis(srcSats)

	in := &TxInput{
		SourceOutputIndex: vout,
		UnlockingScript:   unlockScript,
		SourceTransaction: src,
	}
	in.SetSourceTXID(txid)
	in.SetSequence(seq)
	return in, nil
}

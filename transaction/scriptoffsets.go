package transaction

// ScriptRange locates a script within a Raw-encoded transaction without
// requiring the bytes to be materialized ahead of time.
type ScriptRange struct {
	Index  int // vin or vout position
	Offset int // byte offset of the script's first byte within the buffer
	Length int
}

// ParseScriptOffsets walks a Raw-encoded transaction and returns the byte
// offsets/lengths of every unlocking and locking script, in order, without
// allocating the script contents themselves.
func ParseScriptOffsets(raw []byte) (inputs []ScriptRange, outputs []ScriptRange, err error) {
	c := newCursor(raw)

	if _, err = c.ReadU32LE(); err != nil { // version
		return nil, nil, err
	}

	nIn, err := c.ReadVarint()
	if err != nil {
		return nil, nil, err
	}
	inputs = make([]ScriptRange, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		if _, err = c.Read(36); err != nil { // outpoint: txid(32) + vout(4)
			return nil, nil, err
		}
		scriptLen, err := c.ReadVarint()
		if err != nil {
			return nil, nil, err
		}
		offset := c.Pos()
		if _, err = c.readN(int(scriptLen)); err != nil {
			return nil, nil, err
		}
		inputs = append(inputs, ScriptRange{Index: int(i), Offset: offset, Length: int(scriptLen)})
		if _, err = c.Read(4); err != nil { // sequence
			return nil, nil, err
		}
	}

	nOut, err := c.ReadVarint()
	if err != nil {
		return nil, nil, err
	}
	outputs = make([]ScriptRange, 0, nOut)
	for i := uint64(0); i < nOut; i++ {
		if _, err = c.Read(8); err != nil { // satoshis
			return nil, nil, err
		}
		scriptLen, err := c.ReadVarint()
		if err != nil {
			return nil, nil, err
		}
		offset := c.Pos()
		if _, err = c.readN(int(scriptLen)); err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, ScriptRange{Index: int(i), Offset: offset, Length: int(scriptLen)})
	}

	return inputs, outputs, nil
}

// ParseScriptOffsets is also exposed as a Transaction method, matching the
// spec's public surface.
func (tx *Transaction) ParseScriptOffsets() ([]ScriptRange, []ScriptRange, error) {
	return ParseScriptOffsets(tx.Bytes())
}

package transaction

import (
	"encoding/hex"
	"fmt"
)

// BEEFVersion1 is the BRC-62 BEEF magic version number.
const BEEFVersion1 uint32 = 4022206465

// AtomicBEEFPrefix is the BRC-95 Atomic BEEF magic prefix.
const AtomicBEEFPrefix uint32 = 0x01010101

// ToBEEF serializes tx together with its ancestor DAG and a deduplicated
// table of merkle paths (BRC-62). When allowPartial is false, any
// non-proof-anchored input missing a SourceTransaction fails the whole
// encode with ErrMissingSource; when true, such inputs are silently omitted
// from the ancestor set (the resulting payload may then fail verification
// elsewhere, which is the caller's concern).
func (tx *Transaction) ToBEEF(allowPartial bool) ([]byte, error) {
	txid := tx.TxID()
	txns := map[Hash32]*Transaction{txid: tx}
	ancestors, err := collectAncestors(tx, txid, txns, allowPartial)
	if err != nil {
		return nil, err
	}

	bumps, bumpIndexOf, err := buildBumpTable(ancestors, txns)
	if err != nil {
		return nil, err
	}

	c := newCursor(nil)
	c.WriteU32LE(BEEFVersion1)

	c.WriteVarint(uint64(len(bumps)))
	for _, bmp := range bumps {
		c.Write(bmp.Bytes())
	}

	c.WriteVarint(uint64(len(ancestors)))
	for _, id := range ancestors {
		t := txns[id]
		c.Write(t.Bytes())
		if idx, ok := bumpIndexOf[id]; ok {
			c.WriteU8(1)
			c.WriteVarint(uint64(idx))
		} else {
			c.WriteU8(0)
		}
	}

	return c.buf, nil
}

// ToBEEFHex is the hex-encoded form of ToBEEF.
func (tx *Transaction) ToBEEFHex(allowPartial bool) (string, error) {
	b, err := tx.ToBEEF(allowPartial)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// collectAncestors walks tx's input DAG depth-first, stopping descent below
// any node carrying a MerklePath (a proof-anchored node needs no further
// ancestors), and returns TXIDs in topological order: every parent strictly
// precedes every child, duplicates suppressed.
func collectAncestors(tx *Transaction, txid Hash32, txns map[Hash32]*Transaction, allowPartial bool) ([]Hash32, error) {
	if tx.MerklePath != nil {
		return []Hash32{txid}, nil
	}

	var ancestors []Hash32
	for _, in := range tx.Inputs {
		if in.SourceTransaction == nil {
			if allowPartial {
				continue
			}
			srcID, _ := in.effectiveSourceTXID()
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, srcID)
		}
		srcID := in.SourceTransaction.TxID()
		txns[srcID] = in.SourceTransaction
		grands, err := collectAncestors(in.SourceTransaction, srcID, txns, allowPartial)
		if err != nil {
			return nil, err
		}
		ancestors = append(grands, ancestors...)
	}
	ancestors = append(ancestors, txid)

	seen := make(map[Hash32]struct{}, len(ancestors))
	out := make([]Hash32, 0, len(ancestors))
	for _, id := range ancestors {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// buildBumpTable assigns each proof-anchored ancestor a BUMP index, applying
// the three-step dedup rule from spec §4.4: reuse a reference-identical
// path, else merge into a path at the same block height with an equal
// recomputed root, else append a new entry.
func buildBumpTable(ancestors []Hash32, txns map[Hash32]*Transaction) ([]*BUMP, map[Hash32]int, error) {
	var bumps []*BUMP
	bumpIndexOf := make(map[Hash32]int)

	for _, id := range ancestors {
		t := txns[id]
		if t.MerklePath == nil {
			continue
		}
		tb, ok := t.MerklePath.(*BUMP)
		if !ok {
			return nil, nil, fmt.Errorf("%w: merkle path is not BEEF-encodable", ErrBadFormatBEEF)
		}

		assigned := false
		for idx, stored := range bumps {
			if stored.SameAs(tb) {
				bumpIndexOf[id] = idx
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}

		for idx, stored := range bumps {
			if stored.Height != tb.Height {
				continue
			}
			rootA, errA := stored.ComputeRoot()
			rootB, errB := tb.ComputeRoot()
			if errA == nil && errB == nil && rootA == rootB {
				if err := stored.Combine(tb); err != nil {
					return nil, nil, err
				}
				bumpIndexOf[id] = idx
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}

		bumpIndexOf[id] = len(bumps)
		bumps = append(bumps, tb)
	}

	return bumps, bumpIndexOf, nil
}

// ParseBEEF decodes a BEEF payload and returns its subject transaction (the
// last transaction in the payload's topological order), with every ancestor
// back-reference and BUMP binding resolved.
func ParseBEEF(data []byte) (*Transaction, error) {
	txList, _, _, err := parseBEEFPayload(data)
	if err != nil {
		return nil, err
	}
	if len(txList) == 0 {
		return nil, fmt.Errorf("%w: empty transaction list", ErrBadFormatBEEF)
	}
	return txList[len(txList)-1], nil
}

// ParseBEEFHex decodes a hex-encoded BEEF payload.
func ParseBEEFHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ParseBEEF(b)
}

func parseBEEFPayload(data []byte) (txList []*Transaction, txByID map[Hash32]*Transaction, bumps []*BUMP, err error) {
	c := newCursor(data)

	version, err := c.ReadU32LE()
	if err != nil {
		return nil, nil, nil, err
	}
	if version != BEEFVersion1 {
		return nil, nil, nil, fmt.Errorf("%w: version %d", ErrBadFormatBEEF, version)
	}

	nBumps, err := c.ReadVarint()
	if err != nil {
		return nil, nil, nil, err
	}
	bumps = make([]*BUMP, nBumps)
	for i := uint64(0); i < nBumps; i++ {
		bumps[i], err = readBUMP(c)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	nTxs, err := c.ReadVarint()
	if err != nil {
		return nil, nil, nil, err
	}
	txByID = make(map[Hash32]*Transaction, nTxs)
	txList = make([]*Transaction, 0, nTxs)
	for i := uint64(0); i < nTxs; i++ {
		t, err := parseRawFrom(c)
		if err != nil {
			return nil, nil, nil, err
		}
		hasBump, err := c.ReadU8()
		if err != nil {
			return nil, nil, nil, err
		}
		if hasBump != 0 {
			idx, err := c.ReadVarint()
			if err != nil {
				return nil, nil, nil, err
			}
			if idx >= uint64(len(bumps)) {
				return nil, nil, nil, ErrInvalidBumpIndex
			}
			t.MerklePath = bumps[idx]
		}
		id := t.TxID()
		txByID[id] = t
		txList = append(txList, t)
	}

	for _, t := range txList {
		if t.MerklePath != nil {
			// Proof-anchored nodes are leaves in the ancestor DAG: their own
			// inputs were never embedded (collectAncestors stops descent at
			// them) and must not be walked or resolved here.
			continue
		}
		for _, in := range t.Inputs {
			srcID, _ := in.effectiveSourceTXID()
			if src, ok := txByID[srcID]; ok {
				in.SourceTransaction = src
				continue
			}
			if !coveredByBumpLevelZero(bumps, srcID) {
				return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnknownInputTx, srcID)
			}
		}
	}

	return txList, txByID, bumps, nil
}

func coveredByBumpLevelZero(bumps []*BUMP, id Hash32) bool {
	for _, b := range bumps {
		for _, leaf := range b.LevelZeroTXIDs() {
			if leaf == id {
				return true
			}
		}
	}
	return false
}

// ToAtomicBEEF wraps ToBEEF(allowPartial) with the BRC-95 Atomic BEEF
// envelope declaring tx as the subject transaction.
func (tx *Transaction) ToAtomicBEEF(allowPartial bool) ([]byte, error) {
	payload, err := tx.ToBEEF(allowPartial)
	if err != nil {
		return nil, err
	}
	c := newCursor(nil)
	c.WriteU32LE(AtomicBEEFPrefix)
	txid := tx.TxID()
	c.Write(txid[:])
	c.Write(payload)
	return c.buf, nil
}

// ToAtomicBEEFHex is the hex-encoded form of ToAtomicBEEF.
func (tx *Transaction) ToAtomicBEEFHex(allowPartial bool) (string, error) {
	b, err := tx.ToAtomicBEEF(allowPartial)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParseAtomicBEEF decodes an Atomic BEEF payload, verifying that every
// embedded transaction is reachable from the declared subject TXID by
// following inputs (descent stops at proof-anchored nodes, which are
// terminal witnesses). Any embedded transaction not visited is ErrUnrelatedTx.
func ParseAtomicBEEF(data []byte) (*Transaction, error) {
	c := newCursor(data)

	prefix, err := c.ReadU32LE()
	if err != nil {
		return nil, err
	}
	if prefix != AtomicBEEFPrefix {
		return nil, fmt.Errorf("%w: prefix 0x%08x", ErrBadFormatAtomicBEEF, prefix)
	}
	subjectBytes, err := c.Read(32)
	if err != nil {
		return nil, err
	}
	subject := Hash32(bytesToHash32(subjectBytes))

	payload := c.ReadRemainder()
	txList, txByID, _, err := parseBEEFPayload(payload)
	if err != nil {
		return nil, err
	}

	subjectTx, ok := txByID[subject]
	if !ok {
		return nil, fmt.Errorf("%w: subject %s not present in payload", ErrBadFormatAtomicBEEF, subject)
	}

	visited := make(map[Hash32]bool, len(txList))
	var walk func(t *Transaction, id Hash32)
	walk = func(t *Transaction, id Hash32) {
		if visited[id] {
			return
		}
		visited[id] = true
		if t.MerklePath != nil {
			return
		}
		for _, in := range t.Inputs {
			srcID, _ := in.effectiveSourceTXID()
			if src, ok := txByID[srcID]; ok {
				walk(src, srcID)
			}
		}
	}
	walk(subjectTx, subject)

	for _, t := range txList {
		id := t.TxID()
		if !visited[id] {
			return nil, fmt.Errorf("%w: %s", ErrUnrelatedTx, id)
		}
	}

	return subjectTx, nil
}

// ParseAtomicBEEFHex decodes a hex-encoded Atomic BEEF payload.
func ParseAtomicBEEFHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ParseAtomicBEEF(b)
}

package transaction

import "fmt"

// BUMPLeaf is one entry of a BUMP level: a node at a known offset within
// that tree depth, plus whether it identifies a transaction of interest
// (a level-0 "target" leaf, as opposed to a sibling supplied only to make
// the proof computable).
type BUMPLeaf struct {
	Offset uint64
	Hash   [32]byte
	TXID   bool
}

// BUMP is the concrete, wire-encodable merkle path implementation used by
// BEEFCodec: a block height plus, for each tree depth from the leaves up,
// the set of node hashes needed to recompute the root. It implements the
// MerklePath contract described in spec §6; the rest of this package treats
// merkle paths as opaque and only calls through that interface.
type BUMP struct {
	Height uint32
	Levels [][]BUMPLeaf
}

var _ MerklePath = (*BUMP)(nil)

// BlockHeight implements MerklePath.
func (b *BUMP) BlockHeight() uint32 { return b.Height }

// LevelZeroTXIDs implements MerklePath.
func (b *BUMP) LevelZeroTXIDs() []Hash32 {
	if len(b.Levels) == 0 {
		return nil
	}
	var out []Hash32
	for _, leaf := range b.Levels[0] {
		if leaf.TXID {
			out = append(out, Hash32(leaf.Hash))
		}
	}
	return out
}

// SameAs implements MerklePath via reference identity.
func (b *BUMP) SameAs(other MerklePath) bool {
	ob, ok := other.(*BUMP)
	if !ok {
		return false
	}
	return b == ob
}

// ComputeRoot walks the supplied node set up from the leaves, combining each
// node with its sibling (drawn from whichever depth first supplies it) until
// a single node remains at offset 0.
func (b *BUMP) ComputeRoot() ([32]byte, error) {
	if len(b.Levels) == 0 {
		return [32]byte{}, fmt.Errorf("%w: empty merkle path", ErrBadFormatBEEF)
	}
	if len(b.Levels) == 1 && len(b.Levels[0]) == 1 && b.Levels[0][0].Offset == 0 {
		// A block with a single transaction: the leaf is the root, no
		// sibling exists to combine with.
		return b.Levels[0][0].Hash, nil
	}

	current := make(map[uint64][32]byte, len(b.Levels[0]))
	for _, leaf := range b.Levels[0] {
		current[leaf.Offset] = leaf.Hash
	}

	for depth := 0; depth < len(b.Levels); depth++ {
		if depth > 0 {
			for _, leaf := range b.Levels[depth] {
				if _, exists := current[leaf.Offset]; !exists {
					current[leaf.Offset] = leaf.Hash
				}
			}
		}

		next := make(map[uint64][32]byte)
		processed := make(map[uint64]bool)
		for offset := range current {
			if processed[offset] {
				continue
			}
			sibling := offset ^ 1
			sibHash, ok := current[sibling]
			if !ok {
				return [32]byte{}, fmt.Errorf("%w: missing sibling at depth %d offset %d", ErrBadFormatBEEF, depth, sibling)
			}
			processed[offset] = true
			processed[sibling] = true

			var left, right [32]byte
			if offset%2 == 0 {
				left, right = current[offset], sibHash
			} else {
				left, right = sibHash, current[offset]
			}
			next[offset/2] = doubleSHA256(append(append([]byte{}, left[:]...), right[:]...))
		}
		current = next
	}

	root, ok := current[0]
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: proof did not converge to a single root", ErrBadFormatBEEF)
	}
	return root, nil
}

// Verify recomputes the root and asks tracker whether it is valid for
// BlockHeight. txid must appear among LevelZeroTXIDs, or Verify fails.
func (b *BUMP) Verify(txid Hash32, tracker ChainTracker) (bool, error) {
	found := false
	for _, id := range b.LevelZeroTXIDs() {
		if id == txid {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	root, err := b.ComputeRoot()
	if err != nil {
		return false, err
	}
	if tracker == nil {
		return false, ErrMissingSource
	}
	return tracker.IsValidRootForHeight(root, b.Height)
}

// Combine merges another BUMP covering the same block height into b by
// unioning their leaf sets (deduplicated by offset), erroring if the two
// disagree on the hash at a shared offset.
func (b *BUMP) Combine(other MerklePath) error {
	ob, ok := other.(*BUMP)
	if !ok {
		return fmt.Errorf("%w: cannot combine merkle paths of different types", ErrBadFormatBEEF)
	}
	if ob.Height != b.Height {
		return fmt.Errorf("%w: cannot combine merkle paths at different block heights", ErrBadFormatBEEF)
	}

	for len(b.Levels) < len(ob.Levels) {
		b.Levels = append(b.Levels, nil)
	}

	for depth, leaves := range ob.Levels {
		existing := make(map[uint64]BUMPLeaf, len(b.Levels[depth]))
		for _, l := range b.Levels[depth] {
			existing[l.Offset] = l
		}
		for _, l := range leaves {
			if have, ok := existing[l.Offset]; ok {
				if have.Hash != l.Hash {
					return fmt.Errorf("%w: conflicting hash at depth %d offset %d", ErrBadFormatBEEF, depth, l.Offset)
				}
				continue
			}
			existing[l.Offset] = l
			b.Levels[depth] = append(b.Levels[depth], l)
		}
	}
	return nil
}

// Bytes encodes the BUMP in this package's wire format:
//
//	varint(blockHeight) || u8(treeHeight) ||
//	  (varint(nLeaves) || (varint(offset) || u8(flags) || hash(32))+ )+
func (b *BUMP) Bytes() []byte {
	c := newCursor(nil)
	c.WriteVarint(uint64(b.Height))
	c.WriteU8(byte(len(b.Levels)))
	for _, level := range b.Levels {
		c.WriteVarint(uint64(len(level)))
		for _, leaf := range level {
			c.WriteVarint(leaf.Offset)
			flags := byte(0)
			if leaf.TXID {
				flags |= 0x01
			}
			c.WriteU8(flags)
			c.Write(leaf.Hash[:])
		}
	}
	return c.buf
}

// readBUMP decodes a BUMP from c, matching Bytes' layout.
func readBUMP(c *byteCursor) (*BUMP, error) {
	height, err := c.ReadVarint()
	if err != nil {
		return nil, err
	}
	treeHeight, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	b := &BUMP{Height: uint32(height), Levels: make([][]BUMPLeaf, treeHeight)}
	for d := 0; d < int(treeHeight); d++ {
		nLeaves, err := c.ReadVarint()
		if err != nil {
			return nil, err
		}
		leaves := make([]BUMPLeaf, 0, nLeaves)
		for i := uint64(0); i < nLeaves; i++ {
			offset, err := c.ReadVarint()
			if err != nil {
				return nil, err
			}
			flags, err := c.ReadU8()
			if err != nil {
				return nil, err
			}
			hashBytes, err := c.Read(32)
			if err != nil {
				return nil, err
			}
			var h [32]byte
			copy(h[:], hashBytes)
			leaves = append(leaves, BUMPLeaf{Offset: offset, Hash: h, TXID: flags&0x01 != 0})
		}
		b.Levels[d] = leaves
	}
	return b, nil
}

package transaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockValidator struct{ valid bool }

func (m mockValidator) Validate(spend *Spend) (bool, error) { return m.valid, nil }

func anchoredTx(satoshis uint64, lockingScript []byte, height uint32) *Transaction {
	tx := New()
	out := &TxOutput{LockingScript: lockingScript}
	out.SetSatoshis(satoshis)
	tx.Outputs = append(tx.Outputs, out)
	id := tx.TxID()
	tx.MerklePath = &BUMP{
		Height: height,
		Levels: [][]BUMPLeaf{{{Offset: 0, Hash: [32]byte(id), TXID: true}}},
	}
	return tx
}

func TestBEEFRoundTripPreservesDAGAndTopologicalOrder(t *testing.T) {
	a := anchoredTx(1000, []byte{0x51}, 100)

	b := New()
	require.NoError(t, b.AddInput(newSpendingInput(a, 0, []byte{0x01})))
	bOut := &TxOutput{LockingScript: []byte{0x51}}
	bOut.SetSatoshis(900)
	require.NoError(t, b.AddOutput(bOut))

	beefBytes, err := b.ToBEEF(false)
	require.NoError(t, err)

	txList, txByID, bumps, err := parseBEEFPayload(beefBytes)
	require.NoError(t, err)
	require.Len(t, txList, 2)
	require.Len(t, bumps, 1)

	// A must precede B in the emitted payload (parents before children).
	assert.Equal(t, a.TxID(), txList[0].TxID())
	assert.Equal(t, b.TxID(), txList[1].TxID())

	parsedB := txByID[b.TxID()]
	require.NotNil(t, parsedB.Inputs[0].SourceTransaction)
	assert.Equal(t, a.TxID(), parsedB.Inputs[0].SourceTransaction.TxID())
	assert.NotNil(t, txByID[a.TxID()].MerklePath)

	subject, err := ParseBEEF(beefBytes)
	require.NoError(t, err)
	assert.Equal(t, b.TxID(), subject.TxID())
}

// scenario 3: parse BEEF with two txs where B spends A, A has a merkle path;
// verify(ScriptsOnlyTracker) short-circuits at A and evaluates B's script.
func TestScenarioVerifyShortCircuitsAtMerkleAnchoredAncestor(t *testing.T) {
	a := anchoredTx(1000, []byte{0x51}, 100)

	b := New()
	require.NoError(t, b.AddInput(newSpendingInput(a, 0, []byte{0x01})))
	bOut := &TxOutput{LockingScript: []byte{0x51}}
	bOut.SetSatoshis(900)
	require.NoError(t, b.AddOutput(bOut))

	beefBytes, err := b.ToBEEF(false)
	require.NoError(t, err)
	subject, err := ParseBEEF(beefBytes)
	require.NoError(t, err)

	ok, err := subject.Verify(context.Background(), ScriptsOnlyTracker, nil, mockValidator{valid: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = subject.Verify(context.Background(), ScriptsOnlyTracker, nil, mockValidator{valid: false})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScenarioVerifyFailsWhenOutputsExceedInputs(t *testing.T) {
	a := anchoredTx(1000, []byte{0x51}, 100)

	b := New()
	require.NoError(t, b.AddInput(newSpendingInput(a, 0, []byte{0x01})))
	bOut := &TxOutput{LockingScript: []byte{0x51}}
	bOut.SetSatoshis(1100) // exceeds the 1000-sat source
	require.NoError(t, b.AddOutput(bOut))

	beefBytes, err := b.ToBEEF(false)
	require.NoError(t, err)
	subject, err := ParseBEEF(beefBytes)
	require.NoError(t, err)

	ok, err := subject.Verify(context.Background(), ScriptsOnlyTracker, nil, mockValidator{valid: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

// scenario 4: Atomic BEEF containing a third, unreachable tx fails to parse
// with ErrUnrelatedTx.
func TestScenarioAtomicBEEFRejectsUnreachableTx(t *testing.T) {
	a := anchoredTx(1000, []byte{0x51}, 100)

	b := New()
	require.NoError(t, b.AddInput(newSpendingInput(a, 0, []byte{0x01})))
	bOut := &TxOutput{LockingScript: []byte{0x51}}
	bOut.SetSatoshis(900)
	require.NoError(t, b.AddOutput(bOut))

	c := New()
	cOut := &TxOutput{LockingScript: []byte{0x52}}
	cOut.SetSatoshis(1)
	require.NoError(t, c.AddOutput(cOut))

	// Hand-assemble a payload containing A, B and the unrelated C.
	bump := a.MerklePath.(*BUMP)
	cur := newCursor(nil)
	cur.WriteU32LE(BEEFVersion1)
	cur.WriteVarint(1)
	cur.Write(bump.Bytes())
	cur.WriteVarint(3)
	cur.Write(a.Bytes())
	cur.WriteU8(1)
	cur.WriteVarint(0)
	cur.Write(b.Bytes())
	cur.WriteU8(0)
	cur.Write(c.Bytes())
	cur.WriteU8(0)
	payload := cur.buf

	atomic := newCursor(nil)
	atomic.WriteU32LE(AtomicBEEFPrefix)
	subjectID := b.TxID()
	atomic.Write(subjectID[:])
	atomic.Write(payload)

	_, err := ParseAtomicBEEF(atomic.buf)
	assert.ErrorIs(t, err, ErrUnrelatedTx)
}

func TestScenarioAtomicBEEFRoundTripHappyPath(t *testing.T) {
	a := anchoredTx(1000, []byte{0x51}, 100)

	b := New()
	require.NoError(t, b.AddInput(newSpendingInput(a, 0, []byte{0x01})))
	bOut := &TxOutput{LockingScript: []byte{0x51}}
	bOut.SetSatoshis(900)
	require.NoError(t, b.AddOutput(bOut))

	atomicBytes, err := b.ToAtomicBEEF(false)
	require.NoError(t, err)

	subject, err := ParseAtomicBEEF(atomicBytes)
	require.NoError(t, err)
	assert.Equal(t, b.TxID(), subject.TxID())
}

// An anchored ancestor's own inputs are never embedded by collectAncestors
// and must not be required or walked when parsing back: a real mined
// transaction always has non-empty Inputs, and ToBEEF only ever encodes the
// anchored node's own bytes plus its BUMP, not its ancestry.
func TestParseBEEFDoesNotResolveInputsOfAnchoredAncestor(t *testing.T) {
	grandparent := newSourceTx(5000, []byte{0x51})

	a := New()
	require.NoError(t, a.AddInput(newSpendingInput(grandparent, 0, []byte{0x01})))
	aOut := &TxOutput{LockingScript: []byte{0x51}}
	aOut.SetSatoshis(1000)
	require.NoError(t, a.AddOutput(aOut))
	id := a.TxID()
	a.MerklePath = &BUMP{
		Height: 100,
		Levels: [][]BUMPLeaf{{{Offset: 0, Hash: [32]byte(id), TXID: true}}},
	}

	b := New()
	require.NoError(t, b.AddInput(newSpendingInput(a, 0, []byte{0x01})))
	bOut := &TxOutput{LockingScript: []byte{0x51}}
	bOut.SetSatoshis(900)
	require.NoError(t, b.AddOutput(bOut))

	beefBytes, err := b.ToBEEF(false)
	require.NoError(t, err)

	txList, txByID, _, err := parseBEEFPayload(beefBytes)
	require.NoError(t, err)
	require.Len(t, txList, 2)
	assert.Nil(t, txByID[a.TxID()].Inputs[0].SourceTransaction)

	subject, err := ParseBEEF(beefBytes)
	require.NoError(t, err)
	assert.Equal(t, b.TxID(), subject.TxID())
}

// scenario 5: two merkle paths at equal block_height with equal compute_root
// dedup into exactly one BUMP entry, and both anchored txs reference it.
func TestScenarioEqualRootMerklePathsDedupIntoOneBump(t *testing.T) {
	var sharedLeafHash [32]byte
	sharedLeafHash[0] = 0xAB

	bumpA1 := &BUMP{Height: 500, Levels: [][]BUMPLeaf{{{Offset: 0, Hash: sharedLeafHash, TXID: true}}}}
	bumpA2 := &BUMP{Height: 500, Levels: [][]BUMPLeaf{{{Offset: 0, Hash: sharedLeafHash, TXID: true}}}}

	a1 := New()
	a1Out := &TxOutput{LockingScript: []byte{0x51}}
	a1Out.SetSatoshis(100)
	require.NoError(t, a1.AddOutput(a1Out))
	a1.MerklePath = bumpA1

	a2 := New()
	a2Out := &TxOutput{LockingScript: []byte{0x52}}
	a2Out.SetSatoshis(200)
	require.NoError(t, a2.AddOutput(a2Out))
	a2.MerklePath = bumpA2

	top := New()
	require.NoError(t, top.AddInput(newSpendingInput(a1, 0, []byte{0x01})))
	require.NoError(t, top.AddInput(newSpendingInput(a2, 0, []byte{0x01})))
	topOut := &TxOutput{LockingScript: []byte{0x53}}
	topOut.SetSatoshis(250)
	require.NoError(t, top.AddOutput(topOut))

	beefBytes, err := top.ToBEEF(false)
	require.NoError(t, err)

	txList, txByID, bumps, err := parseBEEFPayload(beefBytes)
	require.NoError(t, err)
	require.Len(t, bumps, 1, "equal-root merkle paths at the same height must dedup to one BUMP")
	assert.Len(t, txList, 3)

	assert.Same(t, bumps[0], txByID[a1.TxID()].MerklePath)
	assert.Same(t, bumps[0], txByID[a2.TxID()].MerklePath)
}

package transaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSimpleSpend builds a tx spending a single merkle-anchored source, so
// Verify with ScriptsOnlyTracker trusts the source without recursing into
// its (nonexistent) inputs.
func buildSimpleSpend(t *testing.T, srcSats, outSats uint64) *Transaction {
	t.Helper()
	src := anchoredTx(srcSats, []byte{0x51}, 100)
	tx := New()
	require.NoError(t, tx.AddInput(newSpendingInput(src, 0, []byte{0x01})))
	out := &TxOutput{LockingScript: []byte{0x51}}
	out.SetSatoshis(outSats)
	require.NoError(t, tx.AddOutput(out))
	return tx
}

func TestVerifyPassesFeeCheckWhenActualFeeMeetsModel(t *testing.T) {
	tx := buildSimpleSpend(t, 1000, 900) // implied fee 100

	ok, err := tx.Verify(context.Background(), ScriptsOnlyTracker, ConstantFee(50), mockValidator{valid: true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyFailsFeeCheckWhenActualFeeBelowModel(t *testing.T) {
	tx := buildSimpleSpend(t, 1000, 900) // implied fee 100

	ok, err := tx.Verify(context.Background(), ScriptsOnlyTracker, ConstantFee(500), mockValidator{valid: true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyFailsWhenScriptValidationFails(t *testing.T) {
	tx := buildSimpleSpend(t, 1000, 900)

	ok, err := tx.Verify(context.Background(), ScriptsOnlyTracker, nil, mockValidator{valid: false})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRequiresSourceTransaction(t *testing.T) {
	tx := New()
	in := &TxInput{UnlockingScript: []byte{0x01}}
	in.SetSourceTXID(Hash32{1})
	tx.Inputs = append(tx.Inputs, in)
	out := &TxOutput{LockingScript: []byte{0x51}}
	out.SetSatoshis(1)
	tx.Outputs = append(tx.Outputs, out)

	_, err := tx.Verify(context.Background(), nil, nil, mockValidator{valid: true})
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestVerifyWalksAncestorsRecursively(t *testing.T) {
	grandparent := buildSimpleSpend(t, 5000, 1000)
	parent := New()
	require.NoError(t, parent.AddInput(newSpendingInput(grandparent, 0, []byte{0x01})))
	parentOut := &TxOutput{LockingScript: []byte{0x51}}
	parentOut.SetSatoshis(900)
	require.NoError(t, parent.AddOutput(parentOut))

	child := New()
	require.NoError(t, child.AddInput(newSpendingInput(parent, 0, []byte{0x01})))
	childOut := &TxOutput{LockingScript: []byte{0x51}}
	childOut.SetSatoshis(800)
	require.NoError(t, child.AddOutput(childOut))

	ok, err := child.Verify(context.Background(), ScriptsOnlyTracker, nil, mockValidator{valid: true})
	require.NoError(t, err)
	assert.True(t, ok)
}

package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEFRoundTripReconstructsSourceOutputs(t *testing.T) {
	src := newSourceTx(5000, []byte{0x76, 0xa9, 0x14})
	tx := New()
	in := newSpendingInput(src, 0, []byte{0x30, 0x44})
	in.SetSequence(0xFFFFFFFE)
	require.NoError(t, tx.AddInput(in))

	out := &TxOutput{LockingScript: []byte{0x51}}
	out.SetSatoshis(4900)
	require.NoError(t, tx.AddOutput(out))

	efBytes, err := tx.ToEF()
	require.NoError(t, err)

	parsed, err := ParseEF(efBytes)
	require.NoError(t, err)

	require.Len(t, parsed.Inputs, 1)
	srcOut, err := parsed.Inputs[0].SourceOutput()
	require.NoError(t, err)
	sats, err := srcOut.EffectiveSatoshis()
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), sats)
	assert.Equal(t, src.Outputs[0].LockingScript, srcOut.LockingScript)
	assert.Equal(t, in.UnlockingScript, parsed.Inputs[0].UnlockingScript)

	wantTxid, _ := tx.Inputs[0].effectiveSourceTXID()
	gotTxid, _ := parsed.Inputs[0].effectiveSourceTXID()
	assert.Equal(t, wantTxid, gotTxid)
}

func TestEFRequiresResolvableSource(t *testing.T) {
	tx := New()
	in := &TxInput{UnlockingScript: []byte{0x01}}
	in.SetSourceTXID(Hash32{1})
	tx.Inputs = append(tx.Inputs, in)

	out := &TxOutput{LockingScript: []byte{0x51}}
	out.SetSatoshis(1)
	tx.Outputs = append(tx.Outputs, out)

	_, err := tx.ToEF()
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestEFRejectsBadMarker(t *testing.T) {
	src := newSourceTx(1000, []byte{0x51})
	tx := New()
	require.NoError(t, tx.AddInput(newSpendingInput(src, 0, []byte{0x01})))
	out := &TxOutput{LockingScript: []byte{0x51}}
	out.SetSatoshis(900)
	require.NoError(t, tx.AddOutput(out))

	raw := tx.Bytes()
	_, err := ParseEF(raw)
	assert.ErrorIs(t, err, ErrBadFormatEF)
}

package transaction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTemplate struct {
	script []byte
	err    error
}

func (s stubTemplate) Sign(tx *Transaction, inputIndex int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]byte{byte(inputIndex)}, s.script...), nil
}

func (s stubTemplate) EstimateLength() uint64 { return uint64(len(s.script)) }

func TestSignAssignsEachInputItsOwnScript(t *testing.T) {
	src := newSourceTx(1000, []byte{0x51})
	tx := New()
	for i := 0; i < 3; i++ {
		in := &TxInput{
			SourceTransaction:       src,
			SourceOutputIndex:       0,
			UnlockingScriptTemplate: stubTemplate{script: []byte{0xAA}},
		}
		require.NoError(t, tx.AddInput(in))
	}
	out := &TxOutput{LockingScript: []byte{0x51}}
	out.SetSatoshis(1)
	require.NoError(t, tx.AddOutput(out))

	require.NoError(t, tx.Sign())

	for i, in := range tx.Inputs {
		assert.Equal(t, byte(i), in.UnlockingScript[0])
	}
}

func TestSignPropagatesTemplateError(t *testing.T) {
	src := newSourceTx(1000, []byte{0x51})
	tx := New()
	want := errors.New("boom")
	in := &TxInput{
		SourceTransaction:       src,
		SourceOutputIndex:       0,
		UnlockingScriptTemplate: stubTemplate{err: want},
	}
	require.NoError(t, tx.AddInput(in))
	out := &TxOutput{LockingScript: []byte{0x51}}
	out.SetSatoshis(1)
	require.NoError(t, tx.AddOutput(out))

	err := tx.Sign()
	assert.ErrorIs(t, err, want)
}

func TestSignRequiresResolvedOutputAmounts(t *testing.T) {
	src := newSourceTx(1000, []byte{0x51})
	tx := New()
	in := &TxInput{
		SourceTransaction:       src,
		SourceOutputIndex:       0,
		UnlockingScriptTemplate: stubTemplate{script: []byte{0xAA}},
	}
	require.NoError(t, tx.AddInput(in))
	change := &TxOutput{LockingScript: []byte{0x51}, Change: true}
	require.NoError(t, tx.AddOutput(change))

	err := tx.Sign()
	assert.ErrorIs(t, err, ErrMissingChangeAmount)
}

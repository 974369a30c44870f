package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTracker struct {
	root   [32]byte
	height uint32
	valid  bool
}

func (s staticTracker) IsValidRootForHeight(root [32]byte, height uint32) (bool, error) {
	if root == s.root && height == s.height {
		return s.valid, nil
	}
	return false, nil
}

func TestComputeRootSingleTxBlock(t *testing.T) {
	var leafHash [32]byte
	leafHash[0] = 0x42
	b := &BUMP{Height: 10, Levels: [][]BUMPLeaf{{{Offset: 0, Hash: leafHash, TXID: true}}}}

	root, err := b.ComputeRoot()
	require.NoError(t, err)
	assert.Equal(t, leafHash, root)
}

func TestComputeRootTwoLeafBlock(t *testing.T) {
	var left, right [32]byte
	left[0] = 0x01
	right[0] = 0x02
	wantRoot := doubleSHA256(append(append([]byte{}, left[:]...), right[:]...))

	b := &BUMP{
		Height: 20,
		Levels: [][]BUMPLeaf{{
			{Offset: 0, Hash: left, TXID: true},
			{Offset: 1, Hash: right},
		}},
	}
	root, err := b.ComputeRoot()
	require.NoError(t, err)
	assert.Equal(t, wantRoot, root)
}

func TestBUMPVerifyRequiresTxidAtLevelZero(t *testing.T) {
	var leafHash [32]byte
	leafHash[0] = 0x42
	b := &BUMP{Height: 10, Levels: [][]BUMPLeaf{{{Offset: 0, Hash: leafHash, TXID: true}}}}

	other := Hash32{0xFF}
	ok, err := b.Verify(other, staticTracker{root: leafHash, height: 10, valid: true})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.Verify(Hash32(leafHash), staticTracker{root: leafHash, height: 10, valid: true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBUMPBytesRoundTrip(t *testing.T) {
	var h1, h2 [32]byte
	h1[0] = 0x01
	h2[0] = 0x02
	b := &BUMP{
		Height: 42,
		Levels: [][]BUMPLeaf{
			{{Offset: 4, Hash: h1, TXID: true}, {Offset: 5, Hash: h2}},
		},
	}

	c := newCursor(b.Bytes())
	got, err := readBUMP(c)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestBUMPCombineRejectsConflictingHeights(t *testing.T) {
	a := &BUMP{Height: 1, Levels: [][]BUMPLeaf{{}}}
	b := &BUMP{Height: 2, Levels: [][]BUMPLeaf{{}}}
	assert.Error(t, a.Combine(b))
}

func TestBUMPCombineRejectsConflictingHashAtSameOffset(t *testing.T) {
	var h1, h2 [32]byte
	h1[0] = 0x01
	h2[0] = 0x02
	a := &BUMP{Height: 1, Levels: [][]BUMPLeaf{{{Offset: 0, Hash: h1}}}}
	b := &BUMP{Height: 1, Levels: [][]BUMPLeaf{{{Offset: 0, Hash: h2}}}}
	assert.Error(t, a.Combine(b))
}

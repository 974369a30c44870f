package network

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/bitfsorg/txspv-go/spv"
	"github.com/bitfsorg/txspv-go/transaction"
)

// HydrateSource fetches in's source transaction via chain.GetRawTx and
// attaches it as in.SourceTransaction. in.SourceTXID must already be set.
func HydrateSource(ctx context.Context, chain BlockchainService, in *transaction.TxInput) error {
	raw, err := chain.GetRawTx(ctx, in.SourceTXID.String())
	if err != nil {
		return err
	}
	src, err := transaction.ParseRaw(raw)
	if err != nil {
		return err
	}
	in.SourceTransaction = src
	return nil
}

// BuildMerklePath fetches a merkle inclusion proof for txid via chain and
// resolves its block height via headers (which must already hold the
// relevant header, e.g. via SPVClient.SyncHeaders), returning a
// *transaction.BUMP ready to assign to Transaction.MerklePath.
func BuildMerklePath(ctx context.Context, chain BlockchainService, headers spv.HeaderStore, txid string) (*transaction.BUMP, error) {
	proof, err := chain.GetMerkleProof(ctx, txid)
	if err != nil {
		return nil, err
	}

	blockHashDisplay, err := hex.DecodeString(proof.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("network: invalid block hash: %w", err)
	}
	header, err := headers.GetHeader(reverseBytesCopy(blockHashDisplay))
	if err != nil {
		return nil, err
	}

	txidDisplay, err := hex.DecodeString(proof.TxID)
	if err != nil {
		return nil, fmt.Errorf("network: invalid txid: %w", err)
	}
	txidInternal := reverseBytesCopy(txidDisplay)

	offset := uint64(proof.Index)
	var leafHash [32]byte
	copy(leafHash[:], txidInternal)
	leaf := transaction.BUMPLeaf{Offset: offset, Hash: leafHash, TXID: true}

	if len(proof.Branches) == 0 {
		return &transaction.BUMP{
			Height: header.Height,
			Levels: [][]transaction.BUMPLeaf{{leaf}},
		}, nil
	}

	levels := make([][]transaction.BUMPLeaf, len(proof.Branches))
	levels[0] = []transaction.BUMPLeaf{leaf}
	for depth, node := range proof.Branches {
		if len(node) != 32 {
			return nil, fmt.Errorf("network: merkle branch node at depth %d is not 32 bytes", depth)
		}
		var sibHash [32]byte
		copy(sibHash[:], node)
		levels[depth] = append(levels[depth], transaction.BUMPLeaf{Offset: offset ^ 1, Hash: sibHash})
		offset /= 2
	}

	return &transaction.BUMP{Height: header.Height, Levels: levels}, nil
}

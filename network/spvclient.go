package network

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bitfsorg/txspv-go/spv"
	"github.com/bitfsorg/txspv-go/transaction"
)

// VerifyResult holds the result of an SPV verification.
type VerifyResult struct {
	Confirmed   bool
	BlockHash   string
	BlockHeight uint64
}

// SPVClient bridges the network layer with the local header store and
// transaction verification logic.
type SPVClient struct {
	chain   BlockchainService
	headers spv.HeaderStore
	txs     spv.TxStore // optional; caches confirmed transactions indexed by locking script
	network spv.Network

	// getBlockHash fetches block hash by height.
	// Injected in tests; for RPCClient, set automatically.
	getBlockHash func(ctx context.Context, height uint64) (string, error)
}

// NewSPVClient creates an SPV client backed by a blockchain service and header store.
func NewSPVClient(chain BlockchainService, headers spv.HeaderStore) *SPVClient {
	s := &SPVClient{
		chain:   chain,
		headers: headers,
		network: spv.Mainnet,
	}
	// If chain is an RPCClient, wire up getBlockHash via RPC.
	if rpc, ok := chain.(*RPCClient); ok {
		s.getBlockHash = func(ctx context.Context, height uint64) (string, error) {
			var hash string
			err := rpc.Call(ctx, "getblockhash", []interface{}{height}, &hash)
			return hash, err
		}
	}
	return s
}

// WithTxStore attaches a TxStore that VerifyTx uses to cache confirmed
// transactions, indexed by the locking script of the first output that has
// one (see cacheByOutputScripts), so a caller tracking that script can later
// recover matching transactions via TxStore.GetTxsByScript without rescanning
// the chain. The locking scripts of later outputs are not indexed.
func (s *SPVClient) WithTxStore(txs spv.TxStore) *SPVClient {
	s.txs = txs
	return s
}

// WithNetwork sets the network used for minimum-difficulty enforcement
// during SyncHeaders. Defaults to spv.Mainnet.
func (s *SPVClient) WithNetwork(net spv.Network) *SPVClient {
	s.network = net
	return s
}

// VerifyTx performs SPV verification of a transaction:
//  1. Check confirmation status
//  2. For confirmed tx: fetch Merkle proof, verify against stored header
func (s *SPVClient) VerifyTx(ctx context.Context, txid string) (*VerifyResult, error) {
	status, err := s.chain.GetTxStatus(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("network: get tx status: %w", err)
	}

	if !status.Confirmed {
		return &VerifyResult{Confirmed: false}, nil
	}

	// Ensure we have the block header.
	// Block hash from RPC is in display hex (big-endian); convert to internal
	// byte order for header store lookup (which keys by DoubleHash output).
	blockHashDisplay, err := hex.DecodeString(status.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("network: invalid block hash: %w", err)
	}
	blockHashInternal := reverseBytesCopy(blockHashDisplay)

	header, err := s.headers.GetHeader(blockHashInternal)
	if err != nil {
		// Header not in store — fetch and store it.
		rawHeader, fetchErr := s.chain.GetBlockHeader(ctx, status.BlockHash)
		if fetchErr != nil {
			return nil, fmt.Errorf("network: fetch block header: %w", fetchErr)
		}
		header, err = spv.DeserializeHeader(rawHeader)
		if err != nil {
			return nil, fmt.Errorf("network: deserialize header: %w", err)
		}
		header.Height = uint32(status.BlockHeight)
		header.Hash = spv.ComputeHeaderHash(header)
		if storeErr := s.headers.PutHeader(header); storeErr != nil {
			return nil, fmt.Errorf("network: store header: %w", storeErr)
		}
	}

	// Fetch and verify Merkle proof.
	proof, err := s.chain.GetMerkleProof(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("network: fetch merkle proof: %w", err)
	}

	txidDisplayBytes, err := hex.DecodeString(proof.TxID)
	if err != nil {
		return nil, fmt.Errorf("network: invalid txid: %w", err)
	}
	// Convert display txid (big-endian) to internal byte order for Merkle verification.
	txidInternal := reverseBytesCopy(txidDisplayBytes)

	rawTx, err := s.chain.GetRawTx(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("network: fetch raw tx: %w", err)
	}

	stored := &spv.StoredTx{
		TxID:        txidInternal,
		RawTx:       rawTx,
		BlockHeight: uint32(status.BlockHeight),
		Proof: &spv.MerkleProof{
			TxID:      txidInternal,
			Index:     uint32(proof.Index),
			Nodes:     proof.Branches,
			BlockHash: blockHashInternal,
		},
	}

	// Single-tx block: txHash IS the Merkle root, no branches to walk. Feed
	// VerifyTransaction a header whose MerkleRoot check degrades to a direct
	// equality in that case (VerifyMerkleProof handles the empty-Nodes path).
	if err := spv.VerifyTransaction(stored, s.headers); err != nil {
		return nil, fmt.Errorf("network: verify transaction %s: %w", txid, err)
	}

	if s.txs != nil {
		if err := s.cacheByOutputScripts(stored); err != nil {
			return nil, fmt.Errorf("network: cache verified transaction %s: %w", txid, err)
		}
	}

	return &VerifyResult{
		Confirmed:   true,
		BlockHash:   status.BlockHash,
		BlockHeight: status.BlockHeight,
	}, nil
}

// SyncHeaders fetches block headers from the network and stores them locally.
// Syncs from current tip to the latest block.
func (s *SPVClient) SyncHeaders(ctx context.Context) error {
	if s.getBlockHash == nil {
		return fmt.Errorf("network: getBlockHash not configured")
	}

	bestHeight, err := s.chain.GetBestBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("network: get best block height: %w", err)
	}

	// Determine local tip.
	var startHeight uint64
	tip, err := s.headers.GetTip()
	if err == nil && tip != nil {
		startHeight = uint64(tip.Height) + 1
	}

	for h := startHeight; h <= bestHeight; h++ {
		hash, hashErr := s.getBlockHash(ctx, h)
		if hashErr != nil {
			return fmt.Errorf("network: get block hash at %d: %w", h, hashErr)
		}

		rawHeader, hdrErr := s.chain.GetBlockHeader(ctx, hash)
		if hdrErr != nil {
			return fmt.Errorf("network: get header at %d: %w", h, hdrErr)
		}

		header, dsErr := spv.DeserializeHeader(rawHeader)
		if dsErr != nil {
			return fmt.Errorf("network: deserialize header at %d: %w", h, dsErr)
		}
		header.Height = uint32(h)
		header.Hash = spv.ComputeHeaderHash(header)

		// Validate chain continuity first: a disconnected header is a structural
		// defect in what the peer sent us, distinct from (and reported ahead of)
		// whether its own proof-of-work happens to clear the target.
		var prevHeader *spv.BlockHeader
		if h == 0 {
			// Genesis block: PrevBlock should be all zeros.
			if !bytes.Equal(header.PrevBlock, make([]byte, 32)) {
				return fmt.Errorf("network: genesis block has non-zero PrevBlock")
			}
		} else {
			var prevErr error
			prevHeader, prevErr = s.headers.GetHeaderByHeight(uint32(h - 1))
			if prevErr != nil {
				return fmt.Errorf("network: previous header at %d not found: %w", h-1, prevErr)
			}
			if !bytes.Equal(header.PrevBlock, prevHeader.Hash) {
				return fmt.Errorf("network: chain break at height %d: PrevBlock does not match header at %d", h, h-1)
			}
		}

		if err := spv.VerifyPoW(header); err != nil {
			return fmt.Errorf("network: header at %d: %w", h, err)
		}
		if err := spv.ValidateMinDifficulty(header, s.network); err != nil {
			return fmt.Errorf("network: header at %d: %w", h, err)
		}
		if prevHeader != nil {
			if err := spv.ValidateDifficultyTransition(prevHeader, header); err != nil {
				return fmt.Errorf("network: header at %d: %w", h, err)
			}
		}

		if putErr := s.headers.PutHeader(header); putErr != nil {
			return fmt.Errorf("network: store header at %d: %w", h, putErr)
		}
	}

	return nil
}

// cacheByOutputScripts indexes stored under the locking script of its first
// scripted output, so later callers can find it via TxStore.GetTxsByScript
// without keeping their own txid list. A transaction already cached from a
// prior VerifyTx call is left in place, not an error.
func (s *SPVClient) cacheByOutputScripts(stored *spv.StoredTx) error {
	parsed, err := transaction.ParseRaw(stored.RawTx)
	if err != nil {
		return err
	}

	var putErr error
	indexed := false
	for _, out := range parsed.Outputs {
		if len(out.LockingScript) == 0 {
			continue
		}
		putErr = s.txs.PutTxWithScript(stored, out.LockingScript)
		indexed = true
		break
	}
	if !indexed {
		putErr = s.txs.PutTx(stored)
	}
	if putErr != nil && !errors.Is(putErr, spv.ErrDuplicateTx) {
		return putErr
	}
	return nil
}

// reverseBytesCopy returns a new slice with b's bytes in reverse order,
// used to convert between display (big-endian) and internal (wire,
// little-endian) hash byte order without mutating the input.
func reverseBytesCopy(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}


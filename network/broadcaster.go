package network

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/bitfsorg/txspv-go/transaction"
)

// RPCBroadcaster adapts a BlockchainService's BroadcastTx into
// transaction.Broadcaster.
type RPCBroadcaster struct {
	Chain BlockchainService
}

var _ transaction.Broadcaster = (*RPCBroadcaster)(nil)

// NewRPCBroadcaster returns an RPCBroadcaster backed by chain.
func NewRPCBroadcaster(chain BlockchainService) *RPCBroadcaster {
	return &RPCBroadcaster{Chain: chain}
}

// Broadcast implements transaction.Broadcaster by submitting raw as hex and
// translating a node rejection into a *transaction.BroadcastFailure.
func (b *RPCBroadcaster) Broadcast(ctx context.Context, raw []byte) (*transaction.BroadcastSuccess, error) {
	txidHex, err := b.Chain.BroadcastTx(ctx, hex.EncodeToString(raw))
	if err != nil {
		if errors.Is(err, ErrBroadcastRejected) {
			return nil, &transaction.BroadcastFailure{Code: "rejected", Description: err.Error()}
		}
		return nil, err
	}
	txid, err := transaction.HashFromHex(txidHex)
	if err != nil {
		return nil, err
	}
	return &transaction.BroadcastSuccess{TxID: txid, Message: "accepted"}, nil
}

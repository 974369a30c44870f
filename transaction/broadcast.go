package transaction

import (
	"context"
	"fmt"
)

// BroadcastSuccess is returned by a Broadcaster on acceptance.
type BroadcastSuccess struct {
	TxID    Hash32
	Message string
}

// BroadcastFailure is returned by a Broadcaster on node rejection. It
// implements error so it can be returned directly from Broadcast.
type BroadcastFailure struct {
	Code        string
	Description string
}

func (f *BroadcastFailure) Error() string {
	return fmt.Sprintf("%s: [%s] %s", ErrBroadcastFailure, f.Code, f.Description)
}

func (f *BroadcastFailure) Unwrap() error {
	return ErrBroadcastFailure
}

// Broadcaster submits a raw transaction to the network. The concrete
// transport (JSON-RPC, ARC, overlay) is an external collaborator.
type Broadcaster interface {
	Broadcast(ctx context.Context, raw []byte) (*BroadcastSuccess, error)
}

// Broadcast serializes tx with ToBinary and hands it to b, surfacing its
// result (BroadcastSuccess or a *BroadcastFailure error) unchanged.
func (tx *Transaction) Broadcast(ctx context.Context, b Broadcaster) (*BroadcastSuccess, error) {
	raw, err := tx.ToBinary()
	if err != nil {
		return nil, err
	}
	return b.Broadcast(ctx, raw)
}

// Package p2pkh adapts go-sdk's P2PKH locking/unlocking script builders to
// this module's LockingTemplate and UnlockingTemplate contracts.
package p2pkh

import (
	sdkec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	sdktx "github.com/bsv-blockchain/go-sdk/transaction"
	sdkp2pkh "github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	"github.com/bitfsorg/txspv-go/transaction"
)

// Template signs and locks P2PKH outputs for a single key pair.
type Template struct {
	PrivateKey *sdkec.PrivateKey
}

var (
	_ transaction.LockingTemplate   = Template{}
	_ transaction.UnlockingTemplate = Template{}
)

// Lock implements transaction.LockingTemplate. destination is a base58check
// P2PKH address.
func (Template) Lock(destination string) ([]byte, error) {
	addr, err := script.NewAddressFromString(destination)
	if err != nil {
		return nil, err
	}
	s, err := sdkp2pkh.Lock(addr)
	if err != nil {
		return nil, err
	}
	return *s, nil
}

// EstimateLength implements transaction.UnlockingTemplate: a canonical
// P2PKH unlocking script is a DER signature plus sighash byte (up to 72+1)
// and a compressed public key (33), plus their push opcodes.
func (Template) EstimateLength() uint64 {
	return 108
}

// Sign implements transaction.UnlockingTemplate. It rebuilds the signing
// context in go-sdk's own Transaction model, which the upstream P2PKH
// unlocker requires to compute the sighash, attaches the unlocker to the
// input being signed, and delegates to go-sdk's whole-transaction Sign.
func (t Template) Sign(tx *transaction.Transaction, inputIndex int) ([]byte, error) {
	sdkTransaction, err := sdktx.NewTransactionFromBytes(tx.Bytes())
	if err != nil {
		return nil, err
	}

	for i, in := range tx.Inputs {
		srcOut, err := in.SourceOutput()
		if err != nil {
			return nil, err
		}
		sats, err := srcOut.EffectiveSatoshis()
		if err != nil {
			return nil, err
		}
		sdkTransaction.Inputs[i].SetSourceTxOutput(&sdktx.TransactionOutput{
			Satoshis:      sats,
			LockingScript: script.NewFromBytes(srcOut.LockingScript),
		})
	}

	unlocker, err := sdkp2pkh.Unlock(t.PrivateKey, nil)
	if err != nil {
		return nil, err
	}
	sdkTransaction.Inputs[inputIndex].UnlockingScriptTemplate = unlocker

	if err := sdkTransaction.Sign(); err != nil {
		return nil, err
	}
	return *sdkTransaction.Inputs[inputIndex].UnlockingScript, nil
}

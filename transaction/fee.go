package transaction

import (
	"fmt"
	"math"
)

// FeeModel computes the required fee for a transaction, in satoshis. This
// package ships two implementations; a caller may supply its own.
type FeeModel interface {
	ComputeFee(tx *Transaction) (uint64, error)
}

// ConstantFee is a FeeModel that always returns the same amount, useful for
// tests and for chains/policies with a flat per-transaction fee.
type ConstantFee uint64

// ComputeFee implements FeeModel.
func (f ConstantFee) ComputeFee(tx *Transaction) (uint64, error) {
	return uint64(f), nil
}

// SatoshisPerKilobyte is a naive size-proportional FeeModel: it estimates the
// transaction's serialized size and charges Rate satoshis per 1000 bytes,
// rounding up.
type SatoshisPerKilobyte struct {
	Rate uint64
}

// ComputeFee implements FeeModel by estimating tx's Raw-serialized size
// without materializing scripts that have not been signed yet.
func (m SatoshisPerKilobyte) ComputeFee(tx *Transaction) (uint64, error) {
	size := estimateSize(tx)
	fee := (uint64(size)*m.Rate + 999) / 1000
	return fee, nil
}

// estimateSize approximates the Raw wire size of tx: 4 (version) + varint(nIn)
// + per-input overhead (36 outpoint + varint scriptLen + script + 4 sequence)
// + varint(nOut) + per-output overhead (8 satoshis + varint scriptLen +
// script) + 4 (locktime). An unsigned input's script length is estimated via
// its UnlockingScriptTemplate.EstimateLength when present.
func estimateSize(tx *Transaction) int {
	size := 4 + varintLen(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		scriptLen := uint64(len(in.UnlockingScript))
		if scriptLen == 0 && in.UnlockingScriptTemplate != nil {
			scriptLen = in.UnlockingScriptTemplate.EstimateLength()
		}
		size += 36 + varintLen(scriptLen) + int(scriptLen) + 4
	}
	size += varintLen(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		scriptLen := uint64(len(out.LockingScript))
		size += 8 + varintLen(scriptLen) + int(scriptLen)
	}
	size += 4
	return size
}

// DistributionKind selects how FeeEngine spreads leftover change across a
// transaction's change-flagged outputs.
type DistributionKind int

const (
	// EqualDistribution splits change evenly, remainder to the last output
	// in the transaction.
	EqualDistribution DistributionKind = iota
	// RandomDistribution uses a Benford-biased random split (see Fee).
	RandomDistribution
)

// RandomSource supplies deterministic randomness to the random distribution
// mode, injected so a caller can reproduce a specific split (see spec §5 on
// RNG injection).
type RandomSource interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// Fee resolves every change output's amount, per spec §4.6. It stores no fee
// value itself; GetFee derives the fee from the resulting inputs and outputs.
//
//  1. model computes the required fee given the transaction's current shape.
//  2. change = sum(input source satoshis) - fee - sum(non-change outputs).
//  3. If change <= 0, every change output is dropped from the transaction
//     entirely and Fee returns.
//  4. Otherwise change is distributed across the change outputs per dist.
//
// Every input must resolve a SourceOutput with a resolved amount (via
// SourceTransaction), or Fee fails with ErrMissingSource.
func (tx *Transaction) Fee(model FeeModel, dist DistributionKind, rand RandomSource) error {
	total := uint64(0)
	for _, in := range tx.Inputs {
		out, err := in.SourceOutput()
		if err != nil {
			return err
		}
		sats, err := out.EffectiveSatoshis()
		if err != nil {
			return err
		}
		total += sats
	}

	var fixed uint64
	for _, out := range tx.Outputs {
		if out.Change {
			continue
		}
		sats, err := out.EffectiveSatoshis()
		if err != nil {
			return err
		}
		fixed += sats
	}

	fee, err := model.ComputeFee(tx)
	if err != nil {
		return err
	}

	signedChange := int64(total) - int64(fixed) - int64(fee)
	if signedChange <= 0 {
		kept := tx.Outputs[:0]
		for _, out := range tx.Outputs {
			if !out.Change {
				kept = append(kept, out)
			}
		}
		tx.Outputs = kept
		tx.invalidate()
		return nil
	}
	change := uint64(signedChange)

	var changeOutputs []*TxOutput
	for _, out := range tx.Outputs {
		if out.Change {
			changeOutputs = append(changeOutputs, out)
		}
	}
	if len(changeOutputs) > 0 {
		lastOutput := tx.Outputs[len(tx.Outputs)-1]
		switch dist {
		case RandomDistribution:
			if err := distributeRandom(change, changeOutputs, lastOutput, rand); err != nil {
				return err
			}
		default:
			distributeEqual(change, changeOutputs, lastOutput)
		}
	}

	tx.invalidate()
	return nil
}

// distributeEqual gives each change output floor(amount/k); the remainder
// (amount - k*floor) is credited to lastOutput, the last output in the
// transaction (which need not itself be a change output).
func distributeEqual(amount uint64, changeOutputs []*TxOutput, lastOutput *TxOutput) {
	k := uint64(len(changeOutputs))
	share := amount / k
	remainder := amount - share*k
	for _, out := range changeOutputs {
		out.SetSatoshis(share)
	}
	addToOutput(lastOutput, remainder)
}

// distributeRandom implements the Benford-biased random distribution: each
// change output is seeded with 1 satoshi (reserving k satoshis up front);
// for each of the first k-1 change outputs, a leading digit 1-9 is drawn
// uniformly and floor(remaining * log10(1+1/d)) satoshis are added to it;
// the last output in the transaction absorbs whatever remains.
func distributeRandom(amount uint64, changeOutputs []*TxOutput, lastOutput *TxOutput, rand RandomSource) error {
	k := uint64(len(changeOutputs))
	if amount < k {
		return fmt.Errorf("%w: change %d insufficient to seed %d outputs", ErrInsufficientFee, amount, k)
	}
	if rand == nil {
		return fmt.Errorf("%w: random distribution requires a RandomSource", ErrMissingAmount)
	}

	for _, out := range changeOutputs {
		out.SetSatoshis(1)
	}
	remaining := amount - k

	for i := 0; i < len(changeOutputs)-1; i++ {
		d := 1 + int(rand.Float64()*9)
		if d > 9 {
			d = 9
		}
		add := uint64(float64(remaining) * math.Log10(1+1/float64(d)))
		if add > remaining {
			add = remaining
		}
		addToOutput(changeOutputs[i], add)
		remaining -= add
	}

	addToOutput(lastOutput, remaining)
	return nil
}

func addToOutput(out *TxOutput, amount uint64) {
	sats, _ := out.EffectiveSatoshis()
	out.SetSatoshis(sats + amount)
}

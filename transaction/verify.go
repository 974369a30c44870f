package transaction

import "context"

// ChainTracker answers whether a merkle root is valid for a given block
// height. Concrete implementations (header-store backed) live outside this
// package; see spv.Tracker.
type ChainTracker interface {
	IsValidRootForHeight(root [32]byte, height uint32) (bool, error)
}

type scriptsOnlyTracker struct{}

func (scriptsOnlyTracker) IsValidRootForHeight(root [32]byte, height uint32) (bool, error) {
	return true, nil
}

// ScriptsOnlyTracker is the sentinel ChainTracker that accepts any
// merkle-anchored ancestor without consulting header history, matching the
// "scripts_only" mode from spec §4.8 step 2.
var ScriptsOnlyTracker ChainTracker = scriptsOnlyTracker{}

// Spend bundles the full script-evaluation context for one input, matching
// the fields Bitcoin's signature hashing and script interpreter require.
type Spend struct {
	SourceTXID        Hash32
	SourceOutputIndex  uint32
	LockingScript     []byte
	SourceSatoshis    uint64
	TxVersion         uint32
	OtherInputs       []*TxInput
	UnlockingScript   []byte
	InputSequence     uint32
	InputIndex        int
	Outputs           []*TxOutput
	LockTime          uint32
}

// ScriptValidator evaluates a Spend's unlocking script against its locking
// script. The concrete evaluator (a full script interpreter) is an external
// collaborator; this package only contracts the call.
type ScriptValidator interface {
	Validate(spend *Spend) (bool, error)
}

// Verify performs recursive SPV-style validation per spec §4.8: a
// breadth-first walk over tx's ancestor DAG, short-circuiting at any
// merkle-anchored ancestor, else requiring the ancestor's own inputs and
// script to validate.
//
// tracker and feeModel may be nil; a nil tracker disables proof
// short-circuiting entirely (every ancestor requires script validation),
// and a nil feeModel skips the fee check. validator is required.
//
// Verify returns false (not an error) for script or value-conservation
// failures; it returns an error for structural problems (missing source,
// missing amount, missing unlocking script) per spec §7's policy.
func (tx *Transaction) Verify(ctx context.Context, tracker ChainTracker, feeModel FeeModel, validator ScriptValidator) (bool, error) {
	verified := make(map[Hash32]bool)
	queue := []*Transaction{tx}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		cur := queue[0]
		queue = queue[1:]
		id := cur.TxID()
		if verified[id] {
			continue
		}

		if cur.MerklePath != nil {
			if tracker != nil {
				if _, ok := tracker.(scriptsOnlyTracker); ok {
					verified[id] = true
					continue
				}
				ok, err := cur.MerklePath.Verify(id, tracker)
				if err != nil {
					return false, err
				}
				if ok {
					verified[id] = true
					continue
				}
			}
		}

		if feeModel != nil {
			ok, err := checkFee(cur, feeModel)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}

		var inputTotal uint64
		for i, in := range cur.Inputs {
			if in.SourceTransaction == nil {
				return false, ErrMissingSource
			}
			if len(in.UnlockingScript) == 0 {
				return false, ErrMissingUnlockingScript
			}
			srcOut, err := in.SourceOutput()
			if err != nil {
				return false, err
			}
			sats, err := srcOut.EffectiveSatoshis()
			if err != nil {
				return false, err
			}
			inputTotal += sats

			srcID := in.SourceTransaction.TxID()
			if !verified[srcID] {
				queue = append(queue, in.SourceTransaction)
			}

			var others []*TxInput
			for j, other := range cur.Inputs {
				if j != i {
					others = append(others, other)
				}
			}
			spend := &Spend{
				SourceTXID:        srcID,
				SourceOutputIndex: in.SourceOutputIndex,
				LockingScript:     srcOut.LockingScript,
				SourceSatoshis:    sats,
				TxVersion:         cur.Version,
				OtherInputs:       others,
				UnlockingScript:   in.UnlockingScript,
				InputSequence:     in.EffectiveSequence(),
				InputIndex:        i,
				Outputs:           cur.Outputs,
				LockTime:          cur.LockTime,
			}
			ok, err := validator.Validate(spend)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}

		var outputTotal uint64
		for _, out := range cur.Outputs {
			sats, err := out.EffectiveSatoshis()
			if err != nil {
				return false, ErrMissingOutputAmount
			}
			outputTotal += sats
		}
		if outputTotal > inputTotal {
			return false, nil
		}

		verified[id] = true
	}

	return true, nil
}

// checkFee reconstructs the transaction's implied fee (sum of input source
// satoshis minus sum of output satoshis) and the fee a fresh equal-change
// distribution would compute for an equivalent EF-reserialized clone whose
// first output is treated as the change output, per spec §4.8 step 3.
func checkFee(tx *Transaction, feeModel FeeModel) (bool, error) {
	efBytes, err := tx.ToEF()
	if err != nil {
		return false, err
	}
	clone, err := ParseEF(efBytes)
	if err != nil {
		return false, err
	}
	if len(clone.Outputs) == 0 {
		return false, ErrMissingOutputAmount
	}
	clone.Outputs[0].Satoshis = nil
	clone.Outputs[0].Change = true
	if err := clone.Fee(feeModel, EqualDistribution, nil); err != nil {
		return false, err
	}
	cloneFee, err := clone.GetFee()
	if err != nil {
		return false, err
	}

	var inputTotal, outputTotal uint64
	for _, in := range tx.Inputs {
		out, err := in.SourceOutput()
		if err != nil {
			return false, err
		}
		sats, err := out.EffectiveSatoshis()
		if err != nil {
			return false, err
		}
		inputTotal += sats
	}
	for _, out := range tx.Outputs {
		sats, err := out.EffectiveSatoshis()
		if err != nil {
			return false, err
		}
		outputTotal += sats
	}
	if inputTotal < outputTotal {
		return false, nil
	}
	actualFee := inputTotal - outputTotal

	return actualFee >= cloneFee, nil
}

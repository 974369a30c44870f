package transaction

import "sync"

// Sign invokes UnlockingScriptTemplate.Sign concurrently for every input that
// carries one, with no ordering guarantee between sign calls, then assigns
// each result to its input's UnlockingScript once every call has returned.
//
// Pre-conditions: every output must carry a resolved amount (run Fee first
// if any output is change-flagged); ErrMissingChangeAmount is returned in
// place of ErrMissingAmount for an unresolved change output specifically.
func (tx *Transaction) Sign() error {
	for _, out := range tx.Outputs {
		if _, err := out.EffectiveSatoshis(); err != nil {
			return err
		}
	}

	type result struct {
		script []byte
		err    error
	}
	results := make([]result, len(tx.Inputs))

	var wg sync.WaitGroup
	for i, in := range tx.Inputs {
		if in.UnlockingScriptTemplate == nil {
			continue
		}
		wg.Add(1)
		go func(i int, in *TxInput) {
			defer wg.Done()
			script, err := in.UnlockingScriptTemplate.Sign(tx, i)
			results[i] = result{script: script, err: err}
		}(i, in)
	}
	wg.Wait()

	for i, in := range tx.Inputs {
		if in.UnlockingScriptTemplate == nil {
			continue
		}
		if results[i].err != nil {
			return results[i].err
		}
		in.UnlockingScript = results[i].script
	}

	tx.invalidate()
	return nil
}

// Command txtool demonstrates the assemble → fee → sign → emit pipeline
// this module provides: build a transaction, resolve its change amount,
// sign it, and print its Raw / EF / BEEF / Atomic BEEF encodings as hex.
// It is a serialization round-trip harness, not a wallet or broadcast CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	sdkec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/txspv-go/config"
	"github.com/bitfsorg/txspv-go/transaction"
	"github.com/bitfsorg/txspv-go/transaction/p2pkh"
)

func main() {
	dataDir := flag.String("datadir", config.DefaultDataDir(), "config/data directory")
	flag.Parse()

	cfgPath := config.ConfigPath(*dataDir)
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	fmt.Fprintf(os.Stderr, "txtool: network=%s\n", cfg.Network)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "txtool:", err)
		os.Exit(1)
	}
}

func run() error {
	key, err := sdkec.NewPrivateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	addr, err := script.NewAddressFromPublicKey(key.PubKey(), true)
	if err != nil {
		return fmt.Errorf("derive address: %w", err)
	}
	tmpl := p2pkh.Template{PrivateKey: key}

	lockScript, err := tmpl.Lock(addr.AddressString)
	if err != nil {
		return fmt.Errorf("build source locking script: %w", err)
	}

	source := transaction.New()
	source.Outputs = append(source.Outputs, &transaction.TxOutput{LockingScript: lockScript})
	source.Outputs[0].SetSatoshis(1000)

	tx := transaction.New()
	in := &transaction.TxInput{
		SourceOutputIndex:       0,
		SourceTransaction:       source,
		UnlockingScriptTemplate: tmpl,
	}
	if err := tx.AddInput(in); err != nil {
		return fmt.Errorf("add input: %w", err)
	}

	if err := tx.AddP2PKHOutput(tmpl, addr.AddressString, nil); err != nil {
		return fmt.Errorf("add change output: %w", err)
	}

	if err := tx.Fee(transaction.ConstantFee(100), transaction.EqualDistribution, nil); err != nil {
		return fmt.Errorf("compute fee: %w", err)
	}
	if err := tx.Sign(); err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	fee, _ := tx.GetFee()
	fmt.Printf("txid:    %s\n", tx.ID())
	fmt.Printf("fee:     %d sats\n", fee)

	rawHex, err := tx.ToBinaryHex()
	if err != nil {
		return fmt.Errorf("raw encode: %w", err)
	}
	fmt.Printf("raw:     %s\n", rawHex)

	efHex, err := tx.ToEFHex()
	if err != nil {
		return fmt.Errorf("ef encode: %w", err)
	}
	fmt.Printf("ef:      %s\n", efHex)

	beefHex, err := tx.ToBEEFHex(false)
	if err != nil {
		return fmt.Errorf("beef encode: %w", err)
	}
	fmt.Printf("beef:    %s\n", beefHex)

	atomicHex, err := tx.ToAtomicBEEFHex(false)
	if err != nil {
		return fmt.Errorf("atomic beef encode: %w", err)
	}
	fmt.Printf("atomic:  %s\n", atomicHex)

	return nil
}

package transaction

import "errors"

var (
	// ErrShortRead indicates the cursor ran out of bytes before a field was fully read.
	ErrShortRead = errors.New("transaction: short read")

	// ErrBadVarint indicates a varint's 0xFD/0xFE/0xFF prefix was not followed by
	// enough bytes for its u16/u32/u64 payload.
	ErrBadVarint = errors.New("transaction: bad varint")

	// ErrMissingSource indicates an input lacks both source_txid and source_transaction,
	// or lacks a resolvable source_transaction at fee/EF-emit/verify time.
	ErrMissingSource = errors.New("transaction: missing source")

	// ErrMissingAmount indicates an output has no numeric satoshis at serialize/sign time.
	ErrMissingAmount = errors.New("transaction: missing output amount")

	// ErrMissingChangeAmount is the more specific form of ErrMissingAmount for a
	// change-flagged output whose amount was never resolved by FeeEngine.
	ErrMissingChangeAmount = errors.New("transaction: missing change amount")

	// ErrNegativeAmount indicates a negative satoshi value was supplied on add.
	ErrNegativeAmount = errors.New("transaction: negative amount")

	// ErrMissingUnlockingScript indicates an input has no unlocking script at serialize time.
	ErrMissingUnlockingScript = errors.New("transaction: missing unlocking script")

	// ErrMissingSequence indicates an input's sequence number was never set or defaulted.
	ErrMissingSequence = errors.New("transaction: missing sequence number")

	// ErrBadFormatRaw indicates the raw envelope is malformed.
	ErrBadFormatRaw = errors.New("transaction: bad raw format")

	// ErrBadFormatEF indicates the Extended Format envelope's marker or layout is malformed.
	ErrBadFormatEF = errors.New("transaction: bad EF format")

	// ErrBadFormatBEEF indicates the BEEF envelope's version, bump table, or tx list is malformed.
	ErrBadFormatBEEF = errors.New("transaction: bad BEEF format")

	// ErrBadFormatAtomicBEEF indicates the Atomic BEEF prefix or subject TXID is malformed.
	ErrBadFormatAtomicBEEF = errors.New("transaction: bad atomic BEEF format")

	// ErrUnknownInputTx indicates a BEEF payload references a parent TXID that is not
	// present in the payload and not covered by any BUMP at level 0.
	ErrUnknownInputTx = errors.New("transaction: unknown input transaction")

	// ErrUnrelatedTx indicates an Atomic BEEF payload contains a transaction unreachable
	// from the subject TXID.
	ErrUnrelatedTx = errors.New("transaction: unrelated transaction in atomic BEEF")

	// ErrInvalidBumpIndex indicates a transaction record referenced a BUMP index out of range.
	ErrInvalidBumpIndex = errors.New("transaction: invalid bump index")

	// ErrInsufficientFee indicates the verification-time fee-model check failed.
	ErrInsufficientFee = errors.New("transaction: insufficient fee")

	// ErrMissingOutputAmount indicates an output lacks satoshis at verification time.
	ErrMissingOutputAmount = errors.New("transaction: missing output amount at verification")

	// ErrBroadcastFailure is returned unchanged from a Broadcaster rejection.
	ErrBroadcastFailure = errors.New("transaction: broadcast failed")
)

package transaction

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash32 is a 32-byte double-SHA256 digest, stored in the "natural reading
// order" used by TXID hex strings (i.e. already reversed relative to the
// wire/little-endian byte order Bitcoin hashes are computed and transmitted
// in).
type Hash32 [32]byte

// String renders the hash as lowercase hex, in the same order it is stored.
func (h Hash32) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash32) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// HashFromHex parses a big-endian ("natural reading order") hex TXID.
func HashFromHex(s string) (Hash32, error) {
	var h Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != 32 {
		return h, ErrShortRead
	}
	copy(h[:], b)
	return h, nil
}

func reverse32(b []byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32 && i < len(b); i++ {
		out[31-i] = b[i]
	}
	return out
}

// doubleSHA256 computes SHA256(SHA256(data)) in wire/little-endian order
// (i.e. the order Bitcoin hashes data in, before any TXID-display reversal).
func doubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

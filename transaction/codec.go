package transaction

import (
	"encoding/binary"
	"fmt"
)

// byteCursor is a forward-only reader/writer over a byte slice, used by every
// wire codec in this package. Reads advance pos and fail with ErrShortRead
// once the underlying slice is exhausted; writes always append.
type byteCursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *byteCursor {
	return &byteCursor{buf: buf}
}

// Pos returns the current read/write offset.
func (c *byteCursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *byteCursor) Remaining() int { return len(c.buf) - c.pos }

// Bytes returns the full underlying buffer (including what has been read).
func (c *byteCursor) Bytes() []byte { return c.buf }

func (c *byteCursor) readN(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortRead, n, c.Remaining())
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// Read returns the next n bytes as written on the wire (no reversal).
func (c *byteCursor) Read(n int) ([]byte, error) {
	b, err := c.readN(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadReverse returns the next n bytes in reversed order, used for the
// big-endian TXID fields embedded in an otherwise little-endian wire format.
func (c *byteCursor) ReadReverse(n int) ([]byte, error) {
	b, err := c.readN(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i, v := range b {
		out[n-1-i] = v
	}
	return out, nil
}

// ReadRemainder returns every byte not yet consumed.
func (c *byteCursor) ReadRemainder() []byte {
	out := c.buf[c.pos:]
	c.pos = len(c.buf)
	b := make([]byte, len(out))
	copy(b, out)
	return b
}

func (c *byteCursor) ReadU8() (byte, error) {
	b, err := c.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *byteCursor) ReadU16LE() (uint16, error) {
	b, err := c.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *byteCursor) ReadU32LE() (uint32, error) {
	b, err := c.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *byteCursor) ReadU64LE() (uint64, error) {
	b, err := c.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadVarint decodes a Bitcoin varint: values below 0xFD are a single byte;
// 0xFD/0xFE/0xFF prefix a u16LE/u32LE/u64LE respectively.
func (c *byteCursor) ReadVarint() (uint64, error) {
	prefix, err := c.ReadU8()
	if err != nil {
		return 0, err
	}
	switch prefix {
	case 0xFD:
		v, err := c.ReadU16LE()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBadVarint, err)
		}
		return uint64(v), nil
	case 0xFE:
		v, err := c.ReadU32LE()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBadVarint, err)
		}
		return uint64(v), nil
	case 0xFF:
		v, err := c.ReadU64LE()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBadVarint, err)
		}
		return v, nil
	default:
		return uint64(prefix), nil
	}
}

func (c *byteCursor) Write(b []byte) {
	c.buf = append(c.buf, b...)
}

// WriteReverse appends b in reversed order.
func (c *byteCursor) WriteReverse(b []byte) {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	c.buf = append(c.buf, out...)
}

func (c *byteCursor) WriteU8(v byte) {
	c.buf = append(c.buf, v)
}

func (c *byteCursor) WriteU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	c.buf = append(c.buf, b[:]...)
}

func (c *byteCursor) WriteU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	c.buf = append(c.buf, b[:]...)
}

// WriteVarint encodes n using the Bitcoin varint scheme.
func (c *byteCursor) WriteVarint(n uint64) {
	switch {
	case n < 0xFD:
		c.WriteU8(byte(n))
	case n <= 0xFFFF:
		c.WriteU8(0xFD)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		c.buf = append(c.buf, b[:]...)
	case n <= 0xFFFFFFFF:
		c.WriteU8(0xFE)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n))
		c.buf = append(c.buf, b[:]...)
	default:
		c.WriteU8(0xFF)
		c.WriteU64LE(n)
	}
}

// varintLen returns the number of bytes WriteVarint(n) would emit, used by
// the FeeModel size estimate (estimateSize) so it need not materialize the
// cursor.
func varintLen(n uint64) int {
	switch {
	case n < 0xFD:
		return 1
	case n <= 0xFFFF:
		return 3
	case n <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}

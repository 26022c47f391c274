// Package bitutil provides typed, bounds-checked reads of big/little-endian
// integers and floats from a byte buffer, plus the bit-level extractors
// RTCM and AIS decoding rides on.
package bitutil

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned whenever a requested read would step past the
// end of the supplied buffer.
var ErrOutOfRange = errors.New("bitutil: out of range")

func oobErr(offset, width, buflen int) error {
	return fmt.Errorf("%w: offset=%d width=%d buflen=%d", ErrOutOfRange, offset, width, buflen)
}

// U8 reads an unsigned byte at offset.
func U8(buf []byte, offset int) (uint8, error) {
	if offset < 0 || offset+1 > len(buf) {
		return 0, oobErr(offset, 1, len(buf))
	}
	return buf[offset], nil
}

// U16BE reads a big-endian uint16 at offset.
func U16BE(buf []byte, offset int) (uint16, error) {
	if offset < 0 || offset+2 > len(buf) {
		return 0, oobErr(offset, 2, len(buf))
	}
	return uint16(buf[offset])<<8 | uint16(buf[offset+1]), nil
}

// U16LE reads a little-endian uint16 at offset.
func U16LE(buf []byte, offset int) (uint16, error) {
	if offset < 0 || offset+2 > len(buf) {
		return 0, oobErr(offset, 2, len(buf))
	}
	return uint16(buf[offset+1])<<8 | uint16(buf[offset]), nil
}

// U24BE reads a big-endian 24-bit unsigned integer at offset.
func U24BE(buf []byte, offset int) (uint32, error) {
	if offset < 0 || offset+3 > len(buf) {
		return 0, oobErr(offset, 3, len(buf))
	}
	return uint32(buf[offset])<<16 | uint32(buf[offset+1])<<8 | uint32(buf[offset+2]), nil
}

// U32BE reads a big-endian uint32 at offset.
func U32BE(buf []byte, offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(buf) {
		return 0, oobErr(offset, 4, len(buf))
	}
	return uint32(buf[offset])<<24 | uint32(buf[offset+1])<<16 | uint32(buf[offset+2])<<8 | uint32(buf[offset+3]), nil
}

// U32LE reads a little-endian uint32 at offset.
func U32LE(buf []byte, offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(buf) {
		return 0, oobErr(offset, 4, len(buf))
	}
	return uint32(buf[offset+3])<<24 | uint32(buf[offset+2])<<16 | uint32(buf[offset+1])<<8 | uint32(buf[offset]), nil
}

// I16BE reads a big-endian, two's-complement int16 at offset.
func I16BE(buf []byte, offset int) (int16, error) {
	v, err := U16BE(buf, offset)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}

// I16LE reads a little-endian, two's-complement int16 at offset.
func I16LE(buf []byte, offset int) (int16, error) {
	v, err := U16LE(buf, offset)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}

// I32BE reads a big-endian, two's-complement int32 at offset.
func I32BE(buf []byte, offset int) (int32, error) {
	v, err := U32BE(buf, offset)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// I32LE reads a little-endian, two's-complement int32 at offset.
func I32LE(buf []byte, offset int) (int32, error) {
	v, err := U32LE(buf, offset)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// F32LE reads a little-endian IEEE-754 single at offset.
func F32LE(buf []byte, offset int) (float32, error) {
	v, err := U32LE(buf, offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F32BE reads a big-endian IEEE-754 single at offset.
func F32BE(buf []byte, offset int) (float32, error) {
	v, err := U32BE(buf, offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F64BE reads a big-endian IEEE-754 double at offset.
func F64BE(buf []byte, offset int) (float64, error) {
	if offset < 0 || offset+8 > len(buf) {
		return 0, oobErr(offset, 8, len(buf))
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits = bits<<8 | uint64(buf[offset+i])
	}
	return math.Float64frombits(bits), nil
}

// F64LE reads a little-endian IEEE-754 double at offset.
func F64LE(buf []byte, offset int) (float64, error) {
	if offset < 0 || offset+8 > len(buf) {
		return 0, oobErr(offset, 8, len(buf))
	}
	var bits uint64
	for i := 7; i >= 0; i-- {
		bits = bits<<8 | uint64(buf[offset+i])
	}
	return math.Float64frombits(bits), nil
}

// GetBitsU extracts an unsigned field of width bits starting at bit
// start (MSB-first, bit 0 is the high bit of buf[0]) from buf. This is
// the primitive RTCM v2/v3 and AIS bitfield decoders build on.
func GetBitsU(buf []byte, start, width int) (uint64, error) {
	if width <= 0 || width > 64 {
		return 0, fmt.Errorf("bitutil: invalid width %d", width)
	}
	if start < 0 || start+width > len(buf)*8 {
		return 0, oobErr(start, width, len(buf)*8)
	}
	var v uint64
	for i := 0; i < width; i++ {
		bitPos := start + i
		byteIdx := bitPos / 8
		bitIdx := 7 - uint(bitPos%8)
		bit := (buf[byteIdx] >> bitIdx) & 1
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

// GetBitsI extracts a signed, two's-complement field of width bits
// starting at bit start from buf.
func GetBitsI(buf []byte, start, width int) (int64, error) {
	v, err := GetBitsU(buf, start, width)
	if err != nil {
		return 0, err
	}
	if width == 64 {
		return int64(v), nil
	}
	signBit := uint64(1) << (width - 1)
	if v&signBit != 0 {
		return int64(v) - int64(signBit)<<1, nil
	}
	return int64(v), nil
}

package bitutil

import "fmt"

// UnpackSextets decodes AIS 6-bit ("sextet") armoring. Each ASCII byte in
// the payload, restricted to the range '0'..'w' used by AIVDM/AIVDO, is
// mapped back to a 6-bit value and the bits are appended MSB-first to the
// returned bitstream, packed into bytes (the last byte is left-padded with
// zero bits if the bit count is not a multiple of 8).
func UnpackSextets(payload string) ([]byte, int, error) {
	out := make([]byte, 0, (len(payload)*6+7)/8)
	var acc byte
	var accBits int
	totalBits := 0

	for i := 0; i < len(payload); i++ {
		c := payload[i]
		v := int(c) - 0x30
		if v < 0 {
			return nil, 0, fmt.Errorf("bitutil: invalid sextet char %q at %d", c, i)
		}
		if v >= 40 {
			v -= 0x08
		}
		if v < 0 || v > 0x3f {
			return nil, 0, fmt.Errorf("bitutil: sextet char %q at %d out of range", c, i)
		}

		for bit := 5; bit >= 0; bit-- {
			acc = acc<<1 | byte((v>>uint(bit))&1)
			accBits++
			totalBits++
			if accBits == 8 {
				out = append(out, acc)
				acc = 0
				accBits = 0
			}
		}
	}
	if accBits > 0 {
		acc <<= uint(8 - accBits)
		out = append(out, acc)
	}
	return out, totalBits, nil
}

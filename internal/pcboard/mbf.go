package pcboard

// MBFToUint32 converts a Microsoft Binary Format single precision value,
// as stored by BASIC programs, to an unsigned integer. The sign bit is
// ignored and any fraction is truncated.
func MBFToUint32(v uint32) uint32 {
	exp := int(v >> 24)
	if exp == 0 {
		return 0
	}
	mantissa := v&0x7FFFFF | 0x800000
	shift := exp - 152
	switch {
	case shift > 8:
		return 0 // overflows 32 bits
	case shift >= 0:
		return mantissa << shift
	case shift > -24:
		return mantissa >> -shift
	default:
		return 0
	}
}

// Uint32ToMBF converts n to Microsoft Binary Format single precision.
// Values above 2^24 lose their low bits.
func Uint32ToMBF(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	exp := 152
	for n >= 1<<24 {
		n >>= 1
		exp++
	}
	for n < 1<<23 {
		n <<= 1
		exp--
	}
	return uint32(exp)<<24 | n&0x7FFFFF
}

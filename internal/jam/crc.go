package jam

import "hash/crc32"

// crcTable is the IEEE CRC32 table used by JAM, computed once at init time.
var crcTable = crc32.MakeTable(crc32.IEEE)

// CRC32 is the JAM checksum primitive: IEEE polynomial, seed 0xFFFFFFFF,
// no final inversion. CRC32(nil) == CRCSentinel.
func CRC32(data []byte) uint32 {
	return ^crc32.Checksum(data, crcTable)
}

// CRC32String returns the CRC32 of s with only A-Z lowercased. The folding
// is not locale-aware; bytes outside A-Z are hashed as-is.
func CRC32String(s string) uint32 {
	return crcLower([]byte(s))
}

// crcLower folds A-Z in place and hashes b.
func crcLower(b []byte) uint32 {
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return CRC32(b)
}

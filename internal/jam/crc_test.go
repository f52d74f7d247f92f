package jam

import "testing"

func TestCRC32String(t *testing.T) {
	// Verify basic properties: same input = same output, case insensitive for A-Z
	c1 := CRC32String("hello")
	c2 := CRC32String("hello")
	if c1 != c2 {
		t.Error("same input should produce same CRC")
	}

	// A-Z case insensitivity
	c3 := CRC32String("Hello")
	c4 := CRC32String("HELLO")
	if c3 != c4 {
		t.Error("A-Z should be case insensitive")
	}

	// Different strings should produce different CRCs
	c5 := CRC32String("alice")
	c6 := CRC32String("bob")
	if c5 == c6 {
		t.Error("different strings should produce different CRCs")
	}

	// The empty string hashes to the sentinel
	if c7 := CRC32String(""); c7 != CRCSentinel {
		t.Errorf("empty string CRC = %08x, want %08x", c7, uint32(CRCSentinel))
	}
}

func TestCRC32KnownValues(t *testing.T) {
	// Standard CRC-32 of "123456789" is 0xCBF43926; JAM skips the final
	// inversion.
	if got, want := CRC32([]byte("123456789")), ^uint32(0xCBF43926); got != want {
		t.Errorf("CRC32(123456789) = %08x, want %08x", got, want)
	}
}

func TestCRC32StringOnlyFoldsASCII(t *testing.T) {
	// Latin-1 capitals are hashed as-is.
	upper := CRC32String("\xc4")
	lower := CRC32String("\xe4")
	if upper == lower {
		t.Error("non-ASCII letters should not be folded")
	}
	// Invalid UTF-8 is hashed byte for byte.
	if got, want := CRC32String("A\xff"), CRC32([]byte("a\xff")); got != want {
		t.Errorf("CRC32String(A\\xff) = %08x, want %08x", got, want)
	}
}

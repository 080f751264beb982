package checksum

import (
	"testing"
)

func TestChecksumRFC1071Example(t *testing.T) {
	// RFC 1071 section 3 example words: 0001 f203 f4f5 f6f7, sum ddf2.
	b := []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}
	if got := Checksum(b); got != ^uint16(0xddf2) {
		t.Fatalf("Checksum = %#04x, want %#04x", got, ^uint16(0xddf2))
	}
}

func TestOddLengthEqualsZeroPadded(t *testing.T) {
	odd := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03}
	even := append(append([]byte{}, odd...), 0)
	if Sum(odd) != Sum(even) {
		t.Fatalf("Sum(odd) = %#x, Sum(padded) = %#x", Sum(odd), Sum(even))
	}
	if Checksum(odd) != Checksum(even) {
		t.Fatalf("Checksum(odd) = %#04x, Checksum(padded) = %#04x", Checksum(odd), Checksum(even))
	}
}

func TestChecksumVerifiesToZero(t *testing.T) {
	b := []byte{0x45, 0x00, 0x00, 0x1c, 0x12, 0x34, 0x00, 0x00, 0x40, 0x11,
		0x00, 0x00, 0x0a, 0x00, 0x00, 0x01, 0x0a, 0x00, 0x00, 0x02}
	sum := Checksum(b)
	b[10], b[11] = byte(sum>>8), byte(sum)
	if got := Checksum(b); got != 0 {
		t.Fatalf("checksum over data including its checksum = %#04x, want 0", got)
	}
}

func TestFoldCarries(t *testing.T) {
	if got := Fold(0xffff, 0x0001); got != ^uint16(0x0001) {
		t.Fatalf("Fold(0xffff, 1) = %#04x", got)
	}
	if got := Fold(); got != 0xffff {
		t.Fatalf("Fold() = %#04x, want 0xffff", got)
	}
}

// Package checksum implements the internet one's complement checksum
// shared by the IPv4, ICMP and UDP code.
package checksum

// Sum adds b as a sequence of big-endian 16-bit words. An odd trailing
// byte is summed as if followed by a zero byte.
func Sum(b []byte) uint32 {
	var sum uint32 = 0
	for i, l := 0, len(b); i < l; i += 2 {
		sum += uint32(b[i]) << 8
		if i+1 < l {
			sum += uint32(b[i+1])
		}
	}
	return sum
}

// Fold adds partial sums, folds the carries back into the low 16 bits and
// returns the one's complement of the result.
func Fold(s ...uint32) uint16 {
	sum := uint32(0)
	for _, v := range s {
		sum += v
	}
	for sum>>16 != 0 {
		sum = sum>>16 + sum&0xffff
	}
	sum = ^sum
	return uint16(sum)
}

// Checksum returns the internet checksum of b.
func Checksum(b []byte) uint16 {
	return Fold(Sum(b))
}

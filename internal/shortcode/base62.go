package shortcode

import "math/big"

// alphabet orders digits, then lowercase, then uppercase. The order is part
// of the code format: changing it would re-map every previously issued code.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var base62 = big.NewInt(62)

// encodeBase62 converts a non-negative arbitrary-precision integer to its
// base62 representation. Zero encodes as "0".
func encodeBase62(n *big.Int) string {
	if n.Sign() == 0 {
		return string(alphabet[0])
	}

	// 62^5 > 2^29, so digits/5 bytes is always enough.
	buf := make([]byte, 0, n.BitLen()/5+1)

	n = new(big.Int).Set(n)
	rem := new(big.Int)

	for n.Sign() > 0 {
		n.QuoRem(n, base62, rem)
		buf = append(buf, alphabet[rem.Int64()])
	}

	// Digits were produced least-significant first.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf)
}

// encodeBase62Uint is a convenience wrapper for values that fit in uint64.
func encodeBase62Uint(n uint64) string {
	return encodeBase62(new(big.Int).SetUint64(n))
}

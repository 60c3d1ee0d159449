// internal/fixedpoint/u128.go
package fixedpoint

import (
	"math/big"

	bin "github.com/gagliardetto/binary"
)

// Scale is the fixed-point multiplier of accumulator values.
const Scale uint64 = 1_000_000_000_000

var bigScale = new(big.Int).SetUint64(Scale)

// ScaleBig returns Scale as a fresh big.Int.
func ScaleBig() *big.Int {
	return new(big.Int).Set(bigScale)
}

// ZeroU128 returns a little endian zero value.
func ZeroU128() bin.Uint128 {
	return *bin.NewUint128LittleEndian()
}

// U128ToBig converts u into a big.Int.
func U128ToBig(u bin.Uint128) *big.Int {
	out := new(big.Int).SetUint64(u.Hi)
	out.Lsh(out, 64)
	return out.Or(out, new(big.Int).SetUint64(u.Lo))
}

// U128FromBig narrows v into 128 bits.
func U128FromBig(v *big.Int) (bin.Uint128, error) {
	if v.Sign() < 0 || v.BitLen() > 128 {
		return bin.Uint128{}, ErrMathOverflow
	}
	u := ZeroU128()
	u.Lo = new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0))).Uint64()
	u.Hi = new(big.Int).Rsh(v, 64).Uint64()
	return u, nil
}

// U128Cmp compares a and b like big.Int.Cmp.
func U128Cmp(a, b bin.Uint128) int {
	switch {
	case a.Hi > b.Hi:
		return 1
	case a.Hi < b.Hi:
		return -1
	case a.Lo > b.Lo:
		return 1
	case a.Lo < b.Lo:
		return -1
	}
	return 0
}

// U128String renders u in base 10.
func U128String(u bin.Uint128) string {
	return U128ToBig(u).String()
}

// U128FromString parses a base 10 value.
func U128FromString(s string) (bin.Uint128, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return bin.Uint128{}, ErrMathOverflow
	}
	return U128FromBig(v)
}

package fixedpoint

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedArithmetic(t *testing.T) {
	sum, err := Add(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = Add(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrMathOverflow)

	_, err = Sub(1, 2)
	assert.ErrorIs(t, err, ErrMathOverflow)

	_, err = Mul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrMathOverflow)

	prod, err := Mul(1<<32, 1<<31)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), prod)

	assert.Equal(t, uint64(0), SaturatingSub(5, 9))
	assert.Equal(t, uint64(4), SaturatingSub(9, 5))
	assert.Equal(t, uint64(2), Min(7, 2, 9))
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name     string
		x, y, d  uint64
		rounding Rounding
		want     uint64
		wantErr  bool
	}{
		{"exact", 10, 20, 5, RoundDown, 40, false},
		{"floor", 10, 3, 4, RoundDown, 7, false},
		{"ceil", 10, 3, 4, RoundUp, 8, false},
		{"wide intermediate", math.MaxUint64, math.MaxUint64, math.MaxUint64, RoundDown, math.MaxUint64, false},
		{"zero denominator", 1, 1, 0, RoundDown, 0, true},
		{"result too wide", math.MaxUint64, 2, 1, RoundDown, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.x, tt.y, tt.d, tt.rounding)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMathOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulDivBig(t *testing.T) {
	got, err := MulDivBig(big.NewInt(7), big.NewInt(3), big.NewInt(2), RoundUp)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.Int64())

	_, err = MulDivBig(big.NewInt(7), big.NewInt(3), big.NewInt(0), RoundDown)
	assert.ErrorIs(t, err, ErrMathOverflow)

	_, err = BigToUint64(new(big.Int).Lsh(big.NewInt(1), 64))
	assert.ErrorIs(t, err, ErrMathOverflow)
}

func TestU128RoundTrip(t *testing.T) {
	v := new(big.Int).Lsh(big.NewInt(1), 100)
	v.Add(v, big.NewInt(12345))

	u, err := U128FromBig(v)
	require.NoError(t, err)
	assert.Equal(t, 0, U128ToBig(u).Cmp(v))
	assert.Equal(t, v.String(), U128String(u))

	parsed, err := U128FromString(v.String())
	require.NoError(t, err)
	assert.Equal(t, 0, U128Cmp(u, parsed))

	_, err = U128FromBig(new(big.Int).Lsh(big.NewInt(1), 128))
	assert.ErrorIs(t, err, ErrMathOverflow)

	one, err := U128FromBig(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, -1, U128Cmp(one, u))

	_, err = U128FromString("1.5")
	assert.ErrorIs(t, err, ErrMathOverflow)
	assert.Equal(t, 1, U128Cmp(u, ZeroU128()))
}

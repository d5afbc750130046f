package decimal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	cases := []string{"0", "1", "-1", "3.14", "-3.14", "0.001", "100.00"}
	for _, s := range cases {
		d, err := Parse(s)
		require.NoError(t, err, s)
		require.Equal(t, s, d.String(), s)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	for _, s := range []string{"", "+", "-", ".", "1.2.3", "abc", "1x"} {
		_, err := Parse(s)
		require.Error(t, err, s)
		var numErr *NumError
		require.ErrorAs(t, err, &numErr)
		require.Equal(t, ErrSyntax, numErr.Err)
	}
}

func TestParseRangeError(t *testing.T) {
	_, err := Parse("99999999999999999999999999")
	require.Error(t, err)
	var numErr *NumError
	require.ErrorAs(t, err, &numErr)
	require.Equal(t, ErrRange, numErr.Err)
}

func TestAddAlignsScale(t *testing.T) {
	a := MustParse("1.5")
	b := MustParse("2.25")
	require.Equal(t, "3.75", Add(a, b).String())
}

func TestSubNegativeResult(t *testing.T) {
	a := MustParse("1.00")
	b := MustParse("2.5")
	require.Equal(t, "-1.50", Sub(a, b).String())
}

func TestMulCombinesScale(t *testing.T) {
	a := MustParse("1.5")
	b := MustParse("2.5")
	got := Mul(a, b)
	require.Equal(t, int64(375), got.Coeff())
	require.Equal(t, 2, got.Scale())
	require.Equal(t, "3.75", got.String())
}

func TestCmp(t *testing.T) {
	require.Equal(t, 0, Cmp(MustParse("1.50"), MustParse("1.5")))
	require.Equal(t, -1, Cmp(MustParse("1.4"), MustParse("1.5")))
	require.Equal(t, 1, Cmp(MustParse("1.6"), MustParse("1.5")))
}

func TestSign(t *testing.T) {
	require.Equal(t, 1, MustParse("0.1").Sign())
	require.Equal(t, -1, MustParse("-0.1").Sign())
	require.Equal(t, 0, Zero.Sign())
}

func TestRescaleRounds(t *testing.T) {
	got := Add(MustParse("1.25"), New(0, 1))
	require.Equal(t, "1.25", got.String())

	sum := Add(MustParse("0.05"), MustParse("0.05"))
	require.Equal(t, "0.10", sum.String())

	require.Equal(t, "1.3", rescale(MustParse("1.25"), 1).String())
}

func TestMustParsePanicsOnBadInput(t *testing.T) {
	require.Panics(t, func() { MustParse("nope") })
}

package algebra

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLagrangeAtZero(t *testing.T) {
	field, group := toyDomain(t)

	// The polynomial x^2 - 1 through nodes 1, 2, 3 evaluates to -1 at zero.
	xs := []FieldElement{field.FromUint64(1), field.FromUint64(2), field.FromUint64(3)}
	ys := []FieldElement{field.FromUint64(0), field.FromUint64(3), field.FromUint64(8)}

	atZero, err := FieldLagrangeAtZero(xs, ys, field)
	require.NoError(t, err)
	assert.True(t, atZero.Equal(field.FromUint64(126)))

	groupYs := make([]GroupElement, len(ys))
	for i, y := range ys {
		groupYs[i] = group.GExp(y)
	}
	groupAtZero, err := GroupLagrangeAtZero(xs, groupYs, field, group)
	require.NoError(t, err)
	assert.True(t, groupAtZero.Equal(group.GExp(field.FromUint64(126))))
}

func TestLagrangeCoefficient(t *testing.T) {
	field, _ := toyDomain(t)

	xs := []FieldElement{field.FromUint64(1), field.FromUint64(2), field.FromUint64(3)}

	w, err := CoefficientAtZero(xs, field.FromUint64(1), field)
	require.NoError(t, err)
	assert.True(t, w.Equal(field.FromUint64(3)))

	_, err = CoefficientAtZero(xs, field.FromUint64(4), field)
	assert.ErrorIs(t, err, ErrNodeNotPresent)

	dup := []FieldElement{field.FromUint64(1), field.FromUint64(2), field.FromUint64(2)}
	_, err = CoefficientAtZero(dup, field.FromUint64(1), field)
	assert.ErrorIs(t, err, ErrNodesNotUnique)
}

func TestLagrangeRejectsBadInput(t *testing.T) {
	field, group := toyDomain(t)

	xs := []FieldElement{field.FromUint64(1), field.FromUint64(2), field.FromUint64(3)}
	ys := []FieldElement{field.FromUint64(0), field.FromUint64(3), field.FromUint64(8)}

	_, err := FieldLagrangeAtZero(xs[:2], ys, field)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	dup := []FieldElement{field.FromUint64(1), field.FromUint64(2), field.FromUint64(2)}
	_, err = FieldLagrangeAtZero(dup, ys, field)
	assert.ErrorIs(t, err, ErrNodesNotUnique)

	groupYs := []GroupElement{group.GExp(ys[0]), group.GExp(ys[1]), group.GExp(ys[2])}
	_, err = GroupLagrangeAtZero(xs, groupYs[:2], field, group)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = GroupLagrangeAtZero(nil, nil, field, group)
	assert.ErrorIs(t, err, ErrInterpolationDeg)
}

func TestDiscreteLog(t *testing.T) {
	// Medium toy domain: 32-bit q, 128-bit p. Large enough that the
	// baby-step table does not cover the whole group.
	q, ok := new(big.Int).SetString("FFFFFFFB", 16)
	require.True(t, ok)
	p, ok := new(big.Int).SetString("FFFFFFFF93C46B0FB6C381D8FFFFFFFF", 16)
	require.True(t, ok)
	r, ok := new(big.Int).SetString("000000010000000493C46B269999999A", 16)
	require.True(t, ok)
	g, ok := new(big.Int).SetString("29D995240DFB12B36FD0F8CCE06B657D", 16)
	require.True(t, ok)

	field := NewScalarField(q)
	group := NewGroup(p, r, g, field)

	dl := NewDiscreteLog(group.Generator(), group)

	for _, exp := range []uint64{0, 1, 41, 65535, 65536, 1 << 20} {
		y := group.GExp(field.FromUint64(exp))
		got, ok := dl.Find(y.Big())
		require.True(t, ok, "exponent %d", exp)
		assert.Equal(t, exp, got)

		fe, ok := dl.FindElement(y, field)
		require.True(t, ok)
		assert.True(t, fe.Equal(field.FromUint64(exp)))
	}
}

func TestDiscreteLogSmallOrderBase(t *testing.T) {
	// Base order 127, far below the table size. The table must stop
	// at cycle closure: Find(g^1) is 1, not 1 plus a multiple of 127.
	field, group := toyDomain(t)

	dl := NewDiscreteLog(group.Generator(), group)

	for _, exp := range []uint64{0, 1, 2, 73, 126} {
		y := group.GExp(field.FromUint64(exp))
		got, ok := dl.Find(y.Big())
		require.True(t, ok, "exponent %d", exp)
		assert.Equal(t, exp, got)
	}

	// Exponents past the order come back reduced.
	y := group.GExp(field.FromUint64(200))
	got, ok := dl.Find(y.Big())
	require.True(t, ok)
	assert.Equal(t, uint64(200%127), got)
}

package algebra

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Toy domain small enough to check against hand-computed values:
// q = 127, p = 59183 = 127*466 + 1, g = 32616.
func toyDomain(t *testing.T) (*ScalarField, *Group) {
	t.Helper()
	field := NewScalarField(big.NewInt(127))
	group := NewGroup(big.NewInt(59183), big.NewInt(466), big.NewInt(32616), field)
	require.NoError(t, field.Validate())
	require.NoError(t, group.Validate())
	return field, group
}

func TestFieldArithmetic(t *testing.T) {
	field, _ := toyDomain(t)

	a := field.FromUint64(100)
	b := field.FromUint64(50)

	assert.True(t, field.Add(a, b).Equal(field.FromUint64(23)))
	assert.True(t, field.Sub(b, a).Equal(field.FromUint64(77)))
	assert.True(t, field.Mul(a, b).Equal(field.FromUint64(5000%127)))
	assert.True(t, field.Neg(field.One()).Equal(field.FromUint64(126)))

	inv, err := field.Inv(a)
	require.NoError(t, err)
	assert.True(t, field.Mul(a, inv).Equal(field.One()))

	_, err = field.Inv(field.Zero())
	assert.ErrorIs(t, err, ErrNotInvertible)
}

func TestFieldReduction(t *testing.T) {
	field, _ := toyDomain(t)

	// 300 = 2*127 + 46
	assert.True(t, field.FromUint64(300).Equal(field.FromUint64(46)))
	assert.True(t, field.FromBytes([]byte{0x01, 0x2C}).Equal(field.FromUint64(46)))
	assert.False(t, field.IsValid(FieldElement{big.NewInt(127)}))
	assert.True(t, field.IsValid(field.FromUint64(126)))
}

func TestGroupExponentiation(t *testing.T) {
	field, group := toyDomain(t)

	// Sage: g^14 = 38489, g^115 * g^14 = g^129 = 48214.
	g14 := group.GExp(field.FromUint64(14))
	assert.Equal(t, "38489", g14.String())

	g115 := group.GExp(field.FromUint64(115))
	assert.Equal(t, "48214", group.Mul(g115, g14).String())

	inv, err := group.Inv(g115)
	require.NoError(t, err)
	assert.Equal(t, "58095", inv.String())
	assert.True(t, group.Mul(g115, inv).IsOne())
}

func TestGroupMembership(t *testing.T) {
	field, group := toyDomain(t)

	assert.True(t, group.IsValid(group.Generator()))
	assert.True(t, group.IsValid(group.GExp(field.FromUint64(77))))
	assert.False(t, group.IsValid(GroupElement{big.NewInt(12345)}))
	assert.False(t, group.IsValid(GroupElement{big.NewInt(0)}))

	_, err := group.ValidFromBytes(big.NewInt(12345).Bytes())
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestValidateRejectsBadDomains(t *testing.T) {
	field := NewScalarField(big.NewInt(127))

	// 125 is not prime.
	assert.Error(t, NewScalarField(big.NewInt(125)).Validate())

	// p = 59185 is not q*r + 1.
	bad := NewGroup(big.NewInt(59185), big.NewInt(466), big.NewInt(32616), field)
	assert.Error(t, bad.Validate())

	// The identity cannot generate the subgroup.
	bad = NewGroup(big.NewInt(59183), big.NewInt(466), big.NewInt(1), field)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidGenerator)

	// p = 68891 = 83*830 + 1 but the cofactor is divisible by q.
	field83 := NewScalarField(big.NewInt(83))
	bad = NewGroup(big.NewInt(68891), big.NewInt(830), big.NewInt(59398), field83)
	assert.Error(t, bad.Validate())
}

func TestFixedLengthEncoding(t *testing.T) {
	field, group := toyDomain(t)

	assert.Equal(t, 1, field.ByteLen())
	assert.Equal(t, 2, group.ByteLen())

	x := field.FromUint64(5)
	assert.Equal(t, []byte{0x05}, field.Bytes(x))
	assert.True(t, field.FromBytes(field.Bytes(x)).Equal(x))

	y := group.GExp(field.FromUint64(14))
	b := group.Bytes(y)
	assert.Len(t, b, 2)
	assert.True(t, group.FromBytes(b).Equal(y))
}

func TestToBytesBE(t *testing.T) {
	assert.Equal(t, []byte{0xFF}, ToBytesBE(big.NewInt(0xFF), 1))
	assert.Equal(t, []byte{0x00, 0xFF}, ToBytesBE(big.NewInt(0xFF), 2))
	assert.Equal(t, []byte{0x00, 0x00}, ToBytesBE(big.NewInt(0), 2))
}

func TestIntFromHex(t *testing.T) {
	v, err := IntFromHex("FF FF\n\tFF")
	require.NoError(t, err)
	assert.Equal(t, int64(0xFFFFFF), v.Int64())

	_, err = IntFromHex("not hex")
	assert.Error(t, err)
}

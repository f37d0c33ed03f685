// Package algebra implements the arithmetic domains of the election:
// the prime field Z_q and the order-q multiplicative subgroup of Z_p*.
package algebra

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Primality is checked probabilistically. 64 Miller-Rabin rounds put the
// error probability far below the security level of the parameters.
const primalityRounds = 64

var (
	ErrOutOfRange       = errors.New("algebra: value out of range")
	ErrNotInvertible    = errors.New("algebra: value is not invertible")
	ErrInvalidField     = errors.New("algebra: field order is not prime")
	ErrInvalidGroup     = errors.New("algebra: group parameters are inconsistent")
	ErrInvalidGenerator = errors.New("algebra: generator does not generate the subgroup")
)

// FieldElement is an integer in [0, q). The zero value is the field's zero.
// Elements are immutable: every operation returns a fresh element.
type FieldElement struct {
	v *big.Int
}

// GroupElement is an element of the order-q subgroup of Z_p*.
type GroupElement struct {
	v *big.Int
}

// ScalarField is the field Z_q of exponents.
type ScalarField struct {
	order   *big.Int
	byteLen int
}

// Group is the multiplicative subgroup of Z_p* of prime order q,
// with cofactor r = (p-1)/q and a fixed generator g.
type Group struct {
	modulus   *big.Int
	cofactor  *big.Int
	generator *big.Int
	order     *big.Int
	byteLen   int
}

// NewScalarField constructs Z_q without checking primality of q.
// Callers holding untrusted parameters must call Validate.
func NewScalarField(order *big.Int) *ScalarField {
	q := new(big.Int).Set(order)
	return &ScalarField{
		order:   q,
		byteLen: (q.BitLen() + 7) / 8,
	}
}

// NewScalarFieldFromHex parses the field order from a hex string that may
// contain whitespace.
func NewScalarFieldFromHex(orderHex string) (*ScalarField, error) {
	q, err := IntFromHex(orderHex)
	if err != nil {
		return nil, err
	}
	return NewScalarField(q), nil
}

// Validate checks that the field order is prime.
func (f *ScalarField) Validate() error {
	if !f.order.ProbablyPrime(primalityRounds) {
		return ErrInvalidField
	}
	return nil
}

// Order returns a copy of q.
func (f *ScalarField) Order() *big.Int { return new(big.Int).Set(f.order) }

// ByteLen is the length of the fixed big-endian encoding, ceil(bits(q)/8).
func (f *ScalarField) ByteLen() int { return f.byteLen }

func (f *ScalarField) Zero() FieldElement { return FieldElement{big.NewInt(0)} }
func (f *ScalarField) One() FieldElement  { return FieldElement{big.NewInt(1)} }

// FromBytes interprets b as a big-endian integer reduced mod q.
func (f *ScalarField) FromBytes(b []byte) FieldElement {
	v := new(big.Int).SetBytes(b)
	return FieldElement{v.Mod(v, f.order)}
}

// FromInt reduces v mod q. Negative values wrap around.
func (f *ScalarField) FromInt(v *big.Int) FieldElement {
	return FieldElement{new(big.Int).Mod(v, f.order)}
}

// FromUint64 lifts a small integer into the field.
func (f *ScalarField) FromUint64(v uint64) FieldElement {
	return f.FromInt(new(big.Int).SetUint64(v))
}

// IsValid reports whether x is in [0, q).
func (f *ScalarField) IsValid(x FieldElement) bool {
	return x.v != nil && x.v.Sign() >= 0 && x.v.Cmp(f.order) < 0
}

func (f *ScalarField) Add(a, b FieldElement) FieldElement {
	v := new(big.Int).Add(a.v, b.v)
	return FieldElement{v.Mod(v, f.order)}
}

func (f *ScalarField) Sub(a, b FieldElement) FieldElement {
	v := new(big.Int).Sub(a.v, b.v)
	return FieldElement{v.Mod(v, f.order)}
}

func (f *ScalarField) Mul(a, b FieldElement) FieldElement {
	v := new(big.Int).Mul(a.v, b.v)
	return FieldElement{v.Mod(v, f.order)}
}

func (f *ScalarField) Neg(a FieldElement) FieldElement {
	v := new(big.Int).Neg(a.v)
	return FieldElement{v.Mod(v, f.order)}
}

// Inv returns a^-1 mod q, or ErrNotInvertible for zero.
func (f *ScalarField) Inv(a FieldElement) (FieldElement, error) {
	v := new(big.Int).ModInverse(a.v, f.order)
	if v == nil {
		return FieldElement{}, ErrNotInvertible
	}
	return FieldElement{v}, nil
}

// Pow computes a^e mod q. Used for the powers l^j in share validation.
func (f *ScalarField) Pow(a FieldElement, e uint64) FieldElement {
	v := new(big.Int).Exp(a.v, new(big.Int).SetUint64(e), f.order)
	return FieldElement{v}
}

// Bytes encodes x as exactly ByteLen big-endian bytes.
func (f *ScalarField) Bytes(x FieldElement) []byte {
	return ToBytesBE(x.v, f.byteLen)
}

// Big returns a copy of the element's integer value.
func (x FieldElement) Big() *big.Int {
	if x.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x.v)
}

func (x FieldElement) Equal(y FieldElement) bool {
	if x.v == nil || y.v == nil {
		return x.v == y.v
	}
	return x.v.Cmp(y.v) == 0
}

func (x FieldElement) IsZero() bool { return x.v == nil || x.v.Sign() == 0 }

// Uint64 converts a small element back to an integer.
// The second result is false when the value does not fit.
func (x FieldElement) Uint64() (uint64, bool) {
	if x.v == nil {
		return 0, true
	}
	if !x.v.IsUint64() {
		return 0, false
	}
	return x.v.Uint64(), true
}

func (x FieldElement) String() string {
	if x.v == nil {
		return "0"
	}
	return x.v.String()
}

// MarshalJSON encodes the element as an uppercase hex string of
// natural width. Fixed-width encoding is only for hash inputs.
func (x FieldElement) MarshalJSON() ([]byte, error) {
	return marshalHex(x.v)
}

func (x *FieldElement) UnmarshalJSON(b []byte) error {
	v, err := unmarshalHex(b)
	if err != nil {
		return err
	}
	x.v = v
	return nil
}

// NewGroup constructs the group without validation.
// Callers holding untrusted parameters must call Validate.
func NewGroup(modulus, cofactor, generator *big.Int, field *ScalarField) *Group {
	p := new(big.Int).Set(modulus)
	return &Group{
		modulus:   p,
		cofactor:  new(big.Int).Set(cofactor),
		generator: new(big.Int).Set(generator),
		order:     field.Order(),
		byteLen:   (p.BitLen() + 7) / 8,
	}
}

// NewGroupFromHex parses p, r and g from hex strings that may contain
// whitespace.
func NewGroupFromHex(modulusHex, cofactorHex, generatorHex string, field *ScalarField) (*Group, error) {
	p, err := IntFromHex(modulusHex)
	if err != nil {
		return nil, err
	}
	r, err := IntFromHex(cofactorHex)
	if err != nil {
		return nil, err
	}
	g, err := IntFromHex(generatorHex)
	if err != nil {
		return nil, err
	}
	return NewGroup(p, r, g, field), nil
}

// Validate checks the group structure: p = q*r + 1 with p and q prime,
// q not dividing r, r even, and g a non-trivial element of order q.
func (g *Group) Validate() error {
	one := big.NewInt(1)

	pMinusOne := new(big.Int).Sub(g.modulus, one)
	qr := new(big.Int).Mul(g.order, g.cofactor)
	if qr.Cmp(pMinusOne) != 0 {
		return fmt.Errorf("%w: p != q*r + 1", ErrInvalidGroup)
	}
	if new(big.Int).Mod(g.cofactor, g.order).Sign() == 0 {
		return fmt.Errorf("%w: q divides the cofactor", ErrInvalidGroup)
	}
	if g.cofactor.Bit(0) != 0 {
		return fmt.Errorf("%w: cofactor is odd", ErrInvalidGroup)
	}
	if !g.order.ProbablyPrime(primalityRounds) {
		return fmt.Errorf("%w: q is not prime", ErrInvalidGroup)
	}
	if !g.modulus.ProbablyPrime(primalityRounds) {
		return fmt.Errorf("%w: p is not prime", ErrInvalidGroup)
	}
	if g.generator.Cmp(one) <= 0 || g.generator.Cmp(g.modulus) >= 0 {
		return ErrInvalidGenerator
	}
	if new(big.Int).Exp(g.generator, g.order, g.modulus).Cmp(one) != 0 {
		return ErrInvalidGenerator
	}
	return nil
}

// Modulus returns a copy of p.
func (g *Group) Modulus() *big.Int { return new(big.Int).Set(g.modulus) }

// Order returns a copy of q.
func (g *Group) Order() *big.Int { return new(big.Int).Set(g.order) }

// ByteLen is the length of the fixed big-endian encoding, ceil(bits(p)/8).
func (g *Group) ByteLen() int { return g.byteLen }

func (g *Group) One() GroupElement { return GroupElement{big.NewInt(1)} }

func (g *Group) Generator() GroupElement {
	return GroupElement{new(big.Int).Set(g.generator)}
}

// FromBytes interprets b as a big-endian integer reduced mod p.
// Subgroup membership is not checked; see IsValid.
func (g *Group) FromBytes(b []byte) GroupElement {
	v := new(big.Int).SetBytes(b)
	return GroupElement{v.Mod(v, g.modulus)}
}

// ValidFromBytes is FromBytes followed by a membership check.
func (g *Group) ValidFromBytes(b []byte) (GroupElement, error) {
	x := GroupElement{new(big.Int).SetBytes(b)}
	if !g.IsValid(x) {
		return GroupElement{}, ErrOutOfRange
	}
	return x, nil
}

// IsValid reports whether x is in [0, p) and satisfies x^q = 1 mod p.
func (g *Group) IsValid(x GroupElement) bool {
	if x.v == nil || x.v.Sign() <= 0 || x.v.Cmp(g.modulus) >= 0 {
		return false
	}
	return new(big.Int).Exp(x.v, g.order, g.modulus).Cmp(big.NewInt(1)) == 0
}

func (g *Group) Mul(x, y GroupElement) GroupElement {
	v := new(big.Int).Mul(x.v, y.v)
	return GroupElement{v.Mod(v, g.modulus)}
}

// Exp computes x^e mod p for a field-element exponent.
func (g *Group) Exp(x GroupElement, e FieldElement) GroupElement {
	return GroupElement{new(big.Int).Exp(x.v, e.v, g.modulus)}
}

// ExpInt computes x^e mod p for an arbitrary non-negative exponent.
func (g *Group) ExpInt(x GroupElement, e *big.Int) GroupElement {
	return GroupElement{new(big.Int).Exp(x.v, e, g.modulus)}
}

// GExp computes g^e mod p.
func (g *Group) GExp(e FieldElement) GroupElement {
	return GroupElement{new(big.Int).Exp(g.generator, e.v, g.modulus)}
}

// Inv returns x^-1 mod p.
func (g *Group) Inv(x GroupElement) (GroupElement, error) {
	v := new(big.Int).ModInverse(x.v, g.modulus)
	if v == nil {
		return GroupElement{}, ErrNotInvertible
	}
	return GroupElement{v}, nil
}

// Bytes encodes x as exactly ByteLen big-endian bytes.
func (g *Group) Bytes(x GroupElement) []byte {
	return ToBytesBE(x.v, g.byteLen)
}

// Big returns a copy of the element's integer value.
func (x GroupElement) Big() *big.Int {
	if x.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x.v)
}

func (x GroupElement) Equal(y GroupElement) bool {
	if x.v == nil || y.v == nil {
		return x.v == y.v
	}
	return x.v.Cmp(y.v) == 0
}

func (x GroupElement) IsOne() bool {
	return x.v != nil && x.v.Cmp(big.NewInt(1)) == 0
}

func (x GroupElement) String() string {
	if x.v == nil {
		return "0"
	}
	return x.v.String()
}

func (x GroupElement) MarshalJSON() ([]byte, error) {
	return marshalHex(x.v)
}

func (x *GroupElement) UnmarshalJSON(b []byte) error {
	v, err := unmarshalHex(b)
	if err != nil {
		return err
	}
	x.v = v
	return nil
}

func marshalHex(v *big.Int) ([]byte, error) {
	if v == nil {
		v = new(big.Int)
	}
	return json.Marshal(strings.ToUpper(v.Text(16)))
}

func unmarshalHex(b []byte) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return IntFromHex(s)
}

// ToBytesBE encodes n big-endian, left-padded with zeros to length bytes.
// Values longer than length are returned at their natural width.
func ToBytesBE(n *big.Int, length int) []byte {
	b := n.Bytes()
	if len(b) >= length {
		if len(b) == 0 {
			return make([]byte, length)
		}
		return b
	}
	out := make([]byte, length)
	copy(out[length-len(b):], b)
	return out
}

// IntFromHex parses a big integer from hex that may contain whitespace,
// as the published parameter constants are formatted.
func IntFromHex(s string) (*big.Int, error) {
	cleaned := strings.Join(strings.Fields(s), "")
	v, ok := new(big.Int).SetString(cleaned, 16)
	if !ok {
		return nil, fmt.Errorf("algebra: invalid hex integer %q", s)
	}
	return v, nil
}

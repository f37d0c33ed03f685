package algebra

import (
	"math/big"
)

// dlogTableSize is the baby-step count m. The search covers exponents
// up to m^2 = 2^32, far beyond any realistic tally.
const dlogTableSize = 1 << 16

// DiscreteLog finds small discrete logarithms with respect to a fixed
// base using the baby-step giant-step algorithm. Building the table is
// expensive; reuse one instance per base.
type DiscreteLog struct {
	table   map[string]uint32
	base    *big.Int
	modulus *big.Int
	// steps is the number of baby steps taken. It falls short of
	// dlogTableSize when the base's order is smaller and the powers
	// cycled back to 1.
	steps uint64
}

// NewDiscreteLog precomputes the baby-step table for base within group.
func NewDiscreteLog(base GroupElement, group *Group) *DiscreteLog {
	p := group.Modulus()
	one := big.NewInt(1)
	b := base.Big()
	b.Mod(b, p)

	table := make(map[string]uint32, dlogTableSize)
	k := big.NewInt(1)
	steps := uint64(0)
	for j := uint32(0); j < dlogTableSize; j++ {
		table[string(k.Bytes())] = j
		steps++
		k = new(big.Int).Mul(k, b)
		k.Mod(k, p)
		// Stop at cycle closure so small-order bases keep the
		// minimal exponent for each power.
		if k.Cmp(one) == 0 {
			break
		}
	}
	return &DiscreteLog{table: table, base: b, modulus: p, steps: steps}
}

// Find returns x with base^x = y mod p, searching x < 2^32.
func (dl *DiscreteLog) Find(y *big.Int) (uint64, bool) {
	m := dl.steps
	giants := uint64(dlogTableSize)
	if m < dlogTableSize {
		// The table already covers the base's whole cycle.
		giants = 1
	}

	baseToM := new(big.Int).Exp(dl.base, new(big.Int).SetUint64(m), dl.modulus)
	baseToMinusM := new(big.Int).ModInverse(baseToM, dl.modulus)
	if baseToMinusM == nil {
		return 0, false
	}

	gamma := new(big.Int).Mod(y, dl.modulus)
	for i := uint64(0); i < giants; i++ {
		if j, ok := dl.table[string(gamma.Bytes())]; ok {
			return i*m + uint64(j), true
		}
		gamma.Mul(gamma, baseToMinusM)
		gamma.Mod(gamma, dl.modulus)
	}
	return 0, false
}

// FindElement resolves the discrete log of a group element as a field
// element. It fails when the base does not have order q or the log is
// out of the search range.
func (dl *DiscreteLog) FindElement(y GroupElement, field *ScalarField) (FieldElement, bool) {
	if new(big.Int).Exp(dl.base, field.Order(), dl.modulus).Cmp(big.NewInt(1)) != 0 {
		return FieldElement{}, false
	}
	x, ok := dl.Find(y.Big())
	if !ok {
		return FieldElement{}, false
	}
	return field.FromUint64(x), true
}

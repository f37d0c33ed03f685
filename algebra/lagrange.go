package algebra

import "errors"

var (
	ErrNodesNotUnique   = errors.New("algebra: interpolation nodes are not unique")
	ErrNodeNotPresent   = errors.New("algebra: node is not among the interpolation nodes")
	ErrLengthMismatch   = errors.New("algebra: nodes and values differ in length")
	ErrInterpolationDeg = errors.New("algebra: interpolation requires at least one node")
)

func nodesUnique(xs []FieldElement) bool {
	for i := range xs {
		for j := i + 1; j < len(xs); j++ {
			if xs[i].Equal(xs[j]) {
				return false
			}
		}
	}
	return true
}

// coefficientAtZeroUnchecked computes w_i = prod_{l != i} l/(l-i) mod q.
// Nodes equal to i contribute nothing because l-i is then not invertible.
func coefficientAtZeroUnchecked(xs []FieldElement, i FieldElement, field *ScalarField) FieldElement {
	w := field.One()
	for _, l := range xs {
		diff := field.Sub(l, i)
		inv, err := field.Inv(diff)
		if err != nil {
			continue
		}
		w = field.Mul(w, field.Mul(l, inv))
	}
	return w
}

// CoefficientAtZero computes the Lagrange coefficient at zero for node i
// over the node set xs. i must be one of the nodes and the nodes must be
// pairwise distinct.
func CoefficientAtZero(xs []FieldElement, i FieldElement, field *ScalarField) (FieldElement, error) {
	if !nodesUnique(xs) {
		return FieldElement{}, ErrNodesNotUnique
	}
	found := false
	for _, l := range xs {
		if l.Equal(i) {
			found = true
			break
		}
	}
	if !found {
		return FieldElement{}, ErrNodeNotPresent
	}
	return coefficientAtZeroUnchecked(xs, i, field), nil
}

// FieldLagrangeAtZero interpolates the polynomial through (xs, ys) and
// evaluates it at zero, all mod q.
func FieldLagrangeAtZero(xs, ys []FieldElement, field *ScalarField) (FieldElement, error) {
	if len(xs) != len(ys) {
		return FieldElement{}, ErrLengthMismatch
	}
	if len(xs) == 0 {
		return FieldElement{}, ErrInterpolationDeg
	}
	if !nodesUnique(xs) {
		return FieldElement{}, ErrNodesNotUnique
	}
	acc := field.Zero()
	for k, x := range xs {
		w := coefficientAtZeroUnchecked(xs, x, field)
		acc = field.Add(acc, field.Mul(w, ys[k]))
	}
	return acc, nil
}

// GroupLagrangeAtZero performs the interpolation in the exponent:
// given ys[k] = g^{P(xs[k])} it returns g^{P(0)}.
func GroupLagrangeAtZero(xs []FieldElement, ys []GroupElement, field *ScalarField, group *Group) (GroupElement, error) {
	if len(xs) != len(ys) {
		return GroupElement{}, ErrLengthMismatch
	}
	if len(xs) == 0 {
		return GroupElement{}, ErrInterpolationDeg
	}
	if !nodesUnique(xs) {
		return GroupElement{}, ErrNodesNotUnique
	}
	acc := group.One()
	for k, x := range xs {
		w := coefficientAtZeroUnchecked(xs, x, field)
		acc = group.Mul(acc, group.Exp(ys[k], w))
	}
	return acc, nil
}

// Package keyceremony implements the guardian key ceremony: secret
// polynomial generation, coefficient commitments with possession
// proofs, pairwise encrypted share exchange and the joint public key.
package keyceremony

import (
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/params"
)

var (
	ErrGuardianIndex      = errors.New("keyceremony: guardian index out of range")
	ErrCommitmentCount    = errors.New("keyceremony: wrong number of coefficient commitments")
	ErrCommitmentInvalid  = errors.New("keyceremony: coefficient commitment is not a valid group element")
	ErrProofInvalid       = errors.New("keyceremony: coefficient possession proof does not verify")
	ErrResponseOutOfRange = errors.New("keyceremony: proof response is not a field element")
)

// GuardianIndex is a 1-based guardian number in [1, n].
type GuardianIndex uint32

// Validate checks 1 <= i <= n.
func (i GuardianIndex) Validate(n uint32) error {
	if i < 1 || uint32(i) > n {
		return fmt.Errorf("%w: %d of %d", ErrGuardianIndex, i, n)
	}
	return nil
}

// CoefficientProof is a proof of possession of one secret polynomial
// coefficient. The challenge is stored unreduced as hash output bytes;
// verification compares recomputed hash bytes, not field elements.
type CoefficientProof struct {
	Challenge eghash.HValue        `json:"challenge"`
	Response  algebra.FieldElement `json:"response"`
}

// coefficientChallenge computes
// c_{i,j} = H(H_P; 0x10 | b(i,4) | b(j,4) | b(K_{i,j}) | b(h)).
func coefficientChallenge(hp eghash.HValue, group *algebra.Group, i GuardianIndex, j uint32, commitment, h algebra.GroupElement) eghash.HValue {
	return eghash.NewMessage(0x10).
		Uint32(uint32(i)).
		Uint32(j).
		GroupElement(commitment, group).
		GroupElement(h, group).
		Finish(hp)
}

func proveCoefficient(rng *csprng.Source, fixed *params.FixedParameters, hp eghash.HValue,
	i GuardianIndex, j uint32, coefficient algebra.FieldElement, commitment algebra.GroupElement) (CoefficientProof, error) {

	field, group := fixed.Field, fixed.Group

	u, err := rng.FieldElement(field)
	if err != nil {
		return CoefficientProof{}, err
	}
	h := group.GExp(u)

	c := coefficientChallenge(hp, group, i, j, commitment, h)
	cq := field.FromBytes(c[:])

	// v = u - c*a mod q
	v := field.Sub(u, field.Mul(cq, coefficient))
	return CoefficientProof{Challenge: c, Response: v}, nil
}

// Verify checks the proof against the published commitment: recompute
// h = g^v * K^c and compare the recomputed challenge bytes.
func (pf *CoefficientProof) Verify(fixed *params.FixedParameters, hp eghash.HValue,
	i GuardianIndex, j uint32, commitment algebra.GroupElement) error {

	field, group := fixed.Field, fixed.Group

	if !field.IsValid(pf.Response) {
		return ErrResponseOutOfRange
	}
	cq := field.FromBytes(pf.Challenge[:])
	h := group.Mul(group.GExp(pf.Response), group.Exp(commitment, cq))

	if coefficientChallenge(hp, group, i, j, commitment, h) != pf.Challenge {
		return fmt.Errorf("%w: guardian %d coefficient %d", ErrProofInvalid, i, j)
	}
	return nil
}

// GuardianSecretKey is a guardian's private ceremony state: the secret
// polynomial coefficients plus the publishable commitments and proofs.
type GuardianSecretKey struct {
	Index        GuardianIndex
	Name         string
	Coefficients []algebra.FieldElement
	Commitments  []algebra.GroupElement
	Proofs       []CoefficientProof
}

// GenerateGuardianSecretKey draws a fresh degree-(k-1) polynomial and
// proves possession of each coefficient.
func GenerateGuardianSecretKey(rng *csprng.Source, fixed *params.FixedParameters, hp eghash.HValue,
	i GuardianIndex, k uint32, name string) (*GuardianSecretKey, error) {

	if i < 1 {
		return nil, fmt.Errorf("%w: %d", ErrGuardianIndex, i)
	}
	if k < 1 {
		return nil, fmt.Errorf("keyceremony: threshold must be at least 1")
	}

	sk := &GuardianSecretKey{
		Index:        i,
		Name:         name,
		Coefficients: make([]algebra.FieldElement, k),
		Commitments:  make([]algebra.GroupElement, k),
		Proofs:       make([]CoefficientProof, k),
	}
	for j := uint32(0); j < k; j++ {
		a, err := rng.FieldElement(fixed.Field)
		if err != nil {
			return nil, err
		}
		commitment := fixed.Group.GExp(a)
		proof, err := proveCoefficient(rng, fixed, hp, i, j, a, commitment)
		if err != nil {
			return nil, err
		}
		sk.Coefficients[j] = a
		sk.Commitments[j] = commitment
		sk.Proofs[j] = proof
	}
	return sk, nil
}

// PublicKey strips the secret coefficients.
func (sk *GuardianSecretKey) PublicKey() *GuardianPublicKey {
	return &GuardianPublicKey{
		Index:       sk.Index,
		Name:        sk.Name,
		Commitments: append([]algebra.GroupElement(nil), sk.Commitments...),
		Proofs:      append([]CoefficientProof(nil), sk.Proofs...),
	}
}

// EvaluateAt computes P_i(l), the share of this guardian's secret for
// guardian l, by Horner evaluation of the secret polynomial.
func (sk *GuardianSecretKey) EvaluateAt(field *algebra.ScalarField, l GuardianIndex) algebra.FieldElement {
	x := field.FromUint64(uint64(l))
	acc := field.Zero()
	for j := len(sk.Coefficients) - 1; j >= 0; j-- {
		acc = field.Add(field.Mul(acc, x), sk.Coefficients[j])
	}
	return acc
}

// CommunicationSecret is the constant coefficient, the guardian's
// share-exchange decryption key.
func (sk *GuardianSecretKey) CommunicationSecret() algebra.FieldElement {
	return sk.Coefficients[0]
}

// GuardianPublicKey is the publishable part of a guardian's ceremony
// output.
type GuardianPublicKey struct {
	Index       GuardianIndex          `json:"i"`
	Name        string                 `json:"name,omitempty"`
	Commitments []algebra.GroupElement `json:"coefficient_commitments"`
	Proofs      []CoefficientProof     `json:"coefficient_proofs"`
}

// Validate checks the key against the election parameters: index in
// range, exactly k valid commitments, every possession proof correct.
func (pk *GuardianPublicKey) Validate(ep *params.ElectionParameters, hp eghash.HValue) error {
	if err := pk.Index.Validate(ep.Varying.N); err != nil {
		return err
	}
	k := int(ep.Varying.K)
	if len(pk.Commitments) != k || len(pk.Proofs) != k {
		return fmt.Errorf("%w: got %d commitments and %d proofs, want %d",
			ErrCommitmentCount, len(pk.Commitments), len(pk.Proofs), k)
	}
	for j := range pk.Commitments {
		if !ep.Fixed.Group.IsValid(pk.Commitments[j]) {
			return fmt.Errorf("%w: guardian %d coefficient %d", ErrCommitmentInvalid, pk.Index, j)
		}
		if err := pk.Proofs[j].Verify(ep.Fixed, hp, pk.Index, uint32(j), pk.Commitments[j]); err != nil {
			return err
		}
	}
	return nil
}

// CommunicationPublicKey is the constant-term commitment K_{i,0}, the
// key other guardians encrypt shares to.
func (pk *GuardianPublicKey) CommunicationPublicKey() algebra.GroupElement {
	return pk.Commitments[0]
}

// ShareCommitment computes prod_j K_{i,j}^(l^j), the public image of
// P_i(l) that a decrypted share must match.
func (pk *GuardianPublicKey) ShareCommitment(fixed *params.FixedParameters, l GuardianIndex) algebra.GroupElement {
	field, group := fixed.Field, fixed.Group
	x := field.FromUint64(uint64(l))

	acc := group.One()
	power := field.One()
	for j := range pk.Commitments {
		if j > 0 {
			power = field.Mul(power, x)
		}
		acc = group.Mul(acc, group.Exp(pk.Commitments[j], power))
	}
	return acc
}

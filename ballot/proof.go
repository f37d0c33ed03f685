package ballot

import (
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/election"
)

var (
	ErrRangeNotSatisfied = errors.New("ballot: value exceeds the proof range")
	ErrRangeProofInvalid = errors.New("ballot: range proof does not verify")
	ErrRangeTooWide      = errors.New("ballot: proof range too wide")
)

// maxRangeLimit bounds the proof width. Unlimited contests carry an
// effective limit near 2^31-1; proving that many branches is never
// meaningful, so it fails up front instead of exhausting memory.
const maxRangeLimit = 1 << 12

// RangeProofBranch is one disjunct of a range proof: the branch
// challenge c_j and response v_j. The commitments a_j, b_j are
// recomputed from these during verification.
type RangeProofBranch struct {
	Challenge algebra.FieldElement `json:"c"`
	Response  algebra.FieldElement `json:"v"`
}

// RangeProof shows that a ciphertext encrypts a value in [0, L], as a
// disjunction of L+1 Chaum-Pedersen branches with a shared challenge.
type RangeProof struct {
	Branches []RangeProofBranch `json:"branches"`
}

// rangeChallenge computes
// c = H(H_E; 0x21 | b(K) | b(alpha) | b(beta) | b(a_0) | b(b_0) | ...) mod q.
func rangeChallenge(pv *election.PreVotingData, ct Ciphertext, commitA, commitB []algebra.GroupElement) algebra.FieldElement {
	group := pv.Group()
	m := eghash.NewMessage(0x21).
		GroupElement(pv.JointKeys.K, group).
		GroupElement(ct.Alpha, group).
		GroupElement(ct.Beta, group)
	for j := range commitA {
		m.GroupElement(commitA[j], group)
		m.GroupElement(commitB[j], group)
	}
	return m.FinishToField(pv.HE, pv.Field())
}

// ProveRange proves that ct, encrypted with the given nonce, holds the
// value m with 0 <= m <= limit. The branches for j != m are simulated;
// the real branch's challenge absorbs the hash output.
func ProveRange(rng *csprng.Source, pv *election.PreVotingData, ct Ciphertext,
	nonce algebra.FieldElement, value uint32, limit uint32) (*RangeProof, error) {

	if limit > maxRangeLimit {
		return nil, fmt.Errorf("%w: limit %d", ErrRangeTooWide, limit)
	}
	if value > limit {
		return nil, fmt.Errorf("%w: value %d, limit %d", ErrRangeNotSatisfied, value, limit)
	}

	field, group := pv.Field(), pv.Group()
	k := pv.JointKeys.K
	n := int(limit) + 1

	us := make([]algebra.FieldElement, n)
	cs := make([]algebra.FieldElement, n)
	commitA := make([]algebra.GroupElement, n)
	commitB := make([]algebra.GroupElement, n)

	for j := 0; j < n; j++ {
		u, err := rng.FieldElement(field)
		if err != nil {
			return nil, err
		}
		us[j] = u
		commitA[j] = group.GExp(u)

		t := u
		if uint32(j) != value {
			c, err := rng.FieldElement(field)
			if err != nil {
				return nil, err
			}
			cs[j] = c
			// t_j = u_j + c_j (m - j)
			mj := field.Sub(field.FromUint64(uint64(value)), field.FromUint64(uint64(j)))
			t = field.Add(u, field.Mul(c, mj))
		}
		commitB[j] = group.Exp(k, t)
	}

	c := rangeChallenge(pv, ct, commitA, commitB)

	// The real branch's challenge makes the branch challenges sum to c.
	cm := c
	for j := 0; j < n; j++ {
		if uint32(j) != value {
			cm = field.Sub(cm, cs[j])
		}
	}
	cs[value] = cm

	proof := &RangeProof{Branches: make([]RangeProofBranch, n)}
	for j := 0; j < n; j++ {
		proof.Branches[j] = RangeProofBranch{
			Challenge: cs[j],
			Response:  field.Sub(us[j], field.Mul(cs[j], nonce)),
		}
	}
	return proof, nil
}

// Verify checks the proof against the ciphertext for the given limit.
func (p *RangeProof) Verify(pv *election.PreVotingData, ct Ciphertext, limit uint32) error {
	field, group := pv.Field(), pv.Group()
	k := pv.JointKeys.K

	if limit > maxRangeLimit {
		return fmt.Errorf("%w: limit %d", ErrRangeTooWide, limit)
	}
	if len(p.Branches) != int(limit)+1 {
		return fmt.Errorf("%w: %d branches for limit %d", ErrRangeProofInvalid, len(p.Branches), limit)
	}
	if !group.IsValid(ct.Alpha) || !group.IsValid(ct.Beta) {
		return fmt.Errorf("%w: ciphertext outside the group", ErrRangeProofInvalid)
	}

	commitA := make([]algebra.GroupElement, len(p.Branches))
	commitB := make([]algebra.GroupElement, len(p.Branches))
	sum := field.Zero()
	for j, br := range p.Branches {
		if !field.IsValid(br.Challenge) || !field.IsValid(br.Response) {
			return fmt.Errorf("%w: branch %d outside the field", ErrRangeProofInvalid, j)
		}
		// a_j = g^v alpha^c, b_j = K^(v - j c) beta^c
		commitA[j] = group.Mul(group.GExp(br.Response), group.Exp(ct.Alpha, br.Challenge))
		e := field.Sub(br.Response, field.Mul(field.FromUint64(uint64(j)), br.Challenge))
		commitB[j] = group.Mul(group.Exp(k, e), group.Exp(ct.Beta, br.Challenge))
		sum = field.Add(sum, br.Challenge)
	}

	if !rangeChallenge(pv, ct, commitA, commitB).Equal(sum) {
		return ErrRangeProofInvalid
	}
	return nil
}

package ballot

import (
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/manifest"
)

var (
	ErrSelectionShape = errors.New("ballot: selections do not match the ballot style")
	ErrOvervote       = errors.New("ballot: selections exceed a selection limit")
)

// Ciphertext is an exponential ElGamal encryption of a small counter:
// alpha = g^xi, beta = K^(xi+m).
type Ciphertext struct {
	Alpha algebra.GroupElement `json:"alpha"`
	Beta  algebra.GroupElement `json:"beta"`
}

// Encrypt encrypts value with the given nonce.
func Encrypt(pv *election.PreVotingData, nonce algebra.FieldElement, value uint32) Ciphertext {
	field, group := pv.Field(), pv.Group()
	exp := field.Add(nonce, field.FromUint64(uint64(value)))
	return Ciphertext{
		Alpha: group.GExp(nonce),
		Beta:  group.Exp(pv.JointKeys.K, exp),
	}
}

// Combine multiplies ciphertexts, adding the underlying counters.
func Combine(group *algebra.Group, cts ...Ciphertext) Ciphertext {
	acc := Ciphertext{Alpha: group.One(), Beta: group.One()}
	for _, ct := range cts {
		acc.Alpha = group.Mul(acc.Alpha, ct.Alpha)
		acc.Beta = group.Mul(acc.Beta, ct.Beta)
	}
	return acc
}

// Scale exponentiates both components by a factor, multiplying the
// underlying counter. Used for weighted tally accumulation.
func (ct Ciphertext) Scale(group *algebra.Group, field *algebra.ScalarField, factor uint64) Ciphertext {
	f := field.FromUint64(factor)
	return Ciphertext{
		Alpha: group.Exp(ct.Alpha, f),
		Beta:  group.Exp(ct.Beta, f),
	}
}

// selectionNonce derives xi_{i,j} = H(H_E; 0x20 | xi_B | b(i,4) | b(j,4)) mod q
// from the primary ballot nonce, so an audited ballot is reproducible
// from xi_B alone.
func selectionNonce(pv *election.PreVotingData, primary [32]byte, contestIx, optionIx uint32) algebra.FieldElement {
	return eghash.NewMessage(0x20).
		Bytes(primary[:]).
		Uint32(contestIx).
		Uint32(optionIx).
		FinishToField(pv.HE, pv.Field())
}

// ContestCiphertexts is one contest's encrypted selections: a
// ciphertext and range proof per option, plus the selection-limit proof
// over the homomorphic sum of the options.
type ContestCiphertexts struct {
	ContestIndex uint32        `json:"l"`
	Selections   []Ciphertext  `json:"selections"`
	Proofs       []*RangeProof `json:"selection_proofs"`
	LimitProof   *RangeProof   `json:"contest_limit_proof"`
}

// encryptContest encrypts one contest's selection vector and proves
// every option limit and the contest limit.
func encryptContest(rng *csprng.Source, pv *election.PreVotingData, primary [32]byte,
	contestIx uint32, contest *manifest.Contest, selections []uint32) (*ContestCiphertexts, error) {

	if len(selections) != len(contest.Options) {
		return nil, fmt.Errorf("%w: contest %d has %d options, got %d values",
			ErrSelectionShape, contestIx, len(contest.Options), len(selections))
	}

	field, group := pv.Field(), pv.Group()
	cc := &ContestCiphertexts{
		ContestIndex: contestIx,
		Selections:   make([]Ciphertext, len(selections)),
		Proofs:       make([]*RangeProof, len(selections)),
	}

	var total uint64
	nonceSum := field.Zero()
	for j := range selections {
		optionIx := uint32(j) + 1
		limit, err := contest.EffectiveOptionLimit(optionIx)
		if err != nil {
			return nil, err
		}
		if selections[j] > limit {
			return nil, fmt.Errorf("%w: contest %d option %d: %d > %d",
				ErrOvervote, contestIx, optionIx, selections[j], limit)
		}

		nonce := selectionNonce(pv, primary, contestIx, optionIx)
		ct := Encrypt(pv, nonce, selections[j])
		proof, err := ProveRange(rng, pv, ct, nonce, selections[j], limit)
		if err != nil {
			return nil, err
		}

		cc.Selections[j] = ct
		cc.Proofs[j] = proof
		total += uint64(selections[j])
		nonceSum = field.Add(nonceSum, nonce)
	}

	contestLimit := contest.EffectiveContestLimit()
	if total > uint64(contestLimit) {
		return nil, fmt.Errorf("%w: contest %d: %d > %d", ErrOvervote, contestIx, total, contestLimit)
	}

	sum := Combine(group, cc.Selections...)
	limitProof, err := ProveRange(rng, pv, sum, nonceSum, uint32(total), contestLimit)
	if err != nil {
		return nil, err
	}
	cc.LimitProof = limitProof
	return cc, nil
}

// Hash computes the contest hash
// chi_l = H(H_E; 0x23 | b(l,4) | b(K) | b(alpha_1) | b(beta_1) | ...).
func (cc *ContestCiphertexts) Hash(pv *election.PreVotingData) eghash.HValue {
	group := pv.Group()
	m := eghash.NewMessage(0x23).
		Uint32(cc.ContestIndex).
		GroupElement(pv.JointKeys.K, group)
	for _, ct := range cc.Selections {
		m.GroupElement(ct.Alpha, group)
		m.GroupElement(ct.Beta, group)
	}
	return m.Finish(pv.HE)
}

// Verify checks every option proof and the contest limit proof.
func (cc *ContestCiphertexts) Verify(pv *election.PreVotingData, contest *manifest.Contest) error {
	if len(cc.Selections) != len(contest.Options) || len(cc.Proofs) != len(contest.Options) {
		return fmt.Errorf("%w: contest %d", ErrSelectionShape, cc.ContestIndex)
	}
	for j := range cc.Selections {
		limit, err := contest.EffectiveOptionLimit(uint32(j) + 1)
		if err != nil {
			return err
		}
		if err := cc.Proofs[j].Verify(pv, cc.Selections[j], limit); err != nil {
			return fmt.Errorf("contest %d option %d: %w", cc.ContestIndex, j+1, err)
		}
	}
	if cc.LimitProof == nil {
		return fmt.Errorf("%w: contest %d has no limit proof", ErrRangeProofInvalid, cc.ContestIndex)
	}
	sum := Combine(pv.Group(), cc.Selections...)
	if err := cc.LimitProof.Verify(pv, sum, contest.EffectiveContestLimit()); err != nil {
		return fmt.Errorf("contest %d limit: %w", cc.ContestIndex, err)
	}
	return nil
}

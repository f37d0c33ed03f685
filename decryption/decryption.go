// Package decryption implements verifiable threshold decryption: each
// quorum guardian contributes a decryption share and a piece of a joint
// Chaum-Pedersen proof, and the combined result decrypts a ciphertext
// without reconstructing the joint secret key anywhere.
package decryption

import (
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/ballot"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/keyceremony"
)

var (
	ErrQuorumSize      = errors.New("decryption: quorum smaller than the threshold")
	ErrQuorumDuplicate = errors.New("decryption: duplicate guardian in the quorum")
	ErrShareInvalid    = errors.New("decryption: guardian response fails its share check")
	ErrProofInvalid    = errors.New("decryption: decryption proof does not verify")
	ErrPlaintextRange  = errors.New("decryption: plaintext outside the searchable range")
)

// Guardian is one decrypting trustee, holding its secret key share z_i
// from the key ceremony.
type Guardian struct {
	Index keyceremony.GuardianIndex
	Z     algebra.FieldElement
}

// NewGuardian wraps a ceremony key share for decryption.
func NewGuardian(share *keyceremony.GuardianSecretKeyShare) *Guardian {
	return &Guardian{Index: share.Index, Z: share.Z}
}

// DecryptionShare is guardian i's contribution m_i = alpha^{z_i}.
type DecryptionShare struct {
	Index keyceremony.GuardianIndex `json:"i"`
	MI    algebra.GroupElement      `json:"m_i"`
}

// ComputeShare computes the guardian's decryption share for one
// ciphertext.
func (g *Guardian) ComputeShare(group *algebra.Group, ct ballot.Ciphertext) DecryptionShare {
	return DecryptionShare{Index: g.Index, MI: group.Exp(ct.Alpha, g.Z)}
}

// commitment is one guardian's proof commitment a_i = g^{u_i},
// b_i = alpha^{u_i}. The secret u_i stays with the guardian.
type commitment struct {
	index keyceremony.GuardianIndex
	u     algebra.FieldElement
	a, b  algebra.GroupElement
}

func (g *Guardian) commit(rng *csprng.Source, pv *election.PreVotingData, ct ballot.Ciphertext) (*commitment, error) {
	u, err := rng.FieldElement(pv.Field())
	if err != nil {
		return nil, err
	}
	group := pv.Group()
	return &commitment{
		index: g.Index,
		u:     u,
		a:     group.GExp(u),
		b:     group.Exp(ct.Alpha, u),
	}, nil
}

// respond computes v_i = u_i - c_i z_i for the guardian's challenge
// share c_i = c * w_i.
func (g *Guardian) respond(field *algebra.ScalarField, com *commitment, ci algebra.FieldElement) algebra.FieldElement {
	return field.Sub(com.u, field.Mul(ci, g.Z))
}

// DecryptionProof is the combined Chaum-Pedersen proof that M is the
// correct decryption share product for the ciphertext.
type DecryptionProof struct {
	Challenge algebra.FieldElement `json:"c"`
	Response  algebra.FieldElement `json:"v"`
}

// VerifiableDecryption is a decrypted value with its proof: the
// combined share M, the plaintext tally and the proof binding them to
// the ciphertext.
type VerifiableDecryption struct {
	ContestIndex uint32               `json:"l"`
	FieldIndex   uint32               `json:"j"`
	M            algebra.GroupElement `json:"m"`
	Plaintext    uint64               `json:"plaintext"`
	Proof        DecryptionProof      `json:"proof"`
}

// decryptionChallenge computes
// c = H(H_E; 0x31 | b(l,4) | b(j,4) | b(alpha) | b(beta) | b(a) | b(b) | b(M)) mod q.
func decryptionChallenge(pv *election.PreVotingData, contestIx, fieldIx uint32,
	ct ballot.Ciphertext, a, b, m algebra.GroupElement) algebra.FieldElement {

	group := pv.Group()
	return eghash.NewMessage(0x31).
		Uint32(contestIx).
		Uint32(fieldIx).
		GroupElement(ct.Alpha, group).
		GroupElement(ct.Beta, group).
		GroupElement(a, group).
		GroupElement(b, group).
		GroupElement(m, group).
		FinishToField(pv.HE, pv.Field())
}

// jointShareCommitment computes g^{P(i)} for the summed ceremony
// polynomial P from the published coefficient commitments of every
// guardian: prod_j prod_m K_{j,m}^{i^m}.
func jointShareCommitment(pv *election.PreVotingData, publics []*keyceremony.GuardianPublicKey,
	i keyceremony.GuardianIndex) algebra.GroupElement {

	group := pv.Group()
	acc := group.One()
	for _, pk := range publics {
		acc = group.Mul(acc, pk.ShareCommitment(pv.Parameters.Fixed, i))
	}
	return acc
}

// Decrypt runs the full quorum protocol for one ciphertext: shares,
// commit round, challenge, response round with per-guardian checks,
// and the plaintext search.
//
// dl must be a DiscreteLog instance for the joint vote encryption key.
func Decrypt(rng *csprng.Source, pv *election.PreVotingData,
	publics []*keyceremony.GuardianPublicKey, quorum []*Guardian,
	ct ballot.Ciphertext, contestIx, fieldIx uint32, dl *algebra.DiscreteLog) (*VerifiableDecryption, error) {

	field, group := pv.Field(), pv.Group()
	k := pv.Parameters.Varying.K

	if uint32(len(quorum)) < k {
		return nil, fmt.Errorf("%w: %d of %d", ErrQuorumSize, len(quorum), k)
	}
	seen := make(map[keyceremony.GuardianIndex]bool, len(quorum))
	xs := make([]algebra.FieldElement, len(quorum))
	for n, g := range quorum {
		if seen[g.Index] {
			return nil, fmt.Errorf("%w: guardian %d", ErrQuorumDuplicate, g.Index)
		}
		seen[g.Index] = true
		xs[n] = field.FromUint64(uint64(g.Index))
	}

	// Share round: M = interpolation of the m_i at zero.
	shares := make([]algebra.GroupElement, len(quorum))
	for n, g := range quorum {
		shares[n] = g.ComputeShare(group, ct).MI
	}
	m, err := algebra.GroupLagrangeAtZero(xs, shares, field, group)
	if err != nil {
		return nil, err
	}

	// Commit round.
	commits := make([]*commitment, len(quorum))
	a, b := group.One(), group.One()
	for n, g := range quorum {
		com, err := g.commit(rng, pv, ct)
		if err != nil {
			return nil, err
		}
		commits[n] = com
		a = group.Mul(a, com.a)
		b = group.Mul(b, com.b)
	}

	c := decryptionChallenge(pv, contestIx, fieldIx, ct, a, b, m)

	// Response round. Each guardian's response is checked against the
	// ceremony commitments before it enters the combined proof, so a
	// misbehaving guardian is identified, not just detected.
	v := field.Zero()
	for n, g := range quorum {
		w, err := algebra.CoefficientAtZero(xs, xs[n], field)
		if err != nil {
			return nil, err
		}
		ci := field.Mul(c, w)
		vi := g.respond(field, commits[n], ci)

		gi := group.Mul(group.GExp(vi), group.Exp(jointShareCommitment(pv, publics, g.Index), ci))
		if !gi.Equal(commits[n].a) {
			return nil, fmt.Errorf("%w: guardian %d commitment a", ErrShareInvalid, g.Index)
		}
		bi := group.Mul(group.Exp(ct.Alpha, vi), group.Exp(shares[n], ci))
		if !bi.Equal(commits[n].b) {
			return nil, fmt.Errorf("%w: guardian %d commitment b", ErrShareInvalid, g.Index)
		}
		v = field.Add(v, vi)
	}

	vd := &VerifiableDecryption{
		ContestIndex: contestIx,
		FieldIndex:   fieldIx,
		M:            m,
		Proof:        DecryptionProof{Challenge: c, Response: v},
	}

	// T = beta / M, plaintext = dlog_K(T).
	plaintext, err := vd.decode(pv, ct, dl)
	if err != nil {
		return nil, err
	}
	vd.Plaintext = plaintext
	return vd, nil
}

func (vd *VerifiableDecryption) decode(pv *election.PreVotingData, ct ballot.Ciphertext, dl *algebra.DiscreteLog) (uint64, error) {
	group := pv.Group()
	mInv, err := group.Inv(vd.M)
	if err != nil {
		return 0, err
	}
	t := group.Mul(ct.Beta, mInv)
	plaintext, ok := dl.Find(t.Big())
	if !ok {
		return 0, ErrPlaintextRange
	}
	return plaintext, nil
}

// Verify checks the decryption against the ciphertext: the proof
// equations a = g^v K^c and b = alpha^v M^c under the recomputed
// challenge, and that the plaintext matches M.
func (vd *VerifiableDecryption) Verify(pv *election.PreVotingData, ct ballot.Ciphertext, dl *algebra.DiscreteLog) error {
	field, group := pv.Field(), pv.Group()

	if !field.IsValid(vd.Proof.Challenge) || !field.IsValid(vd.Proof.Response) {
		return fmt.Errorf("%w: proof outside the field", ErrProofInvalid)
	}
	if !group.IsValid(vd.M) {
		return fmt.Errorf("%w: M outside the group", ErrProofInvalid)
	}

	a := group.Mul(group.GExp(vd.Proof.Response), group.Exp(pv.JointKeys.K, vd.Proof.Challenge))
	b := group.Mul(group.Exp(ct.Alpha, vd.Proof.Response), group.Exp(vd.M, vd.Proof.Challenge))

	c := decryptionChallenge(pv, vd.ContestIndex, vd.FieldIndex, ct, a, b, vd.M)
	if !c.Equal(vd.Proof.Challenge) {
		return ErrProofInvalid
	}

	plaintext, err := vd.decode(pv, ct, dl)
	if err != nil {
		return err
	}
	if plaintext != vd.Plaintext {
		return fmt.Errorf("%w: plaintext %d does not match M", ErrProofInvalid, vd.Plaintext)
	}
	return nil
}

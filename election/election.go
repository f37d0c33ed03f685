// Package election derives the election hash chain and assembles the
// pre-voting record that every encrypting device needs: parameters,
// manifest, base hashes and the joint public keys.
package election

import (
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/manifest"
	"github.com/openelection/electionguard-go/params"
)

var ErrJointKeyInvalid = errors.New("election: joint public key is not a valid group element")

// Hashes are the pre-key-ceremony hashes: the parameter base hash H_P,
// the manifest hash H_M and the election base hash H_B. Each keys the
// next stage of the chain.
type Hashes struct {
	HP eghash.HValue `json:"h_p"`
	HM eghash.HValue `json:"h_m"`
	HB eghash.HValue `json:"h_b"`
}

// ComputeHashes derives H_P, H_M and H_B from the parameters and the
// canonical manifest bytes.
func ComputeHashes(ep *params.ElectionParameters, m *manifest.Manifest) (Hashes, error) {
	canonical, err := m.CanonicalBytes()
	if err != nil {
		return Hashes{}, fmt.Errorf("election: manifest serialization: %w", err)
	}

	hp := ep.Fixed.ParameterBaseHash()
	hm := eghash.NewMessage(0x01).Bytes(canonical).Finish(hp)
	hb := eghash.NewMessage(0x02).
		Uint32(ep.Varying.N).
		Uint32(ep.Varying.K).
		Bytes([]byte(ep.Varying.Date)).
		Bytes([]byte(ep.Varying.Info)).
		HValue(hm).
		Finish(hp)

	return Hashes{HP: hp, HM: hm, HB: hb}, nil
}

// JointPublicKeys holds the combined guardian keys: K encrypts votes,
// KHat encrypts other ballot data.
type JointPublicKeys struct {
	K    algebra.GroupElement `json:"joint_vote_encryption_key"`
	KHat algebra.GroupElement `json:"joint_ballot_data_encryption_key"`
}

// ExtendedBaseHash computes H_E = H(H_B; 0x14 | b(K) | b(KHat)),
// the key of every post-key-ceremony hash.
func ExtendedBaseHash(hb eghash.HValue, keys JointPublicKeys, group *algebra.Group) eghash.HValue {
	return eghash.NewMessage(0x14).
		GroupElement(keys.K, group).
		GroupElement(keys.KHat, group).
		Finish(hb)
}

// PreVotingData is everything an encrypting device needs before the
// first ballot: validated parameters and manifest, the hash chain, the
// joint keys and the extended base hash.
type PreVotingData struct {
	Parameters *params.ElectionParameters
	Manifest   *manifest.Manifest
	Hashes     Hashes
	JointKeys  JointPublicKeys
	HE         eghash.HValue
}

// NewPreVotingData validates the inputs and derives the hash chain
// through H_E.
func NewPreVotingData(ep *params.ElectionParameters, m *manifest.Manifest, keys JointPublicKeys) (*PreVotingData, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	group := ep.Fixed.Group
	if !group.IsValid(keys.K) || !group.IsValid(keys.KHat) {
		return nil, ErrJointKeyInvalid
	}

	hashes, err := ComputeHashes(ep, m)
	if err != nil {
		return nil, err
	}
	return &PreVotingData{
		Parameters: ep,
		Manifest:   m,
		Hashes:     hashes,
		JointKeys:  keys,
		HE:         ExtendedBaseHash(hashes.HB, keys, group),
	}, nil
}

// Group is a shorthand for the election's group.
func (pv *PreVotingData) Group() *algebra.Group { return pv.Parameters.Fixed.Group }

// Field is a shorthand for the election's scalar field.
func (pv *PreVotingData) Field() *algebra.ScalarField { return pv.Parameters.Fixed.Field }

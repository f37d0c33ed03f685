package keyceremony

import (
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/params"
)

var (
	ErrJointKeyIdentity = errors.New("keyceremony: joint public key is the identity")
	ErrGuardianMissing  = errors.New("keyceremony: missing public key for a guardian")
	ErrGuardianDup      = errors.New("keyceremony: duplicate public key for a guardian")
)

// ComputeJointPublicKey combines the constant-term commitments of all n
// guardians into K = prod_i K_{i,0}. Every guardian index in [1, n]
// must appear exactly once. An identity result would make every
// ciphertext trivially decryptable and is rejected.
func ComputeJointPublicKey(ep *params.ElectionParameters, keys []*GuardianPublicKey) (algebra.GroupElement, error) {
	n := ep.Varying.N
	group := ep.Fixed.Group

	seen := make(map[GuardianIndex]bool, len(keys))
	joint := group.One()
	for _, pk := range keys {
		if err := pk.Index.Validate(n); err != nil {
			return algebra.GroupElement{}, err
		}
		if seen[pk.Index] {
			return algebra.GroupElement{}, fmt.Errorf("%w: guardian %d", ErrGuardianDup, pk.Index)
		}
		seen[pk.Index] = true

		k0 := pk.CommunicationPublicKey()
		if !group.IsValid(k0) {
			return algebra.GroupElement{}, fmt.Errorf("%w: guardian %d", ErrCommitmentInvalid, pk.Index)
		}
		joint = group.Mul(joint, k0)
	}
	for i := GuardianIndex(1); uint32(i) <= n; i++ {
		if !seen[i] {
			return algebra.GroupElement{}, fmt.Errorf("%w: guardian %d", ErrGuardianMissing, i)
		}
	}

	if joint.IsOne() {
		return algebra.GroupElement{}, ErrJointKeyIdentity
	}
	return joint, nil
}

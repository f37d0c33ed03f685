package keyceremony

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/params"
)

var (
	ErrShareMAC        = errors.New("keyceremony: share ciphertext fails authentication")
	ErrShareCommitment = errors.New("keyceremony: decrypted share does not match the sender's commitments")
	ErrShareMissing    = errors.New("keyceremony: missing share from a guardian")
	ErrShareDuplicate  = errors.New("keyceremony: duplicate share from a guardian")
	ErrShareReceiver   = errors.New("keyceremony: share is addressed to a different guardian")
)

// shareBlockLen is the padded width of an encrypted share, sized for
// the standard 256-bit field regardless of the toy parameter sets.
const shareBlockLen = 32

// EncryptedShare is guardian i's share P_i(l) encrypted to guardian l's
// communication key. C0 is the ephemeral ElGamal alpha, C1 the masked
// share block and C2 the authentication tag over C0 and C1.
type EncryptedShare struct {
	Sender   GuardianIndex        `json:"i"`
	Receiver GuardianIndex        `json:"l"`
	C0       algebra.GroupElement `json:"c0"`
	C1       [shareBlockLen]byte  `json:"c1"`
	C2       eghash.HValue        `json:"c2"`
}

// shareKeys derives the MAC key k0 and the encryption key k1 for the
// (sender, receiver) pair from the shared ElGamal secret.
func shareKeys(hp eghash.HValue, fixed *params.FixedParameters,
	i, l GuardianIndex, receiverKey, alpha, beta algebra.GroupElement) (k0, k1 eghash.HValue) {

	group := fixed.Group

	kil := eghash.NewMessage(0x11).
		Uint32(uint32(i)).
		Uint32(uint32(l)).
		GroupElement(receiverKey, group).
		GroupElement(alpha, group).
		GroupElement(beta, group).
		Finish(hp)

	label := []byte("share_enc_keys")
	context := []byte("share_encrypt")
	suffix := make([]byte, 0, len(label)+len(context)+12)
	suffix = append(suffix, label...)
	suffix = append(suffix, 0x00)
	suffix = append(suffix, context...)
	suffix = appendUint32(suffix, uint32(i))
	suffix = appendUint32(suffix, uint32(l))
	suffix = append(suffix, 0x02, 0x00)

	k0 = eghash.H(kil, append([]byte{0x01}, suffix...))
	k1 = eghash.H(kil, append([]byte{0x02}, suffix...))
	return k0, k1
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// EncryptShare computes P_i(l) and encrypts it to the receiver's
// communication public key.
func EncryptShare(rng *csprng.Source, fixed *params.FixedParameters, hp eghash.HValue,
	sender *GuardianSecretKey, receiver *GuardianPublicKey) (*EncryptedShare, error) {

	field, group := fixed.Field, fixed.Group
	receiverKey := receiver.CommunicationPublicKey()
	if !group.IsValid(receiverKey) {
		return nil, fmt.Errorf("%w: guardian %d", ErrCommitmentInvalid, receiver.Index)
	}

	share := sender.EvaluateAt(field, receiver.Index)

	xi, err := rng.FieldElement(field)
	if err != nil {
		return nil, err
	}
	alpha := group.GExp(xi)
	beta := group.Exp(receiverKey, xi)

	k0, k1 := shareKeys(hp, fixed, sender.Index, receiver.Index, receiverKey, alpha, beta)

	es := &EncryptedShare{Sender: sender.Index, Receiver: receiver.Index, C0: alpha}
	plain := algebra.ToBytesBE(share.Big(), shareBlockLen)
	for n := range es.C1 {
		es.C1[n] = plain[n] ^ k1[n]
	}
	es.C2 = eghash.H(k0, append(group.Bytes(alpha), es.C1[:]...))
	return es, nil
}

// Decrypt recovers and validates the share. The receiver secret is the
// receiving guardian's constant coefficient; the decrypted share is
// checked against the sender's published coefficient commitments.
func (es *EncryptedShare) Decrypt(fixed *params.FixedParameters, hp eghash.HValue,
	receiver *GuardianSecretKey, sender *GuardianPublicKey) (algebra.FieldElement, error) {

	field, group := fixed.Field, fixed.Group

	if es.Receiver != receiver.Index {
		return algebra.FieldElement{}, fmt.Errorf("%w: addressed to %d, decrypting as %d",
			ErrShareReceiver, es.Receiver, receiver.Index)
	}
	if es.Sender != sender.Index {
		return algebra.FieldElement{}, fmt.Errorf("%w: sent by %d, validating against %d",
			ErrShareReceiver, es.Sender, sender.Index)
	}
	if !group.IsValid(es.C0) {
		return algebra.FieldElement{}, fmt.Errorf("%w: ephemeral key", ErrCommitmentInvalid)
	}

	receiverKey := group.GExp(receiver.CommunicationSecret())
	beta := group.Exp(es.C0, receiver.CommunicationSecret())

	k0, k1 := shareKeys(hp, fixed, es.Sender, es.Receiver, receiverKey, es.C0, beta)

	mac := eghash.H(k0, append(group.Bytes(es.C0), es.C1[:]...))
	if subtle.ConstantTimeCompare(mac[:], es.C2[:]) != 1 {
		return algebra.FieldElement{}, fmt.Errorf("%w: sender %d", ErrShareMAC, es.Sender)
	}

	var plain [shareBlockLen]byte
	for n := range plain {
		plain[n] = es.C1[n] ^ k1[n]
	}
	share := field.FromBytes(plain[:])

	if !group.GExp(share).Equal(sender.ShareCommitment(fixed, es.Receiver)) {
		return algebra.FieldElement{}, fmt.Errorf("%w: sender %d", ErrShareCommitment, es.Sender)
	}
	return share, nil
}

// GuardianSecretKeyShare is guardian l's share of the joint secret key:
// z_l = sum_i P_i(l) mod q.
type GuardianSecretKeyShare struct {
	Index GuardianIndex
	Z     algebra.FieldElement
}

// ComputeSecretKeyShare decrypts one share from every guardian and sums
// them. Exactly one share per guardian index in [1, n] is required.
func ComputeSecretKeyShare(ep *params.ElectionParameters, hp eghash.HValue,
	receiver *GuardianSecretKey, senders []*GuardianPublicKey, shares []*EncryptedShare) (*GuardianSecretKeyShare, error) {

	n := ep.Varying.N
	byIndex := make(map[GuardianIndex]*GuardianPublicKey, len(senders))
	for _, pk := range senders {
		if err := pk.Index.Validate(n); err != nil {
			return nil, err
		}
		if _, dup := byIndex[pk.Index]; dup {
			return nil, fmt.Errorf("%w: public key of guardian %d", ErrShareDuplicate, pk.Index)
		}
		byIndex[pk.Index] = pk
	}

	field := ep.Fixed.Field
	sum := field.Zero()
	seen := make(map[GuardianIndex]bool, len(shares))
	for _, es := range shares {
		if err := es.Sender.Validate(n); err != nil {
			return nil, err
		}
		if seen[es.Sender] {
			return nil, fmt.Errorf("%w: guardian %d", ErrShareDuplicate, es.Sender)
		}
		seen[es.Sender] = true

		sender, ok := byIndex[es.Sender]
		if !ok {
			return nil, fmt.Errorf("%w: no public key for guardian %d", ErrShareMissing, es.Sender)
		}
		share, err := es.Decrypt(ep.Fixed, hp, receiver, sender)
		if err != nil {
			return nil, err
		}
		sum = field.Add(sum, share)
	}

	for i := GuardianIndex(1); uint32(i) <= n; i++ {
		if !seen[i] {
			return nil, fmt.Errorf("%w: guardian %d", ErrShareMissing, i)
		}
	}
	return &GuardianSecretKeyShare{Index: receiver.Index, Z: sum}, nil
}

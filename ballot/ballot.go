// Package ballot implements ballot encryption: selection ciphertexts
// with range proofs, contest hashes, confirmation codes with optional
// chaining, and the ballot state machine.
package ballot

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/log"
	"github.com/openelection/electionguard-go/params"
)

var (
	ErrStateTransition   = errors.New("ballot: invalid ballot state transition")
	ErrDecryptCastBallot = errors.New("ballot: a cast ballot must never be decrypted")
	ErrNoNonce           = errors.New("ballot: primary nonce is no longer held")
	ErrCodeMismatch      = errors.New("ballot: confirmation code does not match the ballot content")
	ErrChainBroken       = errors.New("ballot: confirmation code chain does not connect")
)

// State tracks a ballot through its lifecycle. Cast, Spoiled and
// ChallengedDecrypted are terminal.
type State int

const (
	StateVoterSelectionsEncrypted State = iota
	StateCast
	StateSpoiled
	StateChallenged
	StateChallengedDecrypted
)

func (s State) String() string {
	switch s {
	case StateVoterSelectionsEncrypted:
		return "VOTER_SELECTIONS_ENCRYPTED"
	case StateCast:
		return "CAST"
	case StateSpoiled:
		return "SPOILED"
	case StateChallenged:
		return "CHALLENGED"
	case StateChallengedDecrypted:
		return "CHALLENGED_DECRYPTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// VoterSelections is the plaintext ballot: one value vector per contest
// of the chosen style, keyed by 1-based contest index.
type VoterSelections struct {
	StyleIndex uint32
	Selections map[uint32][]uint32
}

// Ballot is an encrypted ballot. The primary nonce is held only while
// the ballot is undecided, so a cast ballot cannot be decrypted by the
// encrypting device.
type Ballot struct {
	ID               string                `json:"ballot_id"`
	DeviceID         string                `json:"device_id"`
	EncryptedAt      time.Time             `json:"encrypted_at"`
	StyleIndex       uint32                `json:"ballot_style"`
	State            State                 `json:"-"`
	Contests         []*ContestCiphertexts `json:"contests"`
	ConfirmationCode eghash.HValue         `json:"confirmation_code"`

	nonce *[32]byte
}

// Device encrypts ballots for one ballot box and maintains the
// confirmation code chain when chaining is on.
type Device struct {
	id       string
	pv       *election.PreVotingData
	rng      *csprng.Source
	chaining params.ChainingMode
	prevCode *eghash.HValue
	count    uint64
}

// NewDevice returns an encrypting device. The chaining mode comes from
// the election's varying parameters.
func NewDevice(pv *election.PreVotingData, rng *csprng.Source) *Device {
	return &Device{
		id:       uuid.NewString(),
		pv:       pv,
		rng:      rng,
		chaining: pv.Parameters.Varying.Chaining,
	}
}

// ID is the device identifier recorded on every ballot it encrypts.
func (d *Device) ID() string { return d.id }

// chainField returns B_aux for the next confirmation code: empty when
// chaining is prohibited, the previous code otherwise, seeded with H_E
// for the first ballot in the chain.
func (d *Device) chainField() []byte {
	if d.chaining == params.ChainingProhibited {
		return nil
	}
	if d.prevCode == nil {
		return d.pv.HE.Bytes()
	}
	return d.prevCode.Bytes()
}

// Encrypt encrypts the voter's selections into a new ballot in the
// undecided state.
func (d *Device) Encrypt(vs *VoterSelections) (*Ballot, error) {
	style, err := d.pv.Manifest.Style(vs.StyleIndex)
	if err != nil {
		return nil, err
	}
	if len(vs.Selections) != len(style.Contests) {
		return nil, fmt.Errorf("%w: style has %d contests, got %d",
			ErrSelectionShape, len(style.Contests), len(vs.Selections))
	}

	primary, err := d.rng.Bytes32()
	if err != nil {
		return nil, err
	}

	b := &Ballot{
		ID:          uuid.NewString(),
		DeviceID:    d.id,
		EncryptedAt: time.Now().UTC(),
		StyleIndex:  vs.StyleIndex,
		State:       StateVoterSelectionsEncrypted,
		nonce:       &primary,
	}
	for _, contestIx := range style.Contests {
		values, ok := vs.Selections[contestIx]
		if !ok {
			return nil, fmt.Errorf("%w: no selections for contest %d", ErrSelectionShape, contestIx)
		}
		contest, err := d.pv.Manifest.Contest(contestIx)
		if err != nil {
			return nil, err
		}
		cc, err := encryptContest(d.rng, d.pv, primary, contestIx, contest, values)
		if err != nil {
			return nil, err
		}
		b.Contests = append(b.Contests, cc)
	}

	b.ConfirmationCode = confirmationCode(d.pv, b.Contests, d.chainField())
	if d.chaining != params.ChainingProhibited {
		code := b.ConfirmationCode
		d.prevCode = &code
	}
	d.count++
	log.Debugf("encrypted ballot %s (style %d, %d contests)", b.ID, b.StyleIndex, len(b.Contests))
	return b, nil
}

// Count reports how many ballots the device has encrypted.
func (d *Device) Count() uint64 { return d.count }

// confirmationCode computes
// H(B) = H(H_E; 0x24 | chi_1 | ... | chi_m | B_aux).
func confirmationCode(pv *election.PreVotingData, contests []*ContestCiphertexts, aux []byte) eghash.HValue {
	m := eghash.NewMessage(0x24)
	for _, cc := range contests {
		m.HValue(cc.Hash(pv))
	}
	m.Bytes(aux)
	return m.Finish(pv.HE)
}

// Cast commits the ballot for tallying and discards the primary nonce.
func (b *Ballot) Cast() error {
	if b.State != StateVoterSelectionsEncrypted {
		return fmt.Errorf("%w: %s -> CAST", ErrStateTransition, b.State)
	}
	b.State = StateCast
	b.nonce = nil
	return nil
}

// Spoil discards the ballot without decryption.
func (b *Ballot) Spoil() error {
	if b.State != StateVoterSelectionsEncrypted {
		return fmt.Errorf("%w: %s -> SPOILED", ErrStateTransition, b.State)
	}
	b.State = StateSpoiled
	b.nonce = nil
	return nil
}

// Challenge marks the ballot for audit. A challenged ballot can never
// be cast.
func (b *Ballot) Challenge() error {
	if b.State != StateVoterSelectionsEncrypted {
		return fmt.Errorf("%w: %s -> CHALLENGED", ErrStateTransition, b.State)
	}
	b.State = StateChallenged
	return nil
}

// RevealNonce returns the primary nonce of a challenged ballot and
// moves it to its terminal decrypted state. Revealing a cast ballot is
// a hard error.
func (b *Ballot) RevealNonce() ([32]byte, error) {
	switch b.State {
	case StateChallenged:
	case StateCast:
		return [32]byte{}, ErrDecryptCastBallot
	default:
		return [32]byte{}, fmt.Errorf("%w: %s -> CHALLENGED_DECRYPTED", ErrStateTransition, b.State)
	}
	if b.nonce == nil {
		return [32]byte{}, ErrNoNonce
	}
	nonce := *b.nonce
	b.State = StateChallengedDecrypted
	b.nonce = nil
	return nonce, nil
}

// Verify checks every proof on the ballot and recomputes the
// confirmation code. aux must be the chain field the ballot was
// encrypted under; nil for unchained ballots.
func (b *Ballot) Verify(pv *election.PreVotingData, aux []byte) error {
	style, err := pv.Manifest.Style(b.StyleIndex)
	if err != nil {
		return err
	}
	if len(b.Contests) != len(style.Contests) {
		return fmt.Errorf("%w: style has %d contests, ballot has %d",
			ErrSelectionShape, len(style.Contests), len(b.Contests))
	}
	for n, cc := range b.Contests {
		if cc.ContestIndex != style.Contests[n] {
			return fmt.Errorf("%w: contest %d out of place", ErrSelectionShape, cc.ContestIndex)
		}
		contest, err := pv.Manifest.Contest(cc.ContestIndex)
		if err != nil {
			return err
		}
		if err := cc.Verify(pv, contest); err != nil {
			return err
		}
	}
	if confirmationCode(pv, b.Contests, aux) != b.ConfirmationCode {
		return ErrCodeMismatch
	}
	return nil
}

// VerifyChain checks that a sequence of chained ballots connects: each
// confirmation code is computed over the previous one, starting from
// H_E.
func VerifyChain(pv *election.PreVotingData, ballots []*Ballot) error {
	aux := pv.HE.Bytes()
	for n, b := range ballots {
		if err := b.Verify(pv, aux); err != nil {
			return fmt.Errorf("%w: ballot %d: %w", ErrChainBroken, n, err)
		}
		aux = b.ConfirmationCode.Bytes()
	}
	return nil
}

// Reencrypt reproduces the encrypted contests from a revealed primary
// nonce and the claimed plaintext. Matching ciphertexts prove the
// plaintext is what the ballot encrypted.
func Reencrypt(pv *election.PreVotingData, b *Ballot, primary [32]byte, vs *VoterSelections) error {
	if vs.StyleIndex != b.StyleIndex {
		return fmt.Errorf("%w: style %d vs %d", ErrSelectionShape, vs.StyleIndex, b.StyleIndex)
	}
	for _, cc := range b.Contests {
		values, ok := vs.Selections[cc.ContestIndex]
		if !ok || len(values) != len(cc.Selections) {
			return fmt.Errorf("%w: contest %d", ErrSelectionShape, cc.ContestIndex)
		}
		for j := range values {
			nonce := selectionNonce(pv, primary, cc.ContestIndex, uint32(j)+1)
			if ct := Encrypt(pv, nonce, values[j]); !ct.Alpha.Equal(cc.Selections[j].Alpha) ||
				!ct.Beta.Equal(cc.Selections[j].Beta) {
				return fmt.Errorf("%w: contest %d option %d", ErrCodeMismatch, cc.ContestIndex, j+1)
			}
		}
	}
	return nil
}

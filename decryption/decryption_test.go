package decryption

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/ballot"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/keyceremony"
	"github.com/openelection/electionguard-go/manifest"
	"github.com/openelection/electionguard-go/params"
	"github.com/openelection/electionguard-go/tally"
)

// fixture is a complete election through the key ceremony, with every
// guardian's secret key share available for quorum selection.
type fixture struct {
	pv      *election.PreVotingData
	publics []*keyceremony.GuardianPublicKey
	shares  []*keyceremony.GuardianSecretKeyShare
	dl      *algebra.DiscreteLog
	rng     *csprng.Source
}

func setup(t *testing.T, n, k uint32) *fixture {
	t.Helper()

	ep := &params.ElectionParameters{
		Fixed: params.ToyQ32P128(),
		Varying: params.VaryingParameters{
			N: n, K: k, Date: "2026-11-03", Info: "Decryption tests",
		},
	}
	hp := ep.Fixed.ParameterBaseHash()
	rng := csprng.NewInsecureDeterministic("decryption fixture")

	secrets := make([]*keyceremony.GuardianSecretKey, n)
	publics := make([]*keyceremony.GuardianPublicKey, n)
	for i := uint32(1); i <= n; i++ {
		sk, err := keyceremony.GenerateGuardianSecretKey(rng, ep.Fixed, hp,
			keyceremony.GuardianIndex(i), k, fmt.Sprintf("Guardian %d", i))
		require.NoError(t, err)
		secrets[i-1] = sk
		publics[i-1] = sk.PublicKey()
	}

	shares := make([]*keyceremony.GuardianSecretKeyShare, n)
	for l := uint32(1); l <= n; l++ {
		var incoming []*keyceremony.EncryptedShare
		for i := uint32(1); i <= n; i++ {
			es, err := keyceremony.EncryptShare(rng, ep.Fixed, hp, secrets[i-1], publics[l-1])
			require.NoError(t, err)
			incoming = append(incoming, es)
		}
		share, err := keyceremony.ComputeSecretKeyShare(ep, hp, secrets[l-1], publics, incoming)
		require.NoError(t, err)
		shares[l-1] = share
	}

	jointK, err := keyceremony.ComputeJointPublicKey(ep, publics)
	require.NoError(t, err)

	m, err := manifest.New("Decryption Tests",
		[]manifest.Contest{{
			Label:          "Pick One",
			SelectionLimit: manifest.ContestLimit(1),
			Options: []manifest.ContestOption{
				{Label: "Alpha"}, {Label: "Beta"},
			},
		}},
		[]manifest.BallotStyle{{Label: "Default", Contests: []uint32{1}}})
	require.NoError(t, err)

	keys := election.JointPublicKeys{
		K:    jointK,
		KHat: ep.Fixed.Group.GExp(ep.Fixed.Field.FromUint64(7)),
	}
	pv, err := election.NewPreVotingData(ep, m, keys)
	require.NoError(t, err)

	return &fixture{
		pv:      pv,
		publics: publics,
		shares:  shares,
		dl:      algebra.NewDiscreteLog(jointK, pv.Group()),
		rng:     rng,
	}
}

func (f *fixture) quorum(indices ...int) []*Guardian {
	out := make([]*Guardian, len(indices))
	for n, i := range indices {
		out[n] = NewGuardian(f.shares[i-1])
	}
	return out
}

// castVotes encrypts and casts ballots with the given selections and
// returns the accumulated tally.
func (f *fixture) castVotes(t *testing.T, votes [][]uint32) *tally.Tally {
	t.Helper()
	dev := ballot.NewDevice(f.pv, f.rng)
	tl := tally.New(f.pv)
	for _, v := range votes {
		b, err := dev.Encrypt(&ballot.VoterSelections{
			StyleIndex: 1,
			Selections: map[uint32][]uint32{1: v},
		})
		require.NoError(t, err)
		require.NoError(t, b.Cast())
		require.NoError(t, tl.Accumulate(b))
	}
	return tl
}

func TestThresholdDecryptionEndToEnd(t *testing.T) {
	f := setup(t, 5, 3)
	tl := f.castVotes(t, [][]uint32{
		{1, 0}, {0, 1}, {1, 0}, {1, 0}, {0, 1}, {1, 0},
	})

	results, err := DecryptTally(f.rng, f.pv, f.publics, f.quorum(1, 2, 3), tl, f.dl)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []uint64{4, 2}, results[0].Values)

	cts, err := tl.Contest(1)
	require.NoError(t, err)
	for j, vd := range results[0].Decryptions {
		assert.NoError(t, vd.Verify(f.pv, cts[j], f.dl), "field %d", j+1)
	}
}

func TestDifferentQuorumsAgree(t *testing.T) {
	f := setup(t, 5, 3)
	tl := f.castVotes(t, [][]uint32{{1, 0}, {0, 1}, {0, 1}})

	a, err := DecryptTally(f.rng, f.pv, f.publics, f.quorum(1, 3, 5), tl, f.dl)
	require.NoError(t, err)
	b, err := DecryptTally(f.rng, f.pv, f.publics, f.quorum(2, 4, 5), tl, f.dl)
	require.NoError(t, err)

	assert.Equal(t, a[0].Values, b[0].Values)
	assert.Equal(t, []uint64{1, 2}, a[0].Values)

	// Same M from either quorum: the interpolation target is unique.
	for j := range a[0].Decryptions {
		assert.True(t, a[0].Decryptions[j].M.Equal(b[0].Decryptions[j].M))
	}
}

func TestOversizedQuorumStillDecrypts(t *testing.T) {
	f := setup(t, 5, 3)
	tl := f.castVotes(t, [][]uint32{{1, 0}})

	results, err := DecryptTally(f.rng, f.pv, f.publics, f.quorum(1, 2, 3, 4, 5), tl, f.dl)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 0}, results[0].Values)
}

func TestDecryptQuorumErrors(t *testing.T) {
	f := setup(t, 5, 3)
	tl := f.castVotes(t, [][]uint32{{1, 0}})
	cts, err := tl.Contest(1)
	require.NoError(t, err)

	_, err = Decrypt(f.rng, f.pv, f.publics, f.quorum(1, 2), cts[0], 1, 1, f.dl)
	assert.ErrorIs(t, err, ErrQuorumSize)

	_, err = Decrypt(f.rng, f.pv, f.publics, f.quorum(1, 2, 2), cts[0], 1, 1, f.dl)
	assert.ErrorIs(t, err, ErrQuorumDuplicate)
}

func TestCheatingGuardianIsIdentified(t *testing.T) {
	f := setup(t, 3, 2)
	tl := f.castVotes(t, [][]uint32{{1, 0}})
	cts, err := tl.Contest(1)
	require.NoError(t, err)

	quorum := f.quorum(1, 2)
	field := f.pv.Field()
	quorum[1].Z = field.Add(quorum[1].Z, field.One())

	_, err = Decrypt(f.rng, f.pv, f.publics, quorum, cts[0], 1, 1, f.dl)
	require.ErrorIs(t, err, ErrShareInvalid)
	assert.Contains(t, err.Error(), "guardian 2")
}

func TestVerifyRejectsTampering(t *testing.T) {
	f := setup(t, 3, 2)
	tl := f.castVotes(t, [][]uint32{{0, 1}, {0, 1}})
	cts, err := tl.Contest(1)
	require.NoError(t, err)

	results, err := DecryptTally(f.rng, f.pv, f.publics, f.quorum(2, 3), tl, f.dl)
	require.NoError(t, err)
	vd := results[0].Decryptions[1]
	require.NoError(t, vd.Verify(f.pv, cts[1], f.dl))

	field := f.pv.Field()

	tampered := *vd
	tampered.Proof.Response = field.Add(tampered.Proof.Response, field.One())
	assert.ErrorIs(t, tampered.Verify(f.pv, cts[1], f.dl), ErrProofInvalid)

	wrongValue := *vd
	wrongValue.Plaintext = 7
	assert.ErrorIs(t, wrongValue.Verify(f.pv, cts[1], f.dl), ErrProofInvalid)

	// Proof bound to the decrypted field index.
	wrongField := *vd
	wrongField.FieldIndex = 1
	assert.ErrorIs(t, wrongField.Verify(f.pv, cts[1], f.dl), ErrProofInvalid)
}

func TestChallengedBallotDecryption(t *testing.T) {
	f := setup(t, 3, 2)
	dev := ballot.NewDevice(f.pv, f.rng)

	b, err := dev.Encrypt(&ballot.VoterSelections{
		StyleIndex: 1,
		Selections: map[uint32][]uint32{1: {0, 1}},
	})
	require.NoError(t, err)

	// Undecided ballots are not decryptable either.
	_, err = DecryptChallengedBallot(f.rng, f.pv, f.publics, f.quorum(1, 2), b, f.dl)
	assert.ErrorIs(t, err, ballot.ErrStateTransition)

	require.NoError(t, b.Challenge())
	results, err := DecryptChallengedBallot(f.rng, f.pv, f.publics, f.quorum(1, 2), b, f.dl)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []uint64{0, 1}, results[0].Values)
}

func TestCastBallotDecryptionRefused(t *testing.T) {
	f := setup(t, 3, 2)
	dev := ballot.NewDevice(f.pv, f.rng)

	b, err := dev.Encrypt(&ballot.VoterSelections{
		StyleIndex: 1,
		Selections: map[uint32][]uint32{1: {1, 0}},
	})
	require.NoError(t, err)
	require.NoError(t, b.Cast())

	_, err = DecryptChallengedBallot(f.rng, f.pv, f.publics, f.quorum(1, 2), b, f.dl)
	assert.ErrorIs(t, err, ballot.ErrDecryptCastBallot)
}

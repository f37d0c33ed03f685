package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openelection/electionguard-go/ballot"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/manifest"
	"github.com/openelection/electionguard-go/params"
)

func testElection(t *testing.T) *election.PreVotingData {
	t.Helper()

	m, err := manifest.New("Tally Tests",
		[]manifest.Contest{{
			Label:          "Pick One",
			SelectionLimit: manifest.ContestLimit(1),
			Options: []manifest.ContestOption{
				{Label: "Alpha"}, {Label: "Beta"},
			},
		}},
		[]manifest.BallotStyle{{Label: "Default", Contests: []uint32{1}}})
	require.NoError(t, err)

	ep := &params.ElectionParameters{
		Fixed: params.ToyQ32P128(),
		Varying: params.VaryingParameters{
			N: 1, K: 1, Date: "2026-11-03", Info: "Tally tests",
		},
	}
	fp := ep.Fixed
	keys := election.JointPublicKeys{
		K:    fp.Group.GExp(fp.Field.FromUint64(31)),
		KHat: fp.Group.GExp(fp.Field.FromUint64(41)),
	}
	pv, err := election.NewPreVotingData(ep, m, keys)
	require.NoError(t, err)
	return pv
}

func castBallot(t *testing.T, dev *ballot.Device, alpha, beta uint32) *ballot.Ballot {
	t.Helper()
	b, err := dev.Encrypt(&ballot.VoterSelections{
		StyleIndex: 1,
		Selections: map[uint32][]uint32{1: {alpha, beta}},
	})
	require.NoError(t, err)
	require.NoError(t, b.Cast())
	return b
}

func TestAccumulateOnlyCastBallots(t *testing.T) {
	pv := testElection(t)
	dev := ballot.NewDevice(pv, csprng.NewInsecureDeterministic("cast only"))
	tl := New(pv)

	undecided, err := dev.Encrypt(&ballot.VoterSelections{
		StyleIndex: 1,
		Selections: map[uint32][]uint32{1: {1, 0}},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, tl.Accumulate(undecided), ErrBallotNotCast)

	require.NoError(t, undecided.Spoil())
	assert.ErrorIs(t, tl.Accumulate(undecided), ErrBallotNotCast)

	require.NoError(t, tl.Accumulate(castBallot(t, dev, 0, 1)))
	assert.Equal(t, uint64(1), tl.BallotCount())
	assert.Equal(t, []uint32{1}, tl.ContestIndices())

	_, err = tl.Contest(2)
	assert.ErrorIs(t, err, ErrUnknownContest)
}

func TestAccumulationOrderIndependent(t *testing.T) {
	pv := testElection(t)
	dev := ballot.NewDevice(pv, csprng.NewInsecureDeterministic("order"))

	ballots := []*ballot.Ballot{
		castBallot(t, dev, 1, 0),
		castBallot(t, dev, 0, 1),
		castBallot(t, dev, 1, 0),
	}

	forward := New(pv)
	for _, b := range ballots {
		require.NoError(t, forward.Accumulate(b))
	}
	backward := New(pv)
	for i := len(ballots) - 1; i >= 0; i-- {
		require.NoError(t, backward.Accumulate(ballots[i]))
	}

	a, err := forward.Contest(1)
	require.NoError(t, err)
	b, err := backward.Contest(1)
	require.NoError(t, err)
	require.Len(t, a, 2)
	for j := range a {
		assert.True(t, a[j].Alpha.Equal(b[j].Alpha), "option %d", j+1)
		assert.True(t, a[j].Beta.Equal(b[j].Beta), "option %d", j+1)
	}
}

func TestScaledAccumulationMatchesRepeats(t *testing.T) {
	pv := testElection(t)
	dev := ballot.NewDevice(pv, csprng.NewInsecureDeterministic("weights"))
	b := castBallot(t, dev, 1, 0)

	weighted := New(pv)
	require.NoError(t, weighted.AccumulateScaled(b, 3))

	repeated := New(pv)
	for i := 0; i < 3; i++ {
		require.NoError(t, repeated.Accumulate(b))
	}

	w, err := weighted.Contest(1)
	require.NoError(t, err)
	r, err := repeated.Contest(1)
	require.NoError(t, err)
	for j := range w {
		assert.True(t, w[j].Alpha.Equal(r[j].Alpha))
		assert.True(t, w[j].Beta.Equal(r[j].Beta))
	}
}

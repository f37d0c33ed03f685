// Package tally accumulates cast ballots into per-contest homomorphic
// sums. Accumulation is commutative, so the result is independent of
// the order ballots arrive in.
package tally

import (
	"errors"
	"fmt"
	"sort"

	"github.com/openelection/electionguard-go/ballot"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/log"
)

var (
	ErrBallotNotCast  = errors.New("tally: only cast ballots are tallied")
	ErrBallotShape    = errors.New("tally: ballot does not match the manifest")
	ErrUnknownContest = errors.New("tally: no such contest in the tally")
)

// Tally is the encrypted tally accumulator. Contests appear lazily as
// ballots referencing them arrive.
type Tally struct {
	pv       *election.PreVotingData
	contests map[uint32][]ballot.Ciphertext
	ballots  uint64
}

// New returns an empty tally for the election.
func New(pv *election.PreVotingData) *Tally {
	return &Tally{pv: pv, contests: make(map[uint32][]ballot.Ciphertext)}
}

// Accumulate adds a cast ballot with weight 1.
func (t *Tally) Accumulate(b *ballot.Ballot) error {
	return t.AccumulateScaled(b, 1)
}

// AccumulateScaled adds a cast ballot with an integer weight, for
// voting systems where ballots carry unequal weights.
func (t *Tally) AccumulateScaled(b *ballot.Ballot, weight uint64) error {
	if b.State != ballot.StateCast {
		return fmt.Errorf("%w: ballot %s is %s", ErrBallotNotCast, b.ID, b.State)
	}

	group, field := t.pv.Group(), t.pv.Field()
	for _, cc := range b.Contests {
		contest, err := t.pv.Manifest.Contest(cc.ContestIndex)
		if err != nil {
			return err
		}
		if len(cc.Selections) != len(contest.Options) {
			return fmt.Errorf("%w: contest %d has %d options, ballot has %d",
				ErrBallotShape, cc.ContestIndex, len(contest.Options), len(cc.Selections))
		}

		acc, ok := t.contests[cc.ContestIndex]
		if !ok {
			acc = make([]ballot.Ciphertext, len(contest.Options))
			for j := range acc {
				acc[j] = ballot.Ciphertext{Alpha: group.One(), Beta: group.One()}
			}
		}
		for j := range cc.Selections {
			ct := cc.Selections[j]
			if weight != 1 {
				ct = ct.Scale(group, field, weight)
			}
			acc[j] = ballot.Combine(group, acc[j], ct)
		}
		t.contests[cc.ContestIndex] = acc
	}

	t.ballots++
	log.Debugf("tallied ballot %s (weight %d, total %d)", b.ID, weight, t.ballots)
	return nil
}

// BallotCount reports how many ballots have been accumulated.
func (t *Tally) BallotCount() uint64 { return t.ballots }

// ContestIndices lists the contests present in the tally, sorted.
func (t *Tally) ContestIndices() []uint32 {
	out := make([]uint32, 0, len(t.contests))
	for ix := range t.contests {
		out = append(out, ix)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Contest returns the accumulated ciphertexts of one contest, one per
// option.
func (t *Tally) Contest(ix uint32) ([]ballot.Ciphertext, error) {
	acc, ok := t.contests[ix]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownContest, ix)
	}
	return append([]ballot.Ciphertext(nil), acc...), nil
}

package decryption

import (
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/ballot"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/keyceremony"
	"github.com/openelection/electionguard-go/log"
	"github.com/openelection/electionguard-go/tally"
)

// ContestResult is the verifiable decryption of one tallied contest.
type ContestResult struct {
	ContestIndex uint32                  `json:"l"`
	Values       []uint64                `json:"values"`
	Decryptions  []*VerifiableDecryption `json:"decryptions"`
}

// DecryptTally decrypts every accumulated contest of the tally with the
// given quorum.
func DecryptTally(rng *csprng.Source, pv *election.PreVotingData,
	publics []*keyceremony.GuardianPublicKey, quorum []*Guardian,
	t *tally.Tally, dl *algebra.DiscreteLog) ([]ContestResult, error) {

	var results []ContestResult
	for _, contestIx := range t.ContestIndices() {
		cts, err := t.Contest(contestIx)
		if err != nil {
			return nil, err
		}
		result := ContestResult{
			ContestIndex: contestIx,
			Values:       make([]uint64, len(cts)),
			Decryptions:  make([]*VerifiableDecryption, len(cts)),
		}
		for j, ct := range cts {
			vd, err := Decrypt(rng, pv, publics, quorum, ct, contestIx, uint32(j)+1, dl)
			if err != nil {
				return nil, fmt.Errorf("contest %d field %d: %w", contestIx, j+1, err)
			}
			result.Values[j] = vd.Plaintext
			result.Decryptions[j] = vd
		}
		results = append(results, result)
		log.Infof("decrypted contest %d: %v", contestIx, result.Values)
	}
	return results, nil
}

// DecryptChallengedBallot decrypts every selection of a challenged
// ballot. Decrypting a cast ballot is refused unconditionally.
func DecryptChallengedBallot(rng *csprng.Source, pv *election.PreVotingData,
	publics []*keyceremony.GuardianPublicKey, quorum []*Guardian,
	b *ballot.Ballot, dl *algebra.DiscreteLog) ([]ContestResult, error) {

	switch b.State {
	case ballot.StateCast:
		return nil, ballot.ErrDecryptCastBallot
	case ballot.StateChallenged, ballot.StateChallengedDecrypted:
	default:
		return nil, fmt.Errorf("%w: %s", ballot.ErrStateTransition, b.State)
	}

	var results []ContestResult
	for _, cc := range b.Contests {
		result := ContestResult{
			ContestIndex: cc.ContestIndex,
			Values:       make([]uint64, len(cc.Selections)),
			Decryptions:  make([]*VerifiableDecryption, len(cc.Selections)),
		}
		for j, ct := range cc.Selections {
			vd, err := Decrypt(rng, pv, publics, quorum, ct, cc.ContestIndex, uint32(j)+1, dl)
			if err != nil {
				return nil, fmt.Errorf("ballot %s contest %d option %d: %w", b.ID, cc.ContestIndex, j+1, err)
			}
			result.Values[j] = vd.Plaintext
			result.Decryptions[j] = vd
		}
		results = append(results, result)
	}
	return results, nil
}

// Package verify implements the independent verifier: given a full
// election record it re-derives the hash chain, re-checks every proof
// and re-aggregates the tally. Checks are itemized so a failure names
// the artifact that broke.
package verify

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/ballot"
	"github.com/openelection/electionguard-go/decryption"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/keyceremony"
	"github.com/openelection/electionguard-go/log"
	"github.com/openelection/electionguard-go/params"
	"github.com/openelection/electionguard-go/tally"
)

var (
	ErrRecordInvalid = errors.New("verify: election record does not verify")
	ErrJointKey      = errors.New("verify: joint key does not match the guardian commitments")
	ErrBaseHash      = errors.New("verify: extended base hash does not match the record")
	ErrTallyMismatch = errors.New("verify: published tally does not match the cast ballots")
)

// Record is the complete published election record.
type Record struct {
	PV           *election.PreVotingData
	GuardianKeys []*keyceremony.GuardianPublicKey

	// Ballots holds every encrypted ballot in encryption order,
	// whatever its final state: spoiled and challenged ballots stay in
	// the record so the confirmation-code chain stays connected. Only
	// cast ballots enter the tally.
	Ballots []*ballot.Ballot

	Results []decryption.ContestResult
}

// Verifier re-checks a record. The zero value is not usable; construct
// with New.
type Verifier struct {
	record      *Record
	concurrency int
	failFast    bool
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithConcurrency caps the number of checks running in parallel.
// Zero or negative means unlimited.
func WithConcurrency(n int) Option {
	return func(v *Verifier) { v.concurrency = n }
}

// FailFast makes Run return on the first failed check, cancelling the
// remaining ones, instead of itemizing every failure.
func FailFast() Option {
	return func(v *Verifier) { v.failFast = true }
}

// New returns a verifier over the record.
func New(record *Record, opts ...Option) *Verifier {
	v := &Verifier{record: record}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Item is the outcome of one named check.
type Item struct {
	Name string
	Err  error
}

// Report collects every check outcome.
type Report struct {
	Items []Item
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, it := range r.Items {
		if it.Err != nil {
			return false
		}
	}
	return true
}

// Err summarizes the failed checks, or returns nil.
func (r *Report) Err() error {
	var failed []string
	for _, it := range r.Items {
		if it.Err != nil {
			failed = append(failed, it.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRecordInvalid, failed)
}

// Run executes every check. All checks run even when earlier ones
// fail; the report carries one entry per check.
func (v *Verifier) Run(ctx context.Context) (*Report, error) {
	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"parameters", v.checkParameters},
		{"guardian-keys", v.checkGuardianKeys},
		{"joint-key", v.checkJointKey},
		{"base-hashes", v.checkBaseHashes},
		{"ballots", v.checkBallots},
		{"tally", v.checkTally},
		{"decryptions", v.checkDecryptions},
	}

	report := &Report{Items: make([]Item, len(checks))}
	g, ctx := errgroup.WithContext(ctx)
	if v.concurrency > 0 {
		g.SetLimit(v.concurrency)
	}
	for n, check := range checks {
		n, check := n, check
		g.Go(func() error {
			err := check.fn(ctx)
			report.Items[n] = Item{Name: check.name, Err: err}
			if err != nil {
				log.Warnf("check %s failed: %v", check.name, err)
				if v.failFast {
					return fmt.Errorf("%s: %w", check.name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (v *Verifier) checkParameters(context.Context) error {
	return v.record.PV.Parameters.Validate()
}

func (v *Verifier) checkGuardianKeys(ctx context.Context) error {
	pv := v.record.PV
	for _, pk := range v.record.GuardianKeys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := pk.Validate(pv.Parameters, pv.Hashes.HP); err != nil {
			return err
		}
	}
	if uint32(len(v.record.GuardianKeys)) != pv.Parameters.Varying.N {
		return fmt.Errorf("%w: %d guardian keys for n=%d",
			ErrRecordInvalid, len(v.record.GuardianKeys), pv.Parameters.Varying.N)
	}
	return nil
}

func (v *Verifier) checkJointKey(context.Context) error {
	pv := v.record.PV
	joint, err := keyceremony.ComputeJointPublicKey(pv.Parameters, v.record.GuardianKeys)
	if err != nil {
		return err
	}
	if !joint.Equal(pv.JointKeys.K) {
		return ErrJointKey
	}
	return nil
}

func (v *Verifier) checkBaseHashes(context.Context) error {
	pv := v.record.PV
	hashes, err := election.ComputeHashes(pv.Parameters, pv.Manifest)
	if err != nil {
		return err
	}
	if hashes != pv.Hashes {
		return ErrBaseHash
	}
	if election.ExtendedBaseHash(hashes.HB, pv.JointKeys, pv.Group()) != pv.HE {
		return ErrBaseHash
	}
	return nil
}

func (v *Verifier) checkBallots(ctx context.Context) error {
	pv := v.record.PV
	if pv.Parameters.Varying.Chaining != params.ChainingProhibited {
		// Chained codes impose an order, so the chain walks sequentially.
		return ballot.VerifyChain(pv, v.record.Ballots)
	}
	g, ctx := errgroup.WithContext(ctx)
	if v.concurrency > 0 {
		g.SetLimit(v.concurrency)
	}
	for _, b := range v.record.Ballots {
		b := b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := b.Verify(pv, nil); err != nil {
				return fmt.Errorf("ballot %s: %w", b.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// reaggregate recomputes the encrypted tally from the record's cast
// ballots, skipping spoiled and challenged ones.
func (v *Verifier) reaggregate() (*tally.Tally, error) {
	tl := tally.New(v.record.PV)
	for _, b := range v.record.Ballots {
		if b.State != ballot.StateCast {
			continue
		}
		if err := tl.Accumulate(b); err != nil {
			return nil, err
		}
	}
	return tl, nil
}

func (v *Verifier) checkTally(context.Context) error {
	tl, err := v.reaggregate()
	if err != nil {
		return err
	}
	indices := tl.ContestIndices()
	if len(indices) != len(v.record.Results) {
		return fmt.Errorf("%w: %d contests tallied, %d published",
			ErrTallyMismatch, len(indices), len(v.record.Results))
	}
	for n, result := range v.record.Results {
		if result.ContestIndex != indices[n] {
			return fmt.Errorf("%w: contest %d missing from the results", ErrTallyMismatch, indices[n])
		}
	}
	return nil
}

func (v *Verifier) checkDecryptions(ctx context.Context) error {
	pv := v.record.PV
	tl, err := v.reaggregate()
	if err != nil {
		return err
	}
	dl := algebra.NewDiscreteLog(pv.JointKeys.K, pv.Group())

	for _, result := range v.record.Results {
		cts, err := tl.Contest(result.ContestIndex)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTallyMismatch, err)
		}
		if len(result.Decryptions) != len(cts) || len(result.Values) != len(cts) {
			return fmt.Errorf("%w: contest %d shape", ErrTallyMismatch, result.ContestIndex)
		}
		for j, vd := range result.Decryptions {
			if err := ctx.Err(); err != nil {
				return err
			}
			if vd.ContestIndex != result.ContestIndex || vd.FieldIndex != uint32(j)+1 {
				return fmt.Errorf("%w: contest %d field %d mislabeled",
					ErrRecordInvalid, result.ContestIndex, j+1)
			}
			if vd.Plaintext != result.Values[j] {
				return fmt.Errorf("%w: contest %d field %d value", ErrRecordInvalid, result.ContestIndex, j+1)
			}
			if err := vd.Verify(pv, cts[j], dl); err != nil {
				return fmt.Errorf("contest %d field %d: %w", result.ContestIndex, j+1, err)
			}
		}
	}
	return nil
}

// Package manifest models the election manifest: contests, selectable
// options, ballot styles and their selection limits. The canonical
// serialization of the manifest is a hash input, so construction
// validates every label and index exactly.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrContestIndex   = errors.New("manifest: contest index out of range")
	ErrEmptyManifest  = errors.New("manifest: no contests")
	ErrNoOptions      = errors.New("manifest: contest has no options")
	ErrNoBallotStyles = errors.New("manifest: no ballot styles")
	ErrStyleIndex     = errors.New("manifest: ballot style index out of range")
)

// ContestOption is one selectable option within a contest.
type ContestOption struct {
	Label          string               `json:"label"`
	SelectionLimit OptionSelectionLimit `json:"selection_limit"`
}

// Contest is a set of options with a contest-wide selection limit.
// Options are identified by their 1-based position.
type Contest struct {
	Label          string                `json:"label"`
	SelectionLimit ContestSelectionLimit `json:"selection_limit"`
	Options        []ContestOption       `json:"contest_options"`
}

// EffectiveOptionLimit returns the limit actually enforced for the
// 1-based option index j.
func (c *Contest) EffectiveOptionLimit(j uint32) (uint32, error) {
	if j < 1 || int(j) > len(c.Options) {
		return 0, fmt.Errorf("%w: option %d of %d", ErrContestIndex, j, len(c.Options))
	}
	return c.Options[j-1].SelectionLimit.Effective(c.SelectionLimit), nil
}

// EffectiveContestLimit returns the limit enforced on the sum of the
// contest's selections: the contest limit, but never more than the sum
// of the effective option limits.
func (c *Contest) EffectiveContestLimit() uint32 {
	var optionSum uint64
	for j := range c.Options {
		optionSum += uint64(c.Options[j].SelectionLimit.Effective(c.SelectionLimit))
		if optionSum >= LimitMax {
			optionSum = LimitMax
			break
		}
	}
	limit := uint64(c.SelectionLimit.Value())
	if optionSum < limit {
		return uint32(optionSum)
	}
	return uint32(limit)
}

// BallotStyle names the subset of contests appearing on one ballot
// style, as sorted 1-based contest indices.
type BallotStyle struct {
	Label    string   `json:"label"`
	Contests []uint32 `json:"contests"`
}

// Contains reports whether the style includes the contest.
func (bs *BallotStyle) Contains(contestIx uint32) bool {
	for _, ix := range bs.Contests {
		if ix == contestIx {
			return true
		}
	}
	return false
}

// Manifest is the full election description. Immutable once validated.
type Manifest struct {
	Label        string        `json:"label"`
	Contests     []Contest     `json:"contests"`
	BallotStyles []BallotStyle `json:"ballot_styles"`
}

// New validates and returns a manifest.
func New(label string, contests []Contest, styles []BallotStyle) (*Manifest, error) {
	m := &Manifest{Label: label, Contests: contests, BallotStyles: styles}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks all labels and index references.
func (m *Manifest) Validate() error {
	if err := ValidateLabel(m.Label); err != nil {
		return fmt.Errorf("election label: %w", err)
	}
	if len(m.Contests) == 0 {
		return ErrEmptyManifest
	}
	if len(m.BallotStyles) == 0 {
		return ErrNoBallotStyles
	}
	for i := range m.Contests {
		c := &m.Contests[i]
		if err := ValidateLabel(c.Label); err != nil {
			return fmt.Errorf("contest %d label: %w", i+1, err)
		}
		if len(c.Options) == 0 {
			return fmt.Errorf("contest %d: %w", i+1, ErrNoOptions)
		}
		for j := range c.Options {
			if err := ValidateLabel(c.Options[j].Label); err != nil {
				return fmt.Errorf("contest %d option %d label: %w", i+1, j+1, err)
			}
		}
	}
	for i := range m.BallotStyles {
		bs := &m.BallotStyles[i]
		if err := ValidateLabel(bs.Label); err != nil {
			return fmt.Errorf("ballot style %d label: %w", i+1, err)
		}
		if !sort.SliceIsSorted(bs.Contests, func(a, b int) bool {
			return bs.Contests[a] < bs.Contests[b]
		}) {
			return fmt.Errorf("ballot style %d: contest indices must be sorted", i+1)
		}
		seen := map[uint32]bool{}
		for _, ix := range bs.Contests {
			if ix < 1 || int(ix) > len(m.Contests) {
				return fmt.Errorf("ballot style %d: %w (%d)", i+1, ErrContestIndex, ix)
			}
			if seen[ix] {
				return fmt.Errorf("ballot style %d: duplicate contest %d", i+1, ix)
			}
			seen[ix] = true
		}
	}
	return nil
}

// Contest returns the contest with the 1-based index.
func (m *Manifest) Contest(ix uint32) (*Contest, error) {
	if ix < 1 || int(ix) > len(m.Contests) {
		return nil, fmt.Errorf("%w: %d", ErrContestIndex, ix)
	}
	return &m.Contests[ix-1], nil
}

// Style returns the ballot style with the 1-based index.
func (m *Manifest) Style(ix uint32) (*BallotStyle, error) {
	if ix < 1 || int(ix) > len(m.BallotStyles) {
		return nil, fmt.Errorf("%w: %d", ErrStyleIndex, ix)
	}
	return &m.BallotStyles[ix-1], nil
}

// CanonicalBytes is the hash input form: UTF-8 JSON with no
// insignificant whitespace and keys in declaration order.
func (m *Manifest) CanonicalBytes() ([]byte, error) {
	return json.Marshal(m)
}

// PrettyBytes is the human-readable form. Never a hash input.
func (m *Manifest) PrettyBytes() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

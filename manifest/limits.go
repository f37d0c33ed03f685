package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
)

// LimitMax is the largest expressible selection limit, kept at 2^31-1
// for compatibility with the other small integers in the record.
const LimitMax = 1<<31 - 1

var ErrLimitOutOfRange = errors.New("manifest: selection limit out of supported range")

// ContestSelectionLimit caps the total number of selections that may be
// distributed over a contest's options. The zero value means the limit
// was not stated and defaults to 1. It serializes as a JSON number or
// the sentinel string "NO_LIMIT".
type ContestSelectionLimit struct {
	noLimit bool
	stated  bool
	n       uint32
}

// ContestLimit states an explicit contest selection limit.
func ContestLimit(n uint32) ContestSelectionLimit {
	return ContestSelectionLimit{stated: true, n: n}
}

// ContestNoLimit states that only the option limits apply.
func ContestNoLimit() ContestSelectionLimit {
	return ContestSelectionLimit{noLimit: true, stated: true}
}

// Value resolves the limit: the stated value, 1 when unstated, LimitMax
// for NO_LIMIT.
func (l ContestSelectionLimit) Value() uint32 {
	switch {
	case l.noLimit:
		return LimitMax
	case !l.stated:
		return 1
	default:
		return l.n
	}
}

func (l ContestSelectionLimit) MarshalJSON() ([]byte, error) {
	if l.noLimit {
		return json.Marshal("NO_LIMIT")
	}
	return json.Marshal(l.Value())
}

func (l *ContestSelectionLimit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "NO_LIMIT" {
			return fmt.Errorf("%w: unknown sentinel %q", ErrLimitOutOfRange, s)
		}
		*l = ContestNoLimit()
		return nil
	}
	var n uint64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n > LimitMax {
		return fmt.Errorf("%w: %d", ErrLimitOutOfRange, n)
	}
	*l = ContestLimit(uint32(n))
	return nil
}

// OptionSelectionLimit caps the number of selections a single option
// may receive. The zero value means the limit was not stated and
// defaults to 1. It serializes as a JSON number or the sentinel string
// "CONTEST_LIMIT".
type OptionSelectionLimit struct {
	contestBound bool
	stated       bool
	n            uint32
}

// OptionLimit states an explicit option selection limit.
func OptionLimit(n uint32) OptionSelectionLimit {
	return OptionSelectionLimit{stated: true, n: n}
}

// OptionLimitedOnlyByContest defers entirely to the contest limit.
func OptionLimitedOnlyByContest() OptionSelectionLimit {
	return OptionSelectionLimit{contestBound: true, stated: true}
}

// Effective resolves the option limit against the enclosing contest:
// min(option limit, contest limit), with the CONTEST_LIMIT sentinel
// meaning the contest limit itself.
func (l OptionSelectionLimit) Effective(contest ContestSelectionLimit) uint32 {
	contestValue := contest.Value()
	if l.contestBound {
		return contestValue
	}
	stated := uint32(1)
	if l.stated {
		stated = l.n
	}
	if stated < contestValue {
		return stated
	}
	return contestValue
}

func (l OptionSelectionLimit) MarshalJSON() ([]byte, error) {
	if l.contestBound {
		return json.Marshal("CONTEST_LIMIT")
	}
	if !l.stated {
		return json.Marshal(uint32(1))
	}
	return json.Marshal(l.n)
}

func (l *OptionSelectionLimit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "CONTEST_LIMIT" {
			return fmt.Errorf("%w: unknown sentinel %q", ErrLimitOutOfRange, s)
		}
		*l = OptionLimitedOnlyByContest()
		return nil
	}
	var n uint64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n > LimitMax {
		return fmt.Errorf("%w: %d", ErrLimitOutOfRange, n)
	}
	*l = OptionLimit(uint32(n))
	return nil
}

package manifest

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	ErrLabelWhitespace   = errors.New("manifest: label has leading, trailing or repeated whitespace")
	ErrLabelForbidden    = errors.New("manifest: label contains a forbidden character")
	ErrLabelNotPrintable = errors.New("manifest: label has no printable characters")
)

// ValidateLabel enforces the label rules: UTF-8, no leading or trailing
// whitespace, no run of whitespace other than a single space, no line
// breaks, control characters, separators, surrogates or noncharacters,
// and at least one printable character. Labels are hash inputs, so the
// rules are exact.
func ValidateLabel(s string) error {
	prevSpace := false
	printable := 0
	first := true
	lastSpace := false

	for i, r := range s {
		isSpace := unicode.IsSpace(r)
		if isSpace {
			if first {
				return fmt.Errorf("%w: leading at byte %d", ErrLabelWhitespace, i)
			}
			if prevSpace {
				return fmt.Errorf("%w: repeated at byte %d", ErrLabelWhitespace, i)
			}
			if r != ' ' {
				return fmt.Errorf("%w: %q at byte %d", ErrLabelForbidden, r, i)
			}
		} else {
			switch {
			case r == unicode.ReplacementChar && !validRuneAt(s, i):
				return fmt.Errorf("%w: invalid UTF-8 at byte %d", ErrLabelForbidden, i)
			case unicode.IsControl(r),
				unicode.Is(unicode.Zs, r),
				unicode.Is(unicode.Zl, r),
				unicode.Is(unicode.Zp, r),
				unicode.Is(unicode.Cs, r):
				return fmt.Errorf("%w: %q at byte %d", ErrLabelForbidden, r, i)
			case isNoncharacter(r):
				return fmt.Errorf("%w: noncharacter %q at byte %d", ErrLabelForbidden, r, i)
			case unicode.Is(unicode.Cf, r):
				// Format characters allowed but not printable.
			default:
				printable++
			}
		}
		prevSpace = isSpace
		lastSpace = isSpace
		first = false
	}

	if lastSpace {
		return fmt.Errorf("%w: trailing", ErrLabelWhitespace)
	}
	if printable == 0 {
		return ErrLabelNotPrintable
	}
	return nil
}

func validRuneAt(s string, i int) bool {
	// A literal U+FFFD is allowed; a decoding failure is not.
	return len(s) >= i+3 && s[i] == 0xEF && s[i+1] == 0xBF && s[i+2] == 0xBD
}

func isNoncharacter(r rune) bool {
	if r >= 0xFDD0 && r <= 0xFDEF {
		return true
	}
	if r == 0xFEFF {
		return true
	}
	return r&0xFFFE == 0xFFFE
}

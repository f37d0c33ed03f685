// Package params defines the fixed cryptographic parameters of an
// election (the primes p and q, the generator g and their provenance)
// and the per-election varying parameters (guardian count, threshold,
// jurisdiction data, ballot chaining mode).
package params

import (
	"errors"
	"fmt"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/eghash"
)

var ErrParameterInvalid = errors.New("params: parameters are invalid")

// DesignSpecVersion selects the protocol variant. The version fixes the
// hash version label H_V, so artifacts from different versions never
// hash-collide by construction.
type DesignSpecVersion int

const (
	EGDS20 DesignSpecVersion = iota
	EGDS21
)

func (v DesignSpecVersion) String() string {
	switch v {
	case EGDS20:
		return "v2.0.0"
	case EGDS21:
		return "v2.1.0"
	default:
		return fmt.Sprintf("DesignSpecVersion(%d)", int(v))
	}
}

// VersionLabel returns H_V: the UTF-8 version string zero-padded to 32
// bytes, used as the HMAC key of the parameter base hash.
func (v DesignSpecVersion) VersionLabel() eghash.HValue {
	var h eghash.HValue
	copy(h[:], v.String())
	return h
}

// GenerationParameters records how the modulus was derived, so a
// verifier can audit the provenance of non-random-looking bits.
type GenerationParameters struct {
	QBitsTotal        int    `json:"q_bits_total"`
	PBitsTotal        int    `json:"p_bits_total"`
	PBitsMSBFixed1    int    `json:"p_bits_msb_fixed_1"`
	PMiddleBitsSource string `json:"p_middle_bits_source,omitempty"`
	PBitsLSBFixed1    int    `json:"p_bits_lsb_fixed_1"`
}

// FixedParameters is the immutable cryptographic domain of the
// election. Construct once and share by reference.
type FixedParameters struct {
	Version    DesignSpecVersion
	Generation GenerationParameters
	Field      *algebra.ScalarField
	Group      *algebra.Group

	// Standard is false for the published reduced-strength sets, which
	// must never carry a real election.
	Standard bool
}

// Validate checks primality and group structure, and that the stated
// bit sizes match the actual parameter values.
func (fp *FixedParameters) Validate() error {
	if fp.Field == nil || fp.Group == nil {
		return fmt.Errorf("%w: missing field or group", ErrParameterInvalid)
	}
	if fp.Field.Order().BitLen() != fp.Generation.QBitsTotal {
		return fmt.Errorf("%w: q has %d bits, expected %d",
			ErrParameterInvalid, fp.Field.Order().BitLen(), fp.Generation.QBitsTotal)
	}
	if fp.Group.Modulus().BitLen() != fp.Generation.PBitsTotal {
		return fmt.Errorf("%w: p has %d bits, expected %d",
			ErrParameterInvalid, fp.Group.Modulus().BitLen(), fp.Generation.PBitsTotal)
	}
	if fp.Group.Order().Cmp(fp.Field.Order()) != 0 {
		return fmt.Errorf("%w: group order differs from field order", ErrParameterInvalid)
	}
	if err := fp.Field.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrParameterInvalid, err)
	}
	if err := fp.Group.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrParameterInvalid, err)
	}
	return nil
}

// ParameterBaseHash computes H_P = H(H_V; 0x00 | b(p) | b(q) | b(g)).
func (fp *FixedParameters) ParameterBaseHash() eghash.HValue {
	m := eghash.NewMessage(0x00).
		Bytes(algebra.ToBytesBE(fp.Group.Modulus(), fp.Group.ByteLen())).
		Bytes(algebra.ToBytesBE(fp.Field.Order(), fp.Field.ByteLen())).
		GroupElement(fp.Group.Generator(), fp.Group)
	return m.Finish(fp.Version.VersionLabel())
}

// ChainingMode governs whether ballot confirmation codes chain to the
// previous ballot's code.
type ChainingMode int

const (
	ChainingProhibited ChainingMode = iota
	ChainingAllowed
	ChainingRequired
)

func (c ChainingMode) String() string {
	switch c {
	case ChainingProhibited:
		return "PROHIBITED"
	case ChainingAllowed:
		return "ALLOWED"
	case ChainingRequired:
		return "REQUIRED"
	default:
		return fmt.Sprintf("ChainingMode(%d)", int(c))
	}
}

// VaryingParameters are the per-election knobs. Immutable once built.
type VaryingParameters struct {
	// N is the number of guardians.
	N uint32 `json:"n"`

	// K is the decryption quorum threshold, 1 <= K <= N.
	K uint32 `json:"k"`

	// Date of the election, hashed into H_B verbatim.
	Date string `json:"date"`

	// Info is the jurisdictional information string.
	Info string `json:"info"`

	Chaining ChainingMode `json:"ballot_chaining"`
}

func (vp *VaryingParameters) Validate() error {
	if vp.N < 1 {
		return fmt.Errorf("%w: n must be at least 1", ErrParameterInvalid)
	}
	if vp.K < 1 {
		return fmt.Errorf("%w: k must be at least 1", ErrParameterInvalid)
	}
	if vp.K > vp.N {
		return fmt.Errorf("%w: k must not exceed n", ErrParameterInvalid)
	}
	return nil
}

// ElectionParameters bundles the fixed and varying parameters.
type ElectionParameters struct {
	Fixed   *FixedParameters
	Varying VaryingParameters
}

func (ep *ElectionParameters) Validate() error {
	if err := ep.Fixed.Validate(); err != nil {
		return err
	}
	return ep.Varying.Validate()
}

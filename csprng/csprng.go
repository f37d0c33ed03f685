// Package csprng supplies the randomness used for secret coefficients,
// encryption nonces and proof commitments. A Source must never be shared
// across concurrent proof generations; nonce reuse leaks secret exponents.
package csprng

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/openelection/electionguard-go/algebra"
)

// ErrInsufficientEntropy reports a failed read from the underlying
// randomness source.
var ErrInsufficientEntropy = errors.New("csprng: randomness source failed")

// Source draws random values for one party. The zero value is not usable;
// construct with New or NewInsecureDeterministic.
type Source struct {
	r        io.Reader
	insecure bool
}

// New returns a Source backed by the operating system CSPRNG.
func New() *Source {
	return &Source{r: rand.Reader}
}

// NewInsecureDeterministic returns a Source producing a reproducible
// stream derived from seed. For test vectors only; the name is the
// warning label.
func NewInsecureDeterministic(seed string) *Source {
	// Domain-separate the seed by its length so that distinct seeds
	// cannot produce colliding stream states.
	h := sha256.New()
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(seed)))
	h.Write(lenBuf[:])
	h.Write([]byte(seed))
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return &Source{r: &deterministicStream{key: key}, insecure: true}
}

// Insecure reports whether the source is the deterministic test stream.
func (s *Source) Insecure() bool { return s.insecure }

// Bytes fills a fresh slice of length n with random bytes.
func (s *Source) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientEntropy, err)
	}
	return b, nil
}

// Bytes32 draws exactly 32 random bytes, the size of a ballot nonce or
// selection encryption identifier.
func (s *Source) Bytes32() ([32]byte, error) {
	var out [32]byte
	if _, err := io.ReadFull(s.r, out[:]); err != nil {
		return out, fmt.Errorf("%w: %w", ErrInsufficientEntropy, err)
	}
	return out, nil
}

// FieldElement samples uniformly from [0, q) by rejection, avoiding
// modulo bias.
func (s *Source) FieldElement(field *algebra.ScalarField) (algebra.FieldElement, error) {
	q := field.Order()
	byteLen := field.ByteLen()
	excessBits := uint(8*byteLen - q.BitLen())

	for {
		b, err := s.Bytes(byteLen)
		if err != nil {
			return algebra.FieldElement{}, err
		}
		if excessBits > 0 {
			b[0] &= 0xFF >> excessBits
		}
		if new(big.Int).SetBytes(b).Cmp(q) < 0 {
			// Below q, so the reduction in FromBytes is the identity.
			return field.FromBytes(b), nil
		}
	}
}

// deterministicStream produces SHA-256 counter-mode output.
type deterministicStream struct {
	key     [32]byte
	counter uint64
	buf     []byte
}

func (d *deterministicStream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(d.buf) == 0 {
			h := sha256.New()
			h.Write(d.key[:])
			var ctr [8]byte
			binary.BigEndian.PutUint64(ctr[:], d.counter)
			h.Write(ctr[:])
			d.buf = h.Sum(nil)
			d.counter++
		}
		c := copy(p[n:], d.buf)
		d.buf = d.buf[c:]
		n += c
	}
	return n, nil
}

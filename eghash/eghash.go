// Package eghash implements the protocol hash function H and its
// fixed-width output type. H(key; data) is HMAC-SHA256 with a 32-byte
// key, so every hash is bound to the context value used as the key.
package eghash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openelection/electionguard-go/algebra"
)

// HValueLen is the byte length of every hash output.
const HValueLen = 32

// HValue is a 256-bit hash output. It serializes as 64 uppercase hex
// characters.
type HValue [HValueLen]byte

// H computes HMAC-SHA256(key, data).
func H(key HValue, data []byte) HValue {
	mac := hmac.New(sha256.New, key[:])
	mac.Write(data)
	var out HValue
	copy(out[:], mac.Sum(nil))
	return out
}

// HToField computes H(key, data) reduced into the field Z_q.
func HToField(key HValue, data []byte, field *algebra.ScalarField) algebra.FieldElement {
	h := H(key, data)
	return field.FromBytes(h[:])
}

func (h HValue) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// Bytes returns the hash as a fresh slice.
func (h HValue) Bytes() []byte {
	out := make([]byte, HValueLen)
	copy(out, h[:])
	return out
}

func (h HValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := HValueFromHex(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// HValueFromHex parses a 64-character hex string.
func HValueFromHex(s string) (HValue, error) {
	var h HValue
	if len(s) != 2*HValueLen {
		return h, fmt.Errorf("eghash: hash value must be %d hex characters, got %d", 2*HValueLen, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("eghash: invalid hash value: %w", err)
	}
	copy(h[:], b)
	return h, nil
}

// Message builds a domain-separated hash input: the separator byte
// followed by the parts in order. Parts must already be fixed-length
// encoded by the caller.
type Message struct {
	buf []byte
}

// NewMessage starts a hash input with the given domain separator byte.
func NewMessage(domainSeparator byte) *Message {
	return &Message{buf: []byte{domainSeparator}}
}

// Bytes appends a raw byte string.
func (m *Message) Bytes(b []byte) *Message {
	m.buf = append(m.buf, b...)
	return m
}

// HValue appends a 32-byte hash value.
func (m *Message) HValue(h HValue) *Message {
	m.buf = append(m.buf, h[:]...)
	return m
}

// Uint32 appends a 4-byte big-endian integer, the encoding used for
// guardian, contest and field indices.
func (m *Message) Uint32(v uint32) *Message {
	m.buf = append(m.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return m
}

// FieldElement appends x left-padded to the field's byte length.
func (m *Message) FieldElement(x algebra.FieldElement, field *algebra.ScalarField) *Message {
	m.buf = append(m.buf, field.Bytes(x)...)
	return m
}

// GroupElement appends x left-padded to the group's byte length.
func (m *Message) GroupElement(x algebra.GroupElement, group *algebra.Group) *Message {
	m.buf = append(m.buf, group.Bytes(x)...)
	return m
}

// Finish computes H(key, message).
func (m *Message) Finish(key HValue) HValue {
	return H(key, m.buf)
}

// FinishToField computes H(key, message) reduced mod q.
func (m *Message) FinishToField(key HValue, field *algebra.ScalarField) algebra.FieldElement {
	return HToField(key, m.buf, field)
}

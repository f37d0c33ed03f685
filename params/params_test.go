package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardParameterBaseHash(t *testing.T) {
	fp := Standard()

	// Published H_P for the standard 4096-bit parameters.
	assert.Equal(t,
		"2B3B025E50E09C119CBA7E9448ACD1CABC9447EF39BF06327D81C665CDD86296",
		fp.ParameterBaseHash().String())
}

func TestStandardShape(t *testing.T) {
	fp := Standard()

	assert.True(t, fp.Standard)
	assert.Equal(t, 256, fp.Field.Order().BitLen())
	assert.Equal(t, 4096, fp.Group.Modulus().BitLen())
	assert.Equal(t, 32, fp.Field.ByteLen())
	assert.Equal(t, 512, fp.Group.ByteLen())
}

func TestToySetsValidate(t *testing.T) {
	for name, fp := range map[string]*FixedParameters{
		"q7p16":   Toy(),
		"q32p128": ToyQ32P128(),
		"q64p256": ToyQ64P256(),
	} {
		require.NoError(t, fp.Validate(), name)
		assert.False(t, fp.Standard, name)
	}
}

func TestVersionLabel(t *testing.T) {
	label := EGDS20.VersionLabel()
	expected := [6]byte{0x76, 0x32, 0x2E, 0x30, 0x2E, 0x30}
	assert.Equal(t, expected[:], label[:6])
	for _, b := range label[6:] {
		assert.Zero(t, b)
	}
	assert.NotEqual(t, label, EGDS21.VersionLabel())
}

func TestVaryingParametersValidate(t *testing.T) {
	vp := VaryingParameters{N: 5, K: 3, Date: "2026-11-03", Info: "Testing"}
	require.NoError(t, vp.Validate())

	assert.Error(t, (&VaryingParameters{N: 0, K: 0}).Validate())
	assert.Error(t, (&VaryingParameters{N: 3, K: 0}).Validate())
	assert.Error(t, (&VaryingParameters{N: 3, K: 4}).Validate())
}

func TestFixedParametersValidateRejectsMismatch(t *testing.T) {
	fp, err := NewFixedParameters(DomainSpec{
		Version: EGDS20,
		Generation: GenerationParameters{
			QBitsTotal: 8, // wrong: q = 0x7F has 7 bits
			PBitsTotal: 16,
		},
		QHex: "7F",
		PHex: "E72F",
		GHex: "7F68",
		RHex: "01D2",
	})
	require.NoError(t, err)
	assert.ErrorIs(t, fp.Validate(), ErrParameterInvalid)
}

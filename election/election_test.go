package election

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/manifest"
	"github.com/openelection/electionguard-go/params"
)

func testParameters() *params.ElectionParameters {
	return &params.ElectionParameters{
		Fixed: params.Toy(),
		Varying: params.VaryingParameters{
			N:    3,
			K:    2,
			Date: "2026-11-03",
			Info: "Toy election for tests",
		},
	}
}

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.New("Hash Chain Test",
		[]manifest.Contest{{
			Label:          "Only Contest",
			SelectionLimit: manifest.ContestLimit(1),
			Options: []manifest.ContestOption{
				{Label: "Alpha"},
				{Label: "Beta"},
			},
		}},
		[]manifest.BallotStyle{{Label: "Style", Contests: []uint32{1}}})
	require.NoError(t, err)
	return m
}

func testJointKeys(fp *params.FixedParameters) JointPublicKeys {
	g := fp.Group
	f := fp.Field
	return JointPublicKeys{
		K:    g.GExp(f.FromUint64(17)),
		KHat: g.GExp(f.FromUint64(23)),
	}
}

func TestComputeHashesDeterministic(t *testing.T) {
	ep := testParameters()
	m := testManifest(t)

	h1, err := ComputeHashes(ep, m)
	require.NoError(t, err)
	h2, err := ComputeHashes(ep, m)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, ep.Fixed.ParameterBaseHash(), h1.HP)
	assert.NotEqual(t, h1.HP, h1.HM)
	assert.NotEqual(t, h1.HM, h1.HB)
}

func TestComputeHashesSensitivity(t *testing.T) {
	ep := testParameters()
	m := testManifest(t)
	base, err := ComputeHashes(ep, m)
	require.NoError(t, err)

	moreGuardians := *ep
	moreGuardians.Varying.N = 4
	h, err := ComputeHashes(&moreGuardians, m)
	require.NoError(t, err)
	assert.Equal(t, base.HM, h.HM)
	assert.NotEqual(t, base.HB, h.HB)

	otherDate := *ep
	otherDate.Varying.Date = "2026-11-04"
	h, err = ComputeHashes(&otherDate, m)
	require.NoError(t, err)
	assert.NotEqual(t, base.HB, h.HB)

	m2 := testManifest(t)
	m2.Contests[0].Options[0].Label = "Gamma"
	h, err = ComputeHashes(ep, m2)
	require.NoError(t, err)
	assert.NotEqual(t, base.HM, h.HM)
	assert.NotEqual(t, base.HB, h.HB)
}

func TestExtendedBaseHash(t *testing.T) {
	ep := testParameters()
	m := testManifest(t)
	hashes, err := ComputeHashes(ep, m)
	require.NoError(t, err)

	keys := testJointKeys(ep.Fixed)
	he := ExtendedBaseHash(hashes.HB, keys, ep.Fixed.Group)
	assert.Equal(t, he, ExtendedBaseHash(hashes.HB, keys, ep.Fixed.Group))

	swapped := JointPublicKeys{K: keys.KHat, KHat: keys.K}
	assert.NotEqual(t, he, ExtendedBaseHash(hashes.HB, swapped, ep.Fixed.Group))
}

func TestNewPreVotingData(t *testing.T) {
	ep := testParameters()
	m := testManifest(t)
	keys := testJointKeys(ep.Fixed)

	pv, err := NewPreVotingData(ep, m, keys)
	require.NoError(t, err)
	assert.Equal(t, ExtendedBaseHash(pv.Hashes.HB, keys, pv.Group()), pv.HE)
	assert.Equal(t, ep.Fixed.Field, pv.Field())
}

func TestNewPreVotingDataRejects(t *testing.T) {
	ep := testParameters()
	m := testManifest(t)
	keys := testJointKeys(ep.Fixed)

	badParams := *ep
	badParams.Varying.K = 9
	_, err := NewPreVotingData(&badParams, m, keys)
	assert.ErrorIs(t, err, params.ErrParameterInvalid)

	badManifest := *m
	badManifest.Label = ""
	_, err = NewPreVotingData(ep, &badManifest, keys)
	assert.Error(t, err)

	// 12345 is not in the order-q subgroup of the toy group.
	outside := ep.Fixed.Group.FromBytes([]byte{0x30, 0x39})
	_, err = NewPreVotingData(ep, m, JointPublicKeys{K: outside, KHat: keys.KHat})
	assert.ErrorIs(t, err, ErrJointKeyInvalid)

	var zero algebra.GroupElement
	_, err = NewPreVotingData(ep, m, JointPublicKeys{K: keys.K, KHat: zero})
	assert.ErrorIs(t, err, ErrJointKeyInvalid)
}

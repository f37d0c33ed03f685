package params

import (
	"math/big"
	"sync"

	"github.com/openelection/electionguard-go/algebra"
)

// The standard 4096-bit parameter set. q = 2^256 - 189; p is a 4096-bit
// prime with 256 fixed leading and trailing one-bits and middle bits
// taken from the binary expansion of ln 2.
const (
	standardQHex = `
FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFF43`

	standardPHex = `
FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF
B17217F7 D1CF79AB C9E3B398 03F2F6AF 40F34326 7298B62D 8A0D175B 8BAAFA2B
E7B87620 6DEBAC98 559552FB 4AFA1B10 ED2EAE35 C1382144 27573B29 1169B825
3E96CA16 224AE8C5 1ACBDA11 317C387E B9EA9BC3 B136603B 256FA0EC 7657F74B
72CE87B1 9D6548CA F5DFA6BD 38303248 655FA187 2F20E3A2 DA2D97C5 0F3FD5C6
07F4CA11 FB5BFB90 610D30F8 8FE551A2 EE569D6D FC1EFA15 7D2E23DE 1400B396
17460775 DB8990E5 C943E732 B479CD33 CCCC4E65 9393514C 4C1A1E0B D1D6095D
25669B33 3564A337 6A9C7F8A 5E148E82 074DB601 5CFE7AA3 0C480A54 17350D2C
955D5179 B1E17B9D AE313CDB 6C606CB1 078F735D 1B2DB31B 5F50B518 5064C18B
4D162DB3 B365853D 7598A195 1AE273EE 5570B6C6 8F969834 96D4E6D3 30AF889B
44A02554 731CDC8E A17293D1 228A4EF9 8D6F5177 FBCF0755 268A5C1F 9538B982
61AFFD44 6B1CA3CF 5E9222B8 8C66D3C5 422183ED C9942109 0BBB16FA F3D949F2
36E02B20 CEE886B9 05C128D5 3D0BD2F9 62136319 6AF50302 0060E499 08391A0C
57339BA2 BEBA7D05 2AC5B61C C4E9207C EF2F0CE2 D7373958 D7622658 90445744
FB5F2DA4 B7510058 92D35689 0DEFE9CA D9B9D4B7 13E06162 A2D8FDD0 DF2FD608
FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF FFFFFFFF`

	standardGHex = `
36036FED 214F3B50 DC566D3A 312FE413 1FEE1C2B CE6D02EA 39B477AC 05F7F885
F38CFE77 A7E45ACF 4029114C 4D7A9BFE 058BF2F9 95D2479D 3DDA618F FD910D3C
4236AB2C FDD783A5 016F7465 CF59BBF4 5D24A22F 130F2D04 FE93B2D5 8BB9C1D1
D27FC9A1 7D2AF49A 779F3FFB DCA22900 C14202EE 6C996160 34BE35CB CDD3E7BB
7996ADFE 534B63CC A41E21FF 5DC778EB B1B86C53 BFBE9998 7D7AEA07 56237FB4
0922139F 90A62F2A A8D9AD34 DFF799E3 3C857A64 68D001AC F3B681DB 87DC4242
755E2AC5 A5027DB8 1984F033 C4D17837 1F273DBB 4FCEA1E6 28C23E52 759BC776
5728035C EA26B44C 49A65666 889820A4 5C33DD37 EA4A1D00 CB62305C D541BE1E
8A92685A 07012B1A 20A746C3 591A2DB3 815000D2 AACCFE43 DC49E828 C1ED7387
466AFD8E 4BF19355 93B2A442 EEC271C5 0AD39F73 3797A1EA 11802A25 57916534
662A6B7E 9A9E449A 24C8CFF8 09E79A4D 806EB681 119330E6 C57985E3 9B200B48
93639FDF DEA49F76 AD1ACD99 7EBA1365 7541E79E C57437E5 04EDA9DD 01106151
6C643FB3 0D6D58AF CCD28B73 FEDA29EC 12B01A5E B86399A5 93A9D5F4 50DE39CB
92962C5E C6925348 DB54D128 FD99C14B 457F883E C20112A7 5A6A0581 D3D80A3B
4EF09EC8 6F9552FF DA1653F1 33AA2534 983A6F31 B0EE4697 935A6B1E A2F75B85
E7EBA151 BA486094 D68722B0 54633FEC 51CA3F29 B31E77E3 17B178B6 B9D8AE0F`

	standardRHex = `
01
00000000 00000000 00000000 00000000 00000000 00000000 00000000 000000BC
B17217F7 D1CF79AB C9E3B398 03F2F6AF 40F34326 7298B62D 8A0D175B 8BAB857A
E8F42816 5418806C 62B0EA36 355A3A73 E0C74198 5BF6A0E3 130179BF 2F0B43E3
3AD86292 3861B8C9 F768C416 9519600B AD06093F 964B27E0 2D868312 31A9160D
E48F4DA5 3D8AB5E6 9E386B69 4BEC1AE7 22D47579 249D5424 767C5C33 B9151E07
C5C11D10 6AC446D3 30B47DB5 9D352E47 A53157DE 04461900 F6FE360D B897DF53
16D87C94 AE71DAD0 BE84B647 C4BCF818 C23A2D4E BB53C702 A5C8062D 19F5E9B5
033A94F7 FF732F54 12971286 9D97B8C9 6C412921 A9D86797 70F499A0 41C297CF
F79D4C91 49EB6CAF 67B9EA3D C563D965 F3AAD137 7FF22DE9 C3E62068 DD0ED615
1C37B4F7 4634C2BD 09DA912F D599F433 3A8D2CC0 05627DCA 37BAD43E 64A39631
19C0BFE3 4810A21E E7CFC421 D53398CB C7A95B3B F585E5A0 4B790E2F E1FE9BC2
64FDA810 9F6454A0 82F5EFB2 F37EA237 AA29DF32 0D6EA860 C41A9054 CCD24876
C6253F66 7BFB0139 B5531FF3 01899612 02FD2B0D 55A75272 C7FD7334 3F7899BC
A0B36A4C 470A64A0 09244C84 E77CEBC9 2417D5BB 13BF1816 7D8033EB 6C4DD787
9FD4A7F5 29FD4A7F 529FD4A7 F529FD4A 7F529FD4 A7F529FD 4A7F529F D4A7F52A`
)

var standardOnce = sync.OnceValue(func() *FixedParameters {
	return mustParams(DomainSpec{
		Version: EGDS20,
		Generation: GenerationParameters{
			QBitsTotal:        256,
			PBitsTotal:        4096,
			PBitsMSBFixed1:    256,
			PMiddleBitsSource: "ln 2",
			PBitsLSBFixed1:    256,
		},
		QHex:     standardQHex,
		PHex:     standardPHex,
		GHex:     standardGHex,
		RHex:     standardRHex,
		Standard: true,
	})
})

// Standard returns the published 4096-bit parameter set.
func Standard() *FixedParameters { return standardOnce() }

// Toy returns the published 16-bit toy set (q = 127, p = 59183).
// Reduced strength, test use only.
func Toy() *FixedParameters { return toyOnce() }

var toyOnce = sync.OnceValue(func() *FixedParameters {
	return mustParams(DomainSpec{
		Version: EGDS20,
		Generation: GenerationParameters{
			QBitsTotal:     7,
			PBitsTotal:     16,
			PBitsMSBFixed1: 3,
			PBitsLSBFixed1: 3,
		},
		QHex: "7F",
		PHex: "E72F",
		GHex: "7F68",
		RHex: "01D2",
	})
})

// ToyQ32P128 returns the published 128-bit toy set with a 32-bit field.
// Reduced strength, test use only.
func ToyQ32P128() *FixedParameters { return toyQ32P128Once() }

var toyQ32P128Once = sync.OnceValue(func() *FixedParameters {
	return mustParams(DomainSpec{
		Version: EGDS20,
		Generation: GenerationParameters{
			QBitsTotal:     32,
			PBitsTotal:     128,
			PBitsMSBFixed1: 32,
			PBitsLSBFixed1: 32,
		},
		QHex: "FFFFFFFB",
		PHex: "FFFFFFFF 93C46B0F B6C381D8 FFFFFFFF",
		GHex: "29D99524 0DFB12B3 6FD0F8CC E06B657D",
		RHex: "00000001 00000004 93C46B26 9999999A",
	})
})

// ToyQ64P256 returns the published 256-bit toy set with a 64-bit field.
// Reduced strength, test use only.
func ToyQ64P256() *FixedParameters { return toyQ64P256Once() }

var toyQ64P256Once = sync.OnceValue(func() *FixedParameters {
	return mustParams(DomainSpec{
		Version: EGDS20,
		Generation: GenerationParameters{
			QBitsTotal:     64,
			PBitsTotal:     256,
			PBitsMSBFixed1: 64,
			PBitsLSBFixed1: 64,
		},
		QHex: "FFFFFFFF FFFFFFC5",
		PHex: "FFFFFFFF FFFFFFFF 93C467E3 7DB1212B 89995855 493FF059 FFFFFFFF FFFFFFFF",
		GHex: "3B543166 9E3E4893 DF745C67 CDCFD95C CDDA2248 78A3CD5D 3226F75C C5A95638",
		RHex: "00000000 00000001 00000000 0000003A 93C467E3 7DB12EAB 97DD49C3 4115B1E6",
	})
})

// DomainSpec describes a parameter set by its hex constants.
type DomainSpec struct {
	Version    DesignSpecVersion
	Generation GenerationParameters
	QHex       string
	PHex       string
	GHex       string
	RHex       string
	Standard   bool
}

// NewFixedParameters builds FixedParameters from a DomainSpec without
// validating; call Validate on untrusted specs.
func NewFixedParameters(spec DomainSpec) (*FixedParameters, error) {
	q, err := algebra.IntFromHex(spec.QHex)
	if err != nil {
		return nil, err
	}
	p, err := algebra.IntFromHex(spec.PHex)
	if err != nil {
		return nil, err
	}
	g, err := algebra.IntFromHex(spec.GHex)
	if err != nil {
		return nil, err
	}
	var r *big.Int
	if spec.RHex != "" {
		r, err = algebra.IntFromHex(spec.RHex)
		if err != nil {
			return nil, err
		}
	} else {
		// r = (p-1)/q
		r = new(big.Int).Sub(p, big.NewInt(1))
		r.Div(r, q)
	}

	field := algebra.NewScalarField(q)
	return &FixedParameters{
		Version:    spec.Version,
		Generation: spec.Generation,
		Field:      field,
		Group:      algebra.NewGroup(p, r, g, field),
		Standard:   spec.Standard,
	}, nil
}

func mustParams(spec DomainSpec) *FixedParameters {
	fp, err := NewFixedParameters(spec)
	if err != nil {
		panic(err)
	}
	return fp
}

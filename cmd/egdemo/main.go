// Command egdemo runs a complete small election end to end: key
// ceremony, ballot encryption, tallying, threshold decryption and
// record verification, printing the verified results.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openelection/electionguard-go/algebra"
	"github.com/openelection/electionguard-go/ballot"
	"github.com/openelection/electionguard-go/csprng"
	"github.com/openelection/electionguard-go/decryption"
	"github.com/openelection/electionguard-go/eghash"
	"github.com/openelection/electionguard-go/election"
	"github.com/openelection/electionguard-go/keyceremony"
	"github.com/openelection/electionguard-go/log"
	"github.com/openelection/electionguard-go/manifest"
	"github.com/openelection/electionguard-go/params"
	"github.com/openelection/electionguard-go/tally"
	"github.com/openelection/electionguard-go/verify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "egdemo:", err)
		os.Exit(1)
	}
}

func setupConfig() error {
	pflag.Uint32("guardians", 5, "number of guardians n")
	pflag.Uint32("quorum", 3, "decryption threshold k")
	pflag.Int("ballots", 20, "number of ballots to cast")
	pflag.String("chaining", "prohibited", "confirmation code chaining: prohibited, allowed or required")
	pflag.String("log-level", "info", "log level: debug, info, warn or error")
	pflag.String("seed", "", "deterministic randomness seed (insecure, demo only)")
	pflag.String("config", "", "optional config file")
	pflag.Parse()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return err
	}
	viper.SetEnvPrefix("EGDEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfg := viper.GetString("config"); cfg != "" {
		viper.SetConfigFile(cfg)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

func chainingMode(s string) (params.ChainingMode, error) {
	switch strings.ToLower(s) {
	case "prohibited":
		return params.ChainingProhibited, nil
	case "allowed":
		return params.ChainingAllowed, nil
	case "required":
		return params.ChainingRequired, nil
	default:
		return 0, fmt.Errorf("unknown chaining mode %q", s)
	}
}

func demoManifest() (*manifest.Manifest, error) {
	return manifest.New("Demonstration General Election",
		[]manifest.Contest{
			{
				Label:          "Mayor",
				SelectionLimit: manifest.ContestLimit(1),
				Options: []manifest.ContestOption{
					{Label: "Ada Lovelace"},
					{Label: "Alan Turing"},
					{Label: "Grace Hopper"},
				},
			},
			{
				Label:          "City Council",
				SelectionLimit: manifest.ContestLimit(2),
				Options: []manifest.ContestOption{
					{Label: "Kurt"},
					{Label: "Emmy"},
					{Label: "David"},
					{Label: "Sofia"},
				},
			},
		},
		[]manifest.BallotStyle{
			{Label: "Citywide", Contests: []uint32{1, 2}},
		})
}

// randomSelections fills one ballot with valid random choices.
func randomSelections(r *rand.Rand, m *manifest.Manifest) *ballot.VoterSelections {
	vs := &ballot.VoterSelections{StyleIndex: 1, Selections: map[uint32][]uint32{}}
	for ix := uint32(1); ix <= uint32(len(m.Contests)); ix++ {
		contest, _ := m.Contest(ix)
		values := make([]uint32, len(contest.Options))
		budget := contest.EffectiveContestLimit()
		for j := range values {
			if budget == 0 {
				break
			}
			limit, _ := contest.EffectiveOptionLimit(uint32(j) + 1)
			if limit > budget {
				limit = budget
			}
			v := uint32(r.Intn(int(limit) + 1))
			values[j] = v
			budget -= v
		}
		vs.Selections[ix] = values
	}
	return vs
}

// ceremonyOutput is the published result of one key ceremony plus the
// guardians' private key shares.
type ceremonyOutput struct {
	publics []*keyceremony.GuardianPublicKey
	shares  []*keyceremony.GuardianSecretKeyShare
	joint   algebra.GroupElement
}

func runCeremony(rng *csprng.Source, ep *params.ElectionParameters, hp eghash.HValue, purpose string) (*ceremonyOutput, error) {
	n, k := ep.Varying.N, ep.Varying.K

	secrets := make([]*keyceremony.GuardianSecretKey, n)
	publics := make([]*keyceremony.GuardianPublicKey, n)
	for i := uint32(1); i <= n; i++ {
		sk, err := keyceremony.GenerateGuardianSecretKey(rng, ep.Fixed, hp,
			keyceremony.GuardianIndex(i), k, fmt.Sprintf("Guardian %d", i))
		if err != nil {
			return nil, err
		}
		secrets[i-1] = sk
		publics[i-1] = sk.PublicKey()
		if err := publics[i-1].Validate(ep, hp); err != nil {
			return nil, err
		}
	}

	shares := make([]*keyceremony.GuardianSecretKeyShare, n)
	for l := uint32(1); l <= n; l++ {
		var incoming []*keyceremony.EncryptedShare
		for i := uint32(1); i <= n; i++ {
			es, err := keyceremony.EncryptShare(rng, ep.Fixed, hp, secrets[i-1], publics[l-1])
			if err != nil {
				return nil, err
			}
			incoming = append(incoming, es)
		}
		share, err := keyceremony.ComputeSecretKeyShare(ep, hp, secrets[l-1], publics, incoming)
		if err != nil {
			return nil, err
		}
		shares[l-1] = share
	}

	joint, err := keyceremony.ComputeJointPublicKey(ep, publics)
	if err != nil {
		return nil, err
	}
	log.Infof("%s key ceremony complete: %d guardians, threshold %d", purpose, n, k)
	return &ceremonyOutput{publics: publics, shares: shares, joint: joint}, nil
}

func run() error {
	if err := setupConfig(); err != nil {
		return err
	}
	if err := log.Init(viper.GetString("log-level"), "stderr"); err != nil {
		return err
	}

	n := viper.GetUint32("guardians")
	k := viper.GetUint32("quorum")
	chaining, err := chainingMode(viper.GetString("chaining"))
	if err != nil {
		return err
	}

	rng := csprng.New()
	if seed := viper.GetString("seed"); seed != "" {
		log.Warnf("using deterministic randomness, results are not secret")
		rng = csprng.NewInsecureDeterministic(seed)
	}

	ep := &params.ElectionParameters{
		Fixed: params.ToyQ64P256(),
		Varying: params.VaryingParameters{
			N: n, K: k,
			Date:     "2026-11-03",
			Info:     "egdemo demonstration election",
			Chaining: chaining,
		},
	}
	if err := ep.Validate(); err != nil {
		return err
	}
	hp := ep.Fixed.ParameterBaseHash()
	log.Infof("parameter base hash %s", hp)

	// Separate ceremonies for the vote key K and the ballot data key.
	votes, err := runCeremony(rng, ep, hp, "vote encryption")
	if err != nil {
		return err
	}
	data, err := runCeremony(rng, ep, hp, "ballot data")
	if err != nil {
		return err
	}

	m, err := demoManifest()
	if err != nil {
		return err
	}
	pv, err := election.NewPreVotingData(ep, m, election.JointPublicKeys{
		K:    votes.joint,
		KHat: data.joint,
	})
	if err != nil {
		return err
	}
	log.Infof("extended base hash %s", pv.HE)

	// Voting.
	dev := ballot.NewDevice(pv, rng)
	tl := tally.New(pv)
	var cast []*ballot.Ballot
	voter := rand.New(rand.NewSource(42))
	for b := 0; b < viper.GetInt("ballots"); b++ {
		encrypted, err := dev.Encrypt(randomSelections(voter, m))
		if err != nil {
			return err
		}
		if err := encrypted.Cast(); err != nil {
			return err
		}
		if err := tl.Accumulate(encrypted); err != nil {
			return err
		}
		cast = append(cast, encrypted)
	}
	log.Infof("cast and tallied %d ballots", tl.BallotCount())

	// Threshold decryption by the first k guardians.
	quorum := make([]*decryption.Guardian, k)
	for i := uint32(0); i < k; i++ {
		quorum[i] = decryption.NewGuardian(votes.shares[i])
	}
	dl := algebra.NewDiscreteLog(votes.joint, pv.Group())
	results, err := decryption.DecryptTally(rng, pv, votes.publics, quorum, tl, dl)
	if err != nil {
		return err
	}

	// Independent verification of the full record.
	report, err := verify.New(&verify.Record{
		PV:           pv,
		GuardianKeys: votes.publics,
		Ballots:      cast,
		Results:      results,
	}).Run(context.Background())
	if err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		return err
	}
	log.Infof("record verified: %d checks passed", len(report.Items))

	for _, result := range results {
		contest, err := m.Contest(result.ContestIndex)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", contest.Label)
		for j, v := range result.Values {
			fmt.Printf("  %-24s %d\n", contest.Options[j].Label, v)
		}
	}
	return nil
}

package bbb

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/policy"
)

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	p := mustParse(t, `
name: order
version: 1.0.0
signature:
  basic:
    - { name: FIRST, level: FAIL, expression: "true" }
    - { name: SECOND, level: FAIL, expression: "false" }
    - { name: THIRD, level: FAIL, expression: "true" }
`)
	f := newFixture()
	res := New().Evaluate(f.env(t, p, policy.LevelBasicSignatures), f.sig, now)

	require.Equal(t, []string{"FIRST", "SECOND"}, names(res))
	assert.Equal(t, ades.StatusOK, res.Constraints[0].Status)
	assert.Equal(t, ades.StatusNotOK, res.Constraints[1].Status)
	assert.Equal(t, "SECOND_ANS", res.Constraints[1].Answer)
	assert.Equal(t, BlockCustom, res.Constraints[1].Block)
	assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationSigConstraintsFailure, res.Conclusion.SubIndication)
}

func TestWarningsAndIgnoredConstraints(t *testing.T) {
	p := mustParse(t, `
name: levels
version: 1.0.0
signature:
  basic:
    - { name: SKIPPED, level: IGNORE, expression: "false" }
    - { name: ADVICE, level: WARN, expression: "false" }
    - { name: NOTE, level: INFORM, expression: "false" }
    - { name: BBB_CV_ISI, level: FAIL }
`)
	f := newFixture()
	res := New().Evaluate(f.env(t, p, policy.LevelBasicSignatures), f.sig, now)

	require.Equal(t, []string{"SKIPPED", "ADVICE", "NOTE", "BBB_CV_ISI"}, names(res))
	assert.Equal(t, ades.StatusIgnored, res.Constraints[0].Status)
	assert.Equal(t, ades.StatusWarning, res.Constraints[1].Status)
	assert.Equal(t, ades.StatusInformation, res.Constraints[2].Status)
	assert.Equal(t, ades.StatusOK, res.Constraints[3].Status)
	assert.Equal(t, BlockCryptographic, res.Constraints[3].Block)

	assert.True(t, res.Conclusion.IsPassed())
	assert.Equal(t, []ades.Message{{Key: "ADVICE_ANS", Value: `expression "false" does not hold`}}, res.Conclusion.Warnings)
	assert.Len(t, res.Conclusion.Infos, 1)
}

func TestCustomConstraintOverridesAndAbsence(t *testing.T) {
	p := mustParse(t, `
name: custom
version: 1.0.0
certificate:
  basic:
    - { name: ORG_CA, level: FAIL, expression: "token.ca" }
signature:
  basic:
    - name: ORG_POLICY
      level: FAIL
      expression: "token.missing_attribute == 1"
      indication: FAILED
      sub-indication: SIGNATURE_POLICY_NOT_AVAILABLE
`)
	f := newFixture()
	env := f.env(t, p, policy.LevelBasicSignatures)

	res := New().Evaluate(env, f.leaf, now)
	assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationChainConstraintsFailure, res.Conclusion.SubIndication)

	// The expression cannot be evaluated: the configured sub-indication
	// applies but missing input stays INDETERMINATE.
	res = New().Evaluate(env, f.sig, now)
	assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationSignaturePolicyNotAvailable, res.Conclusion.SubIndication)
	assert.Contains(t, res.Constraints[0].AdditionalInfo, "could not be evaluated")
}

func TestDefaultPolicyPassesValidSignature(t *testing.T) {
	f := newFixture()
	env := f.env(t, policy.Default(), policy.LevelLongTermData)
	e := New()

	for _, tok := range f.model.Tokens() {
		res := e.Evaluate(env, tok, now)
		assert.True(t, res.Conclusion.IsPassed(), "%s: %+v", tok.ID(), res.Conclusion)
		for _, c := range res.Constraints {
			assert.Equal(t, ades.StatusOK, c.Status, "%s %s: %s", tok.ID(), c.Name, c.AdditionalInfo)
		}
	}

	res := e.Evaluate(env, f.sig, now)
	// Not in a container: the signed file check is left out.
	assert.NotContains(t, names(res), "BBB_FC_ISFP")
	assert.Contains(t, names(res), "ADEST_ROTVPIIC")
	assert.NotContains(t, names(res), "ARCH_LTAIVMP")
}

func TestSignatureDigestMismatch(t *testing.T) {
	f := newFixture()
	f.sig.Matchers[0].DataIntact = false
	res := New().Evaluate(f.env(t, policy.Default(), policy.LevelBasicSignatures), f.sig, now)

	assert.Equal(t, ades.IndicationFailed, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationHashFailure, res.Conclusion.SubIndication)
	last := res.Constraints[len(res.Constraints)-1]
	assert.Equal(t, "BBB_CV_IRDOI", last.Name)
	assert.True(t, last.Blocking())
	for _, c := range res.Constraints[:len(res.Constraints)-1] {
		assert.Equal(t, ades.StatusOK, c.Status, c.Name)
	}
}

func TestContainerWithoutSignedFile(t *testing.T) {
	f := newFixture()
	f.sig.Format = "XAdES-BASELINE-B"
	f.sig.ContainerType = "ASiC-E"
	res := New().Evaluate(f.env(t, policy.Default(), policy.LevelBasicSignatures), f.sig, now)

	assert.Equal(t, ades.IndicationFailed, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationFormatFailure, res.Conclusion.SubIndication)
	assert.Equal(t, []string{"BBB_FC_IEFF", "BBB_FC_ISD", "BBB_FC_ISFP"}, names(res))
	c, ok := res.Constraint("BBB_FC_ISFP")
	require.True(t, ok)
	assert.Equal(t, ades.StatusNotOK, c.Status)

	f.sig.Matchers = append(f.sig.Matchers, diagnostic.DigestMatcher{
		Type: diagnostic.MatcherContainerEntry, Name: "doc.xml", DataFound: true, DataIntact: true,
	})
	res = New().Evaluate(f.env(t, policy.Default(), policy.LevelBasicSignatures), f.sig, now)
	assert.True(t, res.Conclusion.IsPassed(), res.Conclusion)
}

func TestSignatureChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fixture)
		level  policy.ValidationLevel
		want   ades.Conclusion
		failed string
	}{
		{
			name:   "unexpected format",
			mutate: func(f *fixture) { f.sig.Format = "PKCS7" },
			want:   ades.NewConclusion(ades.IndicationFailed, ades.SubIndicationFormatFailure),
			failed: "BBB_FC_IEFF",
		},
		{
			name:   "unknown signing certificate",
			mutate: func(f *fixture) { f.sig.SigningCertificate = "C-NOPE" },
			want:   ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationNoSigningCertificateFound),
			failed: "BBB_ICS_ISCI",
		},
		{
			name:   "signed data not found",
			mutate: func(f *fixture) { f.sig.Matchers[0].DataFound = false },
			want:   ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationSignedDataNotFound),
			failed: "BBB_CV_IRDOF",
		},
		{
			name:   "no reference at all",
			mutate: func(f *fixture) { f.sig.Matchers = nil },
			want:   ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationSignedDataNotFound),
			failed: "BBB_CV_IRDOF",
		},
		{
			name:   "broken signature value",
			mutate: func(f *fixture) { f.sig.Intact = false },
			want:   ades.NewConclusion(ades.IndicationFailed, ades.SubIndicationSigCryptoFailure),
			failed: "BBB_CV_ISI",
		},
		{
			name: "untrusted chain",
			mutate: func(f *fixture) {
				f.root.Trusted = false
			},
			want:   ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationNoCertificateChainFound),
			failed: "BBB_XCV_CCCBB",
		},
		{
			name:   "weak key",
			mutate: func(f *fixture) { f.sig.Algorithm = diagnostic.AlgorithmInfo{Digest: "SHA256", Encryption: "RSA", KeySize: 512} },
			want:   ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationCryptoConstraintsFailureNoPOE),
			failed: "BBB_SAV_ASCCM",
		},
		{
			name: "timestamps out of order",
			mutate: func(f *fixture) {
				content := &diagnostic.Timestamp{TokenID: "T-0", Kind: diagnostic.TimestampContent, ProductionTime: now.Add(-time.Hour)}
				f.model.Timestamps = append(f.model.Timestamps, content)
				f.sig.Timestamps = append(f.sig.Timestamps, "T-0")
			},
			level:  policy.LevelLongTermData,
			want:   ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationTimestampOrderFailure),
			failed: "BBB_TSV_ISTO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mutate(f)
			level := tt.level
			if level == 0 {
				level = policy.LevelBasicSignatures
			}
			res := New().Evaluate(f.env(t, policy.Default(), level), f.sig, now)
			assert.Equal(t, tt.want.Indication, res.Conclusion.Indication)
			assert.Equal(t, tt.want.SubIndication, res.Conclusion.SubIndication)
			require.NotEmpty(t, res.Constraints)
			assert.Equal(t, tt.failed, res.Constraints[len(res.Constraints)-1].Name)
		})
	}
}

func TestLongTermWarnings(t *testing.T) {
	f := newFixture()
	f.conclusions["T-1"] = ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationNoCertificateChainFound)
	res := New().Evaluate(f.env(t, policy.Default(), policy.LevelArchivalData), f.sig, now)

	assert.True(t, res.Conclusion.IsPassed())
	require.Len(t, res.Conclusion.Warnings, 2)
	assert.Equal(t, "ADEST_ROTVPIIC_ANS", res.Conclusion.Warnings[0].Key)
	assert.Equal(t, "ARCH_LTAIVMP_ANS", res.Conclusion.Warnings[1].Key)
}

func TestCertificateValidity(t *testing.T) {
	f := newFixture()
	f.leaf.NotAfter = now.Add(-year)
	env := f.env(t, policy.Default(), policy.LevelLongTermData)
	e := New()

	res := e.Evaluate(env, f.leaf, now)
	assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
	// The CRL still reports the certificate as good.
	assert.Equal(t, ades.SubIndicationOutOfBoundsNotRevoked, res.Conclusion.SubIndication)
	assert.True(t, res.Conclusion.SubIndication.POERecoverable())

	past := now.Add(-18 * 30 * 24 * time.Hour)
	res = e.Evaluate(env, f.leaf, past)
	assert.True(t, res.Conclusion.IsPassed(), res.Conclusion)
	assert.Equal(t, past, res.ReferenceTime)
}

func TestCertificateNotYetValid(t *testing.T) {
	f := newFixture()
	f.leaf.NotBefore = now.Add(24 * time.Hour)
	env := f.env(t, policy.Default(), policy.LevelLongTermData)

	res := New().Evaluate(env, f.leaf, now)
	assert.Equal(t, ades.IndicationFailed, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationNotYetValid, res.Conclusion.SubIndication)
	assert.False(t, res.Conclusion.SubIndication.POERecoverable())
	assert.Equal(t, "BBB_XCV_ICTIVRSC", res.Constraints[len(res.Constraints)-1].Name)
}

func TestCertificateRevocation(t *testing.T) {
	f := newFixture()
	revokedAt := now.Add(-10 * 24 * time.Hour)
	f.crl.Entries[0] = diagnostic.RevocationEntry{
		CertificateID:  "C-LEAF",
		Status:         diagnostic.StatusRevoked,
		RevocationTime: revokedAt,
		Reason:         "keyCompromise",
	}
	env := f.env(t, policy.Default(), policy.LevelLongTermData)
	e := New()

	res := e.Evaluate(env, f.leaf, now)
	assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationRevokedNoPOE, res.Conclusion.SubIndication)
	assert.Contains(t, res.Constraints[len(res.Constraints)-1].AdditionalInfo, "keyCompromise")

	// Before the revocation the certificate is fine.
	res = e.Evaluate(env, f.leaf, revokedAt.Add(-time.Hour))
	assert.True(t, res.Conclusion.IsPassed(), res.Conclusion)

	// Without acceptable revocation data the answer is to try later.
	f.leaf.Revocations = nil
	res = e.Evaluate(env, f.leaf, now)
	assert.Equal(t, ades.SubIndicationTryLater, res.Conclusion.SubIndication)
	assert.Equal(t, "BBB_XCV_IRDPFC", res.Constraints[len(res.Constraints)-1].Name)

	// Basic level does not look at revocation data.
	env.Level = policy.LevelBasicSignatures
	res = e.Evaluate(env, f.leaf, now)
	assert.True(t, res.Conclusion.IsPassed())
}

func TestIssuerConclusionPropagates(t *testing.T) {
	tests := []struct {
		issuer ades.Conclusion
		want   ades.SubIndication
	}{
		{ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationRevokedNoPOE), ades.SubIndicationRevokedCANoPOE},
		{ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationOutOfBoundsNoPOE), ades.SubIndicationOutOfBoundsNoPOE},
		{ades.NewConclusion(ades.IndicationFailed, ades.SubIndicationSigCryptoFailure), ades.SubIndicationCertificateChainGeneralFailure},
	}
	for _, tt := range tests {
		t.Run(string(tt.issuer.SubIndication), func(t *testing.T) {
			f := newFixture()
			inter := &diagnostic.Certificate{
				TokenID: "C-INT", IssuerID: "C-ROOT", CA: true, Intact: true, Algorithm: rsa2048,
				NotBefore: now.Add(-5 * year), NotAfter: now.Add(5 * year),
			}
			f.leaf.IssuerID = "C-INT"
			f.model.Certificates = append(f.model.Certificates, inter)
			f.conclusions["C-INT"] = tt.issuer

			res := New().Evaluate(f.env(t, policy.Default(), policy.LevelBasicSignatures), f.leaf, now)
			assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
			assert.Equal(t, tt.want, res.Conclusion.SubIndication)
			assert.Equal(t, "BBB_XCV_ISIC", res.Constraints[len(res.Constraints)-1].Name)
		})
	}
}

func TestTimestampChecks(t *testing.T) {
	f := newFixture()
	env := f.env(t, policy.Default(), policy.LevelBasicSignatures)
	e := New()

	f.conclusions["C-TSA"] = ades.NewConclusion(ades.IndicationIndeterminate, ades.SubIndicationOutOfBoundsNoPOE)
	res := e.Evaluate(env, f.ts, now)
	assert.Equal(t, ades.SubIndicationOutOfBoundsNoPOE, res.Conclusion.SubIndication)
	assert.Equal(t, "BBB_XCV_SUB", res.Constraints[len(res.Constraints)-1].Name)

	f.conclusions["C-TSA"] = ades.Passed(nil, nil)
	f.ts.ProductionTime = f.tsa.NotBefore.Add(-time.Hour)
	res = e.Evaluate(env, f.ts, now)
	assert.Equal(t, "BBB_TSP_IPTWTSACV", res.Constraints[len(res.Constraints)-1].Name)

	f.ts.MessageImprint.DataIntact = false
	res = e.Evaluate(env, f.ts, now)
	assert.Equal(t, ades.IndicationFailed, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationHashFailure, res.Conclusion.SubIndication)
}

func TestRevocationChecks(t *testing.T) {
	f := newFixture()
	f.crl.Intact = false
	res := New().Evaluate(f.env(t, policy.Default(), policy.LevelBasicSignatures), f.crl, now)
	assert.Equal(t, ades.IndicationFailed, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationSigCryptoFailure, res.Conclusion.SubIndication)
	assert.Equal(t, []string{"BBB_ICS_ISCI", "BBB_CV_ISIR"}, names(res))
}

func TestEvidenceRecordChecks(t *testing.T) {
	f := newFixture()
	ert := &diagnostic.Timestamp{
		TokenID:        "T-ER",
		Kind:           diagnostic.TimestampEvidenceRecord,
		ProductionTime: now.Add(-24 * time.Hour),
		MessageImprint: diagnostic.DigestMatcher{DataFound: true, DataIntact: true},
		Signer:         f.ts.Signer,
	}
	er := &diagnostic.EvidenceRecord{
		TokenID: "E-1",
		Matchers: []diagnostic.DigestMatcher{
			{Type: diagnostic.MatcherArchiveObject, DataFound: true, DataIntact: true},
			{Type: diagnostic.MatcherArchiveObject, DataFound: true, DataIntact: true},
			{Type: diagnostic.MatcherOrphanReference},
		},
		Timestamps: []string{"T-ER"},
	}
	f.model.Timestamps = append(f.model.Timestamps, ert)
	f.model.EvidenceRecords = []*diagnostic.EvidenceRecord{er}
	f.conclusions["T-ER"] = ades.Passed(nil, nil)
	env := f.env(t, policy.Default(), policy.LevelBasicSignatures)
	e := New()

	res := e.Evaluate(env, er, now)
	assert.True(t, res.Conclusion.IsPassed(), res.Conclusion)
	assert.Len(t, res.Constraints, 5)

	f.conclusions["T-ER"] = ades.NewConclusion(ades.IndicationFailed, ades.SubIndicationHashFailure)
	res = e.Evaluate(env, er, now)
	assert.Equal(t, ades.SubIndicationNoValidTimestamp, res.Conclusion.SubIndication)

	er.Matchers[1].DataIntact = false
	res = e.Evaluate(env, er, now)
	assert.Equal(t, ades.IndicationFailed, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationHashFailure, res.Conclusion.SubIndication)
}

func TestCounterSignaturePolicy(t *testing.T) {
	f := newFixture()
	counter := &diagnostic.Signature{TokenID: "S-2", ParentID: "S-1", Format: "XAdES"}
	f.model.Signatures = append(f.model.Signatures, counter)
	env := f.env(t, policy.Default(), policy.LevelBasicSignatures)
	env.CounterSignaturePolicy = mustParse(t, `
name: counter
version: 1.0.0
counter-signature:
  basic:
    - { name: BBB_FC_IEFF, level: FAIL, value: "CAdES" }
`)
	res := New().Evaluate(env, counter, now)
	assert.Equal(t, []string{"BBB_FC_IEFF"}, names(res))
	assert.Equal(t, ades.SubIndicationFormatFailure, res.Conclusion.SubIndication)

	// The main signature keeps the main policy.
	res = New().Evaluate(env, f.sig, now)
	assert.True(t, res.Conclusion.IsPassed())
}

func TestStructuralResults(t *testing.T) {
	f := newFixture()
	res := Cycle(f.leaf, now, []string{"C-LEAF", "C-ROOT"})
	require.Len(t, res.Constraints, 1)
	assert.Equal(t, NameDependencyCycle, res.Constraints[0].Name)
	assert.Equal(t, ades.IndicationFailed, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationFormatFailure, res.Conclusion.SubIndication)

	res = NoPOE(f.leaf, now)
	assert.Equal(t, NamePastPOE, res.Constraints[0].Name)
	assert.Equal(t, BlockPastValidation, res.Constraints[0].Block)
	assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationNoPOE, res.Conclusion.SubIndication)
}

func TestRegister(t *testing.T) {
	e := New()
	require.Error(t, e.Register(Definition{Name: "X"}))
	require.NoError(t, e.Register(Definition{
		Name:  "ORG_ALWAYS_ABSENT",
		Block: BlockContext,
		Types: []diagnostic.TokenType{diagnostic.TypeSignature},
		Check: func(*Input) Verdict { return absent("nothing to look at") },
	}))
	p := mustParse(t, `
name: registered
version: 1.0.0
signature:
  basic:
    - { name: ORG_ALWAYS_ABSENT, level: FAIL, sub-indication: NO_POE }
`)
	require.NoError(t, e.CheckPolicy(p, nil))
	f := newFixture()
	res := e.Evaluate(f.env(t, p, policy.LevelBasicSignatures), f.sig, now)
	assert.Equal(t, ades.IndicationIndeterminate, res.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationNoPOE, res.Conclusion.SubIndication)
}

func TestCheckPolicy(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.model.Index())
	e := New()
	require.NoError(t, e.CheckPolicy(policy.Default(), f.model))

	tests := map[string]string{
		"unknown constraint": `
name: p
version: 1.0.0
signature:
  basic:
    - { name: BBB_NOPE, level: FAIL }
`,
		"wrong context": `
name: p
version: 1.0.0
signature:
  basic:
    - { name: BBB_XCV_ISCR, level: FAIL }
`,
		"bad freshness window": `
name: p
version: 1.0.0
certificate:
  long-term:
    - { name: BBB_RFC_IRIF, level: WARN, value: "a week" }
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			err := e.CheckPolicy(mustParse(t, doc), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, policy.ErrPolicyConfiguration)
			var ce *policy.ConfigError
			assert.True(t, errors.As(err, &ce))
		})
	}

	t.Run("missing context", func(t *testing.T) {
		p := mustParse(t, `
name: p
version: 1.0.0
signature:
  basic:
    - { name: BBB_CV_ISI, level: FAIL }
`)
		require.NoError(t, e.CheckPolicy(p, nil))
		err := e.CheckPolicy(p, f.model)
		assert.ErrorIs(t, err, policy.ErrPolicyConfiguration)
		assert.Contains(t, err.Error(), "timestamp")
	})

	t.Run("empty context", func(t *testing.T) {
		p := mustParse(t, `
name: p
version: 1.0.0
signature: {}
`)
		require.NoError(t, e.CheckPolicy(p, nil))
		m := &diagnostic.Model{Signatures: []*diagnostic.Signature{{TokenID: "S-1"}}}
		err := e.CheckPolicy(p, m)
		assert.ErrorIs(t, err, policy.ErrPolicyConfiguration)
		assert.Contains(t, err.Error(), "'signature'")
	})

	t.Run("counter-signature policy", func(t *testing.T) {
		timestamps := mustParse(t, `
name: p
version: 1.0.0
timestamp:
  basic:
    - { name: BBB_CV_ISIT, level: FAIL }
`)
		plain := &diagnostic.Model{Signatures: []*diagnostic.Signature{{TokenID: "S-1"}}}
		require.NoError(t, e.CheckCounterSignaturePolicy(timestamps, plain))

		counter := &diagnostic.Model{Signatures: []*diagnostic.Signature{
			{TokenID: "S-1"},
			{TokenID: "S-CS", ParentID: "S-1"},
		}}
		err := e.CheckCounterSignaturePolicy(timestamps, counter)
		assert.ErrorIs(t, err, policy.ErrPolicyConfiguration)
		assert.Contains(t, err.Error(), "counter-signature")

		require.NoError(t, e.CheckCounterSignaturePolicy(policy.Default(), counter))
	})
}

// outcome levels for the generated pipelines: index into levels, and
// whether the expression holds.
var levels = []ades.Level{ades.LevelFail, ades.LevelWarn, ades.LevelInform, ades.LevelIgnore}

func TestPipelineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	build := func(codes []int) (*policy.Policy, error) {
		var specs []policy.ConstraintSpec
		for i, code := range codes {
			expr := "false"
			if code/len(levels) == 1 {
				expr = "true"
			}
			specs = append(specs, policy.ConstraintSpec{
				Name:       "C" + string(rune('A'+i%26)),
				Level:      levels[code%len(levels)],
				Expression: expr,
			})
		}
		return policy.New(policy.Document{
			Name:      "generated",
			Version:   "1.0.0",
			Signature: &policy.ContextSpec{Basic: specs},
		})
	}

	properties.Property("PASSED iff no FAIL constraint is NOT_OK, and nothing follows a blocking one", prop.ForAll(
		func(codes []int) bool {
			p, err := build(codes)
			if err != nil {
				return false
			}
			f := newFixture()
			env := f.env(t, p, policy.LevelBasicSignatures)
			res := New().Evaluate(env, f.sig, now)

			blocking := -1
			for i, c := range res.Constraints {
				if c.Level == ades.LevelFail && c.Status != ades.StatusOK {
					blocking = i
					break
				}
			}
			if res.Conclusion.IsPassed() != (blocking == -1) {
				return false
			}
			if blocking >= 0 && blocking != len(res.Constraints)-1 {
				return false
			}
			// The trace follows policy order.
			for i, c := range res.Constraints {
				if c.Name != p.Constraints(policy.ContextSignature, policy.LevelBasicSignatures)[i].Name {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(0, 2*len(levels)-1)),
	))

	properties.TestingRun(t)
}

package validation

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/sha3"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/bbb"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/metrics"
	"github.com/georgepadayatti/goades/poe"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/report"
	"github.com/georgepadayatti/goades/trust"
)

func validate(t *testing.T, m *diagnostic.Model, opts ...Option) *report.Reports {
	t.Helper()
	r, err := New(opts...).Validate(context.Background(), m, policy.Default())
	require.NoError(t, err)
	return r
}

func TestValidateBaseline(t *testing.T) {
	p := newPKI("")
	r := validate(t, model(p))

	assert.Equal(t, 1, r.Simple.SignaturesCount)
	assert.Equal(t, 1, r.Simple.ValidSignaturesCount)
	assert.Equal(t, "S-1", r.Simple.FirstSignatureID())
	assert.Equal(t, ades.IndicationTotalPassed, r.Simple.Indication("S-1"))
	assert.Equal(t, now, r.ValidationTime)
	assert.NotEmpty(t, r.RunID)

	// No archive timestamp at the archival level only warns.
	sig, ok := r.Simple.Signature("S-1")
	require.True(t, ok)
	require.Len(t, sig.Warnings, 1)
	assert.Equal(t, "ARCH_LTAIVMP_ANS", sig.Warnings[0].Key)
	assert.Equal(t, p.ts.ProductionTime, sig.BestSignatureTime)

	for _, tok := range r.Detailed.Tokens {
		assert.Equal(t, string(StateTerminal), tok.State, tok.ID)
		assert.True(t, tok.Conclusion.IsPassed(), "%s: %+v", tok.ID, tok.Conclusion)
		assert.Empty(t, tok.PastValidations, tok.ID)
	}

	leaf, ok := r.Detailed.Token("C-LEAF")
	require.True(t, ok)
	require.Len(t, leaf.POE, 1)
	assert.Equal(t, poe.Entry{Time: p.ts.ProductionTime, ProducedBy: "T-1", Kind: poe.KindTimestamp}, leaf.POE[0])
}

// A signed content entry whose digest does not match fails the signature
// with HASH_FAILURE and stops its pipeline.
func TestDigestMismatchFailsSignature(t *testing.T) {
	p := newPKI("")
	p.sig.Matchers[0].DataIntact = false
	r := validate(t, model(p))

	assert.Equal(t, ades.IndicationTotalFailed, r.Simple.Indication("S-1"))
	assert.Equal(t, ades.SubIndicationHashFailure, r.Simple.SubIndication("S-1"))

	res, ok := r.Detailed.BasicBuildingBlockByID("S-1")
	require.True(t, ok)
	require.NotEmpty(t, res.Constraints)
	last := res.Constraints[len(res.Constraints)-1]
	assert.Equal(t, "BBB_CV_IRDOI", last.Name)
	assert.Equal(t, ades.StatusNotOK, last.Status)
	for _, c := range res.Constraints[:len(res.Constraints)-1] {
		assert.Equal(t, ades.StatusOK, c.Status, c.Name)
	}
}

func expiredPKI(prefix string) *pki {
	p := newPKI(prefix)
	p.leaf.NotAfter = now.Add(-60 * day)
	p.ts.ProductionTime = now.Add(-182 * day)
	p.sig.ClaimedSigningTime = now.Add(-183 * day)
	return p
}

// A signing certificate expired at validation time is validated at the
// production time of the timestamp that covers it.
func TestExpiredSignerValidatedAtTimestamp(t *testing.T) {
	p := expiredPKI("")
	reg := prometheus.NewRegistry()
	met := metrics.New(reg)
	r := validate(t, model(p), WithMetrics(met))

	assert.Equal(t, ades.IndicationTotalPassed, r.Simple.Indication("S-1"))

	leaf, ok := r.Detailed.Token("C-LEAF")
	require.True(t, ok)
	assert.Equal(t, ades.IndicationIndeterminate, leaf.Validation.Conclusion.Indication)
	assert.Equal(t, ades.SubIndicationOutOfBoundsNotRevoked, leaf.Validation.Conclusion.SubIndication)
	require.Len(t, leaf.PastValidations, 1)
	assert.Equal(t, p.ts.ProductionTime, leaf.PastValidations[0].ReferenceTime)
	assert.True(t, leaf.Conclusion.IsPassed())

	res, ok := r.Detailed.BasicBuildingBlockByID("C-LEAF")
	require.True(t, ok)
	assert.Equal(t, p.ts.ProductionTime, res.ReferenceTime)

	detail, ok := r.Detailed.Signature("S-1")
	require.True(t, ok)
	require.NotNil(t, detail.Chain)
	assert.True(t, detail.Chain.IsPassed())

	assert.Equal(t, 1.0, testutil.ToFloat64(met.PastValidations.WithLabelValues(metrics.OutcomePassed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.Validations.WithLabelValues(string(ades.IndicationTotalPassed))))

	// Extending the signature with an archive timestamp keeps the verdict.
	lta := p.archive("A-1", now.Add(-day))
	m := model(p)
	m.Timestamps = append(m.Timestamps, lta)
	p.sig.Timestamps = append(p.sig.Timestamps, lta.TokenID)
	r = validate(t, m)

	assert.Equal(t, ades.IndicationTotalPassed, r.Simple.Indication("S-1"))
	sig, _ := r.Simple.Signature("S-1")
	assert.Empty(t, sig.Warnings)
	leaf, _ = r.Detailed.Token("C-LEAF")
	require.Len(t, leaf.PastValidations, 1)
	assert.Equal(t, p.ts.ProductionTime, leaf.PastValidations[0].ReferenceTime)
	archive, _ := r.Detailed.Token("A-1")
	assert.True(t, archive.Conclusion.IsPassed())
	require.Len(t, leaf.POE, 2)
	assert.Equal(t, poe.KindArchiveTimestamp, leaf.POE[1].Kind)
}

func TestPastValidationWithoutPOE(t *testing.T) {
	p := expiredPKI("")
	p.ts.Covered = []string{"S-1"}
	r := validate(t, model(p))

	assert.Equal(t, ades.IndicationIndeterminate, r.Simple.Indication("S-1"))
	assert.Equal(t, ades.SubIndicationNoPOE, r.Simple.SubIndication("S-1"))

	leaf, _ := r.Detailed.Token("C-LEAF")
	require.Len(t, leaf.PastValidations, 1)
	assert.Equal(t, bbb.NamePastPOE, leaf.PastValidations[0].Constraints[0].Name)
	assert.Equal(t, ades.SubIndicationNoPOE, leaf.Conclusion.SubIndication)
}

// An archive timestamp gives the expired signer the proof of existence the
// signature timestamp did not, and the signature passes after the archive
// phase. Nested archive timestamps are processed from the innermost.
func TestArchiveTimestampResolvesNoPOE(t *testing.T) {
	p := expiredPKI("")
	p.ts.Covered = []string{"S-1"}
	inner := p.archive("A-1", now.Add(-100*day))
	outer := p.archive("A-2", now.Add(-10*day))
	outer.Covered = append(outer.Covered, inner.TokenID)
	m := model(p)
	m.Timestamps = append(m.Timestamps, outer, inner)
	p.sig.Timestamps = append(p.sig.Timestamps, outer.TokenID, inner.TokenID)

	require.NoError(t, m.Index())
	vr := newRun(New(), m, policy.Default(), now, zerolog.Nop())
	order := make([]int, len(vr.records))
	for i := range order {
		order[i] = i
	}
	var ids []string
	for _, rec := range vr.archives(order) {
		ids = append(ids, rec.tok.ID())
	}
	assert.Equal(t, []string{"A-1", "A-2"}, ids)

	r := validate(t, m)
	assert.Equal(t, ades.IndicationTotalPassed, r.Simple.Indication("S-1"))

	leaf, ok := r.Detailed.Token("C-LEAF")
	require.True(t, ok)
	assert.True(t, leaf.Conclusion.IsPassed(), leaf.Conclusion)
	// NO_POE before the archive phase, then a single attempt at the inner
	// archive timestamp. Starting from the outer one would have added a
	// failed attempt after the certificate expired.
	require.Len(t, leaf.PastValidations, 2)
	assert.Equal(t, bbb.NamePastPOE, leaf.PastValidations[0].Constraints[0].Name)
	assert.Equal(t, now, leaf.PastValidations[0].ReferenceTime)
	assert.Equal(t, inner.ProductionTime, leaf.PastValidations[1].ReferenceTime)
	assert.True(t, leaf.PastValidations[1].Conclusion.IsPassed())

	require.Len(t, leaf.POE, 2)
	assert.Equal(t, poe.Entry{Time: inner.ProductionTime, ProducedBy: "A-1", Kind: poe.KindArchiveTimestamp}, leaf.POE[0])
	assert.Equal(t, poe.Entry{Time: outer.ProductionTime, ProducedBy: "A-2", Kind: poe.KindArchiveTimestamp}, leaf.POE[1])
}

// Every proof of existence is tried once; when none helps the certificate
// keeps its conclusion at the validation time.
func TestPastValidationRetriesAreBounded(t *testing.T) {
	p := expiredPKI("")
	p.leaf.NotBefore = now.Add(-100 * day)
	lta := p.archive("A-1", now.Add(-day))
	m := model(p)
	m.Timestamps = append(m.Timestamps, lta)
	p.sig.Timestamps = append(p.sig.Timestamps, lta.TokenID)

	r := validate(t, m, WithMaxPasses(50))

	leaf, _ := r.Detailed.Token("C-LEAF")
	require.Len(t, leaf.PastValidations, 2)
	seen := make(map[time.Time]bool)
	for _, pv := range leaf.PastValidations {
		assert.False(t, seen[pv.ReferenceTime], "retried at %s", pv.ReferenceTime)
		seen[pv.ReferenceTime] = true
		assert.False(t, pv.Conclusion.IsPassed())
	}
	assert.Equal(t, leaf.Validation.Conclusion, leaf.Conclusion)
	assert.Equal(t, ades.IndicationIndeterminate, r.Simple.Indication("S-1"))
	assert.Equal(t, ades.SubIndicationOutOfBoundsNotRevoked, r.Simple.SubIndication("S-1"))
}

func TestDependencyCycle(t *testing.T) {
	p := newPKI("")
	// The CRL of the signer is signed by the signer itself.
	p.crl.Signer = p.signer(p.leaf)
	r := validate(t, model(p))

	for _, id := range []string{"C-LEAF", "R-1"} {
		tok, ok := r.Detailed.Token(id)
		require.True(t, ok)
		assert.Equal(t, string(StateTerminal), tok.State)
		assert.Equal(t, ades.IndicationFailed, tok.Conclusion.Indication)
		assert.Equal(t, ades.SubIndicationFormatFailure, tok.Conclusion.SubIndication)
		require.Len(t, tok.Validation.Constraints, 1)
		assert.Equal(t, bbb.NameDependencyCycle, tok.Validation.Constraints[0].Name)
	}
	assert.Equal(t, ades.IndicationTotalFailed, r.Simple.Indication("S-1"))
	assert.Equal(t, ades.SubIndicationFormatFailure, r.Simple.SubIndication("S-1"))
}

// Independent signatures validated concurrently give the same detailed
// report as a sequential run.
func TestConcurrentComponentsMatchSequentialRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	build := func() *diagnostic.Model {
		return model(newPKI("A-"), expiredPKI("B-"), newPKI("C-"), expiredPKI("D-"))
	}
	sequential := validate(t, build(), WithWorkers(1))
	concurrent := validate(t, build(), WithWorkers(4))

	if diff := cmp.Diff(sequential.Detailed, concurrent.Detailed); diff != "" {
		t.Errorf("detailed reports differ (-sequential +concurrent):\n%s", diff)
	}
	f1, err := sequential.Fingerprint()
	require.NoError(t, err)
	f2, err := concurrent.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)

	assert.Equal(t, 4, concurrent.Simple.ValidSignaturesCount)
	assert.Equal(t, []string{"A-S-1", "B-S-1", "C-S-1", "D-S-1"}, concurrent.Simple.SignatureIDs())
}

func TestEvidenceRecordCoversDetachedDocuments(t *testing.T) {
	p := newPKI("")
	doc := []byte("archived document")
	s256 := sha256.Sum256(doc)
	s512 := sha512.Sum512(doc)
	s3 := sha3.Sum256(doc)

	er := &diagnostic.EvidenceRecord{
		TokenID: "ER-1",
		Kind:    "XML_EVIDENCE_RECORD",
		Matchers: []diagnostic.DigestMatcher{
			{Type: diagnostic.MatcherArchiveObject, DigestAlgorithm: "SHA256", DigestValue: s256[:]},
			{Type: diagnostic.MatcherArchiveObject, DigestAlgorithm: "SHA512", DigestValue: s512[:]},
			{Type: diagnostic.MatcherArchiveObject, DigestAlgorithm: "SHA3-256", DigestValue: s3[:]},
		},
		Timestamps: []string{"ER-T-1"},
	}
	er, err := er.WithDetachedContents([]diagnostic.Document{{Name: "doc.bin", Content: doc}}, trust.HashDigester{})
	require.NoError(t, err)
	for _, m := range er.Matchers {
		assert.True(t, m.DataFound)
		assert.True(t, m.DataIntact)
	}
	require.Len(t, er.Scopes, 1)
	assert.Equal(t, diagnostic.ScopeFull, er.Scopes[0].Type)

	erts := &diagnostic.Timestamp{
		TokenID:        "ER-T-1",
		Kind:           diagnostic.TimestampEvidenceRecord,
		ProductionTime: now.Add(-90 * day),
		MessageImprint: diagnostic.DigestMatcher{Type: diagnostic.MatcherMessageImprint, DataFound: true, DataIntact: true},
		Covered:        []string{"ER-1"},
		Signer:         p.signer(p.tsa),
	}
	m := &diagnostic.Model{
		ValidationTime:  now,
		Timestamps:      []*diagnostic.Timestamp{erts},
		Certificates:    []*diagnostic.Certificate{p.root, p.tsa},
		EvidenceRecords: []*diagnostic.EvidenceRecord{er},
	}
	r := validate(t, m)

	assert.Equal(t, ades.IndicationTotalPassed, r.Simple.Indication("ER-1"))
	entry, ok := r.Simple.EvidenceRecord("ER-1")
	require.True(t, ok)
	assert.Equal(t, erts.ProductionTime, entry.BestTime)
	assert.Equal(t, diagnostic.ScopeFull, entry.Scopes[0].Type)

	tok, _ := r.Detailed.Token("ER-1")
	require.Len(t, tok.POE, 1)
	assert.Equal(t, poe.KindEvidenceRecord, tok.POE[0].Kind)
}

func TestValidateFatalErrors(t *testing.T) {
	dup := model(newPKI(""))
	dup.Certificates = append(dup.Certificates, &diagnostic.Certificate{TokenID: "C-ROOT"})

	noCerts, err := policy.Parse([]byte(`
name: no-certificates
version: 1.0.0
signature:
  basic:
    - { name: BBB_CV_ISI, level: FAIL }
timestamp:
  basic:
    - { name: BBB_CV_ISIT, level: FAIL }
revocation:
  basic:
    - { name: BBB_CV_ISIR, level: FAIL }
`))
	require.NoError(t, err)

	emptySignature, err := policy.Parse([]byte(`
name: empty-signature
version: 1.0.0
signature: {}
`))
	require.NoError(t, err)

	// A counter-signature policy that says nothing about signatures would
	// pass every counter-signature without a single check.
	timestampsOnly, err := policy.Parse([]byte(`
name: timestamps-only
version: 1.0.0
timestamp:
  basic:
    - { name: BBB_CV_ISIT, level: FAIL }
`))
	require.NoError(t, err)
	countersigned := func() *diagnostic.Model {
		p := newPKI("")
		m := model(p)
		m.Signatures = append(m.Signatures, &diagnostic.Signature{
			TokenID:  "S-CS",
			ParentID: p.sig.TokenID,
			Format:   "XAdES-BASELINE-B",
			Signer:   diagnostic.Signer{SigningCertificate: "C-MISSING"},
		})
		return m
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		model  *diagnostic.Model
		policy *policy.Policy
		opts   []Option
		want   error
	}{
		{"no model", context.Background(), nil, policy.Default(), nil, ErrNoModel},
		{"no policy", context.Background(), model(newPKI("")), nil, nil, ErrNoPolicy},
		{"duplicate id", context.Background(), dup, policy.Default(), nil, diagnostic.ErrDuplicateToken},
		{"missing context", context.Background(), model(newPKI("")), noCerts, nil, policy.ErrPolicyConfiguration},
		{"bad level", context.Background(), model(newPKI("")), policy.Default(), []Option{WithLevel(9)}, policy.ErrPolicyConfiguration},
		{"partial counter policy", context.Background(), model(newPKI("")), policy.Default(), []Option{WithCounterSignaturePolicy(noCerts)}, nil},
		{"counter policy covering counter-signatures", context.Background(), countersigned(), policy.Default(), []Option{WithCounterSignaturePolicy(noCerts)}, nil},
		{"counter policy without signature constraints", context.Background(), countersigned(), policy.Default(), []Option{WithCounterSignaturePolicy(timestampsOnly)}, policy.ErrPolicyConfiguration},
		{"counter policy with empty signature context", context.Background(), countersigned(), policy.Default(), []Option{WithCounterSignaturePolicy(emptySignature)}, policy.ErrPolicyConfiguration},
		{"empty signature context", context.Background(), model(newPKI("")), emptySignature, nil, policy.ErrPolicyConfiguration},
		{"cancelled", cancelled, model(newPKI("")), policy.Default(), nil, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.opts...).Validate(tt.ctx, tt.model, tt.policy)
			if tt.want == nil {
				// A counter-signature policy only needs the contexts of
				// counter-signatures.
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, r)
		})
	}
}

func TestValidationTimeFromClock(t *testing.T) {
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	m := model(newPKI(""))
	m.ValidationTime = time.Time{}

	r := validate(t, m, WithClock(clockwork.NewFakeClockAt(at)))
	assert.Equal(t, at, r.ValidationTime)

	explicit := at.Add(time.Hour)
	r = validate(t, model(newPKI("")), WithValidationTime(explicit))
	assert.Equal(t, explicit, r.ValidationTime)
}

func TestWithTrustSource(t *testing.T) {
	p := newPKI("")
	p.root.Trusted = false
	r := validate(t, model(p))
	assert.Equal(t, ades.IndicationIndeterminate, r.Simple.Indication("S-1"))
	assert.Equal(t, ades.SubIndicationNoCertificateChainFound, r.Simple.SubIndication("S-1"))

	p = newPKI("")
	p.root.Trusted = false
	r = validate(t, model(p), WithTrustSource(trustIDs{"C-ROOT"}))
	assert.Equal(t, ades.IndicationTotalPassed, r.Simple.Indication("S-1"))
}

type trustIDs []string

func (ids trustIDs) IsTrusted(id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestBasicLevelSkipsLongTermChecks(t *testing.T) {
	p := newPKI("")
	r := validate(t, model(p), WithLevel(policy.LevelBasicSignatures))

	sig, _ := r.Simple.Signature("S-1")
	assert.Equal(t, ades.IndicationTotalPassed, sig.Indication)
	assert.Empty(t, sig.Warnings)
	leaf, _ := r.Detailed.Token("C-LEAF")
	_, ok := leaf.Validation.Constraint("BBB_XCV_ISCR")
	assert.False(t, ok)
}

package bbb

import (
	"strings"
	"time"

	"github.com/georgepadayatti/goades/diagnostic"
)

func splitValues(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func checkExpectedFormat(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	accepted := splitValues(in.Spec.Value)
	if len(accepted) == 0 {
		return pass()
	}
	if sig.Format == "" {
		return absent("signature format not detected")
	}
	for _, f := range accepted {
		if len(sig.Format) >= len(f) && strings.EqualFold(sig.Format[:len(f)], f) {
			return pass()
		}
	}
	return notOK("format %s is not one of %s", sig.Format, in.Spec.Value)
}

func checkNotDuplicated(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	return holds(!sig.Duplicated, "signature %s is duplicated", sig.ID())
}

// checkSignedFilesPresent verifies that a signature inside a container
// covers container entries and that each of them is present and intact.
func checkSignedFilesPresent(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	if sig.ContainerType == "" {
		return notApplicable()
	}
	n := 0
	for _, m := range sig.Matchers {
		if m.Type != diagnostic.MatcherContainerEntry && m.Type != diagnostic.MatcherManifestEntry {
			continue
		}
		n++
		if !m.DataFound {
			return notOK("signed file %s not found in the container", m.Name)
		}
		if !m.DataIntact {
			return notOK("signed file %s has been modified", m.Name)
		}
	}
	return holds(n > 0, "no signed file in the %s container", sig.ContainerType)
}

func checkSigningCertificateAttribute(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	return holds(sig.SigningCertificateReference, "signing certificate attribute missing")
}

func checkSigningCertificateDigest(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	if !sig.SigningCertificateReference {
		return notApplicable()
	}
	return holds(sig.SigningCertificateDigestMatch, "signing certificate digest does not match")
}

func checkSignaturePolicy(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	accepted := splitValues(in.Spec.Value)
	if len(accepted) == 0 {
		return pass()
	}
	for _, id := range accepted {
		if id == sig.PolicyID {
			return pass()
		}
	}
	if sig.PolicyID == "" {
		return notOK("no signature policy identifier")
	}
	return notOK("signature policy %s is not accepted", sig.PolicyID)
}

// referenceMatchers returns the matchers pointing at the signed data. Container
// entries are handled by the format check.
func referenceMatchers(sig *diagnostic.Signature) []diagnostic.DigestMatcher {
	var out []diagnostic.DigestMatcher
	for _, m := range sig.Matchers {
		switch m.Type {
		case diagnostic.MatcherContainerEntry, diagnostic.MatcherManifestEntry, diagnostic.MatcherOrphanReference:
			continue
		}
		out = append(out, m)
	}
	return out
}

func matcherName(m diagnostic.DigestMatcher) string {
	if m.Name != "" {
		return m.Name
	}
	return string(m.Type)
}

func checkReferencedDataFound(in *Input) Verdict {
	ms := referenceMatchers(in.Token.(*diagnostic.Signature))
	if len(ms) == 0 {
		return absent("no reference to signed data")
	}
	for _, m := range ms {
		if !m.DataFound {
			return notOK("signed data %s not found", matcherName(m))
		}
	}
	return pass()
}

func checkReferencedDataIntact(in *Input) Verdict {
	ms := referenceMatchers(in.Token.(*diagnostic.Signature))
	if len(ms) == 0 {
		return absent("no reference to signed data")
	}
	for _, m := range ms {
		if m.DataFound && !m.DataIntact {
			return notOK("digest of %s does not match", matcherName(m))
		}
	}
	return pass()
}

func checkSigningTimePresent(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	return holds(!sig.ClaimedSigningTime.IsZero(), "claimed signing time missing")
}

func isContentTimestamp(k diagnostic.TimestampType) bool {
	switch k {
	case diagnostic.TimestampContent, diagnostic.TimestampAllDataObjects, diagnostic.TimestampIndividualDataObjects:
		return true
	}
	return false
}

// checkTimestampOrder verifies that content timestamps precede signature
// timestamps, which precede archive timestamps.
func checkTimestampOrder(in *Input) Verdict {
	sig := in.Token.(*diagnostic.Signature)
	tss := in.Env.Model.TimestampsOf(sig)
	if len(tss) == 0 {
		return notApplicable()
	}
	var content, signature, archive []time.Time
	for _, ts := range tss {
		switch {
		case isContentTimestamp(ts.Kind):
			content = append(content, ts.ProductionTime)
		case ts.Kind == diagnostic.TimestampSignature:
			signature = append(signature, ts.ProductionTime)
		case ts.IsArchive():
			archive = append(archive, ts.ProductionTime)
		}
	}
	if len(content) > 0 && len(signature) > 0 && latest(content).After(earliest(signature)) {
		return notOK("content timestamp at %s follows signature timestamp at %s",
			latest(content).Format(time.RFC3339), earliest(signature).Format(time.RFC3339))
	}
	if len(signature) > 0 && len(archive) > 0 && latest(signature).After(earliest(archive)) {
		return notOK("signature timestamp at %s follows archive timestamp at %s",
			latest(signature).Format(time.RFC3339), earliest(archive).Format(time.RFC3339))
	}
	return pass()
}

func latest(ts []time.Time) time.Time {
	var out time.Time
	for _, t := range ts {
		if t.After(out) {
			out = t
		}
	}
	return out
}

func earliest(ts []time.Time) time.Time {
	var out time.Time
	for i, t := range ts {
		if i == 0 || t.Before(out) {
			out = t
		}
	}
	return out
}

func anyPassed(in *Input, archive bool) bool {
	sig := in.Token.(*diagnostic.Signature)
	for _, ts := range in.Env.Model.TimestampsOf(sig) {
		if ts.IsArchive() != archive {
			continue
		}
		if c, ok := in.Env.conclusion(ts.ID()); ok && c.IsPassed() {
			return true
		}
	}
	return false
}

func checkValidTimestampPresent(in *Input) Verdict {
	return holds(anyPassed(in, false), "no valid signature or content timestamp")
}

func checkValidArchiveTimestampPresent(in *Input) Verdict {
	return holds(anyPassed(in, true), "no valid archive timestamp")
}

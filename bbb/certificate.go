package bbb

import (
	"strings"
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
)

// anchored reports whether the certificate checks of c are skipped: trust
// anchors are accepted as they are.
func anchored(in *Input, c *diagnostic.Certificate) bool {
	return in.Env.trusted(c.ID())
}

func checkCertificateSignature(in *Input) Verdict {
	c := in.Token.(*diagnostic.Certificate)
	if anchored(in, c) {
		return notApplicable()
	}
	return holds(c.Intact, "signature of %s does not verify", c.ID())
}

func checkCertificateValidity(in *Input) Verdict {
	c := in.Token.(*diagnostic.Certificate)
	if anchored(in, c) {
		return notApplicable()
	}
	if c.ValidAt(in.ReferenceTime) {
		return pass()
	}
	v := notOK("%s is valid from %s to %s", c.ID(),
		c.NotBefore.Format(time.RFC3339), c.NotAfter.Format(time.RFC3339))
	if in.ReferenceTime.Before(c.NotBefore) {
		// No earlier proof of existence can help.
		v.Indication = ades.IndicationFailed
		v.SubIndication = ades.SubIndicationNotYetValid
		return v
	}
	if in.ReferenceTime.After(c.NotAfter) {
		if ans := in.Env.revocation(c.ID(), in.ReferenceTime); ans.Known && ans.RevocationTime.IsZero() {
			v.SubIndication = ades.SubIndicationOutOfBoundsNotRevoked
		}
	}
	return v
}

func checkIssuerConclusion(in *Input) Verdict {
	c := in.Token.(*diagnostic.Certificate)
	if anchored(in, c) || c.SelfSigned {
		return notApplicable()
	}
	if c.IssuerID == "" {
		return absent("issuer of %s not identified", c.ID())
	}
	if _, ok := in.Env.Model.Certificate(c.IssuerID); !ok {
		return absent("issuer %s not found", c.IssuerID)
	}
	conc, ok := in.Env.conclusion(c.IssuerID)
	if !ok {
		return absent("issuer %s has no conclusion", c.IssuerID)
	}
	return fromDependency(conc, c.IssuerID, true)
}

// revocationExempt reports whether c needs no revocation data.
func revocationExempt(in *Input, c *diagnostic.Certificate) bool {
	return anchored(in, c) || c.SelfSigned || c.RevocationCheckNotRequired
}

func checkRevocationPresent(in *Input) Verdict {
	c := in.Token.(*diagnostic.Certificate)
	if revocationExempt(in, c) {
		return notApplicable()
	}
	ans := in.Env.revocation(c.ID(), in.ReferenceTime)
	return holds(ans.Known, "no acceptable revocation data for %s", c.ID())
}

// checkRevocationFresh verifies that the revocation data was issued within
// the freshness window before the reference time. The window is the
// configured duration or, when none is configured, the update period of the
// revocation data itself.
func checkRevocationFresh(in *Input) Verdict {
	c := in.Token.(*diagnostic.Certificate)
	if revocationExempt(in, c) {
		return notApplicable()
	}
	ans := in.Env.revocation(c.ID(), in.ReferenceTime)
	if !ans.Known {
		return notApplicable()
	}
	var window time.Duration
	if v := strings.TrimSpace(in.Spec.Value); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return absent("invalid freshness window %q", v)
		}
		window = d
	} else {
		if ans.NextUpdate.IsZero() {
			return pass()
		}
		window = ans.NextUpdate.Sub(ans.IssuedAt)
	}
	return holds(!ans.IssuedAt.Before(in.ReferenceTime.Add(-window)),
		"revocation data %s issued at %s is older than %s", ans.RevocationID, ans.IssuedAt.Format(time.RFC3339), window)
}

func checkNotRevoked(in *Input) Verdict {
	c := in.Token.(*diagnostic.Certificate)
	if revocationExempt(in, c) {
		return notApplicable()
	}
	ans := in.Env.revocation(c.ID(), in.ReferenceTime)
	if !ans.Known {
		return notApplicable()
	}
	if ans.Revoked {
		if ans.Reason != "" {
			return notOK("%s revoked on %s (%s)", c.ID(), ans.RevocationTime.Format(time.RFC3339), ans.Reason)
		}
		return notOK("%s revoked on %s", c.ID(), ans.RevocationTime.Format(time.RFC3339))
	}
	return pass()
}

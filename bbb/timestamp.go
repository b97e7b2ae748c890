package bbb

import (
	"time"

	"github.com/georgepadayatti/goades/diagnostic"
)

func checkImprintFound(in *Input) Verdict {
	ts := in.Token.(*diagnostic.Timestamp)
	return holds(ts.MessageImprint.DataFound, "data covered by the message imprint not found")
}

func checkImprintIntact(in *Input) Verdict {
	ts := in.Token.(*diagnostic.Timestamp)
	if !ts.MessageImprint.DataFound {
		return absent("data covered by the message imprint not found")
	}
	return holds(ts.MessageImprint.DataIntact, "message imprint does not match")
}

// checkProductionTimeInValidity verifies that the TSA certificate was valid
// when the timestamp was produced.
func checkProductionTimeInValidity(in *Input) Verdict {
	ts := in.Token.(*diagnostic.Timestamp)
	if ts.SigningCertificate == "" {
		return absent("no TSA certificate")
	}
	c, ok := in.Env.Model.Certificate(ts.SigningCertificate)
	if !ok {
		return absent("TSA certificate %s not found", ts.SigningCertificate)
	}
	return holds(c.ValidAt(ts.ProductionTime), "production time %s is outside the validity of %s",
		ts.ProductionTime.Format(time.RFC3339), c.ID())
}

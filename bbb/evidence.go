package bbb

import "github.com/georgepadayatti/goades/diagnostic"

func recordTimestamps(in *Input) []*diagnostic.Timestamp {
	er := in.Token.(*diagnostic.EvidenceRecord)
	var out []*diagnostic.Timestamp
	for _, id := range er.Timestamps {
		if ts, ok := in.Env.Model.Timestamp(id); ok {
			out = append(out, ts)
		}
	}
	return out
}

func archiveObjects(er *diagnostic.EvidenceRecord) []diagnostic.DigestMatcher {
	var out []diagnostic.DigestMatcher
	for _, m := range er.Matchers {
		if m.Type == diagnostic.MatcherArchiveObject {
			out = append(out, m)
		}
	}
	return out
}

func checkArchiveObjectsFound(in *Input) Verdict {
	ms := archiveObjects(in.Token.(*diagnostic.EvidenceRecord))
	if len(ms) == 0 {
		return absent("no archive object")
	}
	for _, m := range ms {
		if !m.DataFound {
			return notOK("archive object %s not found", matcherName(m))
		}
	}
	return pass()
}

func checkArchiveObjectsIntact(in *Input) Verdict {
	ms := archiveObjects(in.Token.(*diagnostic.EvidenceRecord))
	if len(ms) == 0 {
		return absent("no archive object")
	}
	for _, m := range ms {
		if m.DataFound && !m.DataIntact {
			return notOK("digest of archive object %s does not match", matcherName(m))
		}
	}
	return pass()
}

func checkRecordTimestampPresent(in *Input) Verdict {
	return holds(len(recordTimestamps(in)) > 0, "evidence record has no archive timestamp")
}

func checkRecordTimestampValid(in *Input) Verdict {
	tss := recordTimestamps(in)
	if len(tss) == 0 {
		return absent("evidence record has no archive timestamp")
	}
	seen := false
	for _, ts := range tss {
		c, ok := in.Env.conclusion(ts.ID())
		if !ok {
			continue
		}
		seen = true
		if c.IsPassed() {
			return pass()
		}
	}
	if !seen {
		return absent("archive timestamps not validated")
	}
	return notOK("no valid archive timestamp")
}

// checkRecordTimestampOrder verifies that the archive timestamp chain is in
// chronological order.
func checkRecordTimestampOrder(in *Input) Verdict {
	tss := recordTimestamps(in)
	for i := 1; i < len(tss); i++ {
		if tss[i].ProductionTime.Before(tss[i-1].ProductionTime) {
			return notOK("archive timestamp %s precedes %s", tss[i].ID(), tss[i-1].ID())
		}
	}
	return pass()
}

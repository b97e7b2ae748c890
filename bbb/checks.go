package bbb

import (
	"fmt"
	"strings"
	"time"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/diagnostic"
)

var (
	signatures      = []diagnostic.TokenType{diagnostic.TypeSignature}
	timestamps      = []diagnostic.TokenType{diagnostic.TypeTimestamp}
	certificates    = []diagnostic.TokenType{diagnostic.TypeCertificate}
	revocations     = []diagnostic.TokenType{diagnostic.TypeRevocation}
	evidenceRecords = []diagnostic.TokenType{diagnostic.TypeEvidenceRecord}
	signedTokens    = []diagnostic.TokenType{diagnostic.TypeSignature, diagnostic.TypeTimestamp, diagnostic.TypeRevocation}
	issuedTokens    = []diagnostic.TokenType{diagnostic.TypeTimestamp, diagnostic.TypeRevocation}
	chainedTokens   = []diagnostic.TokenType{diagnostic.TypeSignature, diagnostic.TypeTimestamp, diagnostic.TypeCertificate, diagnostic.TypeRevocation}
)

var builtins = []Definition{
	{Name: "BBB_FC_IEFF", Block: BlockFormat, Types: signatures, Check: checkExpectedFormat},
	{Name: "BBB_FC_ISD", Block: BlockFormat, Types: signatures, Check: checkNotDuplicated},
	{Name: "BBB_FC_ISFP", Block: BlockFormat, Types: signatures, Check: checkSignedFilesPresent},
	{Name: "BBB_ICS_ISCI", Block: BlockIdentification, Types: signedTokens, Check: checkSigningCertificateIdentified},
	{Name: "BBB_ICS_ISASCP", Block: BlockIdentification, Types: signatures, Check: checkSigningCertificateAttribute},
	{Name: "BBB_ICS_ICDVV", Block: BlockIdentification, Types: signatures, Check: checkSigningCertificateDigest},
	{Name: "BBB_VCI_ISPK", Block: BlockContext, Types: signatures, Check: checkSignaturePolicy},
	{Name: "BBB_CV_IRDOF", Block: BlockCryptographic, Types: signatures, Check: checkReferencedDataFound},
	{Name: "BBB_CV_IRDOI", Block: BlockCryptographic, Types: signatures, Check: checkReferencedDataIntact},
	{Name: "BBB_CV_ISI", Block: BlockCryptographic, Types: signatures, Check: checkSignatureIntact},
	{Name: "BBB_XCV_CCCBB", Block: BlockX509, Types: chainedTokens, Check: checkChainBuilt},
	{Name: "BBB_SAV_ISQPSTP", Block: BlockAcceptance, Types: signatures, Check: checkSigningTimePresent},
	{Name: "BBB_SAV_ASCCM", Block: BlockAcceptance, Types: signatures, Check: checkCryptographic},
	{Name: "BBB_TSV_ISTO", Block: BlockTimestamps, Types: signatures, Check: checkTimestampOrder},
	{Name: "ADEST_ROTVPIIC", Block: BlockLongTerm, Types: signatures, Check: checkValidTimestampPresent},
	{Name: "ARCH_LTAIVMP", Block: BlockArchival, Types: signatures, Check: checkValidArchiveTimestampPresent},

	{Name: "BBB_CV_TSP_IRDOF", Block: BlockCryptographic, Types: timestamps, Check: checkImprintFound},
	{Name: "BBB_CV_TSP_IRDOI", Block: BlockCryptographic, Types: timestamps, Check: checkImprintIntact},
	{Name: "BBB_CV_ISIT", Block: BlockCryptographic, Types: timestamps, Check: checkSignatureIntact},
	{Name: "BBB_XCV_SUB", Block: BlockX509, Types: issuedTokens, Check: checkSigningCertificateConclusion},
	{Name: "BBB_TSP_IPTWTSACV", Block: BlockX509, Types: timestamps, Check: checkProductionTimeInValidity},
	{Name: "BBB_SAV_TSP_ACCM", Block: BlockAcceptance, Types: timestamps, Check: checkCryptographic},

	{Name: "BBB_XCV_ICSI", Block: BlockX509, Types: certificates, Check: checkCertificateSignature},
	{Name: "BBB_XCV_ICTIVRSC", Block: BlockX509, Types: certificates, Check: checkCertificateValidity},
	{Name: "BBB_XCV_ISIC", Block: BlockX509, Types: certificates, Check: checkIssuerConclusion},
	{Name: "BBB_XCV_ICACCM", Block: BlockX509, Types: certificates, Check: checkCryptographic},
	{Name: "BBB_XCV_IRDPFC", Block: BlockRevocation, Types: certificates, Check: checkRevocationPresent},
	{Name: "BBB_RFC_IRIF", Block: BlockRevocation, Types: certificates, Check: checkRevocationFresh, ValidateValue: validateDuration},
	{Name: "BBB_XCV_ISCR", Block: BlockX509, Types: certificates, Check: checkNotRevoked},

	{Name: "BBB_CV_ISIR", Block: BlockCryptographic, Types: revocations, Check: checkSignatureIntact},
	{Name: "BBB_SAV_RAC_ACCM", Block: BlockAcceptance, Types: revocations, Check: checkCryptographic},

	{Name: "BBB_ER_IDOF", Block: BlockCryptographic, Types: evidenceRecords, Check: checkArchiveObjectsFound},
	{Name: "BBB_ER_IDOI", Block: BlockCryptographic, Types: evidenceRecords, Check: checkArchiveObjectsIntact},
	{Name: "BBB_ER_IATSP", Block: BlockTimestamps, Types: evidenceRecords, Check: checkRecordTimestampPresent},
	{Name: "BBB_ER_IATSV", Block: BlockTimestamps, Types: evidenceRecords, Check: checkRecordTimestampValid},
	{Name: "BBB_ER_ITSO", Block: BlockTimestamps, Types: evidenceRecords, Check: checkRecordTimestampOrder},
}

func validateDuration(v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("duration %s is negative", v)
	}
	return nil
}

func checkSigningCertificateIdentified(in *Input) Verdict {
	s, ok := in.Token.(diagnostic.Signed)
	if !ok {
		return notApplicable()
	}
	id := s.SigningCertificateID()
	if id == "" {
		return notOK("signing certificate not identified")
	}
	if _, ok := in.Env.Model.Certificate(id); !ok {
		return notOK("signing certificate %s not found", id)
	}
	return pass()
}

func checkSignatureIntact(in *Input) Verdict {
	s, ok := in.Token.(diagnostic.Signed)
	if !ok {
		return notApplicable()
	}
	return holds(s.SignatureIntact(), "signature value does not verify")
}

// checkChainBuilt walks issuer references up to a trust anchor.
func checkChainBuilt(in *Input) Verdict {
	var start string
	switch t := in.Token.(type) {
	case *diagnostic.Certificate:
		start = t.ID()
	case diagnostic.Signed:
		start = t.SigningCertificateID()
		if start == "" {
			return absent("no signing certificate to build a chain from")
		}
	default:
		return notApplicable()
	}
	for _, c := range in.Env.Model.ChainOf(start) {
		if in.Env.trusted(c.ID()) {
			return pass()
		}
	}
	return notOK("no chain from %s to a trust anchor", start)
}

func checkSigningCertificateConclusion(in *Input) Verdict {
	s, ok := in.Token.(diagnostic.Signed)
	if !ok {
		return notApplicable()
	}
	id := s.SigningCertificateID()
	if id == "" {
		return absent("no signing certificate")
	}
	c, ok := in.Env.conclusion(id)
	if !ok {
		return absent("signing certificate %s has no conclusion", id)
	}
	return fromDependency(c, id, false)
}

// fromDependency turns the conclusion of a certificate the token depends on
// into a verdict. Sub-indications that more proof of existence may resolve
// are carried over; issuer revocation becomes REVOKED_CA_NO_POE.
func fromDependency(c ades.Conclusion, id string, issuer bool) Verdict {
	if c.IsPassed() {
		return pass()
	}
	v := notOK("%s is %s", id, describe(c))
	if c.IsIndeterminate() && c.SubIndication.POERecoverable() {
		v.Indication = ades.IndicationIndeterminate
		v.SubIndication = c.SubIndication
		if issuer && c.SubIndication == ades.SubIndicationRevokedNoPOE {
			v.SubIndication = ades.SubIndicationRevokedCANoPOE
		}
	}
	return v
}

func describe(c ades.Conclusion) string {
	if c.SubIndication == "" {
		return string(c.Indication)
	}
	return string(c.Indication) + "/" + string(c.SubIndication)
}

func checkCryptographic(in *Input) Verdict {
	s, ok := in.Token.(diagnostic.Signed)
	if !ok {
		return notApplicable()
	}
	if c, ok := in.Token.(*diagnostic.Certificate); ok && in.Env.trusted(c.ID()) {
		return notApplicable()
	}
	alg := s.SignatureAlgorithm()
	if alg.Digest == "" && alg.Encryption == "" {
		return absent("signature algorithm unknown")
	}
	res := in.Env.policyFor(in.Token).Cryptographic().Check(alg, in.ReferenceTime)
	return holds(res.Acceptable, "%s", res.Reason)
}

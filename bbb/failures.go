package bbb

import "github.com/georgepadayatti/goades/ades"

// Constraint names used outside of policies.
const (
	// NameDependencyCycle is recorded for tokens that take part in a
	// dependency cycle.
	NameDependencyCycle = "BBB_FC_IDNC"
	// NamePastPOE is recorded when past validation finds no usable earlier
	// proof of existence.
	NamePastPOE = "PCV_IPOEA"
)

// Mapping is an Indication and SubIndication pair.
type Mapping struct {
	Indication    ades.Indication
	SubIndication ades.SubIndication
}

// Failure holds the verdicts of a constraint that does not hold (OnFail)
// or whose input is missing (OnAbsent).
type Failure struct {
	OnFail   Mapping
	OnAbsent Mapping
}

var (
	failed        = ades.IndicationFailed
	indeterminate = ades.IndicationIndeterminate
)

func same(ind ades.Indication, sub ades.SubIndication) Failure {
	m := Mapping{ind, sub}
	return Failure{OnFail: m, OnAbsent: Mapping{indeterminate, sub}}
}

var failures = map[string]Failure{
	// Format checking.
	"BBB_FC_IEFF":       same(failed, ades.SubIndicationFormatFailure),
	"BBB_FC_ISD":        same(failed, ades.SubIndicationFormatFailure),
	"BBB_FC_ISFP":       same(failed, ades.SubIndicationFormatFailure),
	NameDependencyCycle: same(failed, ades.SubIndicationFormatFailure),

	// Identification of the signing certificate.
	"BBB_ICS_ISCI":   same(indeterminate, ades.SubIndicationNoSigningCertificateFound),
	"BBB_ICS_ISASCP": same(indeterminate, ades.SubIndicationNoSigningCertificateFound),
	"BBB_ICS_ICDVV":  same(indeterminate, ades.SubIndicationNoSigningCertificateFound),

	// Validation context initialization.
	"BBB_VCI_ISPK": same(indeterminate, ades.SubIndicationSignaturePolicyNotAvailable),

	// Cryptographic verification.
	"BBB_CV_IRDOF":     same(indeterminate, ades.SubIndicationSignedDataNotFound),
	"BBB_CV_IRDOI":     {OnFail: Mapping{failed, ades.SubIndicationHashFailure}, OnAbsent: Mapping{indeterminate, ades.SubIndicationSignedDataNotFound}},
	"BBB_CV_ISI":       same(failed, ades.SubIndicationSigCryptoFailure),
	"BBB_CV_TSP_IRDOF": same(indeterminate, ades.SubIndicationSignedDataNotFound),
	"BBB_CV_TSP_IRDOI": {OnFail: Mapping{failed, ades.SubIndicationHashFailure}, OnAbsent: Mapping{indeterminate, ades.SubIndicationSignedDataNotFound}},
	"BBB_CV_ISIT":      same(failed, ades.SubIndicationSigCryptoFailure),
	"BBB_CV_ISIR":      same(failed, ades.SubIndicationSigCryptoFailure),

	// X.509 certificate validation.
	"BBB_XCV_CCCBB":     same(indeterminate, ades.SubIndicationNoCertificateChainFound),
	"BBB_XCV_SUB":       same(indeterminate, ades.SubIndicationCertificateChainGeneralFailure),
	"BBB_XCV_ICSI":      same(indeterminate, ades.SubIndicationCertificateChainGeneralFailure),
	"BBB_XCV_ICTIVRSC":  same(indeterminate, ades.SubIndicationOutOfBoundsNoPOE),
	"BBB_XCV_ISIC":      {OnFail: Mapping{indeterminate, ades.SubIndicationCertificateChainGeneralFailure}, OnAbsent: Mapping{indeterminate, ades.SubIndicationNoCertificateChainFound}},
	"BBB_XCV_ICACCM":    same(indeterminate, ades.SubIndicationCryptoConstraintsFailureNoPOE),
	"BBB_XCV_IRDPFC":    same(indeterminate, ades.SubIndicationTryLater),
	"BBB_XCV_ISCR":      same(indeterminate, ades.SubIndicationRevokedNoPOE),
	"BBB_TSP_IPTWTSACV": same(indeterminate, ades.SubIndicationCertificateChainGeneralFailure),

	// Revocation freshness.
	"BBB_RFC_IRIF": same(indeterminate, ades.SubIndicationTryLater),

	// Signature acceptance validation.
	"BBB_SAV_ISQPSTP":  same(indeterminate, ades.SubIndicationSigConstraintsFailure),
	"BBB_SAV_ASCCM":    same(indeterminate, ades.SubIndicationCryptoConstraintsFailureNoPOE),
	"BBB_SAV_TSP_ACCM": same(indeterminate, ades.SubIndicationCryptoConstraintsFailureNoPOE),
	"BBB_SAV_RAC_ACCM": same(indeterminate, ades.SubIndicationCryptoConstraintsFailureNoPOE),

	// Timestamps, long-term and archival data.
	"BBB_TSV_ISTO":   same(indeterminate, ades.SubIndicationTimestampOrderFailure),
	"ADEST_ROTVPIIC": same(indeterminate, ades.SubIndicationNoValidTimestamp),
	"ARCH_LTAIVMP":   same(indeterminate, ades.SubIndicationNoValidTimestamp),

	// Evidence records.
	"BBB_ER_IDOF":  same(indeterminate, ades.SubIndicationSignedDataNotFound),
	"BBB_ER_IDOI":  {OnFail: Mapping{failed, ades.SubIndicationHashFailure}, OnAbsent: Mapping{indeterminate, ades.SubIndicationSignedDataNotFound}},
	"BBB_ER_IATSP": same(indeterminate, ades.SubIndicationNoValidTimestamp),
	"BBB_ER_IATSV": same(indeterminate, ades.SubIndicationNoValidTimestamp),
	"BBB_ER_ITSO":  same(indeterminate, ades.SubIndicationTimestampOrderFailure),

	// Past certificate validation.
	NamePastPOE: same(indeterminate, ades.SubIndicationNoPOE),
}

// FailureFor returns the failure mapping of a built-in constraint.
func FailureFor(name string) (Failure, bool) {
	f, ok := failures[name]
	return f, ok
}

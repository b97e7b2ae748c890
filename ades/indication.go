// Package ades holds the validation vocabulary shared by every stage of the
// engine: indications, sub-indications, constraint results and conclusions
// as defined by ETSI EN 319 102-1.
package ades

// Indication is the top-level verdict of a validation process.
type Indication string

// Validation Indication values per ETSI EN 319 102-1
const (
	IndicationPassed        Indication = "PASSED"
	IndicationFailed        Indication = "FAILED"
	IndicationIndeterminate Indication = "INDETERMINATE"

	// Signature level verdicts reported in the simple report.
	IndicationTotalPassed Indication = "TOTAL_PASSED"
	IndicationTotalFailed Indication = "TOTAL_FAILED"
)

// SubIndication qualifies a non passing Indication.
type SubIndication string

// Sub-indication values per ETSI EN 319 102-1
const (
	SubIndicationNone SubIndication = ""

	// FAILED sub-indications
	SubIndicationFormatFailure                  SubIndication = "FORMAT_FAILURE"
	SubIndicationHashFailure                    SubIndication = "HASH_FAILURE"
	SubIndicationSigCryptoFailure               SubIndication = "SIG_CRYPTO_FAILURE"
	SubIndicationRevoked                        SubIndication = "REVOKED"
	SubIndicationNotYetValid                    SubIndication = "NOT_YET_VALID"
	SubIndicationSigConstraintsFailure          SubIndication = "SIG_CONSTRAINTS_FAILURE"
	SubIndicationChainConstraintsFailure        SubIndication = "CHAIN_CONSTRAINTS_FAILURE"
	SubIndicationCertificateChainGeneralFailure SubIndication = "CERTIFICATE_CHAIN_GENERAL_FAILURE"
	SubIndicationCryptoConstraintsFailure       SubIndication = "CRYPTO_CONSTRAINTS_FAILURE"
	SubIndicationExpired                        SubIndication = "EXPIRED"
	SubIndicationPolicyProcessingError          SubIndication = "POLICY_PROCESSING_ERROR"
	SubIndicationSignaturePolicyNotAvailable    SubIndication = "SIGNATURE_POLICY_NOT_AVAILABLE"
	SubIndicationTimestampOrderFailure          SubIndication = "TIMESTAMP_ORDER_FAILURE"

	// INDETERMINATE sub-indications
	SubIndicationNoSigningCertificateFound     SubIndication = "NO_SIGNING_CERTIFICATE_FOUND"
	SubIndicationNoCertificateChainFound       SubIndication = "NO_CERTIFICATE_CHAIN_FOUND"
	SubIndicationRevokedNoPOE                  SubIndication = "REVOKED_NO_POE"
	SubIndicationRevokedCANoPOE                SubIndication = "REVOKED_CA_NO_POE"
	SubIndicationOutOfBoundsNoPOE              SubIndication = "OUT_OF_BOUNDS_NO_POE"
	SubIndicationOutOfBoundsNotRevoked         SubIndication = "OUT_OF_BOUNDS_NOT_REVOKED"
	SubIndicationCryptoConstraintsFailureNoPOE SubIndication = "CRYPTO_CONSTRAINTS_FAILURE_NO_POE"
	SubIndicationNoPOE                         SubIndication = "NO_POE"
	SubIndicationTryLater                      SubIndication = "TRY_LATER"
	SubIndicationSignedDataNotFound            SubIndication = "SIGNED_DATA_NOT_FOUND"
	SubIndicationNoValidTimestamp              SubIndication = "NO_VALID_TIMESTAMP"
)

// Severity orders indications: FAILED > INDETERMINATE > PASSED.
func (i Indication) Severity() int {
	switch i {
	case IndicationFailed, IndicationTotalFailed:
		return 2
	case IndicationIndeterminate:
		return 1
	case IndicationPassed, IndicationTotalPassed:
		return 0
	default:
		// Unknown indications never look better than INDETERMINATE.
		return 1
	}
}

// Total converts a token level indication to its signature level form.
func (i Indication) Total() Indication {
	switch i {
	case IndicationPassed:
		return IndicationTotalPassed
	case IndicationFailed:
		return IndicationTotalFailed
	default:
		return i
	}
}

// IsPassed reports whether i is PASSED or TOTAL_PASSED.
func (i Indication) IsPassed() bool {
	return i == IndicationPassed || i == IndicationTotalPassed
}

// POERecoverable reports whether an INDETERMINATE carrying s may be resolved
// by re-validating the token at an earlier proof of existence.
func (s SubIndication) POERecoverable() bool {
	switch s {
	case SubIndicationOutOfBoundsNoPOE,
		SubIndicationOutOfBoundsNotRevoked,
		SubIndicationRevokedNoPOE,
		SubIndicationRevokedCANoPOE,
		SubIndicationCryptoConstraintsFailureNoPOE,
		SubIndicationTryLater:
		return true
	default:
		return false
	}
}

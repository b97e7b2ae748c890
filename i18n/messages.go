// Package i18n renders constraint names and answer keys as human readable
// text. The catalog holds English and French messages; keys without an
// entry are printed as is.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported languages.
var (
	English = language.English
	French  = language.French
)

type entry struct {
	key, en, fr string
}

// Constraint questions and the answers printed when they do not hold.
var entries = []entry{
	{"BBB_FC_IEFF", "Is the expected format found?", "Le format attendu est-il trouvé ?"},
	{"BBB_FC_IEFF_ANS", "The expected format is not found!", "Le format attendu n'est pas trouvé !"},
	{"BBB_FC_ISD", "Is the signature not duplicated?", "La signature n'est-elle pas dupliquée ?"},
	{"BBB_FC_ISD_ANS", "The signature is duplicated!", "La signature est dupliquée !"},
	{"BBB_FC_ISFP", "Are the signed files present and intact?", "Les fichiers signés sont-ils présents et intacts ?"},
	{"BBB_FC_ISFP_ANS", "A signed file is missing or altered!", "Un fichier signé est absent ou altéré !"},
	{"BBB_FC_IDNC", "Is the token outside any dependency cycle?", "Le jeton est-il hors de tout cycle de dépendances ?"},
	{"BBB_FC_IDNC_ANS", "The token takes part in a dependency cycle!", "Le jeton fait partie d'un cycle de dépendances !"},
	{"BBB_ICS_ISCI", "Is there an identified candidate for the signing certificate?", "Existe-t-il un candidat identifié pour le certificat de signature ?"},
	{"BBB_ICS_ISCI_ANS", "There is no candidate for the signing certificate!", "Il n'existe aucun candidat pour le certificat de signature !"},
	{"BBB_ICS_ISASCP", "Is the signed attribute 'signing-certificate' present?", "L'attribut signé 'signing-certificate' est-il présent ?"},
	{"BBB_ICS_ISASCP_ANS", "The signed attribute 'signing-certificate' is absent!", "L'attribut signé 'signing-certificate' est absent !"},
	{"BBB_ICS_ICDVV", "Is the certificate digest value valid?", "La valeur de hachage du certificat est-elle valide ?"},
	{"BBB_ICS_ICDVV_ANS", "The certificate digest value is not valid!", "La valeur de hachage du certificat n'est pas valide !"},
	{"BBB_VCI_ISPK", "Is the signature policy known?", "La politique de signature est-elle connue ?"},
	{"BBB_VCI_ISPK_ANS", "The signature policy is not known!", "La politique de signature n'est pas connue !"},
	{"BBB_CV_IRDOF", "Is the reference data object found?", "L'objet de données référencé est-il trouvé ?"},
	{"BBB_CV_IRDOF_ANS", "The reference data object is not found!", "L'objet de données référencé n'est pas trouvé !"},
	{"BBB_CV_IRDOI", "Is the reference data object intact?", "L'objet de données référencé est-il intact ?"},
	{"BBB_CV_IRDOI_ANS", "The reference data object is not intact!", "L'objet de données référencé n'est pas intact !"},
	{"BBB_CV_ISI", "Is the signature intact?", "La signature est-elle intacte ?"},
	{"BBB_CV_ISI_ANS", "The signature is not intact!", "La signature n'est pas intacte !"},
	{"BBB_CV_TSP_IRDOF", "Is the time-stamp message imprint data found?", "Les données de l'empreinte de l'horodatage sont-elles trouvées ?"},
	{"BBB_CV_TSP_IRDOF_ANS", "The time-stamp message imprint data is not found!", "Les données de l'empreinte de l'horodatage ne sont pas trouvées !"},
	{"BBB_CV_TSP_IRDOI", "Is the time-stamp message imprint data intact?", "Les données de l'empreinte de l'horodatage sont-elles intactes ?"},
	{"BBB_CV_TSP_IRDOI_ANS", "The time-stamp message imprint data is not intact!", "Les données de l'empreinte de l'horodatage ne sont pas intactes !"},
	{"BBB_CV_ISIT", "Is the time-stamp signature intact?", "La signature de l'horodatage est-elle intacte ?"},
	{"BBB_CV_ISIT_ANS", "The time-stamp signature is not intact!", "La signature de l'horodatage n'est pas intacte !"},
	{"BBB_CV_ISIR", "Is the revocation data signature intact?", "La signature des données de révocation est-elle intacte ?"},
	{"BBB_CV_ISIR_ANS", "The revocation data signature is not intact!", "La signature des données de révocation n'est pas intacte !"},
	{"BBB_XCV_CCCBB", "Can the certificate chain be built till a trust anchor?", "La chaîne de certificats peut-elle être construite jusqu'à une ancre de confiance ?"},
	{"BBB_XCV_CCCBB_ANS", "The certificate chain cannot be built till a trust anchor!", "La chaîne de certificats ne peut pas être construite jusqu'à une ancre de confiance !"},
	{"BBB_XCV_SUB", "Is the signing certificate validated?", "Le certificat de signature est-il validé ?"},
	{"BBB_XCV_SUB_ANS", "The signing certificate is not validated!", "Le certificat de signature n'est pas validé !"},
	{"BBB_XCV_ICSI", "Is the certificate signature intact?", "La signature du certificat est-elle intacte ?"},
	{"BBB_XCV_ICSI_ANS", "The certificate signature is not intact!", "La signature du certificat n'est pas intacte !"},
	{"BBB_XCV_ICTIVRSC", "Is the current time in the validity range of the certificate?", "La date courante est-elle dans la période de validité du certificat ?"},
	{"BBB_XCV_ICTIVRSC_ANS", "The current time is not in the validity range of the certificate!", "La date courante n'est pas dans la période de validité du certificat !"},
	{"BBB_XCV_ISIC", "Is the issuer certificate validated?", "Le certificat de l'émetteur est-il validé ?"},
	{"BBB_XCV_ISIC_ANS", "The issuer certificate is not validated!", "Le certificat de l'émetteur n'est pas validé !"},
	{"BBB_XCV_ICACCM", "Are the certificate cryptographic constraints met?", "Les contraintes cryptographiques du certificat sont-elles respectées ?"},
	{"BBB_XCV_ICACCM_ANS", "The certificate cryptographic constraints are not met!", "Les contraintes cryptographiques du certificat ne sont pas respectées !"},
	{"BBB_XCV_IRDPFC", "Is the revocation data present for the certificate?", "Les données de révocation du certificat sont-elles présentes ?"},
	{"BBB_XCV_IRDPFC_ANS", "No revocation data found for the certificate!", "Aucune donnée de révocation trouvée pour le certificat !"},
	{"BBB_RFC_IRIF", "Is the revocation information fresh for the certificate?", "Les informations de révocation du certificat sont-elles à jour ?"},
	{"BBB_RFC_IRIF_ANS", "The revocation information is not considered as fresh!", "Les informations de révocation ne sont pas considérées à jour !"},
	{"BBB_XCV_ISCR", "Is the certificate not revoked?", "Le certificat n'est-il pas révoqué ?"},
	{"BBB_XCV_ISCR_ANS", "The certificate is revoked!", "Le certificat est révoqué !"},
	{"BBB_TSP_IPTWTSACV", "Is the time-stamp production time within the TSA certificate validity?", "La date de l'horodatage est-elle dans la validité du certificat de l'autorité ?"},
	{"BBB_TSP_IPTWTSACV_ANS", "The time-stamp production time is out of the TSA certificate validity!", "La date de l'horodatage est hors de la validité du certificat de l'autorité !"},
	{"BBB_SAV_ISQPSTP", "Is the signed qualifying property 'signing-time' present?", "La propriété signée 'signing-time' est-elle présente ?"},
	{"BBB_SAV_ISQPSTP_ANS", "The signed qualifying property 'signing-time' is not present!", "La propriété signée 'signing-time' n'est pas présente !"},
	{"BBB_SAV_ASCCM", "Are the signature cryptographic constraints met?", "Les contraintes cryptographiques de la signature sont-elles respectées ?"},
	{"BBB_SAV_ASCCM_ANS", "The signature cryptographic constraints are not met!", "Les contraintes cryptographiques de la signature ne sont pas respectées !"},
	{"BBB_SAV_TSP_ACCM", "Are the time-stamp cryptographic constraints met?", "Les contraintes cryptographiques de l'horodatage sont-elles respectées ?"},
	{"BBB_SAV_TSP_ACCM_ANS", "The time-stamp cryptographic constraints are not met!", "Les contraintes cryptographiques de l'horodatage ne sont pas respectées !"},
	{"BBB_SAV_RAC_ACCM", "Are the revocation data cryptographic constraints met?", "Les contraintes cryptographiques des données de révocation sont-elles respectées ?"},
	{"BBB_SAV_RAC_ACCM_ANS", "The revocation data cryptographic constraints are not met!", "Les contraintes cryptographiques des données de révocation ne sont pas respectées !"},
	{"BBB_TSV_ISTO", "Are the time-stamps in the right order?", "Les horodatages sont-ils dans le bon ordre ?"},
	{"BBB_TSV_ISTO_ANS", "The time-stamps are not in the right order!", "Les horodatages ne sont pas dans le bon ordre !"},
	{"ADEST_ROTVPIIC", "Is there at least one valid time-stamp?", "Existe-t-il au moins un horodatage valide ?"},
	{"ADEST_ROTVPIIC_ANS", "No valid time-stamp found!", "Aucun horodatage valide trouvé !"},
	{"ARCH_LTAIVMP", "Is there at least one valid archive time-stamp?", "Existe-t-il au moins un horodatage d'archive valide ?"},
	{"ARCH_LTAIVMP_ANS", "No valid archive time-stamp found!", "Aucun horodatage d'archive valide trouvé !"},
	{"BBB_ER_IDOF", "Are the archive data objects found?", "Les objets de données archivés sont-ils trouvés ?"},
	{"BBB_ER_IDOF_ANS", "An archive data object is not found!", "Un objet de données archivé n'est pas trouvé !"},
	{"BBB_ER_IDOI", "Are the archive data objects intact?", "Les objets de données archivés sont-ils intacts ?"},
	{"BBB_ER_IDOI_ANS", "An archive data object is not intact!", "Un objet de données archivé n'est pas intact !"},
	{"BBB_ER_IATSP", "Does the evidence record contain a time-stamp?", "L'enregistrement de preuve contient-il un horodatage ?"},
	{"BBB_ER_IATSP_ANS", "The evidence record contains no time-stamp!", "L'enregistrement de preuve ne contient aucun horodatage !"},
	{"BBB_ER_IATSV", "Is an evidence record time-stamp valid?", "Un horodatage de l'enregistrement de preuve est-il valide ?"},
	{"BBB_ER_IATSV_ANS", "No evidence record time-stamp is valid!", "Aucun horodatage de l'enregistrement de preuve n'est valide !"},
	{"BBB_ER_ITSO", "Are the evidence record time-stamps in chronological order?", "Les horodatages de l'enregistrement de preuve sont-ils chronologiques ?"},
	{"BBB_ER_ITSO_ANS", "The evidence record time-stamps are not in chronological order!", "Les horodatages de l'enregistrement de preuve ne sont pas chronologiques !"},
	{"PCV_IPOEA", "Is a proof of existence available?", "Une preuve d'existence est-elle disponible ?"},
	{"PCV_IPOEA_ANS", "No proof of existence is available!", "Aucune preuve d'existence n'est disponible !"},

	// Report labels.
	{"report.title", "VALIDATION REPORT", "RAPPORT DE VALIDATION"},
	{"report.policy", "Policy", "Politique"},
	{"report.time", "Validation time", "Date de validation"},
	{"report.signatures", "Signatures", "Signatures"},
	{"report.valid", "valid", "valides"},
	{"report.signature", "Signature", "Signature"},
	{"report.record", "Evidence record", "Enregistrement de preuve"},
	{"report.format", "Format", "Format"},
	{"report.result", "Result", "Résultat"},
	{"report.bestTime", "Best signature time", "Meilleure date de signature"},
	{"report.signingCert", "Signing certificate", "Certificat de signature"},
	{"report.error", "ERROR", "ERREUR"},
	{"report.warning", "WARNING", "AVERTISSEMENT"},
	{"report.info", "INFO", "INFO"},
}

var (
	known = make(map[string]bool, len(entries))
	cat   = build()
)

func build() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(English))
	for _, e := range entries {
		known[e.key] = true
		// Messages are literal text.
		_ = b.SetString(English, e.key, escape(e.en))
		_ = b.SetString(French, e.key, escape(e.fr))
	}
	return b
}

func escape(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

// Printer renders message keys in one language.
type Printer struct {
	p *message.Printer
}

// NewPrinter returns a printer for lang, a BCP 47 tag. Unknown or empty
// tags select English.
func NewPrinter(lang string) *Printer {
	tag := English
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			matcher := language.NewMatcher([]language.Tag{English, French})
			_, idx, conf := matcher.Match(t)
			if conf != language.No && idx == 1 {
				tag = French
			}
		}
	}
	return &Printer{p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Text returns the message for key, or key itself when the catalog has no
// entry for it.
func (p *Printer) Text(key string) string {
	if !known[key] {
		return key
	}
	return p.p.Sprintf(key)
}

// Has reports whether key has a catalog entry.
func Has(key string) bool {
	return known[key]
}

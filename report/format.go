package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/i18n"
)

// ToJSON returns the reports as indented JSON.
func (r *Reports) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToXML returns the reports as indented XML.
func (r *Reports) ToXML() ([]byte, error) {
	out, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Fingerprint returns the hex SHA-256 of the canonical (RFC 8785) JSON
// form of the detailed report. Two runs over the same input produce the
// same fingerprint.
func (r *Reports) Fingerprint() (string, error) {
	raw, err := json.Marshal(r.Detailed)
	if err != nil {
		return "", fmt.Errorf("marshal detailed report: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize detailed report: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ToText renders the simple report for humans, in language lang.
func (r *Reports) ToText(lang string) string {
	p := i18n.NewPrinter(lang)
	s := r.Simple
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("=== %s ===\n", p.Text("report.title")))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	}
	sb.WriteString(fmt.Sprintf("%s: %s\n", p.Text("report.time"), r.ValidationTime.Format(time.RFC3339)))
	policy := r.Policy
	if r.PolicyVersion != "" {
		policy += " " + r.PolicyVersion
	}
	sb.WriteString(fmt.Sprintf("%s: %s (%s)\n", p.Text("report.policy"), policy, r.Level))
	sb.WriteString(fmt.Sprintf("%s: %d, %d %s\n",
		p.Text("report.signatures"), s.SignaturesCount, s.ValidSignaturesCount, p.Text("report.valid")))

	for i, sig := range s.Signatures {
		sb.WriteString(fmt.Sprintf("\n--- %s %d ---\n", p.Text("report.signature"), i+1))
		sb.WriteString(fmt.Sprintf("ID: %s\n", sig.ID))
		if sig.ParentID != "" {
			sb.WriteString(fmt.Sprintf("Parent: %s\n", sig.ParentID))
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", p.Text("report.format"), sig.Format))
		if sig.SigningCertificate != "" {
			sb.WriteString(fmt.Sprintf("%s: %s\n", p.Text("report.signingCert"), sig.SigningCertificate))
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", p.Text("report.bestTime"), sig.BestSignatureTime.Format(time.RFC3339)))
		writeVerdict(&sb, p, sig.Indication, sig.SubIndication)
		writeMessages(&sb, p, sig.Errors, sig.Warnings, sig.Infos)
	}

	for i, er := range s.EvidenceRecords {
		sb.WriteString(fmt.Sprintf("\n--- %s %d ---\n", p.Text("report.record"), i+1))
		sb.WriteString(fmt.Sprintf("ID: %s\n", er.ID))
		writeVerdict(&sb, p, er.Indication, er.SubIndication)
		writeMessages(&sb, p, er.Errors, er.Warnings, nil)
	}
	return sb.String()
}

func writeVerdict(sb *strings.Builder, p *i18n.Printer, ind ades.Indication, sub ades.SubIndication) {
	sb.WriteString(fmt.Sprintf("%s: %s", p.Text("report.result"), ind))
	if sub != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", sub))
	}
	sb.WriteString("\n")
}

func writeMessages(sb *strings.Builder, p *i18n.Printer, errs, warnings, infos []ades.Message) {
	write := func(label string, ms []ades.Message) {
		for _, m := range ms {
			line := p.Text(m.Key)
			if m.Value != "" {
				line += " - " + m.Value
			}
			sb.WriteString(fmt.Sprintf("  %s: %s\n", label, line))
		}
	}
	write(p.Text("report.error"), errs)
	write(p.Text("report.warning"), warnings)
	write(p.Text("report.info"), infos)
}

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/archive"
	"github.com/georgepadayatti/goades/config"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/metrics"
	"github.com/georgepadayatti/goades/report"
	"github.com/georgepadayatti/goades/validation"
)

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// ExitInvalid is the exit code of a validation whose signatures are not all
// TOTAL_PASSED when --strict is given.
const ExitInvalid = 2

func registerValidateCommand(root *cobra.Command, a *app) {
	root.AddCommand(newValidateCmd(a))
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		outputPath string
		atTime     string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "validate <diagnostic-data>",
		Short: "Validate the signatures described by diagnostic data",
		Long: `Validate the signatures, timestamps and evidence records of a diagnostic data
file (JSON, or DiagnosticData XML for files ending in .xml) and print the
validation reports.`,
		Example: `  goades validate diagnostic.json
  goades validate --policy policy.yaml --level LONG_TERM_DATA --format text diagnostic.xml
  goades validate --trust roots.pem --archive runs.db -o reports.json diagnostic.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var at time.Time
			if atTime != "" {
				t, err := time.Parse(time.RFC3339, atTime)
				if err != nil {
					return fmt.Errorf("invalid --time: %w", err)
				}
				at = t
			}

			reports, err := a.validate(cmd, args[0], at)
			if err != nil {
				return err
			}

			out, err := render(reports, a.cfg.Report.Format, a.cfg.Report.Language)
			if err != nil {
				return err
			}
			if outputPath != "" {
				if err := os.WriteFile(outputPath, out, 0o644); err != nil {
					return fmt.Errorf("failed to write reports: %w", err)
				}
			} else if _, err := a.out.Write(out); err != nil {
				return err
			}

			if strict && reports.Simple.ValidSignaturesCount != reports.Simple.SignaturesCount {
				return &exitError{
					code: ExitInvalid,
					err: fmt.Errorf("%d of %d signatures are not %s",
						reports.Simple.SignaturesCount-reports.Simple.ValidSignaturesCount,
						reports.Simple.SignaturesCount, ades.IndicationTotalPassed),
				}
			}
			return nil
		},
	}

	cmd.Flags().String("policy", "", "Validation policy file (default: built-in policy)")
	cmd.Flags().String("counter-policy", "", "Policy file applied to counter-signatures")
	cmd.Flags().String("level", "", "Validation level (BASIC_SIGNATURES, LONG_TERM_DATA, ARCHIVAL_DATA)")
	cmd.Flags().Int("workers", 0, "Independent signature groups validated at once")
	cmd.Flags().StringSlice("trust", nil, "Trusted certificate files (PEM or DER)")
	cmd.Flags().String("format", "", "Report format (json, xml, text)")
	cmd.Flags().String("lang", "", "Language of text reports (en, fr)")
	cmd.Flags().String("archive", "", "Store the reports in this archive database")
	cmd.Flags().String("metrics-textfile", "", "Write Prometheus metrics to this file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the reports to this file")
	cmd.Flags().StringVar(&atTime, "time", "", "Validation time (RFC 3339, default: diagnostic data time or now)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 2 unless every signature is TOTAL_PASSED")

	a.bind(cmd, "validation.policy", "policy")
	a.bind(cmd, "validation.counter-signature-policy", "counter-policy")
	a.bind(cmd, "validation.level", "level")
	a.bind(cmd, "validation.workers", "workers")
	a.bind(cmd, "trust", "trust")
	a.bind(cmd, "report.format", "format")
	a.bind(cmd, "report.language", "lang")
	a.bind(cmd, "archive.path", "archive")
	a.bind(cmd, "metrics.textfile", "metrics-textfile")

	return cmd
}

// validate runs one validation with the loaded configuration.
func (a *app) validate(cmd *cobra.Command, path string, at time.Time) (*report.Reports, error) {
	cfg := a.cfg
	ctx := cmd.Context()

	m, err := diagnostic.LoadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := cfg.LoadPolicy()
	if err != nil {
		return nil, err
	}
	counter, err := cfg.LoadCounterSignaturePolicy()
	if err != nil {
		return nil, fmt.Errorf("counter-signature policy: %w", err)
	}
	anchors, err := cfg.LoadTrust()
	if err != nil {
		return nil, err
	}
	level, err := cfg.ValidationLevel()
	if err != nil {
		return nil, err
	}

	var reg *prometheus.Registry
	var met *metrics.Metrics
	if cfg.Metrics.Enabled || cfg.Metrics.Textfile != "" {
		reg = prometheus.NewRegistry()
		met = metrics.New(reg)
	}

	opts := []validation.Option{
		validation.WithLogger(a.logger),
		validation.WithMetrics(met),
		validation.WithLevel(level),
		validation.WithWorkers(cfg.Validation.Workers),
		validation.WithMaxPasses(cfg.Validation.MaxPasses),
	}
	if counter != nil {
		opts = append(opts, validation.WithCounterSignaturePolicy(counter))
	}
	if anchors != nil {
		opts = append(opts, validation.WithTrustSource(anchors))
	}
	if !at.IsZero() {
		opts = append(opts, validation.WithValidationTime(at))
	}

	reports, err := validation.New(opts...).Validate(ctx, m, p)
	if err != nil {
		return nil, err
	}

	if cfg.Archive.Path != "" {
		store, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		sum, err := store.Save(ctx, reports)
		if err != nil {
			return nil, err
		}
		a.logger.Info().
			Str("run", sum.ID).
			Str("fingerprint", sum.Fingerprint).
			Str("archive", cfg.Archive.Path).
			Msg("reports archived")
	}

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			return nil, fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return reports, nil
}

func render(r *report.Reports, format, lang string) ([]byte, error) {
	switch format {
	case config.ReportXML:
		return r.ToXML()
	case config.ReportText:
		return []byte(r.ToText(lang)), nil
	default:
		out, err := r.ToJSON()
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
}

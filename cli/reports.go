package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/georgepadayatti/goades/archive"
)

func registerReportCommands(root *cobra.Command, a *app) {
	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Browse archived validation reports",
	}

	reportsCmd.PersistentFlags().String("archive", "", "Archive database")

	reportsCmd.AddCommand(newReportsListCmd(a))
	reportsCmd.AddCommand(newReportsShowCmd(a))

	root.AddCommand(reportsCmd)
}

// openArchive opens the configured archive.
func (a *app) openArchive() (*archive.Store, error) {
	if a.cfg.Archive.Path == "" {
		return nil, errors.New("no archive configured: use --archive or archive.path")
	}
	return archive.Open(a.cfg.Archive.Path)
}

func newReportsListCmd(a *app) *cobra.Command {
	var (
		limit       int
		fingerprint string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			var runs []archive.Summary
			if fingerprint != "" {
				runs, err = store.ByFingerprint(cmd.Context(), fingerprint)
			} else {
				runs, err = store.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No runs found.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tVALIDATION TIME\tPOLICY\tLEVEL\tVALID\tFINGERPRINT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					r.ID, r.ValidationTime.Format(time.RFC3339), r.Policy, r.Level,
					r.ValidSignaturesCount, r.SignaturesCount, short(r.Fingerprint))
			}
			w.Flush()
			fmt.Fprintf(a.out, "\n%d run(s) found.\n", len(runs))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Only runs with this detailed report fingerprint")
	a.bind(cmd, "archive.path", "archive")

	return cmd
}

func newReportsShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the reports of an archived run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := a.out.Write(rec.Data); err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			return nil
		},
	}

	a.bind(cmd, "archive.path", "archive")

	return cmd
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/goades/bbb"
	"github.com/georgepadayatti/goades/diagnostic"
	"github.com/georgepadayatti/goades/policy"
)

func registerPolicyCommands(root *cobra.Command, a *app) {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and check validation policies",
	}

	policyCmd.AddCommand(newPolicyCheckCmd(a))
	policyCmd.AddCommand(newPolicyShowCmd(a))

	root.AddCommand(policyCmd)
}

func newPolicyCheckCmd(a *app) *cobra.Command {
	var diagnosticPath string

	cmd := &cobra.Command{
		Use:   "check <policy.yaml>",
		Short: "Check that a policy can be used by the validator",
		Long: `Check a policy document against the policy schema and the registered
constraints. With --diagnostic, also check that the policy defines every
context the tokens of the diagnostic data need.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.LoadFile(args[0])
			if err != nil {
				return err
			}
			var m *diagnostic.Model
			if diagnosticPath != "" {
				if m, err = diagnostic.LoadFile(diagnosticPath); err != nil {
					return err
				}
			}
			if err := bbb.New().CheckPolicy(p, m); err != nil {
				return err
			}
			a.logger.Debug().Str("policy", p.Name()).Msg("policy checked")
			fmt.Fprintf(a.out, "Policy %s", p.Name())
			if p.Version() != "" {
				fmt.Fprintf(a.out, " (%s)", p.Version())
			}
			fmt.Fprintln(a.out, " is valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&diagnosticPath, "diagnostic", "", "Diagnostic data the policy must cover")

	return cmd
}

func newPolicyShowCmd(a *app) *cobra.Command {
	var (
		contextName string
		levelName   string
	)

	cmd := &cobra.Command{
		Use:   "show [policy.yaml]",
		Short: "Show a policy, or the built-in default policy",
		Long: `Print a policy document as YAML. Without an argument the configured policy
is shown, or the built-in default one. With --context, print the ordered
constraint list of that context at the configured validation level instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				p   *policy.Policy
				err error
			)
			switch {
			case len(args) == 1:
				p, err = policy.LoadFile(args[0])
			case a.cfg.Validation.Policy == "" && contextName == "":
				_, err = a.out.Write(policy.DefaultYAML())
				return err
			default:
				p, err = a.cfg.LoadPolicy()
			}
			if err != nil {
				return err
			}

			if contextName == "" {
				out, err := yaml.Marshal(p.Document())
				if err != nil {
					return fmt.Errorf("failed to marshal policy: %w", err)
				}
				_, err = a.out.Write(out)
				return err
			}

			level, err := a.cfg.ValidationLevel()
			if err != nil {
				return err
			}
			if levelName != "" {
				if level, err = policy.ParseValidationLevel(levelName); err != nil {
					return err
				}
			}
			ctx := policy.Context(strings.ToLower(contextName))
			if !p.Defines(ctx) {
				return fmt.Errorf("policy %s defines no %s constraints", p.Name(), ctx)
			}
			fmt.Fprintf(a.out, "# %s, %s, %s\n", p.Name(), ctx, level)
			for _, c := range p.Constraints(ctx, level) {
				fmt.Fprintf(a.out, "%-24s %-6s", c.Name, c.Level)
				if c.Value != "" {
					fmt.Fprintf(a.out, " %s", c.Value)
				}
				if c.IsCustom() {
					fmt.Fprintf(a.out, " %s", c.Expression)
				}
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contextName, "context", "", "Print the constraints of one context (signature, timestamp, certificate, ...)")
	cmd.Flags().StringVar(&levelName, "level", "", "Validation level used with --context")

	return cmd
}

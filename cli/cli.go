// Package cli provides the goades command line: validation of diagnostic
// data, policy inspection and access to archived reports.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/georgepadayatti/goades/config"
	"github.com/georgepadayatti/goades/logging"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// EnvPrefix prefixes the environment variables overriding configuration
// keys: validation.max-passes is read from GOADES_VALIDATION_MAX_PASSES.
const EnvPrefix = "GOADES"

// app is the state shared by the commands of one invocation.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer

	bindings map[*cobra.Command][]binding

	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
}

type binding struct {
	key, flag string
}

func newApp(out, errOut io.Writer) *app {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &app{
		v:        v,
		out:      out,
		errOut:   errOut,
		bindings: make(map[*cobra.Command][]binding),
		logger:   logging.Nop(),
	}
}

// bind makes flag name of cmd override configuration key when cmd runs.
// Several commands may bind the same key, so binding is deferred until the
// executed command is known.
func (a *app) bind(cmd *cobra.Command, key, name string) {
	a.bindings[cmd] = append(a.bindings[cmd], binding{key: key, flag: name})
}

func (a *app) bindFlags(cmd *cobra.Command) error {
	for _, b := range a.bindings[cmd] {
		if err := a.v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return fmt.Errorf("binding flag %s: %w", b.flag, err)
		}
	}
	return nil
}

// load reads the configuration file, applies the flag and environment
// overrides and sets up logging.
func (a *app) load() error {
	cfg := config.Default()
	if path := a.v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	a.override(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	w, closer, err := a.logOutput(cfg.Logging.Output)
	if err != nil {
		return err
	}
	a.logCloser = closer
	a.logger = logging.New(cfg.Logging.Level, cfg.Logging.Format, w)
	return nil
}

func (a *app) override(cfg *config.Config) {
	str := func(key string, dst *string) {
		if a.v.IsSet(key) {
			*dst = a.v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if a.v.IsSet(key) {
			*dst = a.v.GetInt(key)
		}
	}
	str("validation.policy", &cfg.Validation.Policy)
	str("validation.counter-signature-policy", &cfg.Validation.CounterSignaturePolicy)
	str("validation.level", &cfg.Validation.Level)
	num("validation.workers", &cfg.Validation.Workers)
	num("validation.max-passes", &cfg.Validation.MaxPasses)
	str("logging.level", &cfg.Logging.Level)
	str("logging.format", &cfg.Logging.Format)
	str("logging.output", &cfg.Logging.Output)
	if a.v.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = a.v.GetBool("metrics.enabled")
	}
	str("metrics.textfile", &cfg.Metrics.Textfile)
	str("report.format", &cfg.Report.Format)
	str("report.language", &cfg.Report.Language)
	str("archive.path", &cfg.Archive.Path)

	if files := a.v.GetStringSlice("trust"); len(files) > 0 {
		cfg.Validation.TrustStores = append(cfg.Validation.TrustStores, config.TrustStoreConfig{
			Type:  config.TrustStorePemDer,
			Files: files,
		})
	}
}

func (a *app) logOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "stderr":
		return a.errOut, nil, nil
	case "stdout":
		return a.out, nil, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, f, nil
}

func (a *app) close() {
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

// NewRootCommand builds the goades command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := newApp(out, errOut)

	root := &cobra.Command{
		Use:   "goades",
		Short: "goades - AdES signature validation",
		Long: `goades validates AdES signatures, timestamps and evidence records described
by diagnostic data against a validation policy, and produces simple and
detailed validation reports.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["config"] == "none" {
				return nil
			}
			if err := a.bindFlags(cmd); err != nil {
				return err
			}
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate("goades version {{.Version}}\n")

	root.PersistentFlags().String("config", "", "Configuration file (YAML)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (console, json)")
	if err := a.v.BindPFlag("config", root.PersistentFlags().Lookup("config")); err != nil {
		panic(err)
	}
	if err := a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}
	if err := a.v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format")); err != nil {
		panic(err)
	}

	registerValidateCommand(root, a)
	registerPolicyCommands(root, a)
	registerReportCommands(root, a)
	root.AddCommand(newVersionCmd(a))

	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "none"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "goades version %s\n", Version)
			fmt.Fprintf(a.out, "Build time: %s\n", BuildTime)
		},
	}
}

// Run executes the command line with args, the program name excluded, and
// returns the process exit code.
func Run(args []string, out, errOut io.Writer) int {
	root := NewRootCommand(out, errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		return 1
	}
	return 0
}

// Package config loads the YAML configuration of the validator and the
// command line: policy files, validation level, trust stores, logging,
// metrics, report rendering and the report archive.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/goades/logging"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/trust"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnexpectedField      = errors.New("unexpected field in configuration")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigError match ErrConfigurationError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigurationError
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func missing(field string) *ConfigError {
	return &ConfigError{Field: field, Message: "required field is missing", Err: ErrMissingRequiredField}
}

// Trust store types.
const (
	TrustStorePemDer = "pemder"
	TrustStorePKCS12 = "pkcs12"
)

// Report formats.
const (
	ReportJSON = "json"
	ReportXML  = "xml"
	ReportText = "text"
)

// StringList is a list of strings that may be written in YAML as a single
// scalar or as a sequence.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(StringList, 0, len(node.Content))
		for i, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return NewConfigError("",
					fmt.Sprintf("item %d is not a string (line %d)", i, item.Line))
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return NewConfigError("", fmt.Sprintf("must be specified as a list of strings or a string (line %d)", node.Line))
	}
}

// TrustStoreConfig describes one set of trust anchors.
type TrustStoreConfig struct {
	// Type is the store type ("pemder" or "pkcs12").
	Type string `yaml:"type" json:"type"`

	// Files are the PEM or DER certificate files of a pemder store.
	Files StringList `yaml:"files" json:"files,omitempty"`

	// File is the PKCS#12 trust store file.
	File string `yaml:"file" json:"file,omitempty"`

	// Passphrase is the PKCS#12 passphrase.
	Passphrase string `yaml:"passphrase" json:"passphrase,omitempty"`
}

// Validate validates the trust store configuration.
func (c *TrustStoreConfig) Validate() error {
	switch strings.ToLower(c.Type) {
	case TrustStorePemDer, "":
		if len(c.Files) == 0 {
			return missing("files")
		}
	case TrustStorePKCS12:
		if c.File == "" {
			return missing("file")
		}
	default:
		return NewConfigError("type", fmt.Sprintf("unknown trust store type %q", c.Type))
	}
	return nil
}

// Load reads the anchors of the store.
func (c *TrustStoreConfig) Load() (*trust.CertificateSource, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if strings.ToLower(c.Type) == TrustStorePKCS12 {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read trust store %s: %w", c.File, err)
		}
		return trust.LoadPKCS12(data, c.Passphrase)
	}
	return trust.LoadFiles(c.Files...)
}

// ValidationConfig contains the settings of validation runs.
type ValidationConfig struct {
	// Policy is the path of the validation policy. Empty means the
	// built-in default policy.
	Policy string `yaml:"policy" json:"policy,omitempty"`

	// CounterSignaturePolicy is the path of the policy applied to
	// counter-signatures. Empty means the main policy.
	CounterSignaturePolicy string `yaml:"counter-signature-policy" json:"counter_signature_policy,omitempty"`

	// Level is the validation level (BASIC_SIGNATURES, LONG_TERM_DATA or
	// ARCHIVAL_DATA).
	Level string `yaml:"level" json:"level,omitempty"`

	// Workers bounds the independent signature groups evaluated at once.
	Workers int `yaml:"workers" json:"workers,omitempty"`

	// MaxPasses bounds the retroactive passes of a run.
	MaxPasses int `yaml:"max-passes" json:"max_passes,omitempty"`

	// TrustStores are loaded in addition to the anchors flagged in the
	// diagnostic data.
	TrustStores []TrustStoreConfig `yaml:"trust-stores" json:"trust_stores,omitempty"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is the log format (console, json).
	Format string `yaml:"format" json:"format,omitempty"`

	// Output is the log output (stdout, stderr, or file path).
	Output string `yaml:"output" json:"output,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = logging.FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// MetricsConfig contains the Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Textfile is written in the Prometheus text format when a command
	// finishes, for the node exporter textfile collector. Empty means
	// metrics are collected but not written.
	Textfile string `yaml:"textfile" json:"textfile,omitempty"`
}

// ReportConfig contains report rendering settings.
type ReportConfig struct {
	// Format is the output format (json, xml, text).
	Format string `yaml:"format" json:"format,omitempty"`

	// Language selects the message language of text reports.
	Language string `yaml:"language" json:"language,omitempty"`
}

// ArchiveConfig contains the report archive settings.
type ArchiveConfig struct {
	// Path is the sqlite database file. Empty disables archiving.
	Path string `yaml:"path" json:"path,omitempty"`
}

// Config contains the complete application configuration.
type Config struct {
	Validation ValidationConfig `yaml:"validation" json:"validation"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
	Report     ReportConfig     `yaml:"report" json:"report"`
	Archive    ArchiveConfig    `yaml:"archive" json:"archive"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills the unset fields.
func (c *Config) SetDefaults() {
	if c.Validation.Level == "" {
		c.Validation.Level = policy.LevelArchivalData.String()
	}
	if c.Validation.Workers == 0 {
		c.Validation.Workers = 1
	}
	if c.Validation.MaxPasses == 0 {
		c.Validation.MaxPasses = 16
	}
	c.Logging.SetDefaults()
	if c.Report.Format == "" {
		c.Report.Format = ReportJSON
	}
	if c.Report.Language == "" {
		c.Report.Language = "en"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.ValidationLevel(); err != nil {
		return err
	}
	if c.Validation.Workers < 1 {
		return NewConfigError("validation.workers", "must be at least 1")
	}
	if c.Validation.MaxPasses < 1 {
		return NewConfigError("validation.max-passes", "must be at least 1")
	}
	for i := range c.Validation.TrustStores {
		if err := c.Validation.TrustStores[i].Validate(); err != nil {
			var ce *ConfigError
			if errors.As(err, &ce) {
				ce.Field = fmt.Sprintf("validation.trust-stores[%d].%s", i, ce.Field)
			}
			return err
		}
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return NewConfigError("logging.format", fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}
	switch c.Report.Format {
	case ReportJSON, ReportXML, ReportText:
	default:
		return NewConfigError("report.format", fmt.Sprintf("unknown report format %q", c.Report.Format))
	}
	return nil
}

// ValidationLevel returns the configured level.
func (c *Config) ValidationLevel() (policy.ValidationLevel, error) {
	l, err := policy.ParseValidationLevel(c.Validation.Level)
	if err != nil {
		return 0, &ConfigError{Field: "validation.level", Message: fmt.Sprintf("unknown validation level %q", c.Validation.Level), Err: err}
	}
	return l, nil
}

// LoadPolicy loads the configured policy, or the default one.
func (c *Config) LoadPolicy() (*policy.Policy, error) {
	if c.Validation.Policy == "" {
		return policy.Default(), nil
	}
	return policy.LoadFile(c.Validation.Policy)
}

// LoadCounterSignaturePolicy loads the counter-signature policy. It returns
// nil when none is configured.
func (c *Config) LoadCounterSignaturePolicy() (*policy.Policy, error) {
	if c.Validation.CounterSignaturePolicy == "" {
		return nil, nil
	}
	return policy.LoadFile(c.Validation.CounterSignaturePolicy)
}

// LoadTrust loads every configured trust store. It returns nil when none is
// configured.
func (c *Config) LoadTrust() (trust.Source, error) {
	if len(c.Validation.TrustStores) == 0 {
		return nil, nil
	}
	var sources trust.Multi
	for i := range c.Validation.TrustStores {
		s, err := c.Validation.TrustStores[i].Load()
		if err != nil {
			return nil, fmt.Errorf("trust store %d: %w", i, err)
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// Load loads a configuration from a YAML file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML data, applies the defaults and
// validates the result. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var config Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedField, err)
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

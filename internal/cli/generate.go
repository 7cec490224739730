package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/apiweave/wadl2go/internal/codegen"
	"github.com/apiweave/wadl2go/internal/parser"
	"github.com/apiweave/wadl2go/internal/resolver"
	"github.com/apiweave/wadl2go/internal/unify"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input             string
	Out               string
	PackageName       string
	HTTPMode          string
	NamingStyle       string
	MediaTypes        []string
	RuntimeImport     string
	InlineSingleUse   bool
	Strict            bool
	NoDocs            bool
	StripCodeExamples bool
	AllowNetwork      bool
	ConfigPath        string
	DryRun            bool
	Force             bool
	Verbose           bool
}

func defaultGenerateConfig() GenerateConfig {
	d := codegen.DefaultOptions()
	return GenerateConfig{
		Out:           "client.gen.go",
		PackageName:   d.PackageName,
		HTTPMode:      d.HTTPMode,
		NamingStyle:   d.NamingStyle,
		MediaTypes:    d.MediaTypePreference,
		RuntimeImport: d.RuntimeImport,
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a typed Go client from a WADL document",
		Long: "Generate a typed Go client from a WADL document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  wadl2go generate --input api.wadl --out client.gen.go
  wadl2go --config wadl2go.yaml generate --http-mode async --force`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the WADL document")
	flags.String("out", "", "Output file for generated Go source (default client.gen.go)")
	flags.String("package-name", "", "Package name of the generated file")
	flags.String("http-mode", "", "Generated call style (sync|async)")
	flags.String("naming-style", "", "Wire name style in struct tags (camel|snake)")
	flags.StringSlice("media-type", nil, "Preferred media types, in order")
	flags.String("runtime-import", "", "Import path of the runtime client package")
	flags.Bool("inline-single-use", false, "Inline unnamed single-use representations as anonymous types")
	flags.Bool("strict", false, "Reject unknown WADL elements and out-of-place param styles")
	flags.Bool("no-docs", false, "Omit doc comments from generated code")
	flags.Bool("strip-code-examples", false, "Drop code blocks from doc comments")
	flags.Bool("allow-network", false, "Permit fetching cross-document references over http/https")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	stringInto := func(name string, dst *string) error {
		if !flags.Changed(name) {
			return nil
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
		return nil
	}
	boolInto := func(name string, dst *bool) error {
		if !flags.Changed(name) {
			return nil
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
		return nil
	}

	for name, dst := range map[string]*string{
		"input":          &cfg.Input,
		"out":            &cfg.Out,
		"package-name":   &cfg.PackageName,
		"http-mode":      &cfg.HTTPMode,
		"naming-style":   &cfg.NamingStyle,
		"runtime-import": &cfg.RuntimeImport,
	} {
		if err := stringInto(name, dst); err != nil {
			return err
		}
	}
	if flags.Changed("media-type") {
		value, err := flags.GetStringSlice("media-type")
		if err != nil {
			return err
		}
		cfg.MediaTypes = sanitizeList(value)
	}
	for name, dst := range map[string]*bool{
		"inline-single-use":   &cfg.InlineSingleUse,
		"strict":              &cfg.Strict,
		"no-docs":             &cfg.NoDocs,
		"strip-code-examples": &cfg.StripCodeExamples,
		"allow-network":       &cfg.AllowNetwork,
		"dry-run":             &cfg.DryRun,
		"force":               &cfg.Force,
		"verbose":             &cfg.Verbose,
	} {
		if err := boolInto(name, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.PackageName = strings.TrimSpace(c.PackageName)
	c.HTTPMode = strings.ToLower(strings.TrimSpace(c.HTTPMode))
	c.NamingStyle = strings.ToLower(strings.TrimSpace(c.NamingStyle))
	c.RuntimeImport = strings.TrimSpace(c.RuntimeImport)
	c.MediaTypes = sanitizeList(c.MediaTypes)
	if c.Out == "" {
		c.Out = "client.gen.go"
	}
	if len(c.MediaTypes) == 0 {
		c.MediaTypes = codegen.DefaultOptions().MediaTypePreference
	}
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return usagef("generate: --input is required (set via flag or config file)")
	}
	switch c.HTTPMode {
	case "sync", "async":
	default:
		return usagef("generate: unsupported --http-mode %q (allowed: sync, async)", c.HTTPMode)
	}
	switch c.NamingStyle {
	case "camel", "snake":
	default:
		return usagef("generate: unsupported --naming-style %q (allowed: camel, snake)", c.NamingStyle)
	}
	return nil
}

// codegenOptions maps the merged CLI config onto generator options.
func (c *GenerateConfig) codegenOptions() codegen.Options {
	opts := codegen.DefaultOptions()
	opts.PackageName = c.PackageName
	opts.HTTPMode = c.HTTPMode
	opts.NamingStyle = c.NamingStyle
	opts.MediaTypePreference = c.MediaTypes
	opts.RuntimeImport = c.RuntimeImport
	opts.IncludeDocComments = !c.NoDocs
	opts.StripCodeExamples = c.StripCodeExamples
	opts.InlineSingleUse = c.InlineSingleUse
	return opts
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	res, table, err := loadPipeline(ctx, cfg.Input, cfg.Strict, cfg.AllowNetwork)
	if err != nil {
		return err
	}

	src, err := codegen.Generate(res, table, cfg.codegenOptions())
	if err != nil {
		return friendlyError(err)
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	if cfg.DryRun {
		fmt.Fprintf(os.Stdout, "Planned write to %s (%d bytes)\n", absOut, len(src))
		return nil
	}
	if st, err := os.Stat(absOut); err == nil && st.Mode().IsRegular() && !cfg.Force {
		return usagef("generate: %q already exists (use --force to overwrite)", absOut)
	}
	if err := writeFileAtomic(absOut, src); err != nil {
		return usagef("output error for %s: %v\nHint: choose a different --out or check directory permissions.", absOut, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", absOut)
	return nil
}

// loadPipeline runs the shared front half of every command: read the root
// document, parse it, resolve references, and unify representations.
func loadPipeline(ctx context.Context, input string, strict, allowNetwork bool) (*resolver.Resolution, *unify.Table, error) {
	settings := DefaultSettings()
	// naming the root document over http implies consent to fetch it
	settings.AllowNetwork = allowNetwork || isURL(input)

	base, err := baseURI(input)
	if err != nil {
		return nil, nil, usagef("generate: %v", err)
	}
	ld := &docLoader{settings: settings}
	tree, err := ld.Load(ctx, base)
	if err != nil {
		return nil, nil, usagef("read %s: %v", input, err)
	}

	popts := parser.Options{}
	if strict {
		popts.Mode = parser.Strict
	}
	app, err := parser.Parse(tree, base, popts)
	if err != nil {
		return nil, nil, friendlyError(err)
	}
	res, err := resolver.Resolve(ctx, app, ld, resolver.Options{Parse: popts})
	if err != nil {
		return nil, nil, friendlyError(err)
	}
	table, err := unify.Build(res)
	if err != nil {
		return nil, nil, err
	}
	return res, table, nil
}

// friendlyError maps structured pipeline errors onto usage errors with their
// diagnostic detail, leaving unknown errors untouched.
func friendlyError(err error) error {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return usagef("wadl: %v", pe)
	}
	var re *resolver.ResolveError
	if errors.As(err, &re) {
		return usagef("wadl: %v", re)
	}
	var ge *codegen.GenerateError
	if errors.As(err, &ge) {
		return usagef("%v", ge)
	}
	return err
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return usagef("read config file %q: %v", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return usagef("parse config file %q: %v", path, err)
	}

	for key, value := range raw {
		var ferr error
		switch normalizeKey(key) {
		case "input":
			cfg.Input, ferr = valueAsString(value)
		case "out":
			cfg.Out, ferr = valueAsString(value)
		case "packagename":
			cfg.PackageName, ferr = valueAsString(value)
		case "httpmode":
			cfg.HTTPMode, ferr = valueAsString(value)
		case "namingstyle":
			cfg.NamingStyle, ferr = valueAsString(value)
		case "runtimeimport":
			cfg.RuntimeImport, ferr = valueAsString(value)
		case "mediatypes":
			var list []string
			list, ferr = valueAsStringSlice(value)
			if ferr == nil {
				cfg.MediaTypes = sanitizeList(list)
			}
		case "inlinesingleuse":
			cfg.InlineSingleUse, ferr = valueAsBool(value)
		case "strict":
			cfg.Strict, ferr = valueAsBool(value)
		case "nodocs":
			cfg.NoDocs, ferr = valueAsBool(value)
		case "stripcodeexamples":
			cfg.StripCodeExamples, ferr = valueAsBool(value)
		case "allownetwork":
			cfg.AllowNetwork, ferr = valueAsBool(value)
		case "dryrun":
			cfg.DryRun, ferr = valueAsBool(value)
		case "force":
			cfg.Force, ferr = valueAsBool(value)
		case "verbose":
			cfg.Verbose, ferr = valueAsBool(value)
		default:
			return usagef("config file %q: unknown field %q", path, key)
		}
		if ferr != nil {
			return usagef("config field %q: %v", key, ferr)
		}
	}
	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

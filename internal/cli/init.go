package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample wadl2go configuration file",
		Long:  "Scaffold a commented wadl2go configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", "wadl2go.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "wadl2go.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return usagef("init: %q already exists (use --force to overwrite)", absPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return usagef("init: cannot create parent directory: %v", err)
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := writeFileAtomic(absPath, []byte(content)); err != nil {
		return usagef("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# wadl2go configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the WADL document (http/https or local file).
# input: ./api.wadl

# Output file for the generated Go source.
# out: client.gen.go

# Package name of the generated file.
# packageName: apiclient

# Generated call style: sync methods or async channel-returning methods.
# httpMode: sync

# Wire name style in struct tags (camel keeps declared names, snake normalizes).
# namingStyle: camel

# Preferred media types, in order, when a method declares several.
# mediaTypes: [application/json]

# Import path of the runtime client package.
# runtimeImport: github.com/apiweave/wadl2go/client

# Inline unnamed single-use representations as anonymous types.
# inlineSingleUse: false

# Reject unknown WADL elements and out-of-place param styles.
# strict: false

# Omit doc comments from generated code.
# noDocs: false

# Drop code blocks from doc comments.
# stripCodeExamples: false

# Permit fetching cross-document references over http/https.
# allowNetwork: false

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite existing output.
# force: false

# Enable verbose logging.
# verbose: false
`

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/apiweave/wadl2go/internal/render"
)

// ASTConfig captures the options for the ast command.
type ASTConfig struct {
	Input        string
	Out          string
	Format       string
	Strict       bool
	AllowNetwork bool
}

var astRunner = runAST

func newASTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ast",
		Short: "Dump the resolved WADL document model",
		Long:  "Parse and resolve a WADL document, then dump the document model as YAML or JSON for inspection, or re-render it as normalized WADL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &ASTConfig{}
			var err error
			if cfg.Input, err = cmd.Flags().GetString("input"); err != nil {
				return err
			}
			if cfg.Out, err = cmd.Flags().GetString("out"); err != nil {
				return err
			}
			if cfg.Format, err = cmd.Flags().GetString("format"); err != nil {
				return err
			}
			if cfg.Strict, err = cmd.Flags().GetBool("strict"); err != nil {
				return err
			}
			if cfg.AllowNetwork, err = cmd.Flags().GetBool("allow-network"); err != nil {
				return err
			}
			return astRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("input", "", "Path or URL to the WADL document")
	cmd.Flags().String("out", "", "Output file (stdout when omitted)")
	cmd.Flags().String("format", "yaml", "Dump format (yaml|json|wadl)")
	cmd.Flags().Bool("strict", false, "Reject unknown WADL elements and out-of-place param styles")
	cmd.Flags().Bool("allow-network", false, "Permit fetching cross-document references over http/https")

	return cmd
}

func runAST(ctx context.Context, cfg *ASTConfig) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return usagef("ast: --input is required")
	}
	res, _, err := loadPipeline(ctx, cfg.Input, cfg.Strict, cfg.AllowNetwork)
	if err != nil {
		return err
	}

	var data []byte
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "yaml":
		data, err = yaml.Marshal(res.Root.App)
	case "json":
		data, err = json.MarshalIndent(res.Root.App, "", "  ")
	case "wadl":
		data = render.Marshal(res.Root.App)
	default:
		return usagef("ast: unsupported --format %q (allowed: yaml, json, wadl)", cfg.Format)
	}
	if err != nil {
		return fmt.Errorf("ast: encode model: %w", err)
	}
	return emit(cfg.Out, data)
}

// emit writes data to the given file, or stdout when path is empty.
func emit(path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return usagef("output error for %s: %v", path, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
	return nil
}

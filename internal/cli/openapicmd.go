package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/apiweave/wadl2go/internal/openapi"
)

// OpenAPIConfig captures the options for the openapi command.
type OpenAPIConfig struct {
	Input        string
	Out          string
	Format       string
	Strict       bool
	AllowNetwork bool
}

var openapiRunner = runOpenAPI

func newOpenAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Export a WADL document as OpenAPI 3.0",
		Long: "Parse and resolve a WADL document, then export it as an OpenAPI 3.0 description. " +
			"The mapping is lossy where the models disagree: matrix parameters become query parameters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &OpenAPIConfig{}
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
			return openapiRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("input", "", "Path or URL to the WADL document")
	cmd.Flags().String("out", "", "Output file (stdout when omitted)")
	cmd.Flags().String("format", "yaml", "Export format (yaml|json)")
	cmd.Flags().Bool("strict", false, "Reject unknown WADL elements and out-of-place param styles")
	cmd.Flags().Bool("allow-network", false, "Permit fetching cross-document references over http/https")

	return cmd
}

func runOpenAPI(ctx context.Context, cfg *OpenAPIConfig) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return usagef("openapi: --input is required")
	}
	res, table, err := loadPipeline(ctx, cfg.Input, cfg.Strict, cfg.AllowNetwork)
	if err != nil {
		return err
	}
	doc, err := openapi.Export(res, table)
	if err != nil {
		return fmt.Errorf("openapi: %w", err)
	}

	// kin-openapi types carry json tags, so build YAML from the JSON form
	// to keep field names consistent across both formats.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("openapi: encode document: %w", err)
	}
	var data []byte
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "yaml":
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("openapi: encode document: %w", err)
		}
		data, err = yaml.Marshal(tree)
		if err != nil {
			return fmt.Errorf("openapi: encode document: %w", err)
		}
	case "json":
		var buf map[string]any
		if err := json.Unmarshal(raw, &buf); err != nil {
			return fmt.Errorf("openapi: encode document: %w", err)
		}
		data, err = json.MarshalIndent(buf, "", "  ")
		if err != nil {
			return fmt.Errorf("openapi: encode document: %w", err)
		}
	default:
		return usagef("openapi: unsupported --format %q (allowed: yaml, json)", cfg.Format)
	}
	return emit(cfg.Out, data)
}
